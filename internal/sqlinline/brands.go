package sqlinline

const QSelectBrandProfile = `--sql f06f2783-f598-447a-b6f2-be620c6a6d28
select id::text, name, coalesce(tagline, ''), primary_color, coalesce(secondary_color, ''), coalesce(accent_color, '')
from businesses
where id = $1::uuid
limit 1;
`
