package sqlinline

const QInsertUsageEvent = `--sql ea722693-c4c3-4e27-a843-e60096d55b63
insert into usage_events(id, request_id, business_id, stage, model, method, cost_usd, occurred_at)
values (gen_random_uuid(), $1::text, nullif($2::text, '')::uuid, $3::text, $4::text, $5::text, $6::numeric, $7::timestamptz);
`

const QSumUsageByBusiness = `--sql 5b88bf35-5f5e-496e-afaa-975e65ac92c7
select coalesce(sum(cost_usd), 0)::float8
from usage_events
where business_id = $1::uuid
  and occurred_at >= $2::timestamptz;
`
