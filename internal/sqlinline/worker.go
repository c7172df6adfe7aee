package sqlinline

const QInsertRatingJob = `--sql 1542009f-f242-492b-b85e-6faca7dbac68
insert into rating_jobs (id, business_id, storage_key, brand_color, status, created_at)
values ($1::uuid, nullif($2::text, '')::uuid, $3::text, $4::text, 'queued', $5::timestamptz);
`

const QClaimRatingJob = `--sql 65bfa663-2c46-404c-9fdd-2fbad4d28043
with next_job as (
    select id
    from rating_jobs
    where status = 'queued'
    order by created_at asc
    for update skip locked
    limit 1
),
updated as (
    update rating_jobs
    set status = 'running', updated_at = now()
    where id in (select id from next_job)
    returning id, coalesce(business_id::text, ''), storage_key, brand_color, status, created_at
)
select * from updated;
`

const QCompleteRatingJob = `--sql 82050077-a168-45ff-8134-16cd90b1da08
update rating_jobs
set status = 'succeeded',
    brand_color_match = $2::int,
    brand_personality_fit = $3::int,
    focal_point_clarity = $4::int,
    text_contrast = $5::int,
    overall_score = $6::int,
    error_message = null,
    completed_at = now(),
    updated_at = now()
where id = $1::uuid;
`

const QFailRatingJob = `--sql 20b5efc5-6944-485b-9f63-f49c6bfd2f59
update rating_jobs
set status = 'failed', error_message = $2::text, completed_at = now(), updated_at = now()
where id = $1::uuid;
`

const QSelectRatingJob = `--sql c36baa05-0cd4-4842-b506-0281caa29d5c
select id::text, coalesce(business_id::text, ''), storage_key, brand_color, status, created_at, completed_at,
       brand_color_match, brand_personality_fit, focal_point_clarity, text_contrast, overall_score
from rating_jobs
where id = $1::uuid;
`

const QRequeueStaleRatingJobs = `--sql 9d3f6a2e-71c4-4b0a-a5e8-3c2f1d7b84e6
update rating_jobs
set status = 'queued', updated_at = now()
where status = 'running'
  and updated_at < $1::timestamptz;
`
