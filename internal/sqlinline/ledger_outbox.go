package sqlinline

const QInsertOutboxEvent = `--sql 97d626bf-7d41-4611-bc01-29537c921f20
insert into outbox_events(
  id,
  event_type,
  aggregate_type,
  aggregate_id,
  payload,
  status,
  attempts,
  created_at
) values (
  $1::uuid,
  $2::text,
  $3::text,
  $4::text,
  $5::jsonb,
  'PENDING',
  0,
  $6::timestamptz
);
`

// QClaimOutboxEvents leases a batch of publishable rows. Rows whose lease ran
// out while PUBLISHING are picked up again.
const QClaimOutboxEvents = `--sql c2f46d2f-91b5-4ef9-9ad6-edf85f503a52
with next_events as (
    select id
    from outbox_events
    where status = 'PENDING'
       or (status = 'PUBLISHING' and locked_until < now())
    order by created_at asc
    for update skip locked
    limit $1::int
),
claimed as (
    update outbox_events o
    set status = 'PUBLISHING',
        locked_until = now() + make_interval(secs => $2::double precision)
    where o.id in (select id from next_events)
    returning o.id, o.event_type, o.aggregate_type, o.aggregate_id, o.payload, o.status, o.attempts, coalesce(o.last_error, ''), o.created_at
)
select * from claimed order by created_at asc;
`

const QMarkOutboxPublished = `--sql ffdcfb62-9752-4762-ad9f-773f1c2d6e76
update outbox_events
set status = 'PUBLISHED',
    published_at = $2::timestamptz,
    locked_until = null
where id = $1::uuid;
`

const QMarkOutboxFailed = `--sql c9251247-f3aa-4e04-9b5f-9a809a36e2b5
update outbox_events
set attempts = attempts + 1,
    last_error = $2::text,
    locked_until = null,
    status = case when attempts + 1 >= $3::int then 'FAILED' else 'PENDING' end
where id = $1::uuid;
`
