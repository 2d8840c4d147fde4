package sqlinline

const QInsertLegEvent = `--sql a1ad1da0-9793-466f-be7c-8e32566b6ed2
insert into leg_events(
  leg_type,
  leg_tx_id,
  counter,
  user_id,
  galaxy_id,
  issue_id,
  spend_usd,
  sunshines,
  memo,
  claimed_spend_usd,
  claimed_sunshines,
  received_at
) values (
  $1::text,
  $2::text,
  $3::bigint,
  $4::text,
  $5::text,
  nullif($6::text, ''),
  nullif($7::text, '')::numeric,
  $8::double precision,
  nullif($9::text, ''),
  nullif($10::text, '')::numeric,
  $11::double precision,
  $12::timestamptz
)
on conflict (leg_type, leg_tx_id) do nothing
returning received_at;
`

const QSelectLegEvent = `--sql ddb69592-f5d4-45b0-bec8-d6d56d659c7e
select
  leg_type,
  leg_tx_id,
  counter,
  user_id,
  galaxy_id,
  coalesce(issue_id, ''),
  coalesce(spend_usd::text, ''),
  coalesce(sunshines, 0),
  coalesce(memo, ''),
  coalesce(claimed_spend_usd::text, ''),
  claimed_sunshines,
  received_at,
  reconciled_at,
  coalesce(outcome, '')
from leg_events
where leg_type = $1::text and leg_tx_id = $2::text
limit 1;
`

const QListUnreconciledLegs = `--sql f053d862-8afe-4a92-9682-0cbf9c5d737c
select
  leg_type,
  leg_tx_id,
  counter,
  user_id,
  galaxy_id,
  coalesce(issue_id, ''),
  coalesce(spend_usd::text, ''),
  coalesce(sunshines, 0),
  coalesce(memo, ''),
  coalesce(claimed_spend_usd::text, ''),
  claimed_sunshines,
  received_at,
  reconciled_at,
  coalesce(outcome, '')
from leg_events
where reconciled_at is null and received_at < $1::timestamptz
order by received_at asc
limit $2::int;
`

const QMarkLegReconciled = `--sql 10f7b722-2a2c-4fcd-b984-73956b3878ec
update leg_events
set reconciled_at = $4::timestamptz,
    outcome = $3::text
where leg_type = $1::text and leg_tx_id = $2::text;
`
