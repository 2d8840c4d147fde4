package sqlinline

// QLockSlot takes the transaction-scoped advisory lock for one correlation key.
const QLockSlot = `--sql ee443e21-bf8b-4f61-9f41-869ec7dac589
select pg_advisory_xact_lock(hashtextextended($1::text, 0));
`

const QSelectLiveDonationForUpdate = `--sql 1cb2d494-37e1-41f4-af12-98b5189b669c
select
  id,
  user_id,
  galaxy_id,
  counter,
  coalesce(issue_id, ''),
  coalesce(initiate_tx_id, ''),
  coalesce(hyperpay_tx_id, ''),
  coalesce(sunshines_amount, 0),
  coalesce(spend_usd_amount, 0)::text,
  coalesce(memo, ''),
  created_at,
  completed_at,
  expired_at,
  reward_applied_at
from donations
where user_id = $1::text
  and galaxy_id = $2::text
  and counter = $3::bigint
  and completed_at is null
  and expired_at is null
limit 1
for update;
`

const QSelectLatestCompletedDonation = `--sql 84b244b5-97ee-46ab-806a-aa94a5d302fd
select
  id,
  user_id,
  galaxy_id,
  counter,
  coalesce(issue_id, ''),
  coalesce(initiate_tx_id, ''),
  coalesce(hyperpay_tx_id, ''),
  coalesce(sunshines_amount, 0),
  coalesce(spend_usd_amount, 0)::text,
  coalesce(memo, ''),
  created_at,
  completed_at,
  expired_at,
  reward_applied_at
from donations
where user_id = $1::text
  and galaxy_id = $2::text
  and counter = $3::bigint
  and completed_at is not null
order by completed_at desc
limit 1;
`

const QSelectDonationByLeg = `--sql 6a74d119-d5e0-4926-948f-e13e8a4064ee
select
  id,
  user_id,
  galaxy_id,
  counter,
  coalesce(issue_id, ''),
  coalesce(initiate_tx_id, ''),
  coalesce(hyperpay_tx_id, ''),
  coalesce(sunshines_amount, 0),
  coalesce(spend_usd_amount, 0)::text,
  coalesce(memo, ''),
  created_at,
  completed_at,
  expired_at,
  reward_applied_at
from donations
where ($1::text = 'initiate' and initiate_tx_id = $2::text)
   or ($1::text = 'processor' and hyperpay_tx_id = $2::text)
order by created_at desc
limit 1;
`

const QInsertPendingDonation = `--sql 43615641-cbc1-4930-b898-3084136e9e98
insert into donations(
  id,
  user_id,
  galaxy_id,
  counter,
  issue_id,
  initiate_tx_id,
  hyperpay_tx_id,
  created_at
) values (
  $1::uuid,
  $2::text,
  $3::text,
  $4::bigint,
  nullif($5::text, ''),
  nullif($6::text, ''),
  nullif($7::text, ''),
  $8::timestamptz
);
`

// QCompleteDonation only succeeds while the donation is still pending.
const QCompleteDonation = `--sql e8fa24d2-0616-4a1d-b43c-e486a2e01a3a
update donations
set initiate_tx_id = $2::text,
    hyperpay_tx_id = $3::text,
    issue_id = nullif($4::text, ''),
    sunshines_amount = $5::double precision,
    spend_usd_amount = $6::numeric,
    memo = nullif($7::text, ''),
    completed_at = $8::timestamptz
where id = $1::uuid
  and completed_at is null
  and expired_at is null
  and (initiate_tx_id is null or hyperpay_tx_id is null);
`

const QExpireDonation = `--sql ae550b0f-5e1e-4311-8664-60eb959e47a1
update donations
set expired_at = $2::timestamptz
where id = $1::uuid
  and completed_at is null
  and expired_at is null;
`

const QListPendingDonationsBefore = `--sql 890f5973-afdb-4554-984c-41620bc2961a
select
  id,
  user_id,
  galaxy_id,
  counter,
  coalesce(issue_id, ''),
  coalesce(initiate_tx_id, ''),
  coalesce(hyperpay_tx_id, ''),
  coalesce(sunshines_amount, 0),
  coalesce(spend_usd_amount, 0)::text,
  coalesce(memo, ''),
  created_at,
  completed_at,
  expired_at,
  reward_applied_at
from donations
where completed_at is null
  and expired_at is null
  and created_at < $1::timestamptz
order by created_at asc
limit $2::int;
`
