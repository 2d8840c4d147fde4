package sqlinline

const QListGalaxyDonations = `--sql ed998d88-44e5-4c0e-b57e-70e0f18be550
with galaxy_donations as (
  select
    id,
    user_id,
    galaxy_id,
    counter,
    coalesce(issue_id, '') as issue_id,
    coalesce(initiate_tx_id, '') as initiate_tx_id,
    coalesce(hyperpay_tx_id, '') as hyperpay_tx_id,
    coalesce(sunshines_amount, 0) as sunshines_amount,
    coalesce(spend_usd_amount, 0)::text as spend_usd_amount,
    coalesce(memo, '') as memo,
    created_at,
    completed_at,
    expired_at,
    reward_applied_at,
    case
      when initiate_tx_id is not null and hyperpay_tx_id is not null then 'completed'
      when expired_at is not null then 'expired'
      when initiate_tx_id is not null then 'pending-processor'
      else 'pending-initiate'
    end as status
  from donations
  where galaxy_id = $1::text
)
select
  id,
  user_id,
  galaxy_id,
  counter,
  issue_id,
  initiate_tx_id,
  hyperpay_tx_id,
  sunshines_amount,
  spend_usd_amount,
  memo,
  created_at,
  completed_at,
  expired_at,
  reward_applied_at
from galaxy_donations
where status = any($2::text[])
order by created_at desc
limit $3::int;
`

const QSelectUserBalance = `--sql 38bd4137-98c8-46fa-bbbd-79e59d1fc9a0
select sunshines, stars
from user_balances
where user_id = $1::text;
`

const QSelectGalaxyBalance = `--sql 2c4aa470-054e-4afb-9ab1-28cc21f08079
select sunshines, stars
from galaxy_balances
where galaxy_id = $1::text;
`

const QSelectSolarForgeByIssue = `--sql ba4f6329-6c13-4060-bc4e-5c22868661a6
select id, issue_id, users, sunshines, created_time, updated_at
from solar_forges
where issue_id = $1::text
limit 1;
`

const QSelectUserStars = `--sql e1b1af9a-ac41-4d0b-bbc1-33717c5c5e56
select user_id, stars
from user_balances
where user_id = any($1::text[]);
`

// QSelectVersionSnapshot folds completed patches and their issues' forges in one statement.
const QSelectVersionSnapshot = `--sql ede0be1a-9a55-45ae-840d-d3cf355e0d28
with done as (
  select issue_id
  from version_patches
  where version_id = $1::text and completed
),
issues as (
  select distinct issue_id from done
)
select
  (select count(*) from version_patches where version_id = $1::text)::int as total_patches,
  (select count(*) from done)::int as total_issues,
  coalesce((
    select sum(sf.sunshines)
    from solar_forges sf
    join issues i on i.issue_id = sf.issue_id
  ), 0)::double precision as total_sunshines;
`

const QSelectUserProfiles = `--sql 66b83603-f795-4f07-ab23-733bebf97f4b
select user_id, roles
from user_directory
where user_id = any($1::text[]);
`
