package sqlinline

const QMarkRewardApplied = `--sql d378ee0b-4e3a-453d-a10c-336a6523590e
update donations
set reward_applied_at = $2::timestamptz
where id = $1::uuid
  and completed_at is not null
  and reward_applied_at is null;
`

const QAddUserBalance = `--sql 55b908ad-1f88-472b-b9a4-162ffa9be1ca
insert into user_balances(user_id, sunshines, stars, updated_at)
values ($1::text, $2::double precision, $3::double precision, $4::timestamptz)
on conflict (user_id) do update set
  sunshines = user_balances.sunshines + excluded.sunshines,
  stars = user_balances.stars + excluded.stars,
  updated_at = excluded.updated_at;
`

const QAddGalaxyBalance = `--sql 3421d1d6-1f47-438f-9788-58083bf19b64
insert into galaxy_balances(galaxy_id, sunshines, stars, updated_at)
values ($1::text, $2::double precision, $3::double precision, $4::timestamptz)
on conflict (galaxy_id) do update set
  sunshines = galaxy_balances.sunshines + excluded.sunshines,
  stars = galaxy_balances.stars + excluded.stars,
  updated_at = excluded.updated_at;
`

// QUpsertSolarForge adds sunshines to the issue and unions the contributor into users.
const QUpsertSolarForge = `--sql ffa97187-2be4-49cb-89ce-da4467adbeea
insert into solar_forges(id, issue_id, users, sunshines, created_time, updated_at)
values (gen_random_uuid(), $1::text, array[$2::text], $3::double precision, $4::timestamptz, $4::timestamptz)
on conflict (issue_id) do update set
  sunshines = solar_forges.sunshines + excluded.sunshines,
  users = case
    when $2::text = any(solar_forges.users) then solar_forges.users
    else array_append(solar_forges.users, $2::text)
  end,
  updated_at = excluded.updated_at;
`
