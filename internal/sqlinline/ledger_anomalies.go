package sqlinline

const QInsertAnomaly = `--sql 81c7a6a2-8e95-4b90-9835-5d3995fa261b
insert into correlation_anomalies(
  id,
  kind,
  user_id,
  galaxy_id,
  counter,
  leg_type,
  leg_tx_id,
  donation_id,
  detail,
  detected_at
) values (
  $1::uuid,
  $2::text,
  $3::text,
  $4::text,
  $5::bigint,
  $6::text,
  $7::text,
  nullif($8::text, '')::uuid,
  $9::text,
  $10::timestamptz
);
`
