package infra

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NewDBPool connects the pool described by cfg and pings it once.
func NewDBPool(ctx context.Context, cfg *Config, component string) (*pgxpool.Pool, error) {
	poolCfg, err := poolConfig(cfg, component)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// poolConfig bounds statements and lock waits on every session, so a slot
// lock held by a stuck transaction surfaces as SQLSTATE 55P03 or 57014 (both
// transient) instead of stalling a leg delivery.
func poolConfig(cfg *Config, component string) (*pgxpool.Config, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	poolCfg.MaxConns = int32(cfg.DBMaxConns)
	poolCfg.MinConns = int32(cfg.DBMinConns)
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute

	params := poolCfg.ConnConfig.RuntimeParams
	params["application_name"] = "solarforge-" + component
	if cfg.DBStatementTimeout > 0 {
		params["statement_timeout"] = strconv.FormatInt(cfg.DBStatementTimeout.Milliseconds(), 10)
	}
	if cfg.DBLockTimeout > 0 {
		params["lock_timeout"] = strconv.FormatInt(cfg.DBLockTimeout.Milliseconds(), 10)
	}
	return poolCfg, nil
}
