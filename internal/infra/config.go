package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	LogLevel    string
	Port        string
	StoreDriver string
	DatabaseURL string

	DBMaxConns         int
	DBMinConns         int
	DBStatementTimeout time.Duration
	DBLockTimeout      time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	LegsJWTSecret string

	DonationExpiryWindow time.Duration
	ExpirySweepInterval  time.Duration
	ExpiryBatchSize      int
	LegReplayGrace       time.Duration
	LegReplayInterval    time.Duration

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int
	OutboxLease        time.Duration

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int

	CORSAllowedOrigins []string
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		LogLevel:    strings.ToLower(os.Getenv("LOG_LEVEL")),
		Port:        getEnv("PORT", "8080"),
		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", StoreDriverPostgres)),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		DBMaxConns:         getEnvInt("DB_MAX_CONNS", 10),
		DBMinConns:         getEnvInt("DB_MIN_CONNS", 1),
		DBStatementTimeout: getEnvDuration("DB_STATEMENT_TIMEOUT", 10*time.Second),
		DBLockTimeout:      getEnvDuration("DB_LOCK_TIMEOUT", 5*time.Second),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		LegsJWTSecret: os.Getenv("LEGS_JWT_SECRET"),

		DonationExpiryWindow: getEnvDuration("DONATION_EXPIRY_WINDOW", 24*time.Hour),
		ExpirySweepInterval:  getEnvDuration("EXPIRY_SWEEP_INTERVAL", time.Minute),
		ExpiryBatchSize:      getEnvInt("EXPIRY_BATCH_SIZE", 100),
		LegReplayGrace:       getEnvDuration("LEG_REPLAY_GRACE", time.Minute),
		LegReplayInterval:    getEnvDuration("LEG_REPLAY_INTERVAL", 30*time.Second),

		OutboxPollInterval: getEnvDuration("OUTBOX_POLL_INTERVAL", 2*time.Second),
		OutboxBatchSize:    getEnvInt("OUTBOX_BATCH_SIZE", 100),
		OutboxMaxAttempts:  getEnvInt("OUTBOX_MAX_ATTEMPTS", 10),
		OutboxLease:        getEnvDuration("OUTBOX_LEASE", time.Minute),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 120),

		CORSAllowedOrigins: splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
	}

	switch cfg.StoreDriver {
	case StoreDriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
	case StoreDriverMemory:
	default:
		return nil, fmt.Errorf("unsupported STORE_DRIVER %q", cfg.StoreDriver)
	}

	if cfg.DBMaxConns < 1 || cfg.DBMinConns < 0 || cfg.DBMinConns > cfg.DBMaxConns {
		return nil, fmt.Errorf("DB_MIN_CONNS must be within 0..DB_MAX_CONNS and DB_MAX_CONNS at least 1")
	}

	if cfg.LegsJWTSecret == "" {
		return nil, fmt.Errorf("LEGS_JWT_SECRET is required")
	}

	if cfg.DonationExpiryWindow <= 0 {
		return nil, fmt.Errorf("DONATION_EXPIRY_WINDOW must be positive")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
