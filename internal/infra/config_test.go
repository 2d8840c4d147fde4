package infra

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("LEGS_JWT_SECRET", "test-secret")
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("DONATION_EXPIRY_WINDOW", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.StoreDriver != StoreDriverPostgres {
		t.Fatalf("StoreDriver mismatch: got %q want %q", cfg.StoreDriver, StoreDriverPostgres)
	}
	if cfg.DonationExpiryWindow != 24*time.Hour {
		t.Fatalf("DonationExpiryWindow mismatch: got %s want 24h", cfg.DonationExpiryWindow)
	}
	if cfg.OutboxMaxAttempts != 10 {
		t.Fatalf("OutboxMaxAttempts mismatch: got %d want 10", cfg.OutboxMaxAttempts)
	}
}

func TestLoadConfigExpiryWindowOverride(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("LEGS_JWT_SECRET", "test-secret")
	t.Setenv("DONATION_EXPIRY_WINDOW", "45m")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.DonationExpiryWindow != 45*time.Minute {
		t.Fatalf("DonationExpiryWindow mismatch: got %s want 45m", cfg.DonationExpiryWindow)
	}
}

func TestLoadConfigIgnoresMalformedDuration(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("LEGS_JWT_SECRET", "test-secret")
	t.Setenv("EXPIRY_SWEEP_INTERVAL", "soon")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ExpirySweepInterval != time.Minute {
		t.Fatalf("ExpirySweepInterval mismatch: got %s want 1m", cfg.ExpirySweepInterval)
	}
}

func TestLoadConfigMemoryDriverWithoutDatabase(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("LEGS_JWT_SECRET", "test-secret")
	t.Setenv("STORE_DRIVER", "Memory")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.StoreDriver != StoreDriverMemory {
		t.Fatalf("StoreDriver mismatch: got %q want %q", cfg.StoreDriver, StoreDriverMemory)
	}
}

func TestLoadConfigRequiresDatabaseForPostgres(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("LEGS_JWT_SECRET", "test-secret")
	t.Setenv("STORE_DRIVER", "postgres")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error when DATABASE_URL is missing")
	}
}

func TestLoadConfigRequiresLegsSecret(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("LEGS_JWT_SECRET", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error when LEGS_JWT_SECRET is missing")
	}
}

func TestLoadConfigRejectsUnknownDriver(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("LEGS_JWT_SECRET", "test-secret")
	t.Setenv("STORE_DRIVER", "sqlite")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestLoadConfigCORSOrigins(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("LEGS_JWT_SECRET", "test-secret")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example , ,https://b.example")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[0] != "https://a.example" || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Fatalf("CORSAllowedOrigins mismatch: got %q", cfg.CORSAllowedOrigins)
	}
}

func TestLoadConfigPoolBounds(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("LEGS_JWT_SECRET", "test-secret")
	t.Setenv("DB_MAX_CONNS", "4")
	t.Setenv("DB_MIN_CONNS", "6")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error when DB_MIN_CONNS exceeds DB_MAX_CONNS")
	}

	t.Setenv("DB_MIN_CONNS", "2")
	t.Setenv("LOG_LEVEL", "WARN")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.DBMaxConns != 4 || cfg.DBMinConns != 2 || cfg.DBStatementTimeout != 10*time.Second {
		t.Fatalf("pool settings mismatch: %+v", cfg)
	}
	if cfg.LogLevel != "warn" {
		t.Fatalf("LogLevel mismatch: got %q want warn", cfg.LogLevel)
	}
}
