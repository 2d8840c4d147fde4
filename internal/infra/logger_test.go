package infra

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewLoggerProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(&Config{AppEnv: "production"}, "worker", &buf)
	if err != nil {
		t.Fatalf("NewLogger error: %v", err)
	}

	logger.Debug().Msg("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug line written at default production level: %q", buf.String())
	}

	logger.Info().Str("donation_id", "d-1").Msg("completed")
	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	want := map[string]string{"service": "solarforge", "component": "worker", "env": "production", "donation_id": "d-1", "level": "info"}
	for k, v := range want {
		if line[k] != v {
			t.Fatalf("field %s = %v, want %q", k, line[k], v)
		}
	}
	if _, ok := line["caller"]; ok {
		t.Fatal("caller should only be recorded in development")
	}
}

func TestNewLoggerLevelOverride(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(&Config{AppEnv: "development", LogLevel: "warn"}, "api", &buf)
	if err != nil {
		t.Fatalf("NewLogger error: %v", err)
	}
	logger.Info().Msg("quiet")
	if buf.Len() != 0 {
		t.Fatalf("info line written with LOG_LEVEL=warn: %q", buf.String())
	}
	logger.Warn().Msg("loud")
	if !strings.Contains(buf.String(), "loud") {
		t.Fatalf("warn line missing: %q", buf.String())
	}
}

func TestNewLoggerRejectsUnknownLevel(t *testing.T) {
	if _, err := NewLogger(&Config{AppEnv: "production", LogLevel: "chatty"}, "api", &bytes.Buffer{}); err == nil {
		t.Fatal("expected error for unknown LOG_LEVEL")
	}
}
