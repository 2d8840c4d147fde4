package infra

import (
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
)

// Logger aliases zerolog.Logger so packages outside infra share one logging
// contract.
type Logger = zerolog.Logger

// NewLogger builds the process logger for one binary. component ("api",
// "worker") is stamped on every line so both processes can share a stream.
// LOG_LEVEL overrides the environment default of debug in development and
// info elsewhere.
func NewLogger(cfg *Config, component string, w io.Writer) (Logger, error) {
	dev := cfg.AppEnv == "development"

	level := zerolog.InfoLevel
	if dev {
		level = zerolog.DebugLevel
	}
	if cfg.LogLevel != "" {
		parsed, err := zerolog.ParseLevel(cfg.LogLevel)
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("LOG_LEVEL: %w", err)
		}
		level = parsed
	}

	if dev {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	lctx := zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Str("service", "solarforge").
		Str("component", component).
		Str("env", cfg.AppEnv)
	if dev {
		lctx = lctx.Caller()
	}
	return lctx.Logger(), nil
}
