package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"solarforge/internal/infra"
	"solarforge/internal/ledger"
)

const maxBodyBytes = 64 << 10

// App carries the dependencies shared by every handler.
type App struct {
	Service *ledger.Service
	Query   *ledger.Query
	Logger  infra.Logger
	// Ping reports store health. Nil means always healthy.
	Ping func(ctx context.Context) error
}

func NewApp(service *ledger.Service, query *ledger.Query, logger infra.Logger) *App {
	return &App{Service: service, Query: query, Logger: logger}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (a *App) error(w http.ResponseWriter, code int, kind, msg string) {
	a.json(w, code, errorResponse{Error: kind, Message: msg})
}

// decodeStrict rejects unknown fields, trailing data and oversized bodies.
func decodeStrict(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("unexpected data after request body")
	}
	return nil
}
