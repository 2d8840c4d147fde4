package repo

import (
	"context"
	"fmt"
	"reflect"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"solarforge/internal/infra"
)

type simpleRow struct {
	scan func(dest ...any) error
}

func (r simpleRow) Scan(dest ...any) error {
	if r.scan == nil {
		return pgx.ErrNoRows
	}
	return r.scan(dest...)
}

type errRow struct{ err error }

func (r errRow) Scan(...any) error { return r.err }

// valuesRow scans vals into dest positionally; nil pointers must be typed.
func valuesRow(vals ...any) simpleRow {
	return simpleRow{scan: func(dest ...any) error { return assign(dest, vals) }}
}

func assign(dest []any, vals []any) error {
	if len(dest) != len(vals) {
		return fmt.Errorf("scan: got %d destinations, want %d", len(dest), len(vals))
	}
	for i := range dest {
		target := reflect.ValueOf(dest[i])
		if target.Kind() != reflect.Pointer {
			return fmt.Errorf("scan: destination %d is not a pointer", i)
		}
		target.Elem().Set(reflect.ValueOf(vals[i]))
	}
	return nil
}

type testRowsBase struct{}

func (testRowsBase) CommandTag() pgconn.CommandTag { return pgconn.CommandTag{} }

func (testRowsBase) Conn() *pgx.Conn { return nil }

func (testRowsBase) FieldDescriptions() []pgconn.FieldDescription { return nil }

func (testRowsBase) Values() ([]any, error) {
	return nil, fmt.Errorf("values not supported in test rows")
}

func (testRowsBase) RawValues() [][]byte { return nil }

type sliceRows struct {
	testRowsBase
	rows [][]any
	idx  int
}

func (r *sliceRows) Next() bool {
	if r.idx >= len(r.rows) {
		return false
	}
	r.idx++
	return true
}

func (r *sliceRows) Scan(dest ...any) error {
	if r.idx == 0 || r.idx > len(r.rows) {
		return pgx.ErrNoRows
	}
	return assign(dest, r.rows[r.idx-1])
}

func (r *sliceRows) Err() error { return nil }

func (r *sliceRows) Close() {}

type execCall struct {
	query string
	args  []any
}

// stubRunner is a TxRunner whose statements are answered by the test.
type stubRunner struct {
	exec     func(query string, args ...any) (pgconn.CommandTag, error)
	queryRow func(query string, args ...any) pgx.Row
	query    func(query string, args ...any) (pgx.Rows, error)

	calls  []execCall
	txOpts []pgx.TxOptions
}

func (s *stubRunner) Exec(_ context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	s.calls = append(s.calls, execCall{query: query, args: args})
	if s.exec == nil {
		return pgconn.NewCommandTag("UPDATE 1"), nil
	}
	return s.exec(query, args...)
}

func (s *stubRunner) QueryRow(_ context.Context, query string, args ...any) pgx.Row {
	s.calls = append(s.calls, execCall{query: query, args: args})
	if s.queryRow == nil {
		return simpleRow{}
	}
	return s.queryRow(query, args...)
}

func (s *stubRunner) Query(_ context.Context, query string, args ...any) (pgx.Rows, error) {
	s.calls = append(s.calls, execCall{query: query, args: args})
	if s.query == nil {
		return &sliceRows{}, nil
	}
	return s.query(query, args...)
}

func (s *stubRunner) InTx(_ context.Context, opts pgx.TxOptions, fn func(infra.SQLExecutor) error) error {
	s.txOpts = append(s.txOpts, opts)
	return fn(s)
}
