package infra

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Postgres SQLSTATE codes the ledger reacts to.
const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
	pgQueryCanceled        = "57014"
	pgAdminShutdown        = "57P01"
	pgCannotConnectNow     = "57P03"
)

// IsNoRows reports whether err signals an empty result set.
func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// IsUniqueViolation reports whether err is a unique constraint failure.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return false
}

// IsTransient reports whether a retry of the same operation may succeed.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation, pgSerializationFailure, pgDeadlockDetected, pgLockNotAvailable,
			pgQueryCanceled, pgAdminShutdown, pgCannotConnectNow:
			return true
		}
		// Class 08: connection exceptions.
		return len(pgErr.Code) == 5 && pgErr.Code[:2] == "08"
	}
	return pgconn.SafeToRetry(err) || pgconn.Timeout(err)
}

// IsDataException reports whether postgres refused the values themselves
// (class 22, or an integrity violation other than a unique conflict).
// Resending the same payload fails the same way.
func IsDataException(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || len(pgErr.Code) != 5 {
		return false
	}
	switch pgErr.Code[:2] {
	case "22":
		return true
	case "23":
		return pgErr.Code != pgUniqueViolation
	}
	return false
}

// IsPermanent reports whether the server answered with an error that a retry
// cannot clear. Errors without a server response (dropped connections) are
// never permanent.
func IsPermanent(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && !IsTransient(err)
}
