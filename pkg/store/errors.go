package store

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when an entity does not exist. Empty result
	// sets from list queries are never errors; only point lookups return this.
	ErrNotFound = errors.New("entity not found")
)

// IsNotFound reports whether err is a missing-entity error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, pgx.ErrNoRows)
}

// IsIntegrityViolation reports whether err is a constraint violation
// (foreign key, unique, check). These are permanent and indicate a caller
// bug, never a retryable condition.
func IsIntegrityViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	// SQLSTATE class 23 = integrity constraint violation
	return len(pgErr.Code) >= 2 && pgErr.Code[:2] == "23"
}

// IsRetryable reports whether err looks like a transient database failure
// (connection refused, admin shutdown, serialization). Integrity violations
// are explicitly not retryable.
func IsRetryable(err error) bool {
	if err == nil || IsIntegrityViolation(err) {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code[:2] {
		case "08", "57", "40": // connection, operator intervention, tx rollback
			return true
		}
		return false
	}
	// Network-level failures surface as plain errors from pgconn.
	return true
}
