package persistence

import (
	"errors"
	"strings"

	"github.com/debtdesk/backend/internal/domain/shared"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
)

// Postgres SQLSTATE codes the ledger reacts to
const (
	pgUniqueViolation      = "23505"
	pgCheckViolation       = "23514"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
)

// translateError maps driver errors onto domain error kinds.
// conflict is the error returned for unique violations; nil errors pass through.
func translateError(err error, conflict *shared.DomainError) error {
	if err == nil {
		return nil
	}
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return conflictOrDefault(conflict).WithCause(err)
		case pgCheckViolation:
			return shared.NewValidationError("CONSTRAINT_VIOLATION", pgErr.Message).WithCause(err)
		case pgSerializationFailure, pgDeadlockDetected, pgLockNotAvailable:
			return shared.ErrConcurrencyConflict.WithCause(err)
		}
		return err
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code {
		case sqlite3.ErrConstraint:
			if sqliteErr.ExtendedCode == sqlite3.ErrConstraintCheck {
				return shared.NewValidationError("CONSTRAINT_VIOLATION", sqliteErr.Error()).WithCause(err)
			}
			return conflictOrDefault(conflict).WithCause(err)
		case sqlite3.ErrBusy, sqlite3.ErrLocked:
			return shared.ErrConcurrencyConflict.WithCause(err)
		}
		return err
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return conflictOrDefault(conflict).WithCause(err)
	}
	if strings.Contains(err.Error(), "database is locked") {
		return shared.ErrConcurrencyConflict.WithCause(err)
	}
	return err
}

func conflictOrDefault(conflict *shared.DomainError) *shared.DomainError {
	if conflict != nil {
		return conflict
	}
	return shared.NewConflictError("DUPLICATE", "Resource already exists")
}

// IsHandledError reports whether err is a driver error the ledger translates into a
// domain outcome: lock contention that is retried, or a constraint the caller sees as a conflict.
func IsHandledError(err error) bool {
	switch shared.KindOf(translateError(err, nil)) {
	case shared.KindConcurrencyConflict, shared.KindConflict, shared.KindValidation:
		return true
	}
	return false
}
