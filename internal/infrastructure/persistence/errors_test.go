package persistence

import (
	"errors"
	"fmt"
	"testing"

	"github.com/debtdesk/backend/internal/domain/shared"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestTranslateError(t *testing.T) {
	conflict := shared.NewConflictError("DUPLICATE_PROVIDER_TXN", "duplicate")
	plain := errors.New("connection reset")

	tests := []struct {
		name      string
		err       error
		conflict  *shared.DomainError
		wantKind  shared.ErrorKind
		wantCode  string
		wantPlain bool
	}{
		{name: "pg unique violation", err: &pgconn.PgError{Code: pgUniqueViolation}, conflict: conflict, wantKind: shared.KindConflict, wantCode: "DUPLICATE_PROVIDER_TXN"},
		{name: "pg unique violation without conflict", err: &pgconn.PgError{Code: pgUniqueViolation}, wantKind: shared.KindConflict, wantCode: "DUPLICATE"},
		{name: "pg check violation", err: &pgconn.PgError{Code: pgCheckViolation, Message: "amount_paid"}, wantKind: shared.KindValidation, wantCode: "CONSTRAINT_VIOLATION"},
		{name: "pg serialization failure", err: &pgconn.PgError{Code: pgSerializationFailure}, wantKind: shared.KindConcurrencyConflict},
		{name: "pg deadlock", err: fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: pgDeadlockDetected}), wantKind: shared.KindConcurrencyConflict},
		{name: "pg lock not available", err: &pgconn.PgError{Code: pgLockNotAvailable}, wantKind: shared.KindConcurrencyConflict},
		{name: "sqlite unique", err: sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique}, conflict: conflict, wantKind: shared.KindConflict, wantCode: "DUPLICATE_PROVIDER_TXN"},
		{name: "sqlite check", err: sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintCheck}, wantKind: shared.KindValidation},
		{name: "sqlite busy", err: sqlite3.Error{Code: sqlite3.ErrBusy}, wantKind: shared.KindConcurrencyConflict},
		{name: "gorm duplicated key", err: gorm.ErrDuplicatedKey, conflict: conflict, wantKind: shared.KindConflict, wantCode: "DUPLICATE_PROVIDER_TXN"},
		{name: "domain errors pass through", err: shared.NewNotFoundError("Payment", 1), wantKind: shared.KindNotFound},
		{name: "other errors pass through", err: plain, wantPlain: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translateError(tt.err, tt.conflict)
			if tt.wantPlain {
				assert.Same(t, plain, got)
				return
			}
			assert.Equal(t, tt.wantKind, shared.KindOf(got))
			if tt.wantCode != "" {
				var domainErr *shared.DomainError
				if assert.ErrorAs(t, got, &domainErr) {
					assert.Equal(t, tt.wantCode, domainErr.Code)
				}
			}
		})
	}

	assert.NoError(t, translateError(nil, conflict))
}

func TestTranslateError_KeepsCause(t *testing.T) {
	pgErr := &pgconn.PgError{Code: pgSerializationFailure}
	got := translateError(pgErr, nil)

	var cause *pgconn.PgError
	assert.ErrorAs(t, got, &cause)
	assert.True(t, shared.IsRetryable(got))
}

func TestIsHandledError(t *testing.T) {
	assert.True(t, IsHandledError(&pgconn.PgError{Code: pgSerializationFailure}))
	assert.True(t, IsHandledError(&pgconn.PgError{Code: pgUniqueViolation}))
	assert.True(t, IsHandledError(sqlite3.Error{Code: sqlite3.ErrBusy}))
	assert.False(t, IsHandledError(errors.New("connection refused")))
	assert.False(t, IsHandledError(nil))
}
