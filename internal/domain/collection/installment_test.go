package collection

import (
	"testing"
	"time"

	"github.com/debtdesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestInstallment(t *testing.T, amountDue int64) *Installment {
	inst, err := NewInstallment(uuid.New(), 1, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), decimal.NewFromInt(amountDue))
	require.NoError(t, err)
	return inst
}

func TestInstallmentStatus_IsValid(t *testing.T) {
	tests := []struct {
		status  InstallmentStatus
		isValid bool
	}{
		{InstallmentStatusDue, true},
		{InstallmentStatusOverdue, true},
		{InstallmentStatusPartiallyPaid, true},
		{InstallmentStatusPaid, true},
		{InstallmentStatusCanceled, true},
		{InstallmentStatus("PAID"), false},
		{InstallmentStatus(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.isValid, tt.status.IsValid())
		})
	}
}

func TestNewInstallment(t *testing.T) {
	t.Run("creates a due installment", func(t *testing.T) {
		inst := createTestInstallment(t, 1000)
		assert.Equal(t, InstallmentStatusDue, inst.Status)
		assert.True(t, inst.AmountPaid.IsZero())
		assert.Equal(t, 1, inst.Version)
	})

	t.Run("rejects non-positive amount", func(t *testing.T) {
		_, err := NewInstallment(uuid.New(), 1, time.Now(), decimal.Zero)
		assert.ErrorIs(t, err, shared.ErrValidation)
	})

	t.Run("rejects sequence below one", func(t *testing.T) {
		_, err := NewInstallment(uuid.New(), 0, time.Now(), decimal.NewFromInt(10))
		assert.ErrorIs(t, err, shared.ErrValidation)
	})

	t.Run("truncates due date to the day", func(t *testing.T) {
		inst, err := NewInstallment(uuid.New(), 1, time.Date(2026, 3, 10, 17, 45, 0, 0, time.UTC), decimal.NewFromInt(10))
		require.NoError(t, err)
		assert.Equal(t, 0, inst.DueDate.Hour())
	})
}

func TestInstallment_ApplyPayment(t *testing.T) {
	now := time.Now()

	t.Run("partial then full payment", func(t *testing.T) {
		inst := createTestInstallment(t, 1000)

		require.NoError(t, inst.ApplyPayment(decimal.NewFromInt(600), now))
		assert.Equal(t, InstallmentStatusPartiallyPaid, inst.Status)
		assert.True(t, decimal.NewFromInt(600).Equal(inst.AmountPaid))
		assert.True(t, decimal.NewFromInt(400).Equal(inst.Remaining()))

		require.NoError(t, inst.ApplyPayment(decimal.NewFromInt(400), now))
		assert.Equal(t, InstallmentStatusPaid, inst.Status)
		assert.True(t, inst.Remaining().IsZero())
	})

	t.Run("overdue installment can be paid", func(t *testing.T) {
		inst := createTestInstallment(t, 100)
		inst.Status = InstallmentStatusOverdue

		require.NoError(t, inst.ApplyPayment(decimal.NewFromInt(40), now))
		assert.Equal(t, InstallmentStatusPartiallyPaid, inst.Status)
	})

	t.Run("rejects overpayment and keeps state", func(t *testing.T) {
		inst := createTestInstallment(t, 100)
		require.NoError(t, inst.ApplyPayment(decimal.NewFromInt(70), now))

		err := inst.ApplyPayment(decimal.NewFromInt(31), now)
		require.Error(t, err)
		assert.ErrorIs(t, err, shared.ErrValidation)
		assert.Contains(t, err.Error(), "31")
		assert.Contains(t, err.Error(), "30")
		assert.True(t, decimal.NewFromInt(70).Equal(inst.AmountPaid))
		assert.Equal(t, InstallmentStatusPartiallyPaid, inst.Status)
	})

	t.Run("rejects zero and negative amounts", func(t *testing.T) {
		inst := createTestInstallment(t, 100)
		assert.ErrorIs(t, inst.ApplyPayment(decimal.Zero, now), shared.ErrValidation)
		assert.ErrorIs(t, inst.ApplyPayment(decimal.NewFromInt(-5), now), shared.ErrValidation)
		assert.True(t, inst.AmountPaid.IsZero())
	})

	t.Run("rejects payment on paid or canceled installment", func(t *testing.T) {
		inst := createTestInstallment(t, 100)
		require.NoError(t, inst.ApplyPayment(decimal.NewFromInt(100), now))
		assert.ErrorIs(t, inst.ApplyPayment(decimal.NewFromInt(1), now), shared.ErrValidation)

		canceled := createTestInstallment(t, 100)
		canceled.Status = InstallmentStatusCanceled
		assert.ErrorIs(t, canceled.ApplyPayment(decimal.NewFromInt(1), now), shared.ErrValidation)
	})

	t.Run("keeps exact decimals", func(t *testing.T) {
		inst := createTestInstallment(t, 1)
		third := decimal.RequireFromString("0.3333")
		for i := 0; i < 3; i++ {
			require.NoError(t, inst.ApplyPayment(third, now))
		}
		require.NoError(t, inst.ApplyPayment(decimal.RequireFromString("0.0001"), now))
		assert.Equal(t, InstallmentStatusPaid, inst.Status)
	})
}

func TestInstallment_RevertPayment(t *testing.T) {
	now := time.Now()

	t.Run("reset policy always returns to due", func(t *testing.T) {
		inst := createTestInstallment(t, 1000)
		require.NoError(t, inst.ApplyPayment(decimal.NewFromInt(600), now))
		require.NoError(t, inst.ApplyPayment(decimal.NewFromInt(400), now))

		require.NoError(t, inst.RevertPayment(decimal.NewFromInt(400), ReversalStatusReset, now))
		assert.Equal(t, InstallmentStatusDue, inst.Status)
		assert.True(t, decimal.NewFromInt(600).Equal(inst.AmountPaid))
	})

	t.Run("recompute policy keeps partially paid while money remains", func(t *testing.T) {
		inst := createTestInstallment(t, 1000)
		require.NoError(t, inst.ApplyPayment(decimal.NewFromInt(600), now))
		require.NoError(t, inst.ApplyPayment(decimal.NewFromInt(400), now))

		require.NoError(t, inst.RevertPayment(decimal.NewFromInt(400), ReversalStatusRecompute, now))
		assert.Equal(t, InstallmentStatusPartiallyPaid, inst.Status)

		require.NoError(t, inst.RevertPayment(decimal.NewFromInt(600), ReversalStatusRecompute, now))
		assert.Equal(t, InstallmentStatusDue, inst.Status)
		assert.True(t, inst.AmountPaid.IsZero())
	})

	t.Run("overdue is never inferred on reversal", func(t *testing.T) {
		inst := createTestInstallment(t, 100)
		inst.Status = InstallmentStatusOverdue
		require.NoError(t, inst.ApplyPayment(decimal.NewFromInt(100), now))

		require.NoError(t, inst.RevertPayment(decimal.NewFromInt(100), ReversalStatusRecompute, now))
		assert.Equal(t, InstallmentStatusDue, inst.Status)
	})

	t.Run("rejects reverting more than paid", func(t *testing.T) {
		inst := createTestInstallment(t, 100)
		require.NoError(t, inst.ApplyPayment(decimal.NewFromInt(10), now))

		err := inst.RevertPayment(decimal.NewFromInt(11), ReversalStatusReset, now)
		assert.ErrorIs(t, err, shared.ErrValidation)
		assert.True(t, decimal.NewFromInt(10).Equal(inst.AmountPaid))
	})
}

func TestInstallment_MarkOverdue(t *testing.T) {
	inst := createTestInstallment(t, 100)

	assert.False(t, inst.MarkOverdue(time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC)), "same day is not overdue")
	assert.True(t, inst.MarkOverdue(time.Date(2026, 3, 11, 0, 0, 1, 0, time.UTC)))
	assert.Equal(t, InstallmentStatusOverdue, inst.Status)
	assert.False(t, inst.MarkOverdue(time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)), "already overdue")

	partial := createTestInstallment(t, 100)
	require.NoError(t, partial.ApplyPayment(decimal.NewFromInt(1), time.Now()))
	assert.False(t, partial.MarkOverdue(time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestInstallment_DaysOverdue(t *testing.T) {
	inst := createTestInstallment(t, 100)

	assert.Equal(t, 0, inst.DaysOverdue(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 0, inst.DaysOverdue(time.Date(2026, 3, 10, 22, 0, 0, 0, time.UTC)))
	assert.Equal(t, 5, inst.DaysOverdue(time.Date(2026, 3, 15, 8, 30, 0, 0, time.UTC)))
}
