package collection

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanOldestDueFirst(t *testing.T) {
	debtID := uuid.New()
	mk := func(seq int, due time.Time, amountDue, paid int64) Installment {
		inst, err := NewInstallment(debtID, seq, due, decimal.NewFromInt(amountDue))
		require.NoError(t, err)
		if paid > 0 {
			require.NoError(t, inst.ApplyPayment(decimal.NewFromInt(paid), due))
		}
		return *inst
	}
	march := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	april := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	later := mk(3, april, 100, 0)
	partial := mk(2, march, 100, 40)
	first := mk(1, march, 50, 0)
	settled := mk(4, march, 10, 10)
	installments := []Installment{later, partial, settled, first}

	t.Run("fills earliest due first", func(t *testing.T) {
		lines := PlanOldestDueFirst(decimal.NewFromInt(130), installments)
		require.Len(t, lines, 3)
		assert.Equal(t, first.ID, lines[0].InstallmentID)
		assert.True(t, lines[0].Amount.Equal(decimal.NewFromInt(50)))
		assert.Equal(t, partial.ID, lines[1].InstallmentID)
		assert.True(t, lines[1].Amount.Equal(decimal.NewFromInt(60)))
		assert.Equal(t, later.ID, lines[2].InstallmentID)
		assert.True(t, lines[2].Amount.Equal(decimal.NewFromInt(20)))
	})

	t.Run("stops when everything is covered", func(t *testing.T) {
		lines := PlanOldestDueFirst(decimal.NewFromInt(1000), installments)
		require.Len(t, lines, 3)
		total := decimal.Zero
		for _, l := range lines {
			total = total.Add(l.Amount)
		}
		assert.True(t, total.Equal(decimal.NewFromInt(210)))
	})

	t.Run("nothing available", func(t *testing.T) {
		assert.Empty(t, PlanOldestDueFirst(decimal.Zero, installments))
	})

	t.Run("plan passes validation", func(t *testing.T) {
		plan, err := NewAllocationPlan(PlanOldestDueFirst(decimal.NewFromInt(75), installments))
		require.NoError(t, err)
		assert.True(t, plan.Total.Equal(decimal.NewFromInt(75)))
	})
}
