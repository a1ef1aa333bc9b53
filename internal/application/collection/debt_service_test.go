package collection_test

import (
	"context"
	"testing"
	"time"

	appcollection "github.com/debtdesk/backend/internal/application/collection"
	"github.com/debtdesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateDebt_WithoutSchedule(t *testing.T) {
	l := newLedger(t)
	c := l.customer(t, "Ana")

	d, err := l.debts.CreateDebt(context.Background(), appcollection.CreateDebtRequest{
		CustomerID:     c.ID,
		OriginalAmount: dec("250.50"),
	})
	require.NoError(t, err)
	assert.Equal(t, "USD", d.Currency)
	assert.Equal(t, "open", d.Status)
	assert.True(t, d.CurrentBalance.Equal(dec("250.50")))
	assert.Empty(t, d.Installments)
}

func TestCreateDebt_Validation(t *testing.T) {
	l := newLedger(t)
	c := l.customer(t, "Bia")

	tests := []struct {
		name string
		req  appcollection.CreateDebtRequest
		kind shared.ErrorKind
		code string
	}{
		{
			name: "unknown customer",
			req:  appcollection.CreateDebtRequest{CustomerID: uuid.New(), OriginalAmount: dec("10")},
			kind: shared.KindNotFound,
		},
		{
			name: "non-positive amount",
			req:  appcollection.CreateDebtRequest{CustomerID: c.ID, OriginalAmount: dec("0")},
			kind: shared.KindValidation,
		},
		{
			name: "bad currency",
			req:  appcollection.CreateDebtRequest{CustomerID: c.ID, OriginalAmount: dec("10"), Currency: "12$"},
			kind: shared.KindValidation,
			code: "INVALID_CURRENCY",
		},
		{
			name: "bad due date",
			req: appcollection.CreateDebtRequest{CustomerID: c.ID, OriginalAmount: dec("10"), Installments: []appcollection.InstallmentInput{
				{SequenceNo: 1, DueDate: "10/03/2024", AmountDue: dec("10")},
			}},
			kind: shared.KindValidation,
			code: "INVALID_DUE_DATE",
		},
		{
			name: "schedule short of the amount",
			req: appcollection.CreateDebtRequest{CustomerID: c.ID, OriginalAmount: dec("100"), Installments: []appcollection.InstallmentInput{
				{SequenceNo: 1, DueDate: "2024-03-01", AmountDue: dec("60")},
			}},
			kind: shared.KindValidation,
			code: "SCHEDULE_MISMATCH",
		},
		{
			name: "schedule above the amount",
			req: appcollection.CreateDebtRequest{CustomerID: c.ID, OriginalAmount: dec("100"), Installments: []appcollection.InstallmentInput{
				{SequenceNo: 1, DueDate: "2024-03-01", AmountDue: dec("60")},
				{SequenceNo: 2, DueDate: "2024-04-01", AmountDue: dec("60")},
			}},
			kind: shared.KindValidation,
			code: "SCHEDULE_EXCEEDS_DEBT",
		},
		{
			name: "repeated sequence",
			req: appcollection.CreateDebtRequest{CustomerID: c.ID, OriginalAmount: dec("100"), Installments: []appcollection.InstallmentInput{
				{SequenceNo: 1, DueDate: "2024-03-01", AmountDue: dec("50")},
				{SequenceNo: 1, DueDate: "2024-04-01", AmountDue: dec("50")},
			}},
			code: "DUPLICATE_SEQUENCE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.debts.CreateDebt(context.Background(), tt.req)
			require.Error(t, err)
			if tt.kind != "" {
				assert.Equal(t, tt.kind, shared.KindOf(err))
			}
			if tt.code != "" {
				var domainErr *shared.DomainError
				require.ErrorAs(t, err, &domainErr)
				assert.Equal(t, tt.code, domainErr.Code)
			}
		})
	}
}

func TestCreateDebt_AcceptsTimestampDueDates(t *testing.T) {
	l := newLedger(t)
	c := l.customer(t, "Caio")

	d, err := l.debts.CreateDebt(context.Background(), appcollection.CreateDebtRequest{
		CustomerID:     c.ID,
		OriginalAmount: dec("100"),
		Installments: []appcollection.InstallmentInput{
			{SequenceNo: 1, DueDate: "2024-05-20T15:04:05-03:00", AmountDue: dec("100")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "2024-05-20", d.Installments[0].DueDate)
}

func TestGetDebt_NotFound(t *testing.T) {
	l := newLedger(t)
	_, err := l.debts.GetDebt(context.Background(), uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = l.debts.GetInstallment(context.Background(), uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestMarkOverdueInstallments(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	c := l.customer(t, "Dani")
	d := l.debt600400(t, c.ID)

	// due 2024-03-01 is past, 2024-04-01 is not
	marked, err := l.debts.MarkOverdueInstallments(ctx, testNow)
	require.NoError(t, err)
	assert.Equal(t, 1, marked)

	debt, err := l.debts.GetDebt(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "overdue", debt.Installments[0].Status)
	assert.Equal(t, "due", debt.Installments[1].Status)

	// running again changes nothing
	marked, err = l.debts.MarkOverdueInstallments(ctx, testNow)
	require.NoError(t, err)
	assert.Zero(t, marked)

	// overdue installments still accept payments
	p := l.payment(t, c.ID, "600")
	_, err = l.payments.Allocate(ctx, p.ID, lines(d.Installments[0].ID, "600"))
	require.NoError(t, err)
	inst, err := l.debts.GetInstallment(ctx, d.Installments[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "paid", inst.Status)
}

func TestMarkOverdueInstallments_InBatches(t *testing.T) {
	l := newLedger(t)
	l.debts.WithOverdueBatchSize(2)
	ctx := context.Background()
	c := l.customer(t, "Edu")

	inputs := make([]appcollection.InstallmentInput, 5)
	for i := range inputs {
		inputs[i] = appcollection.InstallmentInput{
			SequenceNo: i + 1,
			DueDate:    testNow.AddDate(0, 0, -10+i).Format(time.DateOnly),
			AmountDue:  dec("20"),
		}
	}
	_, err := l.debts.CreateDebt(ctx, appcollection.CreateDebtRequest{CustomerID: c.ID, OriginalAmount: dec("100"), Installments: inputs})
	require.NoError(t, err)

	marked, err := l.debts.MarkOverdueInstallments(ctx, testNow)
	require.NoError(t, err)
	assert.Equal(t, 5, marked)
}

func TestMarkOverdueInstallments_SkipsPaid(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	c := l.customer(t, "Fran")
	d := l.debt600400(t, c.ID)
	p := l.payment(t, c.ID, "600")
	_, err := l.payments.Allocate(ctx, p.ID, lines(d.Installments[0].ID, "600"))
	require.NoError(t, err)

	marked, err := l.debts.MarkOverdueInstallments(ctx, testNow.AddDate(0, 2, 0))
	require.NoError(t, err)
	assert.Equal(t, 1, marked)

	debt, err := l.debts.GetDebt(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "paid", debt.Installments[0].Status)
	assert.Equal(t, "overdue", debt.Installments[1].Status)
}

func TestMarkOverdueInstallments_CanceledContext(t *testing.T) {
	l := newLedger(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := l.debts.MarkOverdueInstallments(ctx, testNow)
	assert.ErrorIs(t, err, context.Canceled)
}
