package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/debtdesk/backend/internal/domain/collection"
	"github.com/debtdesk/backend/internal/domain/shared"
	"github.com/debtdesk/backend/internal/domain/shared/valueobject"
	"github.com/debtdesk/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	database, err := OpenWithDialector(sqlite.Open(":memory:"), nil)
	require.NoError(t, err)
	sqlDB, err := database.DB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.DB.AutoMigrate(models.AllModels()...))
	t.Cleanup(func() { _ = database.Close() })
	return database.DB
}

func seedDebt(t *testing.T, db *gorm.DB) (*collection.Customer, *collection.Debt) {
	t.Helper()
	ctx := context.Background()
	customer, err := collection.NewCustomer("Ana", "ana@example.com", "")
	require.NoError(t, err)
	require.NoError(t, NewGormCustomerRepository(db).Save(ctx, customer))

	debt, err := collection.NewDebt(customer.ID, decimal.NewFromInt(1000), valueobject.DefaultCurrency)
	require.NoError(t, err)
	_, err = debt.AddInstallment(2, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), decimal.NewFromInt(400))
	require.NoError(t, err)
	_, err = debt.AddInstallment(1, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), decimal.NewFromInt(600))
	require.NoError(t, err)
	require.NoError(t, NewGormDebtRepository(db).Create(ctx, debt))
	return customer, debt
}

func TestDebtRepository_CreateAndLoad(t *testing.T) {
	db := newSQLiteDB(t)
	_, debt := seedDebt(t, db)

	got, err := NewGormDebtRepository(db).FindByIDWithInstallments(context.Background(), debt.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Len(t, got.Installments, 2)
	assert.Equal(t, 1, got.Installments[0].SequenceNo)
	assert.Equal(t, "2024-03-01", got.Installments[0].DueDate.Format(time.DateOnly))
	assert.True(t, got.CurrentBalance.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, valueobject.DefaultCurrency, got.Currency)

	missing, err := NewGormDebtRepository(db).FindByID(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestInstallmentRepository_SaveWithLock(t *testing.T) {
	db := newSQLiteDB(t)
	_, debt := seedDebt(t, db)
	repo := NewGormInstallmentRepository(db)
	ctx := context.Background()

	installments, err := repo.FindByDebt(ctx, debt.ID)
	require.NoError(t, err)
	first := installments[0]
	stale := first

	require.NoError(t, first.ApplyPayment(decimal.NewFromInt(100), time.Now()))
	require.NoError(t, repo.SaveWithLock(ctx, &first))
	assert.Equal(t, 2, first.Version)

	require.NoError(t, stale.ApplyPayment(decimal.NewFromInt(50), time.Now()))
	err = repo.SaveWithLock(ctx, &stale)
	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)

	stored, err := repo.FindByID(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, stored.AmountPaid.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, collection.InstallmentStatusPartiallyPaid, stored.Status)
	assert.Equal(t, 2, stored.Version)
}

func TestInstallmentRepository_FindDueBefore(t *testing.T) {
	db := newSQLiteDB(t)
	_, debt := seedDebt(t, db)
	repo := NewGormInstallmentRepository(db)
	ctx := context.Background()

	// the cutoff is the start of the as-of day, so an installment due that day is not yet overdue
	due, err := repo.FindDueBefore(ctx, time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC), 10)
	require.NoError(t, err)
	assert.Empty(t, due)

	due, err = repo.FindDueBefore(ctx, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), 1)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, 1, due[0].SequenceNo)

	overdue, err := repo.FindOverdueByDebtIDs(ctx, []uuid.UUID{debt.ID})
	require.NoError(t, err)
	assert.Empty(t, overdue)
}

func TestPaymentRepository_ProviderTxnUnique(t *testing.T) {
	db := newSQLiteDB(t)
	customer, _ := seedDebt(t, db)
	repo := NewGormPaymentRepository(db)
	ctx := context.Background()

	txn := "psp-1"
	first, err := collection.NewPayment(customer.ID, nil, decimal.NewFromInt(10), valueobject.DefaultCurrency, collection.PaymentMethodPix, &txn)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, first))

	dup, err := collection.NewPayment(customer.ID, nil, decimal.NewFromInt(10), valueobject.DefaultCurrency, collection.PaymentMethodPix, &txn)
	require.NoError(t, err)
	err = repo.Create(ctx, dup)
	require.Error(t, err)
	assert.Equal(t, shared.KindConflict, shared.KindOf(err))

	found, err := repo.FindByProviderTxnID(ctx, txn)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, first.ID, found.ID)

	// NULL provider ids never collide
	for i := 0; i < 2; i++ {
		p, err := collection.NewPayment(customer.ID, nil, decimal.NewFromInt(1), valueobject.DefaultCurrency, collection.PaymentMethodCash, nil)
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, p))
	}

	counts, err := repo.CountByCustomerIDs(ctx, []uuid.UUID{customer.ID, uuid.New()})
	require.NoError(t, err)
	assert.Len(t, counts, 1)
	assert.EqualValues(t, 3, counts[customer.ID])
}

func TestAllocationRepository_PairIsUnique(t *testing.T) {
	db := newSQLiteDB(t)
	customer, debt := seedDebt(t, db)
	ctx := context.Background()

	payment, err := collection.NewPayment(customer.ID, nil, decimal.NewFromInt(100), valueobject.DefaultCurrency, collection.PaymentMethodCash, nil)
	require.NoError(t, err)
	require.NoError(t, NewGormPaymentRepository(db).Create(ctx, payment))

	inst := &debt.Installments[0]
	repo := NewGormAllocationRepository(db)
	first, err := collection.NewPaymentAllocation(payment.ID, inst, decimal.NewFromInt(10), time.Now())
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, first))

	second, err := collection.NewPaymentAllocation(payment.ID, inst, decimal.NewFromInt(5), time.Now())
	require.NoError(t, err)
	err = repo.Create(ctx, second)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "DUPLICATE_ALLOCATION", domainErr.Code)

	found, err := repo.FindByPayment(ctx, payment.ID)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, debt.ID, found[0].DebtID)

	deleted, err := repo.DeleteByPayment(ctx, payment.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)
}

func TestCustomerRepository_PageAndCount(t *testing.T) {
	db := newSQLiteDB(t)
	repo := NewGormCustomerRepository(db)
	ctx := context.Background()

	for _, name := range []string{"Carla", "Ana", "Bruno"} {
		c, err := collection.NewCustomer(name, "", "")
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, c))
	}
	blocked, err := collection.NewCustomer("Zed", "", "")
	require.NoError(t, err)
	require.NoError(t, blocked.SetStatus(collection.CustomerStatusBlocked))
	require.NoError(t, repo.Save(ctx, blocked))

	active := collection.CustomerStatusActive
	filter := collection.CustomerFilter{
		Filter: shared.Filter{Page: 1, PageSize: 2, OrderBy: "name", OrderDir: "asc"},
		Status: &active,
	}

	total, err := repo.Count(ctx, filter)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)

	page, err := repo.FindPage(ctx, filter)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "Ana", page[0].Name)
	assert.Equal(t, "Bruno", page[1].Name)

	// an unknown order column falls back to created_at instead of reaching SQL
	filter.OrderBy = "name; DROP TABLE customers"
	_, err = repo.FindPage(ctx, filter)
	require.NoError(t, err)

	all, err := repo.FindAllMatching(ctx, collection.CustomerFilter{Filter: shared.Filter{Search: "ZE"}})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, collection.CustomerStatusBlocked, all[0].Status)
}

func TestCustomerRepository_SearchMatchesWildcardsLiterally(t *testing.T) {
	db := newSQLiteDB(t)
	repo := NewGormCustomerRepository(db)
	ctx := context.Background()

	for _, name := range []string{"100% Cotton Ltd", "Ana_Maria", "AnaXMaria", `back\slash`, "Plain"} {
		c, err := collection.NewCustomer(name, "", "")
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, c))
	}

	tests := []struct {
		search string
		want   []string
	}{
		{"%", []string{"100% Cotton Ltd"}},
		{"_", []string{"Ana_Maria"}},
		{"a_m", []string{"Ana_Maria"}},
		{`\`, []string{`back\slash`}},
		{"ana", []string{"Ana_Maria", "AnaXMaria"}},
	}
	for _, tt := range tests {
		t.Run(tt.search, func(t *testing.T) {
			filter := collection.CustomerFilter{Filter: shared.Filter{Search: tt.search, OrderBy: "name", OrderDir: "asc"}}
			found, err := repo.FindAllMatching(ctx, filter)
			require.NoError(t, err)
			got := make([]string, len(found))
			for i, c := range found {
				got[i] = c.Name
			}
			assert.ElementsMatch(t, tt.want, got)

			total, err := repo.Count(ctx, filter)
			require.NoError(t, err)
			assert.EqualValues(t, len(tt.want), total)
		})
	}
}
