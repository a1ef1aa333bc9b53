package persistence

import (
	"context"

	appcollection "github.com/debtdesk/backend/internal/application/collection"
	"github.com/debtdesk/backend/internal/domain/collection"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs fn within a database transaction.
// A non-nil error from fn rolls the transaction back; driver errors raised at commit
// are translated so serialization failures stay retryable.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appcollection.TransactionalRepositories) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
	return translateError(err, nil)
}

// gormTransactionalRepositories provides access to all repositories within a transaction.
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

// Customers returns the customer repository scoped to the current transaction.
func (r *gormTransactionalRepositories) Customers() collection.CustomerRepository {
	return NewGormCustomerRepository(r.tx)
}

// Debts returns the debt repository scoped to the current transaction.
func (r *gormTransactionalRepositories) Debts() collection.DebtRepository {
	return NewGormDebtRepository(r.tx)
}

// Installments returns the installment repository scoped to the current transaction.
func (r *gormTransactionalRepositories) Installments() collection.InstallmentRepository {
	return NewGormInstallmentRepository(r.tx)
}

// Payments returns the payment repository scoped to the current transaction.
func (r *gormTransactionalRepositories) Payments() collection.PaymentRepository {
	return NewGormPaymentRepository(r.tx)
}

// Allocations returns the allocation repository scoped to the current transaction.
func (r *gormTransactionalRepositories) Allocations() collection.AllocationRepository {
	return NewGormAllocationRepository(r.tx)
}

// Ensure GormTransactionScope implements TransactionScope
var _ appcollection.TransactionScope = (*GormTransactionScope)(nil)

// Ensure gormTransactionalRepositories implements TransactionalRepositories
var _ appcollection.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
