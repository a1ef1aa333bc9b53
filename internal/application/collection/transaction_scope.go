package collection

import (
	"context"

	"github.com/debtdesk/backend/internal/domain/collection"
)

// TransactionScope provides transactional access to ledger repositories.
// Every repository call made through the TransactionalRepositories handed to fn
// joins the same database transaction, committed only when fn returns nil.
type TransactionScope interface {
	// Execute runs fn within a database transaction.
	// If fn returns an error or panics, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to all ledger repositories within a transaction.
//
// Lock order for mutating units of work is payment, then installments by id, then debts by id.
// Both Allocate and Reverse follow it so concurrent calls cannot deadlock on each other.
type TransactionalRepositories interface {
	Customers() collection.CustomerRepository
	Debts() collection.DebtRepository
	Installments() collection.InstallmentRepository
	Payments() collection.PaymentRepository
	Allocations() collection.AllocationRepository
}
