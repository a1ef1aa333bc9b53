package collection

import (
	"context"
	"time"

	"github.com/debtdesk/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// CustomerFilter defines where-filters for customer queries
type CustomerFilter struct {
	shared.Filter
	Status      *CustomerStatus
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// CustomerRepository defines the interface for customer persistence.
// Find methods return nil, nil when no row matches.
type CustomerRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Customer, error)
	// FindPage returns one page ordered by a persisted field
	FindPage(ctx context.Context, filter CustomerFilter) ([]Customer, error)
	// FindAllMatching returns every customer matching the where-filters, ignoring paging and ordering
	FindAllMatching(ctx context.Context, filter CustomerFilter) ([]Customer, error)
	Count(ctx context.Context, filter CustomerFilter) (int64, error)
	Save(ctx context.Context, customer *Customer) error
}

// DebtRepository defines the interface for debt persistence
type DebtRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Debt, error)
	// FindByIDWithInstallments loads the debt and its installments ordered by sequence
	FindByIDWithInstallments(ctx context.Context, id uuid.UUID) (*Debt, error)
	// FindByIDsForUpdate row-locks the debts in id order
	FindByIDsForUpdate(ctx context.Context, ids []uuid.UUID) ([]Debt, error)
	FindByCustomerIDs(ctx context.Context, customerIDs []uuid.UUID) ([]Debt, error)
	// Create inserts the debt together with its installments
	Create(ctx context.Context, debt *Debt) error
	// SaveWithLock persists balance and status when the stored version still matches
	SaveWithLock(ctx context.Context, debt *Debt) error
}

// InstallmentRepository defines the interface for installment persistence
type InstallmentRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Installment, error)
	// FindByIDsForUpdate row-locks the installments in id order; unknown ids are absent from the result
	FindByIDsForUpdate(ctx context.Context, ids []uuid.UUID) ([]Installment, error)
	FindByDebt(ctx context.Context, debtID uuid.UUID) ([]Installment, error)
	// FindOverdueByDebtIDs returns installments in overdue status for the given debts
	FindOverdueByDebtIDs(ctx context.Context, debtIDs []uuid.UUID) ([]Installment, error)
	// FindDueBefore returns up to limit installments still in due status with a due date before asOf
	FindDueBefore(ctx context.Context, asOf time.Time, limit int) ([]Installment, error)
	SaveWithLock(ctx context.Context, installment *Installment) error
}

// PaymentRepository defines the interface for payment persistence
type PaymentRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	// FindByIDForUpdate row-locks the payment for the rest of the transaction
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Payment, error)
	FindByProviderTxnID(ctx context.Context, providerTxnID string) (*Payment, error)
	// CountByCustomerIDs returns the number of payments per customer; customers without payments are absent
	CountByCustomerIDs(ctx context.Context, customerIDs []uuid.UUID) (map[uuid.UUID]int64, error)
	// Create inserts a payment; a duplicate provider transaction id yields a conflict error
	Create(ctx context.Context, payment *Payment) error
	SaveWithLock(ctx context.Context, payment *Payment) error
}

// AllocationRepository defines the interface for payment allocation persistence
type AllocationRepository interface {
	FindByPayment(ctx context.Context, paymentID uuid.UUID) ([]PaymentAllocation, error)
	// Create inserts an allocation; an existing (payment, installment) pair yields a conflict error
	Create(ctx context.Context, allocation *PaymentAllocation) error
	DeleteByPayment(ctx context.Context, paymentID uuid.UUID) (int64, error)
}
