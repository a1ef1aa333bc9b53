package collection

import (
	"fmt"
	"time"

	"github.com/debtdesk/backend/internal/domain/shared"
	"github.com/debtdesk/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DebtStatus represents the lifecycle status of a debt
type DebtStatus string

const (
	DebtStatusOpen         DebtStatus = "open"
	DebtStatusInCollection DebtStatus = "in_collection"
	DebtStatusSettled      DebtStatus = "settled"
	DebtStatusWrittenOff   DebtStatus = "written_off"
	DebtStatusDisputed     DebtStatus = "disputed"
)

// IsValid checks if the status is a valid DebtStatus
func (s DebtStatus) IsValid() bool {
	switch s {
	case DebtStatusOpen, DebtStatusInCollection, DebtStatusSettled,
		DebtStatusWrittenOff, DebtStatusDisputed:
		return true
	}
	return false
}

// String returns the string representation of DebtStatus
func (s DebtStatus) String() string {
	return string(s)
}

// IsOutstanding returns true if the balance of a debt in this status counts towards a customer's total
func (s DebtStatus) IsOutstanding() bool {
	return s == DebtStatusOpen || s == DebtStatusInCollection
}

// Debt is an obligation with a fixed original amount and a mutable balance.
// Invariant: 0 <= CurrentBalance <= OriginalAmount.
type Debt struct {
	shared.BaseAggregateRoot
	CustomerID     uuid.UUID
	OriginalAmount decimal.Decimal
	CurrentBalance decimal.Decimal
	Currency       valueobject.Currency
	Status         DebtStatus
	ClosedAt       *time.Time
	Installments   []Installment
}

// NewDebt creates an open debt whose balance equals its original amount
func NewDebt(customerID uuid.UUID, originalAmount decimal.Decimal, currency valueobject.Currency) (*Debt, error) {
	if customerID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_CUSTOMER", "Customer ID cannot be empty")
	}
	if !originalAmount.IsPositive() {
		return nil, shared.NewValidationError("INVALID_AMOUNT", fmt.Sprintf("Debt original amount (%s) must be positive", originalAmount))
	}
	if err := checkAmountFits("Debt original amount", originalAmount); err != nil {
		return nil, err
	}
	if currency == "" {
		return nil, shared.NewValidationError("INVALID_CURRENCY", "Debt currency cannot be empty")
	}
	return &Debt{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		CustomerID:        customerID,
		OriginalAmount:    originalAmount,
		CurrentBalance:    originalAmount,
		Currency:          currency,
		Status:            DebtStatusOpen,
	}, nil
}

// AddInstallment schedules an installment under this debt.
// Sequence numbers must be unique and the scheduled total cannot exceed the original amount.
func (d *Debt) AddInstallment(sequenceNo int, dueDate time.Time, amountDue decimal.Decimal) (*Installment, error) {
	for _, existing := range d.Installments {
		if existing.SequenceNo == sequenceNo {
			return nil, shared.NewValidationError("DUPLICATE_SEQUENCE",
				fmt.Sprintf("Installment sequence %d already exists on debt %s", sequenceNo, d.ID))
		}
	}
	inst, err := NewInstallment(d.ID, sequenceNo, dueDate, amountDue)
	if err != nil {
		return nil, err
	}
	scheduled := d.ScheduledAmount().Add(amountDue)
	if scheduled.GreaterThan(d.OriginalAmount) {
		return nil, shared.NewValidationError("SCHEDULE_EXCEEDS_DEBT",
			fmt.Sprintf("Scheduled installments (%s) exceed debt original amount (%s)", scheduled, d.OriginalAmount))
	}
	d.Installments = append(d.Installments, *inst)
	return inst, nil
}

// ScheduledAmount returns the sum of amountDue across the debt's installments
func (d *Debt) ScheduledAmount() decimal.Decimal {
	total := decimal.Zero
	for _, inst := range d.Installments {
		total = total.Add(inst.AmountDue)
	}
	return total
}

// ApplyCredit lowers the balance by amount. A balance of exactly zero settles the debt.
func (d *Debt) ApplyCredit(amount decimal.Decimal, now time.Time) error {
	if !amount.IsPositive() {
		return shared.NewValidationError("INVALID_AMOUNT", fmt.Sprintf("Credit amount (%s) must be positive", amount))
	}
	newBalance := d.CurrentBalance.Sub(amount)
	if newBalance.IsNegative() {
		return shared.NewValidationError("EXCEEDS_OUTSTANDING",
			fmt.Sprintf("Payment (%s) exceeds outstanding balance (%s) of debt %s", amount, d.CurrentBalance, d.ID))
	}
	d.CurrentBalance = newBalance
	if newBalance.IsZero() {
		closedAt := now.UTC()
		d.Status = DebtStatusSettled
		d.ClosedAt = &closedAt
	}
	d.Touch(now)
	return nil
}

// ApplyDebit raises the balance by amount. A closed debt is reopened to in_collection.
func (d *Debt) ApplyDebit(amount decimal.Decimal, now time.Time) error {
	if !amount.IsPositive() {
		return shared.NewValidationError("INVALID_AMOUNT", fmt.Sprintf("Debit amount (%s) must be positive", amount))
	}
	newBalance := d.CurrentBalance.Add(amount)
	if newBalance.GreaterThan(d.OriginalAmount) {
		return shared.NewValidationError("EXCEEDS_ORIGINAL",
			fmt.Sprintf("Debit (%s) would raise balance of debt %s above its original amount (%s)", amount, d.ID, d.OriginalAmount))
	}
	d.CurrentBalance = newBalance
	if d.IsClosed() {
		d.Status = DebtStatusInCollection
		d.ClosedAt = nil
	}
	d.Touch(now)
	return nil
}

// checkAmountFits rejects amounts the ledger cannot store exactly
func checkAmountFits(what string, amount decimal.Decimal) error {
	if !valueobject.FitsScale(amount) {
		return shared.NewValidationError("INVALID_AMOUNT_SCALE",
			fmt.Sprintf("%s (%s) has more than %d decimal places", what, amount, valueobject.AmountScale))
	}
	if !valueobject.FitsStorage(amount) {
		return shared.NewValidationError("AMOUNT_TOO_LARGE",
			fmt.Sprintf("%s (%s) must be less than %s", what, amount, valueobject.MaxAmount))
	}
	return nil
}

// IsClosed returns true if the debt has been settled
func (d *Debt) IsClosed() bool {
	return d.Status == DebtStatusSettled || d.ClosedAt != nil
}
