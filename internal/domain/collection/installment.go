package collection

import (
	"fmt"
	"time"

	"github.com/debtdesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InstallmentStatus represents the payment status of one scheduled installment
type InstallmentStatus string

const (
	InstallmentStatusDue           InstallmentStatus = "due"
	InstallmentStatusOverdue       InstallmentStatus = "overdue"
	InstallmentStatusPartiallyPaid InstallmentStatus = "partially_paid"
	InstallmentStatusPaid          InstallmentStatus = "paid"
	InstallmentStatusCanceled      InstallmentStatus = "canceled"
)

// IsValid checks if the status is a valid InstallmentStatus
func (s InstallmentStatus) IsValid() bool {
	switch s {
	case InstallmentStatusDue, InstallmentStatusOverdue, InstallmentStatusPartiallyPaid,
		InstallmentStatusPaid, InstallmentStatusCanceled:
		return true
	}
	return false
}

// String returns the string representation of InstallmentStatus
func (s InstallmentStatus) String() string {
	return string(s)
}

// CanApplyPayment returns true if payments can be applied in this status
func (s InstallmentStatus) CanApplyPayment() bool {
	return s == InstallmentStatusDue || s == InstallmentStatusOverdue || s == InstallmentStatusPartiallyPaid
}

// ReversalStatusPolicy decides the installment status after a payment is reverted
type ReversalStatusPolicy string

const (
	// ReversalStatusReset always returns the installment to due
	ReversalStatusReset ReversalStatusPolicy = "reset"
	// ReversalStatusRecompute returns partially_paid while other payments remain applied, due otherwise
	ReversalStatusRecompute ReversalStatusPolicy = "recompute"
)

// IsValid checks if the policy is known
func (p ReversalStatusPolicy) IsValid() bool {
	return p == ReversalStatusReset || p == ReversalStatusRecompute
}

// Installment is one scheduled partial due-amount under a debt.
// Invariant: 0 <= AmountPaid <= AmountDue, and Status is paid iff AmountPaid equals AmountDue.
type Installment struct {
	shared.BaseAggregateRoot
	DebtID     uuid.UUID
	SequenceNo int
	DueDate    time.Time
	AmountDue  decimal.Decimal
	AmountPaid decimal.Decimal
	Status     InstallmentStatus
}

// NewInstallment creates a due installment
func NewInstallment(debtID uuid.UUID, sequenceNo int, dueDate time.Time, amountDue decimal.Decimal) (*Installment, error) {
	if debtID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_DEBT", "Debt ID cannot be empty")
	}
	if sequenceNo < 1 {
		return nil, shared.NewValidationError("INVALID_SEQUENCE", fmt.Sprintf("Installment sequence (%d) must be positive", sequenceNo))
	}
	if !amountDue.IsPositive() {
		return nil, shared.NewValidationError("INVALID_AMOUNT", fmt.Sprintf("Installment amount due (%s) must be positive", amountDue))
	}
	if err := checkAmountFits("Installment amount due", amountDue); err != nil {
		return nil, err
	}
	if dueDate.IsZero() {
		return nil, shared.NewValidationError("INVALID_DUE_DATE", "Installment due date is required")
	}
	return &Installment{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		DebtID:            debtID,
		SequenceNo:        sequenceNo,
		DueDate:           truncateToDate(dueDate),
		AmountDue:         amountDue,
		AmountPaid:        decimal.Zero,
		Status:            InstallmentStatusDue,
	}, nil
}

// Remaining returns the amount still due
func (i *Installment) Remaining() decimal.Decimal {
	return i.AmountDue.Sub(i.AmountPaid)
}

// ApplyPayment adds amount to the paid total and advances the status
func (i *Installment) ApplyPayment(amount decimal.Decimal, now time.Time) error {
	if !amount.IsPositive() {
		return shared.NewValidationError("INVALID_AMOUNT", fmt.Sprintf("Allocation amount (%s) must be positive", amount))
	}
	if !i.Status.CanApplyPayment() {
		return shared.NewValidationError("INVALID_STATE",
			fmt.Sprintf("Cannot apply payment to installment %s in %s status", i.ID, i.Status))
	}
	newPaid := i.AmountPaid.Add(amount)
	if newPaid.GreaterThan(i.AmountDue) {
		return shared.NewValidationError("EXCEEDS_INSTALLMENT",
			fmt.Sprintf("Allocation amount (%s) exceeds remaining due (%s) on installment %s", amount, i.Remaining(), i.ID))
	}
	i.AmountPaid = newPaid
	switch {
	case newPaid.Equal(i.AmountDue):
		i.Status = InstallmentStatusPaid
	case newPaid.IsPositive():
		i.Status = InstallmentStatusPartiallyPaid
	}
	i.Touch(now)
	return nil
}

// RevertPayment removes amount from the paid total.
// The resulting status depends on policy; overdue is never inferred.
func (i *Installment) RevertPayment(amount decimal.Decimal, policy ReversalStatusPolicy, now time.Time) error {
	if !amount.IsPositive() {
		return shared.NewValidationError("INVALID_AMOUNT", fmt.Sprintf("Reverted amount (%s) must be positive", amount))
	}
	newPaid := i.AmountPaid.Sub(amount)
	if newPaid.IsNegative() {
		return shared.NewValidationError("EXCEEDS_PAID",
			fmt.Sprintf("Reverted amount (%s) exceeds amount paid (%s) on installment %s", amount, i.AmountPaid, i.ID))
	}
	i.AmountPaid = newPaid
	i.Status = InstallmentStatusDue
	if policy == ReversalStatusRecompute && newPaid.IsPositive() {
		i.Status = InstallmentStatusPartiallyPaid
	}
	i.Touch(now)
	return nil
}

// MarkOverdue flags a due installment whose due date is before asOf.
// Returns true if the status changed.
func (i *Installment) MarkOverdue(asOf time.Time) bool {
	if i.Status != InstallmentStatusDue {
		return false
	}
	if !truncateToDate(i.DueDate).Before(truncateToDate(asOf)) {
		return false
	}
	i.Status = InstallmentStatusOverdue
	i.Touch(asOf)
	return true
}

// DaysOverdue returns whole days between the due date and today, clamped at zero
func (i *Installment) DaysOverdue(today time.Time) int {
	days := int(truncateToDate(today).Sub(truncateToDate(i.DueDate)).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

func truncateToDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
