package collection

import (
	"fmt"
	"strings"
	"time"

	"github.com/debtdesk/backend/internal/domain/shared"
	"github.com/debtdesk/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentStatus represents the lifecycle status of a payment
type PaymentStatus string

const (
	PaymentStatusReceived PaymentStatus = "received"
	PaymentStatusReversed PaymentStatus = "reversed"
	PaymentStatusFailed   PaymentStatus = "failed"
)

// IsValid checks if the status is a valid PaymentStatus
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusReceived, PaymentStatusReversed, PaymentStatusFailed:
		return true
	}
	return false
}

// String returns the string representation of PaymentStatus
func (s PaymentStatus) String() string {
	return string(s)
}

// PaymentMethod represents how the payment was made
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodCard         PaymentMethod = "card"
	PaymentMethodPix          PaymentMethod = "pix"
	PaymentMethodBoleto       PaymentMethod = "boleto"
	PaymentMethodCheck        PaymentMethod = "check"
	PaymentMethodOther        PaymentMethod = "other"
)

// IsValid checks if the payment method is valid
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodBankTransfer, PaymentMethodCard,
		PaymentMethodPix, PaymentMethodBoleto, PaymentMethodCheck, PaymentMethodOther:
		return true
	}
	return false
}

// String returns the string representation of PaymentMethod
func (m PaymentMethod) String() string {
	return string(m)
}

// Payment is a recorded incoming transaction.
// Amount is fixed at creation; only reversal mutates a payment afterwards.
type Payment struct {
	shared.BaseAggregateRoot
	CustomerID    uuid.UUID
	DebtID        *uuid.UUID
	Amount        decimal.Decimal
	Currency      valueobject.Currency
	Method        PaymentMethod
	ProviderTxnID *string
	Status        PaymentStatus
	ReceivedAt    time.Time
	ReversedAt    *time.Time
	Allocations   []PaymentAllocation
}

// NewPayment creates a received payment
func NewPayment(
	customerID uuid.UUID,
	debtID *uuid.UUID,
	amount decimal.Decimal,
	currency valueobject.Currency,
	method PaymentMethod,
	providerTxnID *string,
) (*Payment, error) {
	if customerID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_CUSTOMER", "Customer ID cannot be empty")
	}
	if !amount.IsPositive() {
		return nil, shared.NewValidationError("INVALID_AMOUNT", fmt.Sprintf("Payment amount (%s) must be positive", amount))
	}
	if err := checkAmountFits("Payment amount", amount); err != nil {
		return nil, err
	}
	if currency == "" {
		return nil, shared.NewValidationError("INVALID_CURRENCY", "Payment currency cannot be empty")
	}
	if !method.IsValid() {
		return nil, shared.NewValidationError("INVALID_PAYMENT_METHOD", fmt.Sprintf("Payment method %q is not valid", method))
	}
	if debtID != nil && *debtID == uuid.Nil {
		debtID = nil
	}
	if providerTxnID != nil {
		trimmed := strings.TrimSpace(*providerTxnID)
		if trimmed == "" {
			providerTxnID = nil
		} else if len(trimmed) > 255 {
			return nil, shared.NewValidationError("INVALID_PROVIDER_TXN", "Provider transaction ID cannot exceed 255 characters")
		} else {
			providerTxnID = &trimmed
		}
	}

	p := &Payment{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		CustomerID:        customerID,
		DebtID:            debtID,
		Amount:            amount,
		Currency:          currency,
		Method:            method,
		ProviderTxnID:     providerTxnID,
		Status:            PaymentStatusReceived,
	}
	p.ReceivedAt = p.CreatedAt
	return p, nil
}

// IsBoundToDebt returns true if the payment may only be allocated to installments of one debt
func (p *Payment) IsBoundToDebt() bool {
	return p.DebtID != nil
}

// AllocatedAmount sums amountApplied over the loaded allocations
func (p *Payment) AllocatedAmount() decimal.Decimal {
	total := decimal.Zero
	for _, a := range p.Allocations {
		total = total.Add(a.AmountApplied)
	}
	return total
}

// UnallocatedAmount returns what remains available for allocation
func (p *Payment) UnallocatedAmount() decimal.Decimal {
	return p.Amount.Sub(p.AllocatedAmount())
}

// EnsureAllocatable checks the payment can accept new allocations
func (p *Payment) EnsureAllocatable() error {
	if p.Status != PaymentStatusReceived {
		return shared.NewConflictError("PAYMENT_NOT_RECEIVED",
			fmt.Sprintf("Payment %s is %s and cannot be allocated", p.ID, p.Status))
	}
	return nil
}

// MarkReversed transitions the payment to reversed
func (p *Payment) MarkReversed(now time.Time) error {
	if p.Status == PaymentStatusReversed {
		return shared.NewConflictError("ALREADY_REVERSED", fmt.Sprintf("Payment %s already reversed", p.ID))
	}
	reversedAt := now.UTC()
	p.Status = PaymentStatusReversed
	p.ReversedAt = &reversedAt
	p.Allocations = nil
	p.Touch(now)
	return nil
}
