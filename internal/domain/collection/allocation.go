package collection

import (
	"fmt"
	"sort"
	"time"

	"github.com/debtdesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentAllocation assigns part of a payment to one installment.
// (PaymentID, InstallmentID) is unique.
type PaymentAllocation struct {
	ID            uuid.UUID
	PaymentID     uuid.UUID
	InstallmentID uuid.UUID
	DebtID        uuid.UUID
	AmountApplied decimal.Decimal
	CreatedAt     time.Time
}

// NewPaymentAllocation creates an allocation row
func NewPaymentAllocation(paymentID uuid.UUID, inst *Installment, amount decimal.Decimal, now time.Time) (*PaymentAllocation, error) {
	if !amount.IsPositive() {
		return nil, shared.NewValidationError("INVALID_AMOUNT", fmt.Sprintf("Allocation amount (%s) must be positive", amount))
	}
	return &PaymentAllocation{
		ID:            uuid.New(),
		PaymentID:     paymentID,
		InstallmentID: inst.ID,
		DebtID:        inst.DebtID,
		AmountApplied: amount,
		CreatedAt:     now.UTC(),
	}, nil
}

// AllocationLine is one requested (installment, amount) pair
type AllocationLine struct {
	InstallmentID uuid.UUID
	Amount        decimal.Decimal
}

// AllocationPlan is a validated allocation request against one payment
type AllocationPlan struct {
	Lines []AllocationLine
	Total decimal.Decimal
}

// NewAllocationPlan validates the shape of a request before anything is read or locked.
// Every amount must be positive and storable. Repeated installments are rejected by
// CheckAgainst, after the amount bound.
func NewAllocationPlan(lines []AllocationLine) (*AllocationPlan, error) {
	if len(lines) == 0 {
		return nil, shared.NewValidationError("EMPTY_ALLOCATION", "At least one allocation is required")
	}
	total := decimal.Zero
	for idx, line := range lines {
		if line.InstallmentID == uuid.Nil {
			return nil, shared.NewValidationError("INVALID_INSTALLMENT", fmt.Sprintf("Allocation %d has no installment", idx+1))
		}
		if !line.Amount.IsPositive() {
			return nil, shared.NewValidationError("INVALID_AMOUNT",
				fmt.Sprintf("Allocation amount (%s) for installment %s must be positive", line.Amount, line.InstallmentID))
		}
		if err := checkAmountFits("Allocation amount", line.Amount); err != nil {
			return nil, err
		}
		total = total.Add(line.Amount)
	}
	return &AllocationPlan{Lines: lines, Total: total}, nil
}

// InstallmentIDs returns the targeted installment ids in request order
func (p *AllocationPlan) InstallmentIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(p.Lines))
	for i, line := range p.Lines {
		ids[i] = line.InstallmentID
	}
	return ids
}

// CheckAgainst verifies the plan fits what is left on the payment, then that no installment
// is targeted twice, within the request or by an existing allocation.
func (p *AllocationPlan) CheckAgainst(payment *Payment, existing []PaymentAllocation) error {
	already := decimal.Zero
	allocated := make(map[uuid.UUID]struct{}, len(existing))
	for _, a := range existing {
		already = already.Add(a.AmountApplied)
		allocated[a.InstallmentID] = struct{}{}
	}
	available := payment.Amount.Sub(already)
	if p.Total.GreaterThan(available) {
		return shared.NewValidationError("EXCEEDS_AVAILABLE",
			fmt.Sprintf("Allocation amount (%s) exceeds available payment amount (%s)", p.Total, available))
	}
	seen := make(map[uuid.UUID]struct{}, len(p.Lines))
	for _, line := range p.Lines {
		if _, dup := seen[line.InstallmentID]; dup {
			return shared.NewConflictError("DUPLICATE_ALLOCATION",
				fmt.Sprintf("Installment %s appears more than once in the allocation request", line.InstallmentID))
		}
		seen[line.InstallmentID] = struct{}{}
	}
	for _, line := range p.Lines {
		if _, ok := allocated[line.InstallmentID]; ok {
			return shared.NewConflictError("DUPLICATE_ALLOCATION",
				fmt.Sprintf("Payment %s is already allocated to installment %s", payment.ID, line.InstallmentID))
		}
	}
	return nil
}

// PlanOldestDueFirst spreads available across open installments, earliest due date first.
// Ties go to the lower sequence number. Installments with nothing remaining, or that cannot take
// a payment, are skipped. The result is empty when available is not positive.
func PlanOldestDueFirst(available decimal.Decimal, installments []Installment) []AllocationLine {
	open := make([]Installment, 0, len(installments))
	for _, inst := range installments {
		if inst.Status.CanApplyPayment() && inst.Remaining().IsPositive() {
			open = append(open, inst)
		}
	}
	sort.SliceStable(open, func(i, j int) bool {
		if !open[i].DueDate.Equal(open[j].DueDate) {
			return open[i].DueDate.Before(open[j].DueDate)
		}
		return open[i].SequenceNo < open[j].SequenceNo
	})

	lines := make([]AllocationLine, 0, len(open))
	left := available
	for _, inst := range open {
		if !left.IsPositive() {
			break
		}
		amount := decimal.Min(left, inst.Remaining())
		lines = append(lines, AllocationLine{InstallmentID: inst.ID, Amount: amount})
		left = left.Sub(amount)
	}
	return lines
}
