package collection

import (
	"time"

	"github.com/debtdesk/backend/internal/domain/collection"
	"github.com/debtdesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateCustomerRequest represents a request to register a debtor
type CreateCustomerRequest struct {
	Name  string `json:"name" binding:"required,min=1,max=200"`
	Email string `json:"email" binding:"omitempty,email,max=200"`
	Phone string `json:"phone" binding:"max=50"`
}

// InstallmentInput schedules one installment of a new debt
type InstallmentInput struct {
	SequenceNo int             `json:"sequence_no" binding:"required,min=1"`
	DueDate    string          `json:"due_date" binding:"required"` // YYYY-MM-DD or RFC 3339
	AmountDue  decimal.Decimal `json:"amount_due"`
}

// CreateDebtRequest represents a request to open a debt with an optional installment schedule
type CreateDebtRequest struct {
	CustomerID     uuid.UUID          `json:"customer_id" binding:"required"`
	OriginalAmount decimal.Decimal    `json:"original_amount"`
	Currency       string             `json:"currency" binding:"omitempty,len=3"`
	Installments   []InstallmentInput `json:"installments" binding:"omitempty,dive"`
}

// CreatePaymentRequest represents an incoming payment to record
type CreatePaymentRequest struct {
	CustomerID    uuid.UUID       `json:"customer_id" binding:"required"`
	DebtID        *uuid.UUID      `json:"debt_id"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency" binding:"omitempty,len=3"`
	Method        string          `json:"method" binding:"required"`
	ProviderTxnID *string         `json:"provider_txn_id" binding:"omitempty,max=255"`
}

// AllocationLineInput is one requested (installment, amount) pair
type AllocationLineInput struct {
	InstallmentID uuid.UUID       `json:"installment_id" binding:"required"`
	Amount        decimal.Decimal `json:"amount"`
}

// AllocatePaymentRequest represents a request to split a payment across installments
type AllocatePaymentRequest struct {
	Allocations []AllocationLineInput `json:"allocations" binding:"required,min=1,dive"`
}

// CustomerStatsFilter holds the where-filters, sorting and paging for the customer list
type CustomerStatsFilter struct {
	Search      string
	Status      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	SortBy      string
	SortOrder   string
	Page        int
	PageSize    int
}

// CustomerResponse represents a customer in API responses
type CustomerResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CustomerWithStatsResponse is a customer row with derived collection stats
type CustomerWithStatsResponse struct {
	CustomerResponse
	TotalDebtAmount decimal.Decimal `json:"total_debt_amount"`
	IsOverdue       bool            `json:"is_overdue"`
	OverdueDays     int             `json:"overdue_days"`
	PaymentsCount   int64           `json:"payments_count"`
}

// InstallmentResponse represents an installment in API responses
type InstallmentResponse struct {
	ID         uuid.UUID       `json:"id"`
	DebtID     uuid.UUID       `json:"debt_id"`
	SequenceNo int             `json:"sequence_no"`
	DueDate    string          `json:"due_date"`
	AmountDue  decimal.Decimal `json:"amount_due"`
	AmountPaid decimal.Decimal `json:"amount_paid"`
	Remaining  decimal.Decimal `json:"remaining"`
	Status     string          `json:"status"`
	Version    int             `json:"version"`
}

// DebtResponse represents a debt and its schedule in API responses
type DebtResponse struct {
	ID             uuid.UUID             `json:"id"`
	CustomerID     uuid.UUID             `json:"customer_id"`
	OriginalAmount decimal.Decimal       `json:"original_amount"`
	CurrentBalance decimal.Decimal       `json:"current_balance"`
	Currency       string                `json:"currency"`
	Status         string                `json:"status"`
	ClosedAt       *time.Time            `json:"closed_at,omitempty"`
	Version        int                   `json:"version"`
	Installments   []InstallmentResponse `json:"installments"`
	CreatedAt      time.Time             `json:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at"`
}

// AllocationResponse represents one payment allocation in API responses
type AllocationResponse struct {
	ID            uuid.UUID       `json:"id"`
	PaymentID     uuid.UUID       `json:"payment_id"`
	InstallmentID uuid.UUID       `json:"installment_id"`
	DebtID        uuid.UUID       `json:"debt_id"`
	AmountApplied decimal.Decimal `json:"amount_applied"`
	CreatedAt     time.Time       `json:"created_at"`
}

// PaymentResponse represents a payment with its allocations in API responses
type PaymentResponse struct {
	ID                uuid.UUID            `json:"id"`
	CustomerID        uuid.UUID            `json:"customer_id"`
	DebtID            *uuid.UUID           `json:"debt_id,omitempty"`
	Amount            decimal.Decimal      `json:"amount"`
	Currency          string               `json:"currency"`
	Method            string               `json:"method"`
	ProviderTxnID     *string              `json:"provider_txn_id,omitempty"`
	Status            string               `json:"status"`
	ReceivedAt        time.Time            `json:"received_at"`
	ReversedAt        *time.Time           `json:"reversed_at,omitempty"`
	AllocatedAmount   decimal.Decimal      `json:"allocated_amount"`
	UnallocatedAmount decimal.Decimal      `json:"unallocated_amount"`
	Version           int                  `json:"version"`
	Allocations       []AllocationResponse `json:"allocations"`
}

// ToCustomerResponse converts a domain Customer to a response
func ToCustomerResponse(c *collection.Customer) CustomerResponse {
	return CustomerResponse{
		ID:        c.ID,
		Name:      c.Name,
		Email:     c.Email,
		Phone:     c.Phone,
		Status:    c.Status.String(),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// ToCustomerWithStatsResponse converts a customer row with stats to a response
func ToCustomerWithStatsResponse(row *collection.CustomerWithStats) CustomerWithStatsResponse {
	return CustomerWithStatsResponse{
		CustomerResponse: ToCustomerResponse(&row.Customer),
		TotalDebtAmount:  row.Stats.TotalDebtAmount,
		IsOverdue:        row.Stats.IsOverdue,
		OverdueDays:      row.Stats.OverdueDays,
		PaymentsCount:    row.Stats.PaymentsCount,
	}
}

// ToInstallmentResponse converts a domain Installment to a response
func ToInstallmentResponse(i *collection.Installment) InstallmentResponse {
	return InstallmentResponse{
		ID:         i.ID,
		DebtID:     i.DebtID,
		SequenceNo: i.SequenceNo,
		DueDate:    i.DueDate.Format(time.DateOnly),
		AmountDue:  i.AmountDue,
		AmountPaid: i.AmountPaid,
		Remaining:  i.Remaining(),
		Status:     i.Status.String(),
		Version:    i.Version,
	}
}

// ToDebtResponse converts a domain Debt and its loaded installments to a response
func ToDebtResponse(d *collection.Debt) DebtResponse {
	installments := make([]InstallmentResponse, len(d.Installments))
	for i := range d.Installments {
		installments[i] = ToInstallmentResponse(&d.Installments[i])
	}
	return DebtResponse{
		ID:             d.ID,
		CustomerID:     d.CustomerID,
		OriginalAmount: d.OriginalAmount,
		CurrentBalance: d.CurrentBalance,
		Currency:       d.Currency.String(),
		Status:         d.Status.String(),
		ClosedAt:       d.ClosedAt,
		Version:        d.Version,
		Installments:   installments,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

// ToAllocationResponse converts a domain PaymentAllocation to a response
func ToAllocationResponse(a *collection.PaymentAllocation) AllocationResponse {
	return AllocationResponse{
		ID:            a.ID,
		PaymentID:     a.PaymentID,
		InstallmentID: a.InstallmentID,
		DebtID:        a.DebtID,
		AmountApplied: a.AmountApplied,
		CreatedAt:     a.CreatedAt,
	}
}

// ToAllocationResponses converts a list of allocations
func ToAllocationResponses(allocations []collection.PaymentAllocation) []AllocationResponse {
	responses := make([]AllocationResponse, len(allocations))
	for i := range allocations {
		responses[i] = ToAllocationResponse(&allocations[i])
	}
	return responses
}

// ToPaymentResponse converts a domain Payment and its loaded allocations to a response
func ToPaymentResponse(p *collection.Payment) PaymentResponse {
	return PaymentResponse{
		ID:                p.ID,
		CustomerID:        p.CustomerID,
		DebtID:            p.DebtID,
		Amount:            p.Amount,
		Currency:          p.Currency.String(),
		Method:            p.Method.String(),
		ProviderTxnID:     p.ProviderTxnID,
		Status:            p.Status.String(),
		ReceivedAt:        p.ReceivedAt,
		ReversedAt:        p.ReversedAt,
		AllocatedAmount:   p.AllocatedAmount(),
		UnallocatedAmount: p.UnallocatedAmount(),
		Version:           p.Version,
		Allocations:       ToAllocationResponses(p.Allocations),
	}
}

// CustomerListResult is one page of customers with stats
type CustomerListResult = shared.Paginated[CustomerWithStatsResponse]
