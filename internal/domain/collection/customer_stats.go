package collection

import (
	"cmp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CustomerStats are read-side rollups derived from debt and installment state.
// They are recomputed on every read and never persisted.
type CustomerStats struct {
	TotalDebtAmount decimal.Decimal
	IsOverdue       bool
	OverdueDays     int
	PaymentsCount   int64
}

// CustomerWithStats pairs a customer with its derived stats
type CustomerWithStats struct {
	Customer Customer
	Stats    CustomerStats
}

// ComputeCustomerStats derives stats from the customer's debts and their overdue installments.
// Only outstanding debts count towards TotalDebtAmount; only installments in overdue status
// contribute to IsOverdue and OverdueDays.
func ComputeCustomerStats(debts []Debt, overdue []Installment, paymentsCount int64, today time.Time) CustomerStats {
	stats := CustomerStats{TotalDebtAmount: decimal.Zero, PaymentsCount: paymentsCount}
	for _, d := range debts {
		if d.Status.IsOutstanding() {
			stats.TotalDebtAmount = stats.TotalDebtAmount.Add(d.CurrentBalance)
		}
	}
	for i := range overdue {
		if overdue[i].Status != InstallmentStatusOverdue {
			continue
		}
		stats.IsOverdue = true
		if days := overdue[i].DaysOverdue(today); days > stats.OverdueDays {
			stats.OverdueDays = days
		}
	}
	return stats
}

// CustomerSortField is a field customers can be ordered by
type CustomerSortField string

const (
	CustomerSortName            CustomerSortField = "name"
	CustomerSortEmail           CustomerSortField = "email"
	CustomerSortStatus          CustomerSortField = "status"
	CustomerSortCreatedAt       CustomerSortField = "created_at"
	CustomerSortUpdatedAt       CustomerSortField = "updated_at"
	CustomerSortTotalDebtAmount CustomerSortField = "total_debt_amount"
	CustomerSortIsOverdue       CustomerSortField = "is_overdue"
	CustomerSortOverdueDays     CustomerSortField = "overdue_days"
	CustomerSortPaymentsCount   CustomerSortField = "payments_count"
)

// IsComputed returns true for fields that only exist after stats are derived
func (f CustomerSortField) IsComputed() bool {
	switch f {
	case CustomerSortTotalDebtAmount, CustomerSortIsOverdue, CustomerSortOverdueDays, CustomerSortPaymentsCount:
		return true
	}
	return false
}

// IsValid checks if the sort field is known
func (f CustomerSortField) IsValid() bool {
	switch f {
	case CustomerSortName, CustomerSortEmail, CustomerSortStatus, CustomerSortCreatedAt, CustomerSortUpdatedAt:
		return true
	}
	return f.IsComputed()
}

// CompareCustomersWithStats orders two rows by field ascending.
// Ties fall back to created_at and then id so pages are stable.
func CompareCustomersWithStats(a, b CustomerWithStats, field CustomerSortField) int {
	var c int
	switch field {
	case CustomerSortTotalDebtAmount:
		c = a.Stats.TotalDebtAmount.Cmp(b.Stats.TotalDebtAmount)
	case CustomerSortIsOverdue:
		c = cmp.Compare(boolRank(a.Stats.IsOverdue), boolRank(b.Stats.IsOverdue))
	case CustomerSortOverdueDays:
		c = cmp.Compare(a.Stats.OverdueDays, b.Stats.OverdueDays)
	case CustomerSortPaymentsCount:
		c = cmp.Compare(a.Stats.PaymentsCount, b.Stats.PaymentsCount)
	case CustomerSortName:
		c = strings.Compare(a.Customer.Name, b.Customer.Name)
	case CustomerSortEmail:
		c = strings.Compare(a.Customer.Email, b.Customer.Email)
	case CustomerSortStatus:
		c = strings.Compare(string(a.Customer.Status), string(b.Customer.Status))
	case CustomerSortUpdatedAt:
		c = a.Customer.UpdatedAt.Compare(b.Customer.UpdatedAt)
	}
	if c != 0 {
		return c
	}
	if c = a.Customer.CreatedAt.Compare(b.Customer.CreatedAt); c != 0 {
		return c
	}
	return compareUUID(a.Customer.ID, b.Customer.ID)
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}

func compareUUID(a, b uuid.UUID) int {
	return strings.Compare(a.String(), b.String())
}
