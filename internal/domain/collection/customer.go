package collection

import (
	"fmt"
	"strings"

	"github.com/debtdesk/backend/internal/domain/shared"
)

// CustomerStatus represents the outreach status of a customer
type CustomerStatus string

const (
	CustomerStatusActive       CustomerStatus = "active"
	CustomerStatusDoNotContact CustomerStatus = "do_not_contact"
	CustomerStatusBlocked      CustomerStatus = "blocked"
)

// IsValid checks if the status is a valid CustomerStatus
func (s CustomerStatus) IsValid() bool {
	switch s {
	case CustomerStatusActive, CustomerStatusDoNotContact, CustomerStatusBlocked:
		return true
	}
	return false
}

// String returns the string representation of CustomerStatus
func (s CustomerStatus) String() string {
	return string(s)
}

// Customer is a debtor. It owns debts and payments.
type Customer struct {
	shared.BaseAggregateRoot
	Name   string
	Email  string
	Phone  string
	Status CustomerStatus
}

// NewCustomer creates a new active customer
func NewCustomer(name, email, phone string) (*Customer, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewValidationError("INVALID_CUSTOMER_NAME", "Customer name cannot be empty")
	}
	if len(name) > 200 {
		return nil, shared.NewValidationError("INVALID_CUSTOMER_NAME", "Customer name cannot exceed 200 characters")
	}
	return &Customer{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		Email:             strings.TrimSpace(email),
		Phone:             strings.TrimSpace(phone),
		Status:            CustomerStatusActive,
	}, nil
}

// SetStatus changes the outreach status
func (c *Customer) SetStatus(status CustomerStatus) error {
	if !status.IsValid() {
		return shared.NewValidationError("INVALID_CUSTOMER_STATUS", fmt.Sprintf("Customer status %q is not valid", status))
	}
	c.Status = status
	return nil
}

// IsContactable reports whether outreach is allowed for this customer
func (c *Customer) IsContactable() bool {
	return c.Status == CustomerStatusActive
}
