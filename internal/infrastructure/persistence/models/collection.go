package models

import (
	"time"

	"github.com/debtdesk/backend/internal/domain/collection"
	"github.com/debtdesk/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CustomerModel is the persistence model for the Customer domain entity.
type CustomerModel struct {
	AggregateModel
	Name   string                    `gorm:"type:varchar(200);not null;index"`
	Email  string                    `gorm:"type:varchar(200);index"`
	Phone  string                    `gorm:"type:varchar(50)"`
	Status collection.CustomerStatus `gorm:"type:varchar(20);not null;default:'active';index"`
}

// TableName returns the table name for GORM
func (CustomerModel) TableName() string {
	return "customers"
}

// ToDomain converts the persistence model to a domain Customer entity.
func (m *CustomerModel) ToDomain() *collection.Customer {
	return &collection.Customer{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		Name:              m.Name,
		Email:             m.Email,
		Phone:             m.Phone,
		Status:            m.Status,
	}
}

// FromDomain populates the persistence model from a domain Customer entity.
func (m *CustomerModel) FromDomain(c *collection.Customer) {
	m.FromDomainAggregateRoot(c.BaseAggregateRoot)
	m.Name = c.Name
	m.Email = c.Email
	m.Phone = c.Phone
	m.Status = c.Status
}

// CustomerModelFromDomain creates a new persistence model from a domain Customer entity.
func CustomerModelFromDomain(c *collection.Customer) *CustomerModel {
	m := &CustomerModel{}
	m.FromDomain(c)
	return m
}

// DebtModel is the persistence model for the Debt domain entity.
type DebtModel struct {
	AggregateModel
	CustomerID     uuid.UUID             `gorm:"type:uuid;not null;index"`
	OriginalAmount decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	CurrentBalance decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	Currency       string                `gorm:"type:varchar(3);not null"`
	Status         collection.DebtStatus `gorm:"type:varchar(20);not null;default:'open';index"`
	ClosedAt       *time.Time
	Installments   []InstallmentModel `gorm:"foreignKey:DebtID"`
}

// TableName returns the table name for GORM
func (DebtModel) TableName() string {
	return "debts"
}

// ToDomain converts the persistence model to a domain Debt entity.
func (m *DebtModel) ToDomain() *collection.Debt {
	d := &collection.Debt{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		CustomerID:        m.CustomerID,
		OriginalAmount:    m.OriginalAmount,
		CurrentBalance:    m.CurrentBalance,
		Currency:          valueobject.Currency(m.Currency),
		Status:            m.Status,
		ClosedAt:          utcPtr(m.ClosedAt),
	}
	if len(m.Installments) > 0 {
		d.Installments = make([]collection.Installment, len(m.Installments))
		for i := range m.Installments {
			d.Installments[i] = *m.Installments[i].ToDomain()
		}
	}
	return d
}

// FromDomain populates the persistence model from a domain Debt entity.
func (m *DebtModel) FromDomain(d *collection.Debt) {
	m.FromDomainAggregateRoot(d.BaseAggregateRoot)
	m.CustomerID = d.CustomerID
	m.OriginalAmount = d.OriginalAmount
	m.CurrentBalance = d.CurrentBalance
	m.Currency = d.Currency.String()
	m.Status = d.Status
	m.ClosedAt = d.ClosedAt
	m.Installments = make([]InstallmentModel, len(d.Installments))
	for i := range d.Installments {
		m.Installments[i].FromDomain(&d.Installments[i])
	}
}

// DebtModelFromDomain creates a new persistence model from a domain Debt entity.
func DebtModelFromDomain(d *collection.Debt) *DebtModel {
	m := &DebtModel{}
	m.FromDomain(d)
	return m
}

// InstallmentModel is the persistence model for the Installment domain entity.
type InstallmentModel struct {
	AggregateModel
	DebtID     uuid.UUID                    `gorm:"type:uuid;not null;uniqueIndex:idx_installment_debt_seq,priority:1"`
	SequenceNo int                          `gorm:"not null;uniqueIndex:idx_installment_debt_seq,priority:2"`
	DueDate    time.Time                    `gorm:"type:date;not null;index"`
	AmountDue  decimal.Decimal              `gorm:"type:decimal(18,4);not null"`
	AmountPaid decimal.Decimal              `gorm:"type:decimal(18,4);not null;default:0"`
	Status     collection.InstallmentStatus `gorm:"type:varchar(20);not null;default:'due';index"`
}

// TableName returns the table name for GORM
func (InstallmentModel) TableName() string {
	return "installments"
}

// ToDomain converts the persistence model to a domain Installment entity.
func (m *InstallmentModel) ToDomain() *collection.Installment {
	due := m.DueDate.UTC()
	return &collection.Installment{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		DebtID:            m.DebtID,
		SequenceNo:        m.SequenceNo,
		DueDate:           time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, time.UTC),
		AmountDue:         m.AmountDue,
		AmountPaid:        m.AmountPaid,
		Status:            m.Status,
	}
}

// FromDomain populates the persistence model from a domain Installment entity.
func (m *InstallmentModel) FromDomain(i *collection.Installment) {
	m.FromDomainAggregateRoot(i.BaseAggregateRoot)
	m.DebtID = i.DebtID
	m.SequenceNo = i.SequenceNo
	m.DueDate = i.DueDate
	m.AmountDue = i.AmountDue
	m.AmountPaid = i.AmountPaid
	m.Status = i.Status
}

// PaymentModel is the persistence model for the Payment domain entity.
// ProviderTxnID is unique when present; NULLs do not collide.
type PaymentModel struct {
	AggregateModel
	CustomerID    uuid.UUID                `gorm:"type:uuid;not null;index"`
	DebtID        *uuid.UUID               `gorm:"type:uuid;index"`
	Amount        decimal.Decimal          `gorm:"type:decimal(18,4);not null"`
	Currency      string                   `gorm:"type:varchar(3);not null"`
	Method        collection.PaymentMethod `gorm:"type:varchar(30);not null"`
	ProviderTxnID *string                  `gorm:"type:varchar(255);uniqueIndex:idx_payment_provider_txn"`
	Status        collection.PaymentStatus `gorm:"type:varchar(20);not null;default:'received';index"`
	ReceivedAt    time.Time                `gorm:"not null"`
	ReversedAt    *time.Time
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// ToDomain converts the persistence model to a domain Payment entity.
func (m *PaymentModel) ToDomain() *collection.Payment {
	return &collection.Payment{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		CustomerID:        m.CustomerID,
		DebtID:            m.DebtID,
		Amount:            m.Amount,
		Currency:          valueobject.Currency(m.Currency),
		Method:            m.Method,
		ProviderTxnID:     m.ProviderTxnID,
		Status:            m.Status,
		ReceivedAt:        m.ReceivedAt.UTC(),
		ReversedAt:        utcPtr(m.ReversedAt),
	}
}

// FromDomain populates the persistence model from a domain Payment entity.
func (m *PaymentModel) FromDomain(p *collection.Payment) {
	m.FromDomainAggregateRoot(p.BaseAggregateRoot)
	m.CustomerID = p.CustomerID
	m.DebtID = p.DebtID
	m.Amount = p.Amount
	m.Currency = p.Currency.String()
	m.Method = p.Method
	m.ProviderTxnID = p.ProviderTxnID
	m.Status = p.Status
	m.ReceivedAt = p.ReceivedAt
	m.ReversedAt = p.ReversedAt
}

// PaymentModelFromDomain creates a new persistence model from a domain Payment entity.
func PaymentModelFromDomain(p *collection.Payment) *PaymentModel {
	m := &PaymentModel{}
	m.FromDomain(p)
	return m
}

// PaymentAllocationModel is the persistence model for a PaymentAllocation.
// Allocation rows are immutable; reversal deletes them.
type PaymentAllocationModel struct {
	ID            uuid.UUID       `gorm:"type:uuid;primary_key"`
	PaymentID     uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_allocation_payment_installment,priority:1"`
	InstallmentID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_allocation_payment_installment,priority:2;index"`
	DebtID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	AmountApplied decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CreatedAt     time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PaymentAllocationModel) TableName() string {
	return "payment_allocations"
}

// ToDomain converts the persistence model to a domain PaymentAllocation.
func (m *PaymentAllocationModel) ToDomain() *collection.PaymentAllocation {
	return &collection.PaymentAllocation{
		ID:            m.ID,
		PaymentID:     m.PaymentID,
		InstallmentID: m.InstallmentID,
		DebtID:        m.DebtID,
		AmountApplied: m.AmountApplied,
		CreatedAt:     m.CreatedAt.UTC(),
	}
}

// FromDomain populates the persistence model from a domain PaymentAllocation.
func (m *PaymentAllocationModel) FromDomain(a *collection.PaymentAllocation) {
	m.ID = a.ID
	m.PaymentID = a.PaymentID
	m.InstallmentID = a.InstallmentID
	m.DebtID = a.DebtID
	m.AmountApplied = a.AmountApplied
	m.CreatedAt = a.CreatedAt
}

// AllModels lists every model in dependency order, for AutoMigrate in tests
func AllModels() []any {
	return []any{
		&CustomerModel{},
		&DebtModel{},
		&InstallmentModel{},
		&PaymentModel{},
		&PaymentAllocationModel{},
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
