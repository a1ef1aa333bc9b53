package persistence

import (
	"context"
	"errors"

	"github.com/debtdesk/backend/internal/domain/collection"
	"github.com/debtdesk/backend/internal/domain/shared"
	"github.com/debtdesk/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormPaymentRepository implements collection.PaymentRepository using GORM
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// FindByID finds a payment by its ID
func (r *GormPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*collection.Payment, error) {
	return r.findOne(r.db.WithContext(ctx), "id = ?", id)
}

// FindByIDForUpdate finds a payment and holds a row lock on it until the transaction ends
func (r *GormPaymentRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*collection.Payment, error) {
	payment, err := r.findOne(r.db.WithContext(ctx).Clauses(forUpdate), "id = ?", id)
	return payment, translateError(err, nil)
}

// FindByProviderTxnID finds a payment by the provider's transaction ID
func (r *GormPaymentRepository) FindByProviderTxnID(ctx context.Context, providerTxnID string) (*collection.Payment, error) {
	return r.findOne(r.db.WithContext(ctx), "provider_txn_id = ?", providerTxnID)
}

// CountByCustomerIDs counts payment records per customer
func (r *GormPaymentRepository) CountByCustomerIDs(ctx context.Context, customerIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	counts := make(map[uuid.UUID]int64, len(customerIDs))
	if len(customerIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		CustomerID uuid.UUID
		Total      int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.PaymentModel{}).
		Select("customer_id, COUNT(*) AS total").
		Where("customer_id IN ?", customerIDs).
		Group("customer_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.CustomerID] = row.Total
	}
	return counts, nil
}

// Create inserts a payment
func (r *GormPaymentRepository) Create(ctx context.Context, payment *collection.Payment) error {
	model := models.PaymentModelFromDomain(payment)
	err := r.db.WithContext(ctx).Create(model).Error
	if err != nil {
		txn := ""
		if payment.ProviderTxnID != nil {
			txn = *payment.ProviderTxnID
		}
		return translateError(err, shared.NewConflictError("DUPLICATE_PROVIDER_TXN",
			"Payment with provider transaction ID "+txn+" already exists"))
	}
	return nil
}

// SaveWithLock persists status and reversal time when the stored version matches.
// On success the in-memory version is advanced to the stored one.
func (r *GormPaymentRepository) SaveWithLock(ctx context.Context, payment *collection.Payment) error {
	err := updateWithVersion(r.db.WithContext(ctx), &models.PaymentModel{}, "Payment", payment.ID, payment.Version, map[string]any{
		"status":      payment.Status,
		"reversed_at": payment.ReversedAt,
		"updated_at":  payment.UpdatedAt,
	})
	if err != nil {
		return err
	}
	payment.IncrementVersion()
	return nil
}

func (r *GormPaymentRepository) findOne(db *gorm.DB, query string, args ...any) (*collection.Payment, error) {
	var model models.PaymentModel
	if err := db.Where(query, args...).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Ensure GormPaymentRepository implements collection.PaymentRepository
var _ collection.PaymentRepository = (*GormPaymentRepository)(nil)
