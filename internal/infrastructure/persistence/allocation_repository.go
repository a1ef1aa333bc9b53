package persistence

import (
	"context"
	"fmt"

	"github.com/debtdesk/backend/internal/domain/collection"
	"github.com/debtdesk/backend/internal/domain/shared"
	"github.com/debtdesk/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormAllocationRepository implements collection.AllocationRepository using GORM
type GormAllocationRepository struct {
	db *gorm.DB
}

// NewGormAllocationRepository creates a new GormAllocationRepository
func NewGormAllocationRepository(db *gorm.DB) *GormAllocationRepository {
	return &GormAllocationRepository{db: db}
}

// FindByPayment returns the allocations of a payment in creation order
func (r *GormAllocationRepository) FindByPayment(ctx context.Context, paymentID uuid.UUID) ([]collection.PaymentAllocation, error) {
	var allocationModels []models.PaymentAllocationModel
	err := r.db.WithContext(ctx).
		Where("payment_id = ?", paymentID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&allocationModels).Error
	if err != nil {
		return nil, err
	}
	allocations := make([]collection.PaymentAllocation, len(allocationModels))
	for i := range allocationModels {
		allocations[i] = *allocationModels[i].ToDomain()
	}
	return allocations, nil
}

// Create inserts an allocation. A second allocation of the same payment to the same installment is a conflict.
func (r *GormAllocationRepository) Create(ctx context.Context, allocation *collection.PaymentAllocation) error {
	model := &models.PaymentAllocationModel{}
	model.FromDomain(allocation)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return translateError(err, shared.NewConflictError("DUPLICATE_ALLOCATION",
			fmt.Sprintf("Payment %s is already allocated to installment %s", allocation.PaymentID, allocation.InstallmentID)))
	}
	return nil
}

// DeleteByPayment removes every allocation of a payment and returns how many rows were deleted
func (r *GormAllocationRepository) DeleteByPayment(ctx context.Context, paymentID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("payment_id = ?", paymentID).
		Delete(&models.PaymentAllocationModel{})
	if result.Error != nil {
		return 0, translateError(result.Error, nil)
	}
	return result.RowsAffected, nil
}

// Ensure GormAllocationRepository implements collection.AllocationRepository
var _ collection.AllocationRepository = (*GormAllocationRepository)(nil)
