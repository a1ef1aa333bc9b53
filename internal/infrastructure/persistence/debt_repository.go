package persistence

import (
	"context"
	"errors"

	"github.com/debtdesk/backend/internal/domain/collection"
	"github.com/debtdesk/backend/internal/domain/shared"
	"github.com/debtdesk/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormDebtRepository implements collection.DebtRepository using GORM
type GormDebtRepository struct {
	db *gorm.DB
}

// NewGormDebtRepository creates a new GormDebtRepository
func NewGormDebtRepository(db *gorm.DB) *GormDebtRepository {
	return &GormDebtRepository{db: db}
}

// FindByID finds a debt by its ID without installments
func (r *GormDebtRepository) FindByID(ctx context.Context, id uuid.UUID) (*collection.Debt, error) {
	var model models.DebtModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDWithInstallments finds a debt and its installments ordered by sequence number
func (r *GormDebtRepository) FindByIDWithInstallments(ctx context.Context, id uuid.UUID) (*collection.Debt, error) {
	var model models.DebtModel
	err := r.db.WithContext(ctx).
		Preload("Installments", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence_no ASC")
		}).
		First(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDsForUpdate row-locks the given debts in ascending id order
func (r *GormDebtRepository) FindByIDsForUpdate(ctx context.Context, ids []uuid.UUID) ([]collection.Debt, error) {
	if len(ids) == 0 {
		return []collection.Debt{}, nil
	}
	var debtModels []models.DebtModel
	err := r.db.WithContext(ctx).
		Clauses(forUpdate).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&debtModels).Error
	if err != nil {
		return nil, translateError(err, nil)
	}
	return debtsToDomain(debtModels), nil
}

// FindByCustomerIDs returns every debt of the given customers
func (r *GormDebtRepository) FindByCustomerIDs(ctx context.Context, customerIDs []uuid.UUID) ([]collection.Debt, error) {
	if len(customerIDs) == 0 {
		return []collection.Debt{}, nil
	}
	var debtModels []models.DebtModel
	if err := r.db.WithContext(ctx).Where("customer_id IN ?", customerIDs).Find(&debtModels).Error; err != nil {
		return nil, err
	}
	return debtsToDomain(debtModels), nil
}

// Create inserts a debt and its installments
func (r *GormDebtRepository) Create(ctx context.Context, debt *collection.Debt) error {
	model := models.DebtModelFromDomain(debt)
	installments := model.Installments
	model.Installments = nil

	db := r.db.WithContext(ctx)
	if err := db.Omit(clause.Associations).Create(model).Error; err != nil {
		return translateError(err, shared.NewConflictError("DUPLICATE_DEBT", "Debt already exists"))
	}
	if len(installments) == 0 {
		return nil
	}
	if err := db.Create(&installments).Error; err != nil {
		return translateError(err, shared.NewConflictError("DUPLICATE_SEQUENCE", "Installment sequence already exists on debt"))
	}
	return nil
}

// SaveWithLock persists balance, status and closedAt when the stored version matches.
// On success the in-memory version is advanced to the stored one.
func (r *GormDebtRepository) SaveWithLock(ctx context.Context, debt *collection.Debt) error {
	err := updateWithVersion(r.db.WithContext(ctx), &models.DebtModel{}, "Debt", debt.ID, debt.Version, map[string]any{
		"current_balance": debt.CurrentBalance,
		"status":          debt.Status,
		"closed_at":       debt.ClosedAt,
		"updated_at":      debt.UpdatedAt,
	})
	if err != nil {
		return err
	}
	debt.IncrementVersion()
	return nil
}

func debtsToDomain(debtModels []models.DebtModel) []collection.Debt {
	debts := make([]collection.Debt, len(debtModels))
	for i := range debtModels {
		debts[i] = *debtModels[i].ToDomain()
	}
	return debts
}

// Ensure GormDebtRepository implements collection.DebtRepository
var _ collection.DebtRepository = (*GormDebtRepository)(nil)
