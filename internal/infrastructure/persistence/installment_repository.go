package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/debtdesk/backend/internal/domain/collection"
	"github.com/debtdesk/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormInstallmentRepository implements collection.InstallmentRepository using GORM
type GormInstallmentRepository struct {
	db *gorm.DB
}

// NewGormInstallmentRepository creates a new GormInstallmentRepository
func NewGormInstallmentRepository(db *gorm.DB) *GormInstallmentRepository {
	return &GormInstallmentRepository{db: db}
}

// FindByID finds an installment by its ID
func (r *GormInstallmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*collection.Installment, error) {
	var model models.InstallmentModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDsForUpdate row-locks the given installments in ascending id order
func (r *GormInstallmentRepository) FindByIDsForUpdate(ctx context.Context, ids []uuid.UUID) ([]collection.Installment, error) {
	if len(ids) == 0 {
		return []collection.Installment{}, nil
	}
	var installmentModels []models.InstallmentModel
	err := r.db.WithContext(ctx).
		Clauses(forUpdate).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&installmentModels).Error
	if err != nil {
		return nil, translateError(err, nil)
	}
	return installmentsToDomain(installmentModels), nil
}

// FindByDebt returns the installments of a debt ordered by sequence number
func (r *GormInstallmentRepository) FindByDebt(ctx context.Context, debtID uuid.UUID) ([]collection.Installment, error) {
	var installmentModels []models.InstallmentModel
	err := r.db.WithContext(ctx).
		Where("debt_id = ?", debtID).
		Order("sequence_no ASC").
		Find(&installmentModels).Error
	if err != nil {
		return nil, err
	}
	return installmentsToDomain(installmentModels), nil
}

// FindOverdueByDebtIDs returns installments in overdue status for the given debts
func (r *GormInstallmentRepository) FindOverdueByDebtIDs(ctx context.Context, debtIDs []uuid.UUID) ([]collection.Installment, error) {
	if len(debtIDs) == 0 {
		return []collection.Installment{}, nil
	}
	var installmentModels []models.InstallmentModel
	err := r.db.WithContext(ctx).
		Where("debt_id IN ? AND status = ?", debtIDs, collection.InstallmentStatusOverdue).
		Find(&installmentModels).Error
	if err != nil {
		return nil, err
	}
	return installmentsToDomain(installmentModels), nil
}

// FindDueBefore returns up to limit due installments whose due date is before asOf, oldest first
func (r *GormInstallmentRepository) FindDueBefore(ctx context.Context, asOf time.Time, limit int) ([]collection.Installment, error) {
	asOf = asOf.UTC()
	cutoff := time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, time.UTC)

	var installmentModels []models.InstallmentModel
	query := r.db.WithContext(ctx).
		Where("status = ? AND due_date < ?", collection.InstallmentStatusDue, cutoff).
		Order("due_date ASC").
		Order("id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&installmentModels).Error; err != nil {
		return nil, err
	}
	return installmentsToDomain(installmentModels), nil
}

// SaveWithLock persists amountPaid and status when the stored version matches.
// On success the in-memory version is advanced to the stored one.
func (r *GormInstallmentRepository) SaveWithLock(ctx context.Context, installment *collection.Installment) error {
	err := updateWithVersion(r.db.WithContext(ctx), &models.InstallmentModel{}, "Installment", installment.ID, installment.Version, map[string]any{
		"amount_paid": installment.AmountPaid,
		"status":      installment.Status,
		"updated_at":  installment.UpdatedAt,
	})
	if err != nil {
		return err
	}
	installment.IncrementVersion()
	return nil
}

func installmentsToDomain(installmentModels []models.InstallmentModel) []collection.Installment {
	installments := make([]collection.Installment, len(installmentModels))
	for i := range installmentModels {
		installments[i] = *installmentModels[i].ToDomain()
	}
	return installments
}

// Ensure GormInstallmentRepository implements collection.InstallmentRepository
var _ collection.InstallmentRepository = (*GormInstallmentRepository)(nil)
