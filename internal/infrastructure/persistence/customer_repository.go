package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/debtdesk/backend/internal/domain/collection"
	"github.com/debtdesk/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCustomerRepository implements collection.CustomerRepository using GORM
type GormCustomerRepository struct {
	db *gorm.DB
}

// NewGormCustomerRepository creates a new GormCustomerRepository
func NewGormCustomerRepository(db *gorm.DB) *GormCustomerRepository {
	return &GormCustomerRepository{db: db}
}

// FindByID finds a customer by its ID
func (r *GormCustomerRepository) FindByID(ctx context.Context, id uuid.UUID) (*collection.Customer, error) {
	var model models.CustomerModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindPage returns one page of customers ordered by a persisted column
func (r *GormCustomerRepository) FindPage(ctx context.Context, filter collection.CustomerFilter) ([]collection.Customer, error) {
	page := filter.Filter.Normalize()

	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.CustomerModel{}), filter)
	for _, clause := range customerOrderClauses(page.OrderBy, page.OrderDir) {
		query = query.Order(clause)
	}
	query = query.Offset(page.Offset()).Limit(page.PageSize)

	var customerModels []models.CustomerModel
	if err := query.Find(&customerModels).Error; err != nil {
		return nil, err
	}
	return customersToDomain(customerModels), nil
}

// FindAllMatching returns every customer matching the where-filters
func (r *GormCustomerRepository) FindAllMatching(ctx context.Context, filter collection.CustomerFilter) ([]collection.Customer, error) {
	var customerModels []models.CustomerModel
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.CustomerModel{}), filter)
	if err := query.Find(&customerModels).Error; err != nil {
		return nil, err
	}
	return customersToDomain(customerModels), nil
}

// Count counts customers matching the where-filters
func (r *GormCustomerRepository) Count(ctx context.Context, filter collection.CustomerFilter) (int64, error) {
	var count int64
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.CustomerModel{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save creates or updates a customer
func (r *GormCustomerRepository) Save(ctx context.Context, customer *collection.Customer) error {
	model := models.CustomerModelFromDomain(customer)
	return translateError(r.db.WithContext(ctx).Save(model).Error, nil)
}

// likeEscaper makes LIKE wildcards in a search term match literally
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// applyFilter applies the where-filters shared by FindPage, FindAllMatching and Count
func (r *GormCustomerRepository) applyFilter(query *gorm.DB, filter collection.CustomerFilter) *gorm.DB {
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + likeEscaper.Replace(strings.ToLower(search)) + "%"
		query = query.Where(`LOWER(name) LIKE ? ESCAPE '\' OR LOWER(email) LIKE ? ESCAPE '\' OR LOWER(phone) LIKE ? ESCAPE '\'`,
			pattern, pattern, pattern)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", filter.CreatedFrom.UTC())
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", filter.CreatedTo.UTC())
	}
	return query
}

func customersToDomain(customerModels []models.CustomerModel) []collection.Customer {
	customers := make([]collection.Customer, len(customerModels))
	for i := range customerModels {
		customers[i] = *customerModels[i].ToDomain()
	}
	return customers
}

// Ensure GormCustomerRepository implements collection.CustomerRepository
var _ collection.CustomerRepository = (*GormCustomerRepository)(nil)
