package collection

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/debtdesk/backend/internal/domain/collection"
	"github.com/debtdesk/backend/internal/domain/shared"
	"github.com/debtdesk/backend/internal/infrastructure/logger"
	"github.com/debtdesk/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CustomerService handles customer registration and the customer list with derived stats
type CustomerService struct {
	customerRepo    collection.CustomerRepository
	debtRepo        collection.DebtRepository
	installmentRepo collection.InstallmentRepository
	paymentRepo     collection.PaymentRepository
	opts            options
}

// NewCustomerService creates a new CustomerService
func NewCustomerService(
	customerRepo collection.CustomerRepository,
	debtRepo collection.DebtRepository,
	installmentRepo collection.InstallmentRepository,
	paymentRepo collection.PaymentRepository,
	opts ...Option,
) *CustomerService {
	return &CustomerService{
		customerRepo:    customerRepo,
		debtRepo:        debtRepo,
		installmentRepo: installmentRepo,
		paymentRepo:     paymentRepo,
		opts:            buildOptions(opts),
	}
}

// CreateCustomer registers a new active customer
func (s *CustomerService) CreateCustomer(ctx context.Context, req CreateCustomerRequest) (*CustomerResponse, error) {
	customer, err := collection.NewCustomer(req.Name, req.Email, req.Phone)
	if err != nil {
		return nil, err
	}
	if err := s.customerRepo.Save(ctx, customer); err != nil {
		return nil, fmt.Errorf("failed to save customer: %w", err)
	}

	logger.L(ctx, s.opts.logger).Info("Customer registered", zap.String("customer_id", customer.ID.String()))
	resp := ToCustomerResponse(customer)
	return &resp, nil
}

// GetCustomer returns a customer with its current stats
func (s *CustomerService) GetCustomer(ctx context.Context, customerID uuid.UUID) (*CustomerWithStatsResponse, error) {
	customer, err := s.customerRepo.FindByID(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	if customer == nil {
		return nil, shared.NewNotFoundError("Customer", customerID)
	}

	rows, err := s.withStats(ctx, []collection.Customer{*customer})
	if err != nil {
		return nil, err
	}
	resp := ToCustomerWithStatsResponse(&rows[0])
	return &resp, nil
}

// ListCustomersWithStats returns a page of customers with derived stats.
// Persisted sort fields are ordered and paged by the database. Computed fields
// need stats for every matching customer, so the whole match set is loaded,
// sorted in memory and then sliced.
func (s *CustomerService) ListCustomersWithStats(ctx context.Context, f CustomerStatsFilter) (*CustomerListResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, "ListCustomersWithStats")
	defer span.End()

	filter, sortField, desc, err := s.buildFilter(f)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span,
		"sort.field", string(sortField),
		"sort.desc", desc,
		"sort.computed", sortField.IsComputed(),
	)

	var (
		rows  []collection.CustomerWithStats
		total int64
	)
	if sortField.IsComputed() {
		customers, err := s.customerRepo.FindAllMatching(ctx, filter)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("failed to list customers: %w", err)
		}
		all, err := s.withStats(ctx, customers)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		slices.SortStableFunc(all, func(a, b collection.CustomerWithStats) int {
			c := collection.CompareCustomersWithStats(a, b, sortField)
			if desc {
				return -c
			}
			return c
		})
		total = int64(len(all))
		rows = pageOf(all, filter.Filter)
	} else {
		total, err = s.customerRepo.Count(ctx, filter)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("failed to count customers: %w", err)
		}
		customers, err := s.customerRepo.FindPage(ctx, filter)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("failed to list customers: %w", err)
		}
		rows, err = s.withStats(ctx, customers)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
	}

	items := make([]CustomerWithStatsResponse, len(rows))
	for i := range rows {
		items[i] = ToCustomerWithStatsResponse(&rows[i])
	}
	result := shared.NewPaginated(items, total, filter.Page, filter.PageSize)
	return &result, nil
}

func (s *CustomerService) buildFilter(f CustomerStatsFilter) (collection.CustomerFilter, collection.CustomerSortField, bool, error) {
	sortField := collection.CustomerSortField(strings.ToLower(strings.TrimSpace(f.SortBy)))
	if sortField == "" {
		sortField = collection.CustomerSortCreatedAt
	}
	if !sortField.IsValid() {
		return collection.CustomerFilter{}, "", false, shared.NewValidationError("INVALID_SORT_FIELD",
			fmt.Sprintf("Unknown sort field %q", f.SortBy))
	}

	order := strings.ToLower(strings.TrimSpace(f.SortOrder))
	switch order {
	case "":
		order = "desc"
	case "asc", "desc":
	default:
		return collection.CustomerFilter{}, "", false, shared.NewValidationError("INVALID_SORT_ORDER",
			fmt.Sprintf("Sort order must be asc or desc, got %q", f.SortOrder))
	}

	filter := collection.CustomerFilter{
		Filter: shared.Filter{
			Page:     f.Page,
			PageSize: f.PageSize,
			OrderBy:  string(sortField),
			OrderDir: order,
			Search:   strings.TrimSpace(f.Search),
		}.Normalize(),
		CreatedFrom: f.CreatedFrom,
		CreatedTo:   f.CreatedTo,
	}

	if f.Status != "" {
		status := collection.CustomerStatus(strings.ToLower(f.Status))
		if !status.IsValid() {
			return collection.CustomerFilter{}, "", false, shared.NewValidationError("INVALID_STATUS",
				fmt.Sprintf("Unknown customer status %q", f.Status))
		}
		filter.Status = &status
	}
	if f.CreatedFrom != nil && f.CreatedTo != nil && f.CreatedFrom.After(*f.CreatedTo) {
		return collection.CustomerFilter{}, "", false, shared.NewValidationError("INVALID_DATE_RANGE",
			"created_from must not be after created_to")
	}

	return filter, sortField, order == "desc", nil
}

// withStats loads debts, overdue installments and payment counts for all customers in three queries
func (s *CustomerService) withStats(ctx context.Context, customers []collection.Customer) ([]collection.CustomerWithStats, error) {
	if len(customers) == 0 {
		return []collection.CustomerWithStats{}, nil
	}

	customerIDs := make([]uuid.UUID, len(customers))
	for i := range customers {
		customerIDs[i] = customers[i].ID
	}

	debts, err := s.debtRepo.FindByCustomerIDs(ctx, customerIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load customer debts: %w", err)
	}
	debtsByCustomer := make(map[uuid.UUID][]collection.Debt, len(customers))
	debtOwner := make(map[uuid.UUID]uuid.UUID, len(debts))
	debtIDs := make([]uuid.UUID, 0, len(debts))
	for _, d := range debts {
		debtsByCustomer[d.CustomerID] = append(debtsByCustomer[d.CustomerID], d)
		debtOwner[d.ID] = d.CustomerID
		debtIDs = append(debtIDs, d.ID)
	}

	overdueByCustomer := make(map[uuid.UUID][]collection.Installment)
	if len(debtIDs) > 0 {
		overdue, err := s.installmentRepo.FindOverdueByDebtIDs(ctx, debtIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to load overdue installments: %w", err)
		}
		for _, inst := range overdue {
			owner := debtOwner[inst.DebtID]
			overdueByCustomer[owner] = append(overdueByCustomer[owner], inst)
		}
	}

	counts, err := s.paymentRepo.CountByCustomerIDs(ctx, customerIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to count customer payments: %w", err)
	}

	today := s.opts.now()
	rows := make([]collection.CustomerWithStats, len(customers))
	for i := range customers {
		id := customers[i].ID
		rows[i] = collection.CustomerWithStats{
			Customer: customers[i],
			Stats:    collection.ComputeCustomerStats(debtsByCustomer[id], overdueByCustomer[id], counts[id], today),
		}
	}
	return rows, nil
}

func pageOf[T any](items []T, f shared.Filter) []T {
	start := f.Offset()
	if start < 0 || start >= len(items) {
		return []T{}
	}
	end := min(start+f.PageSize, len(items))
	return items[start:end]
}
