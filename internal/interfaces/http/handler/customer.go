package handler

import (
	"context"
	"time"

	appcollection "github.com/debtdesk/backend/internal/application/collection"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CustomerService is the application surface used by CustomerHandler
type CustomerService interface {
	CreateCustomer(ctx context.Context, req appcollection.CreateCustomerRequest) (*appcollection.CustomerResponse, error)
	GetCustomer(ctx context.Context, customerID uuid.UUID) (*appcollection.CustomerWithStatsResponse, error)
	ListCustomersWithStats(ctx context.Context, filter appcollection.CustomerStatsFilter) (*appcollection.CustomerListResult, error)
}

// CustomerHandler handles customer endpoints
type CustomerHandler struct {
	BaseHandler
	customers CustomerService
}

// NewCustomerHandler creates a new CustomerHandler
func NewCustomerHandler(customers CustomerService) *CustomerHandler {
	return &CustomerHandler{customers: customers}
}

// ListCustomersQuery holds the query string of GET /customers
type ListCustomersQuery struct {
	Page        int    `form:"page" binding:"omitempty,min=1,max=1000000"`
	PageSize    int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	Search      string `form:"search" binding:"max=200"`
	Status      string `form:"status"`
	CreatedFrom string `form:"created_from"`
	CreatedTo   string `form:"created_to"`
	SortBy      string `form:"sort_by"`
	SortOrder   string `form:"sort_order"`
}

// Create handles POST /customers
func (h *CustomerHandler) Create(c *gin.Context) {
	var req appcollection.CreateCustomerRequest
	if !h.bindJSON(c, &req) {
		return
	}

	customer, err := h.customers.CreateCustomer(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, customer)
}

// Get handles GET /customers/:id
func (h *CustomerHandler) Get(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	customer, err := h.customers.GetCustomer(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, customer)
}

// List handles GET /customers. Stats-derived sort fields are accepted alongside persisted ones.
func (h *CustomerHandler) List(c *gin.Context) {
	var q ListCustomersQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filter := appcollection.CustomerStatsFilter{
		Search:    q.Search,
		Status:    q.Status,
		SortBy:    q.SortBy,
		SortOrder: q.SortOrder,
		Page:      q.Page,
		PageSize:  q.PageSize,
	}
	var err error
	if filter.CreatedFrom, err = parseDateParam(q.CreatedFrom, false); err != nil {
		h.BadRequest(c, "Invalid created_from: use YYYY-MM-DD or RFC 3339")
		return
	}
	if filter.CreatedTo, err = parseDateParam(q.CreatedTo, true); err != nil {
		h.BadRequest(c, "Invalid created_to: use YYYY-MM-DD or RFC 3339")
		return
	}

	result, err := h.customers.ListCustomersWithStats(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	successPage(c, *result)
}

// parseDateParam accepts a calendar date or a timestamp.
// A bare date used as an upper bound covers the whole day.
func parseDateParam(raw string, endOfDay bool) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		if endOfDay {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	t = t.UTC()
	return &t, nil
}

var _ CustomerService = (*appcollection.CustomerService)(nil)
