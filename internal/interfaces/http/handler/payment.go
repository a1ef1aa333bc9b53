package handler

import (
	"context"

	appcollection "github.com/debtdesk/backend/internal/application/collection"
	"github.com/debtdesk/backend/internal/domain/collection"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PaymentService is the application surface used by PaymentHandler
type PaymentService interface {
	CreatePayment(ctx context.Context, req appcollection.CreatePaymentRequest) (*appcollection.PaymentResponse, error)
	GetPayment(ctx context.Context, paymentID uuid.UUID) (*appcollection.PaymentResponse, error)
	ListPaymentAllocations(ctx context.Context, paymentID uuid.UUID) ([]appcollection.AllocationResponse, error)
	Allocate(ctx context.Context, paymentID uuid.UUID, lines []collection.AllocationLine) (*appcollection.PaymentResponse, error)
	AutoAllocate(ctx context.Context, paymentID uuid.UUID) (*appcollection.PaymentResponse, error)
	Reverse(ctx context.Context, paymentID uuid.UUID) (*appcollection.PaymentResponse, error)
}

// PaymentHandler handles payment ingestion, allocation and reversal
type PaymentHandler struct {
	BaseHandler
	payments PaymentService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(payments PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// Create handles POST /payments
func (h *PaymentHandler) Create(c *gin.Context) {
	var req appcollection.CreatePaymentRequest
	if !h.bindJSON(c, &req) {
		return
	}

	payment, err := h.payments.CreatePayment(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, payment)
}

// Get handles GET /payments/:id
func (h *PaymentHandler) Get(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	payment, err := h.payments.GetPayment(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, payment)
}

// ListAllocations handles GET /payments/:id/allocations
func (h *PaymentHandler) ListAllocations(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	allocations, err := h.payments.ListPaymentAllocations(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if allocations == nil {
		allocations = []appcollection.AllocationResponse{}
	}
	h.Success(c, allocations)
}

// Allocate handles POST /payments/:id/allocations. The whole batch applies or none of it does.
func (h *PaymentHandler) Allocate(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	var req appcollection.AllocatePaymentRequest
	if !h.bindJSON(c, &req) {
		return
	}

	lines := make([]collection.AllocationLine, len(req.Allocations))
	for i, in := range req.Allocations {
		lines[i] = collection.AllocationLine{InstallmentID: in.InstallmentID, Amount: in.Amount}
	}

	payment, err := h.payments.Allocate(c.Request.Context(), id, lines)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, payment)
}

// AutoAllocate handles POST /payments/:id/allocations/auto
func (h *PaymentHandler) AutoAllocate(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	payment, err := h.payments.AutoAllocate(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, payment)
}

// Reverse handles POST /payments/:id/reverse
func (h *PaymentHandler) Reverse(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	payment, err := h.payments.Reverse(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, payment)
}

var _ PaymentService = (*appcollection.PaymentService)(nil)
