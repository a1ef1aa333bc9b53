package handler

import (
	"context"

	appcollection "github.com/debtdesk/backend/internal/application/collection"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// DebtService is the application surface used by DebtHandler
type DebtService interface {
	CreateDebt(ctx context.Context, req appcollection.CreateDebtRequest) (*appcollection.DebtResponse, error)
	GetDebt(ctx context.Context, debtID uuid.UUID) (*appcollection.DebtResponse, error)
	GetInstallment(ctx context.Context, installmentID uuid.UUID) (*appcollection.InstallmentResponse, error)
}

// DebtHandler handles debt and installment endpoints
type DebtHandler struct {
	BaseHandler
	debts DebtService
}

// NewDebtHandler creates a new DebtHandler
func NewDebtHandler(debts DebtService) *DebtHandler {
	return &DebtHandler{debts: debts}
}

// Create handles POST /debts
func (h *DebtHandler) Create(c *gin.Context) {
	var req appcollection.CreateDebtRequest
	if !h.bindJSON(c, &req) {
		return
	}

	debt, err := h.debts.CreateDebt(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, debt)
}

// Get handles GET /debts/:id
func (h *DebtHandler) Get(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	debt, err := h.debts.GetDebt(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, debt)
}

// GetInstallment handles GET /installments/:id
func (h *DebtHandler) GetInstallment(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	installment, err := h.debts.GetInstallment(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, installment)
}

var _ DebtService = (*appcollection.DebtService)(nil)
