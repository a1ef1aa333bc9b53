package collection

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/debtdesk/backend/internal/domain/collection"
	"github.com/debtdesk/backend/internal/domain/shared"
	"github.com/debtdesk/backend/internal/domain/shared/valueobject"
	"github.com/debtdesk/backend/internal/infrastructure/logger"
	"github.com/debtdesk/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultOverdueBatchSize is how many installments one sweep pass examines
const DefaultOverdueBatchSize = 500

// DebtService opens debts with their installment schedule and keeps installment due status current
type DebtService struct {
	customerRepo    collection.CustomerRepository
	debtRepo        collection.DebtRepository
	installmentRepo collection.InstallmentRepository
	uow             *unitOfWork
	opts            options
	batchSize       int
}

// NewDebtService creates a new DebtService
func NewDebtService(
	customerRepo collection.CustomerRepository,
	debtRepo collection.DebtRepository,
	installmentRepo collection.InstallmentRepository,
	txScope TransactionScope,
	opts ...Option,
) *DebtService {
	s := &DebtService{
		customerRepo:    customerRepo,
		debtRepo:        debtRepo,
		installmentRepo: installmentRepo,
		opts:            buildOptions(opts),
		batchSize:       DefaultOverdueBatchSize,
	}
	s.uow = &unitOfWork{scope: txScope, opts: &s.opts}
	return s
}

// WithOverdueBatchSize sets how many installments MarkOverdueInstallments examines per pass
func (s *DebtService) WithOverdueBatchSize(size int) *DebtService {
	if size > 0 {
		s.batchSize = size
	}
	return s
}

// CreateDebt opens a debt. When installments are given their amounts must add up to the original amount.
func (s *DebtService) CreateDebt(ctx context.Context, req CreateDebtRequest) (*DebtResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, "CreateDebt",
		telemetry.WithAttribute(telemetry.SpanAttrCustomerID, req.CustomerID),
	)
	defer span.End()

	currency, err := valueobject.ParseCurrency(req.Currency)
	if err != nil {
		err = shared.NewValidationError("INVALID_CURRENCY", err.Error())
		telemetry.RecordError(span, err)
		return nil, err
	}

	customer, err := s.customerRepo.FindByID(ctx, req.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	if customer == nil {
		return nil, shared.NewNotFoundError("Customer", req.CustomerID)
	}

	debt, err := collection.NewDebt(customer.ID, req.OriginalAmount, currency)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	for _, input := range req.Installments {
		dueDate, err := parseDueDate(input.DueDate)
		if err != nil {
			return nil, err
		}
		if _, err := debt.AddInstallment(input.SequenceNo, dueDate, input.AmountDue); err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
	}
	if len(debt.Installments) > 0 && !debt.ScheduledAmount().Equal(debt.OriginalAmount) {
		err := shared.NewValidationError("SCHEDULE_MISMATCH",
			fmt.Sprintf("Installment amounts (%s) must add up to the debt original amount (%s)",
				debt.ScheduledAmount(), debt.OriginalAmount))
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.debtRepo.Create(ctx, debt); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to create debt: %w", err)
	}

	telemetry.SetAttribute(span, telemetry.SpanAttrDebtID, debt.ID)
	logger.L(ctx, s.opts.logger).Info("Debt opened",
		zap.String("debt_id", debt.ID.String()),
		zap.String("customer_id", debt.CustomerID.String()),
		zap.String("original_amount", debt.OriginalAmount.String()),
		zap.Int("installments", len(debt.Installments)),
	)

	resp := ToDebtResponse(debt)
	return &resp, nil
}

// GetDebt returns a debt with its installments ordered by sequence
func (s *DebtService) GetDebt(ctx context.Context, debtID uuid.UUID) (*DebtResponse, error) {
	debt, err := s.debtRepo.FindByIDWithInstallments(ctx, debtID)
	if err != nil {
		return nil, fmt.Errorf("failed to get debt: %w", err)
	}
	if debt == nil {
		return nil, shared.NewNotFoundError("Debt", debtID)
	}
	resp := ToDebtResponse(debt)
	return &resp, nil
}

// GetInstallment returns one installment
func (s *DebtService) GetInstallment(ctx context.Context, installmentID uuid.UUID) (*InstallmentResponse, error) {
	inst, err := s.installmentRepo.FindByID(ctx, installmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get installment: %w", err)
	}
	if inst == nil {
		return nil, shared.NewNotFoundError("Installment", installmentID)
	}
	resp := ToInstallmentResponse(inst)
	return &resp, nil
}

// MarkOverdueInstallments flags every due installment whose due date is before asOf as overdue
// and returns how many were changed. Each installment is updated in its own version-checked
// transaction, so a concurrent allocation simply wins and the installment is skipped.
func (s *DebtService) MarkOverdueInstallments(ctx context.Context, asOf time.Time) (int, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, "MarkOverdueInstallments",
		telemetry.WithAttribute("as_of", asOf.UTC().Format(time.DateOnly)),
	)
	defer span.End()

	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		candidates, err := s.installmentRepo.FindDueBefore(ctx, asOf, s.batchSize)
		if err != nil {
			telemetry.RecordError(span, err)
			return total, fmt.Errorf("failed to find due installments: %w", err)
		}
		if len(candidates) == 0 {
			break
		}

		marked := 0
		for i := range candidates {
			changed, err := s.markOne(ctx, candidates[i].ID, asOf)
			if err != nil {
				telemetry.RecordError(span, err)
				s.opts.metrics.RecordOverdueMarked(ctx, total+marked)
				return total + marked, err
			}
			if changed {
				marked++
			}
		}
		total += marked

		if len(candidates) < s.batchSize || marked == 0 {
			break
		}
	}

	s.opts.metrics.RecordOverdueMarked(ctx, total)
	telemetry.SetAttribute(span, "marked", total)
	if total > 0 {
		logger.L(ctx, s.opts.logger).Info("Installments marked overdue",
			zap.Int("count", total),
			zap.Time("as_of", asOf),
		)
	}
	return total, nil
}

func (s *DebtService) markOne(ctx context.Context, installmentID uuid.UUID, asOf time.Time) (bool, error) {
	var changed bool
	err := s.uow.execute(ctx, "mark_overdue", func(repos TransactionalRepositories) error {
		changed = false
		locked, err := repos.Installments().FindByIDsForUpdate(ctx, []uuid.UUID{installmentID})
		if err != nil {
			return fmt.Errorf("failed to lock installment: %w", err)
		}
		if len(locked) == 0 {
			return nil
		}
		inst := &locked[0]
		if !inst.MarkOverdue(asOf) {
			return nil
		}
		if err := repos.Installments().SaveWithLock(ctx, inst); err != nil {
			return err
		}
		changed = true
		return nil
	})
	return changed, err
}

// parseDueDate accepts a calendar date (2006-01-02) or an RFC 3339 timestamp
func parseDueDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.DateOnly, value); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, shared.NewValidationError("INVALID_DUE_DATE",
		fmt.Sprintf("Installment due date %q must be formatted as YYYY-MM-DD", value))
}
