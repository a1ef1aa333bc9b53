package collection

import (
	"context"
	"fmt"
	"strings"

	"github.com/debtdesk/backend/internal/domain/collection"
	"github.com/debtdesk/backend/internal/domain/shared"
	"github.com/debtdesk/backend/internal/domain/shared/valueobject"
	"github.com/debtdesk/backend/internal/infrastructure/logger"
	"github.com/debtdesk/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const spanService = "collection"

// PaymentService records payments and is the only writer of allocations.
// Allocate and Reverse each run as one transaction that either fully commits or leaves no trace.
type PaymentService struct {
	customerRepo   collection.CustomerRepository
	debtRepo       collection.DebtRepository
	paymentRepo    collection.PaymentRepository
	allocationRepo collection.AllocationRepository
	uow            *unitOfWork
	opts           options
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(
	customerRepo collection.CustomerRepository,
	debtRepo collection.DebtRepository,
	paymentRepo collection.PaymentRepository,
	allocationRepo collection.AllocationRepository,
	txScope TransactionScope,
	opts ...Option,
) *PaymentService {
	s := &PaymentService{
		customerRepo:   customerRepo,
		debtRepo:       debtRepo,
		paymentRepo:    paymentRepo,
		allocationRepo: allocationRepo,
		opts:           buildOptions(opts),
	}
	s.uow = &unitOfWork{scope: txScope, opts: &s.opts}
	return s
}

// CreatePayment records an incoming payment.
// A provider transaction id may be recorded only once; the unique index is authoritative
// and the optional ingest guard rejects redeliveries before they reach the database.
func (s *PaymentService) CreatePayment(ctx context.Context, req CreatePaymentRequest) (*PaymentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, "CreatePayment",
		telemetry.WithAttribute(telemetry.SpanAttrCustomerID, req.CustomerID),
		telemetry.WithAttribute(telemetry.SpanAttrAmount, req.Amount.String()),
	)
	defer span.End()

	currency, err := valueobject.ParseCurrency(req.Currency)
	if err != nil {
		return nil, s.fail(ctx, span, "create_payment", shared.NewValidationError("INVALID_CURRENCY", err.Error()))
	}
	method := collection.PaymentMethod(strings.ToLower(strings.TrimSpace(req.Method)))
	payment, err := collection.NewPayment(req.CustomerID, req.DebtID, req.Amount, currency, method, req.ProviderTxnID)
	if err != nil {
		return nil, s.fail(ctx, span, "create_payment", err)
	}

	if err := s.checkPaymentOwner(ctx, payment); err != nil {
		return nil, s.fail(ctx, span, "create_payment", err)
	}

	guardKey, err := s.claimProviderTxn(ctx, payment)
	if err != nil {
		return nil, s.fail(ctx, span, "create_payment", err)
	}

	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		s.releaseProviderTxn(ctx, guardKey)
		return nil, s.fail(ctx, span, "create_payment", err)
	}

	telemetry.SetAttribute(span, telemetry.SpanAttrPaymentID, payment.ID)
	logger.L(ctx, s.opts.logger).Info("Payment recorded",
		zap.String("payment_id", payment.ID.String()),
		zap.String("customer_id", payment.CustomerID.String()),
		zap.String("amount", payment.Amount.String()),
		zap.String("method", payment.Method.String()),
	)

	resp := ToPaymentResponse(payment)
	return &resp, nil
}

// checkPaymentOwner verifies the customer exists and that a bound debt belongs to it in the same currency
func (s *PaymentService) checkPaymentOwner(ctx context.Context, payment *collection.Payment) error {
	customer, err := s.customerRepo.FindByID(ctx, payment.CustomerID)
	if err != nil {
		return fmt.Errorf("failed to get customer: %w", err)
	}
	if customer == nil {
		return shared.NewNotFoundError("Customer", payment.CustomerID)
	}
	if !payment.IsBoundToDebt() {
		return nil
	}

	debt, err := s.debtRepo.FindByID(ctx, *payment.DebtID)
	if err != nil {
		return fmt.Errorf("failed to get debt: %w", err)
	}
	if debt == nil {
		return shared.NewNotFoundError("Debt", *payment.DebtID)
	}
	if debt.CustomerID != customer.ID {
		return shared.NewValidationError("DEBT_CUSTOMER_MISMATCH",
			fmt.Sprintf("Debt %s does not belong to customer %s", debt.ID, customer.ID))
	}
	if debt.Currency != payment.Currency {
		return shared.NewValidationError("CURRENCY_MISMATCH",
			fmt.Sprintf("Payment currency %s does not match debt %s currency %s", payment.Currency, debt.ID, debt.Currency))
	}
	return nil
}

// claimProviderTxn claims the provider transaction id in the ingest guard.
// It returns the claimed key, or "" when nothing was claimed. Guard outages fail open.
// A claim held without a stored payment (a crash between claim and insert) does not
// reject the ingest; the unique index stays the authority in that case.
func (s *PaymentService) claimProviderTxn(ctx context.Context, payment *collection.Payment) (string, error) {
	if s.opts.ingestGuard == nil || payment.ProviderTxnID == nil {
		return "", nil
	}
	txn := *payment.ProviderTxnID
	key := providerTxnGuardKey(txn)
	claimed, err := s.opts.ingestGuard.MarkProcessed(ctx, key, s.opts.ingestGuardTTL)
	if err != nil {
		logger.L(ctx, s.opts.logger).Warn("Ingest guard unavailable, relying on unique index",
			zap.String("provider_txn_id", txn),
			zap.Error(err),
		)
		return "", nil
	}
	if claimed {
		return key, nil
	}

	existing, err := s.paymentRepo.FindByProviderTxnID(ctx, txn)
	if err != nil {
		return "", fmt.Errorf("failed to look up provider transaction: %w", err)
	}
	if existing != nil {
		return "", duplicateProviderTxnError(txn)
	}
	logger.L(ctx, s.opts.logger).Warn("Ingest guard claim has no stored payment, relying on unique index",
		zap.String("provider_txn_id", txn),
	)
	return "", nil
}

func (s *PaymentService) releaseProviderTxn(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.opts.ingestGuard.Release(ctx, key); err != nil {
		logger.L(ctx, s.opts.logger).Warn("Failed to release ingest guard key",
			zap.String("key", key),
			zap.Error(err),
		)
	}
}

// GetPayment returns a payment with its current allocations
func (s *PaymentService) GetPayment(ctx context.Context, paymentID uuid.UUID) (*PaymentResponse, error) {
	payment, err := s.paymentRepo.FindByID(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	if payment == nil {
		return nil, shared.NewNotFoundError("Payment", paymentID)
	}
	allocations, err := s.allocationRepo.FindByPayment(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get allocations: %w", err)
	}
	payment.Allocations = allocations

	resp := ToPaymentResponse(payment)
	return &resp, nil
}

// ListPaymentAllocations returns the allocations of a payment in creation order
func (s *PaymentService) ListPaymentAllocations(ctx context.Context, paymentID uuid.UUID) ([]AllocationResponse, error) {
	payment, err := s.paymentRepo.FindByID(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	if payment == nil {
		return nil, shared.NewNotFoundError("Payment", paymentID)
	}
	allocations, err := s.allocationRepo.FindByPayment(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get allocations: %w", err)
	}
	return ToAllocationResponses(allocations), nil
}

// Allocate splits part of a payment across installments.
//
// The request is validated before anything is read. Inside the transaction the payment,
// then the target installments (by id), then their debts (by id) are row-locked; each line
// creates an allocation row, pays the installment and credits the debt, in request order.
// Concurrency conflicts retry the whole transaction with the same lines.
func (s *PaymentService) Allocate(ctx context.Context, paymentID uuid.UUID, lines []collection.AllocationLine) (*PaymentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, "Allocate",
		telemetry.WithAttribute(telemetry.SpanAttrPaymentID, paymentID),
		telemetry.WithAttribute(telemetry.SpanAttrLines, len(lines)),
	)
	defer span.End()

	plan, err := collection.NewAllocationPlan(lines)
	if err != nil {
		return nil, s.fail(ctx, span, "allocate", err)
	}

	var result *collection.Payment
	err = s.uow.execute(ctx, "allocate", func(repos TransactionalRepositories) error {
		payment, err := s.allocateInTx(ctx, repos, paymentID, plan)
		if err != nil {
			return err
		}
		result = payment
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, span, "allocate", err)
	}

	s.opts.metrics.RecordAllocation(ctx, len(plan.Lines), plan.Total)
	telemetry.AddEvent(span, "allocation_committed",
		telemetry.SpanAttrAmount, plan.Total.String(),
		"unallocated", result.UnallocatedAmount().String(),
	)
	logger.L(ctx, s.opts.logger).Info("Payment allocated",
		zap.String("payment_id", paymentID.String()),
		zap.Int("lines", len(plan.Lines)),
		zap.String("amount", plan.Total.String()),
	)

	resp := ToPaymentResponse(result)
	return &resp, nil
}

func (s *PaymentService) allocateInTx(
	ctx context.Context,
	repos TransactionalRepositories,
	paymentID uuid.UUID,
	plan *collection.AllocationPlan,
) (*collection.Payment, error) {
	now := s.opts.now()

	payment, err := s.lockPayment(ctx, repos, paymentID)
	if err != nil {
		return nil, err
	}
	if err := payment.EnsureAllocatable(); err != nil {
		return nil, err
	}

	existing, err := repos.Allocations().FindByPayment(ctx, payment.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get allocations: %w", err)
	}
	if err := plan.CheckAgainst(payment, existing); err != nil {
		return nil, err
	}

	installments, err := lockInstallments(ctx, repos, plan.InstallmentIDs())
	if err != nil {
		return nil, err
	}
	debts, err := lockDebts(ctx, repos, installments)
	if err != nil {
		return nil, err
	}

	for _, line := range plan.Lines {
		inst := installments[line.InstallmentID]
		if payment.IsBoundToDebt() && inst.DebtID != *payment.DebtID {
			return nil, shared.NewValidationError("INSTALLMENT_DEBT_MISMATCH",
				fmt.Sprintf("Installment %s does not belong to debt %s of payment %s", inst.ID, *payment.DebtID, payment.ID))
		}
		if debt := debts[inst.DebtID]; debt.Currency != payment.Currency {
			return nil, shared.NewValidationError("CURRENCY_MISMATCH",
				fmt.Sprintf("Payment currency %s does not match debt %s currency %s", payment.Currency, debt.ID, debt.Currency))
		}
	}

	for _, line := range plan.Lines {
		inst := installments[line.InstallmentID]
		debt := debts[inst.DebtID]

		allocation, err := collection.NewPaymentAllocation(payment.ID, inst, line.Amount, now)
		if err != nil {
			return nil, err
		}
		if err := repos.Allocations().Create(ctx, allocation); err != nil {
			return nil, err
		}
		if err := inst.ApplyPayment(line.Amount, now); err != nil {
			return nil, err
		}
		if err := debt.ApplyCredit(line.Amount, now); err != nil {
			return nil, err
		}
		existing = append(existing, *allocation)
	}

	if err := saveInstallments(ctx, repos, installments); err != nil {
		return nil, err
	}
	if err := saveDebts(ctx, repos, debts); err != nil {
		return nil, err
	}

	payment.Allocations = existing
	return payment, nil
}

// AutoAllocate applies what is left on a payment to open installments, earliest due date first.
// A payment bound to a debt only reaches that debt's installments; otherwise every outstanding
// debt of the customer in the payment currency is a candidate. Candidates are locked before the
// plan is computed so the plan sees committed balances.
func (s *PaymentService) AutoAllocate(ctx context.Context, paymentID uuid.UUID) (*PaymentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, "AutoAllocate",
		telemetry.WithAttribute(telemetry.SpanAttrPaymentID, paymentID),
	)
	defer span.End()

	var (
		result *collection.Payment
		plan   *collection.AllocationPlan
	)
	err := s.uow.execute(ctx, "auto_allocate", func(repos TransactionalRepositories) error {
		p, err := s.planOldestDueFirst(ctx, repos, paymentID)
		if err != nil {
			return err
		}
		payment, err := s.allocateInTx(ctx, repos, paymentID, p)
		if err != nil {
			return err
		}
		plan, result = p, payment
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, span, "auto_allocate", err)
	}

	s.opts.metrics.RecordAllocation(ctx, len(plan.Lines), plan.Total)
	telemetry.AddEvent(span, "allocation_committed",
		telemetry.SpanAttrAmount, plan.Total.String(),
		"unallocated", result.UnallocatedAmount().String(),
	)
	logger.L(ctx, s.opts.logger).Info("Payment auto-allocated",
		zap.String("payment_id", paymentID.String()),
		zap.Int("lines", len(plan.Lines)),
		zap.String("amount", plan.Total.String()),
	)

	resp := ToPaymentResponse(result)
	return &resp, nil
}

func (s *PaymentService) planOldestDueFirst(
	ctx context.Context,
	repos TransactionalRepositories,
	paymentID uuid.UUID,
) (*collection.AllocationPlan, error) {
	payment, err := s.lockPayment(ctx, repos, paymentID)
	if err != nil {
		return nil, err
	}
	if err := payment.EnsureAllocatable(); err != nil {
		return nil, err
	}

	existing, err := repos.Allocations().FindByPayment(ctx, payment.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get allocations: %w", err)
	}
	allocated := make(map[uuid.UUID]struct{}, len(existing))
	available := payment.Amount
	for _, a := range existing {
		allocated[a.InstallmentID] = struct{}{}
		available = available.Sub(a.AmountApplied)
	}
	if !available.IsPositive() {
		return nil, shared.NewValidationError("NOTHING_TO_ALLOCATE",
			fmt.Sprintf("Payment %s has no unallocated amount", payment.ID))
	}

	debtIDs, err := s.candidateDebts(ctx, repos, payment)
	if err != nil {
		return nil, err
	}
	var ids []uuid.UUID
	for _, debtID := range debtIDs {
		rows, err := repos.Installments().FindByDebt(ctx, debtID)
		if err != nil {
			return nil, fmt.Errorf("failed to get installments: %w", err)
		}
		for _, inst := range rows {
			if _, done := allocated[inst.ID]; !done && inst.Status.CanApplyPayment() {
				ids = append(ids, inst.ID)
			}
		}
	}

	locked, err := lockInstallments(ctx, repos, ids)
	if err != nil {
		return nil, err
	}
	candidates := make([]collection.Installment, 0, len(locked))
	for _, id := range sortedKeys(locked) {
		candidates = append(candidates, *locked[id])
	}

	lines := collection.PlanOldestDueFirst(available, candidates)
	if len(lines) == 0 {
		return nil, shared.NewValidationError("NO_OPEN_INSTALLMENTS",
			fmt.Sprintf("Payment %s has no open installments to allocate to", payment.ID))
	}
	return collection.NewAllocationPlan(lines)
}

// candidateDebts returns the debts an automatic allocation may reach
func (s *PaymentService) candidateDebts(ctx context.Context, repos TransactionalRepositories, payment *collection.Payment) ([]uuid.UUID, error) {
	if payment.IsBoundToDebt() {
		return []uuid.UUID{*payment.DebtID}, nil
	}
	debts, err := repos.Debts().FindByCustomerIDs(ctx, []uuid.UUID{payment.CustomerID})
	if err != nil {
		return nil, fmt.Errorf("failed to get debts: %w", err)
	}
	ids := make([]uuid.UUID, 0, len(debts))
	for _, d := range debts {
		if d.Status.IsOutstanding() && d.Currency == payment.Currency {
			ids = append(ids, d.ID)
		}
	}
	return ids, nil
}

// Reverse undoes every allocation of a payment and marks it reversed.
// Installment status after the reversal follows the configured ReversalStatusPolicy.
func (s *PaymentService) Reverse(ctx context.Context, paymentID uuid.UUID) (*PaymentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, "Reverse",
		telemetry.WithAttribute(telemetry.SpanAttrPaymentID, paymentID),
		telemetry.WithAttribute(telemetry.SpanAttrPolicy, string(s.opts.reversalPolicy)),
	)
	defer span.End()

	var (
		result   *collection.Payment
		reverted []collection.PaymentAllocation
	)
	err := s.uow.execute(ctx, "reverse", func(repos TransactionalRepositories) error {
		payment, undone, err := s.reverseInTx(ctx, repos, paymentID)
		if err != nil {
			return err
		}
		result, reverted = payment, undone
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, span, "reverse", err)
	}

	amount := decimal.Zero
	for _, a := range reverted {
		amount = amount.Add(a.AmountApplied)
	}
	s.opts.metrics.RecordReversal(ctx, len(reverted), amount)
	logger.L(ctx, s.opts.logger).Info("Payment reversed",
		zap.String("payment_id", paymentID.String()),
		zap.Int("allocations", len(reverted)),
		zap.String("amount", amount.String()),
		zap.String("policy", string(s.opts.reversalPolicy)),
	)

	resp := ToPaymentResponse(result)
	return &resp, nil
}

func (s *PaymentService) reverseInTx(
	ctx context.Context,
	repos TransactionalRepositories,
	paymentID uuid.UUID,
) (*collection.Payment, []collection.PaymentAllocation, error) {
	now := s.opts.now()

	payment, err := s.lockPayment(ctx, repos, paymentID)
	if err != nil {
		return nil, nil, err
	}
	if payment.Status == collection.PaymentStatusReversed {
		return nil, nil, shared.NewConflictError("ALREADY_REVERSED", fmt.Sprintf("Payment %s already reversed", payment.ID))
	}

	allocations, err := repos.Allocations().FindByPayment(ctx, payment.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get allocations: %w", err)
	}

	ids := make([]uuid.UUID, len(allocations))
	for i, a := range allocations {
		ids[i] = a.InstallmentID
	}
	installments, err := lockInstallments(ctx, repos, ids)
	if err != nil {
		return nil, nil, err
	}
	debts, err := lockDebts(ctx, repos, installments)
	if err != nil {
		return nil, nil, err
	}

	for _, a := range allocations {
		if err := installments[a.InstallmentID].RevertPayment(a.AmountApplied, s.opts.reversalPolicy, now); err != nil {
			return nil, nil, err
		}
		if err := debts[a.DebtID].ApplyDebit(a.AmountApplied, now); err != nil {
			return nil, nil, err
		}
	}

	deleted, err := repos.Allocations().DeleteByPayment(ctx, payment.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to delete allocations: %w", err)
	}
	if deleted != int64(len(allocations)) {
		return nil, nil, shared.ErrConcurrencyConflict.WithCause(
			fmt.Errorf("payment %s: deleted %d allocations, expected %d", payment.ID, deleted, len(allocations)))
	}

	if err := saveInstallments(ctx, repos, installments); err != nil {
		return nil, nil, err
	}
	if err := saveDebts(ctx, repos, debts); err != nil {
		return nil, nil, err
	}

	if err := payment.MarkReversed(now); err != nil {
		return nil, nil, err
	}
	if err := repos.Payments().SaveWithLock(ctx, payment); err != nil {
		return nil, nil, err
	}
	return payment, allocations, nil
}

func (s *PaymentService) lockPayment(ctx context.Context, repos TransactionalRepositories, paymentID uuid.UUID) (*collection.Payment, error) {
	payment, err := repos.Payments().FindByIDForUpdate(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock payment: %w", err)
	}
	if payment == nil {
		return nil, shared.NewNotFoundError("Payment", paymentID)
	}
	return payment, nil
}

func (s *PaymentService) fail(ctx context.Context, span trace.Span, operation string, err error) error {
	telemetry.RecordError(span, err)
	s.opts.metrics.RecordError(ctx, operation, shared.KindOf(err))
	if shared.KindOf(err) == "" {
		logger.L(ctx, s.opts.logger).Error("Ledger operation failed",
			zap.String("operation", operation),
			zap.Error(err),
		)
	}
	return err
}

func providerTxnGuardKey(providerTxnID string) string {
	return "payment:provider_txn:" + providerTxnID
}

func duplicateProviderTxnError(providerTxnID string) error {
	return shared.NewConflictError("DUPLICATE_PROVIDER_TXN",
		"Payment with provider transaction ID "+providerTxnID+" already exists")
}
