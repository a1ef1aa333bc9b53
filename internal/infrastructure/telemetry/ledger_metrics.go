package telemetry

import (
	"context"

	"github.com/debtdesk/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// LedgerMetrics records allocation, reversal and retry activity of the payment ledger.
type LedgerMetrics struct {
	logger *zap.Logger

	allocationsTotal *Counter
	reversalsTotal   *Counter
	retriesTotal     *Counter
	errorsTotal      *Counter
	overdueMarked    *Counter
	allocationAmount *Histogram
}

// NewLedgerMetrics registers the ledger instruments on meter.
func NewLedgerMetrics(meter metric.Meter, logger *zap.Logger) (*LedgerMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	lm := &LedgerMetrics{logger: logger}
	var err error

	if lm.allocationsTotal, err = NewCounter(meter, "ledger.allocations.total",
		"Allocation lines committed", "{allocations}"); err != nil {
		return nil, err
	}
	if lm.reversalsTotal, err = NewCounter(meter, "ledger.reversals.total",
		"Payments reversed", "{payments}"); err != nil {
		return nil, err
	}
	if lm.retriesTotal, err = NewCounter(meter, "ledger.tx.retries.total",
		"Units of work retried after a concurrency conflict", "{retries}"); err != nil {
		return nil, err
	}
	if lm.errorsTotal, err = NewCounter(meter, "ledger.errors.total",
		"Ledger operations that failed, by error kind", "{errors}"); err != nil {
		return nil, err
	}
	if lm.overdueMarked, err = NewCounter(meter, "ledger.installments.overdue_marked.total",
		"Installments flagged overdue by the sweeper", "{installments}"); err != nil {
		return nil, err
	}
	if lm.allocationAmount, err = NewHistogram(meter, HistogramOpts{
		Name:        "ledger.allocation.amount",
		Description: "Total amount allocated per Allocate call",
		Unit:        "{currency}",
		Boundaries:  AmountBuckets,
	}); err != nil {
		return nil, err
	}

	return lm, nil
}

// RecordAllocation records a committed allocation of lines totalling amount.
func (m *LedgerMetrics) RecordAllocation(ctx context.Context, lines int, amount decimal.Decimal) {
	m.allocationsTotal.Add(ctx, int64(lines))
	m.allocationAmount.Record(ctx, amount.InexactFloat64())
}

// RecordReversal records a committed reversal that undid allocations totalling amount.
func (m *LedgerMetrics) RecordReversal(ctx context.Context, allocations int, amount decimal.Decimal) {
	m.reversalsTotal.Inc(ctx)
	m.logger.Debug("Reversal recorded",
		zap.Int("allocations", allocations),
		zap.String("amount", amount.String()),
	)
}

// RecordRetry records one retry of operation.
func (m *LedgerMetrics) RecordRetry(ctx context.Context, operation string) {
	m.retriesTotal.Inc(ctx, AttrOperation.String(operation))
}

// RecordError records a failed operation. Errors that are not domain errors are counted as "internal".
func (m *LedgerMetrics) RecordError(ctx context.Context, operation string, kind shared.ErrorKind) {
	k := string(kind)
	if k == "" {
		k = "internal"
	}
	m.errorsTotal.Inc(ctx, AttrOperation.String(operation), AttrErrorKind.String(k))
}

// RecordOverdueMarked records installments moved to overdue in one sweep.
func (m *LedgerMetrics) RecordOverdueMarked(ctx context.Context, count int) {
	if count <= 0 {
		return
	}
	m.overdueMarked.Add(ctx, int64(count))
}

// MetricsError reports a failure while setting up metrics.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}

// ErrMeterNil is returned when a metrics constructor is given a nil meter.
var ErrMeterNil = &MetricsError{Op: "NewLedgerMetrics", Err: "meter cannot be nil"}
