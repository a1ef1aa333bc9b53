package collection

import (
	"context"
	"time"

	"github.com/debtdesk/backend/internal/domain/collection"
	"github.com/debtdesk/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// LedgerMetrics records ledger business metrics.
// Implementations must be safe for concurrent use.
type LedgerMetrics interface {
	RecordAllocation(ctx context.Context, lines int, amount decimal.Decimal)
	RecordReversal(ctx context.Context, allocations int, amount decimal.Decimal)
	RecordRetry(ctx context.Context, operation string)
	RecordError(ctx context.Context, operation string, kind shared.ErrorKind)
	RecordOverdueMarked(ctx context.Context, count int)
}

type noopMetrics struct{}

func (noopMetrics) RecordAllocation(context.Context, int, decimal.Decimal) {}
func (noopMetrics) RecordReversal(context.Context, int, decimal.Decimal) {}
func (noopMetrics) RecordRetry(context.Context, string) {}
func (noopMetrics) RecordError(context.Context, string, shared.ErrorKind) {}
func (noopMetrics) RecordOverdueMarked(context.Context, int) {}

// RetryConfig controls how a unit of work is retried after a concurrency conflict
type RetryConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryConfig returns the retry settings used when none are configured
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      5,
		InitialInterval: 20 * time.Millisecond,
		MaxInterval:     500 * time.Millisecond,
	}
}

type options struct {
	logger         *zap.Logger
	now            func() time.Time
	retry          RetryConfig
	txTimeout      time.Duration
	reversalPolicy collection.ReversalStatusPolicy
	ingestGuard    shared.IdempotencyStore
	ingestGuardTTL time.Duration
	metrics        LedgerMetrics
}

func defaultOptions() options {
	return options{
		logger:         zap.NewNop(),
		now:            func() time.Time { return time.Now().UTC() },
		retry:          DefaultRetryConfig(),
		reversalPolicy: collection.ReversalStatusReset,
		ingestGuardTTL: shared.DefaultIngestGuardTTL,
		metrics:        noopMetrics{},
	}
}

// Option configures the collection services
type Option func(*options)

// WithLogger sets the service logger
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithRetryConfig sets the concurrency conflict retry policy
func WithRetryConfig(cfg RetryConfig) Option {
	return func(o *options) {
		o.retry = cfg
	}
}

// WithTxTimeout bounds every unit of work. Zero means no extra deadline beyond the caller's.
func WithTxTimeout(timeout time.Duration) Option {
	return func(o *options) {
		o.txTimeout = timeout
	}
}

// WithReversalPolicy selects how installment status is derived after a reversal
func WithReversalPolicy(policy collection.ReversalStatusPolicy) Option {
	return func(o *options) {
		if policy.IsValid() {
			o.reversalPolicy = policy
		}
	}
}

// WithIngestGuard deduplicates payment ingestion by provider transaction id before touching the database
func WithIngestGuard(store shared.IdempotencyStore, ttl time.Duration) Option {
	return func(o *options) {
		o.ingestGuard = store
		if ttl > 0 {
			o.ingestGuardTTL = ttl
		}
	}
}

// WithMetrics sets the ledger metrics recorder
func WithMetrics(metrics LedgerMetrics) Option {
	return func(o *options) {
		if metrics != nil {
			o.metrics = metrics
		}
	}
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
