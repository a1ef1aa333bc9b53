package collection

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/debtdesk/backend/internal/domain/shared"
	"github.com/debtdesk/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// unitOfWork runs ledger mutations in one transaction each and retries the
// whole transaction with identical input when it loses a concurrency race.
type unitOfWork struct {
	scope TransactionScope
	opts  *options
}

// execute runs fn in a transaction. fn may run several times; it must
// rebuild any result it returns on every call.
// When retries are exhausted the last concurrency conflict is returned.
func (u *unitOfWork) execute(ctx context.Context, operation string, fn func(repos TransactionalRepositories) error) error {
	if u.opts.txTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.opts.txTimeout)
		defer cancel()
	}

	attempt := 0
	op := func() error {
		attempt++
		err := u.scope.Execute(ctx, fn)
		if err == nil {
			return nil
		}
		if shared.IsRetryable(err) {
			return err
		}
		return backoff.Permanent(err)
	}

	notify := func(err error, wait time.Duration) {
		u.opts.metrics.RecordRetry(ctx, operation)
		logger.L(ctx, u.opts.logger).Warn("Retrying ledger transaction after concurrency conflict",
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}

	err := backoff.RetryNotify(op, u.backOff(ctx), notify)
	if err != nil && shared.IsRetryable(err) {
		logger.L(ctx, u.opts.logger).Error("Ledger transaction retries exhausted",
			zap.String("operation", operation),
			zap.Int("attempts", attempt),
		)
	}
	return err
}

func (u *unitOfWork) backOff(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	if u.opts.retry.InitialInterval > 0 {
		eb.InitialInterval = u.opts.retry.InitialInterval
	}
	if u.opts.retry.MaxInterval > 0 {
		eb.MaxInterval = u.opts.retry.MaxInterval
	}
	eb.MaxElapsedTime = 0
	eb.Reset()

	retries := u.opts.retry.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(eb, uint64(retries)), ctx)
}
