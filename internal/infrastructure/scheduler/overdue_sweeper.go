package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// OverdueMarker flips due installments whose due date has passed to overdue
type OverdueMarker interface {
	MarkOverdueInstallments(ctx context.Context, asOf time.Time) (int, error)
}

// OverdueSweeperConfig holds configuration for the overdue sweeper
type OverdueSweeperConfig struct {
	Enabled bool

	// Interval between sweeps
	Interval time.Duration

	// Timeout bounds a single sweep
	Timeout time.Duration

	// RunOnStart sweeps immediately instead of waiting for the first tick
	RunOnStart bool
}

// DefaultOverdueSweeperConfig returns default configuration
func DefaultOverdueSweeperConfig() OverdueSweeperConfig {
	return OverdueSweeperConfig{
		Enabled:    true,
		Interval:   time.Hour,
		Timeout:    10 * time.Minute,
		RunOnStart: true,
	}
}

// OverdueSweeper periodically marks overdue installments so customer stats stay current
type OverdueSweeper struct {
	marker OverdueMarker
	config OverdueSweeperConfig
	logger *zap.Logger
	now    func() time.Time

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	sweeping  atomic.Bool
}

// NewOverdueSweeper creates a new overdue sweeper
func NewOverdueSweeper(marker OverdueMarker, config OverdueSweeperConfig, logger *zap.Logger) (*OverdueSweeper, error) {
	if marker == nil {
		return nil, fmt.Errorf("%w: overdue marker is required", ErrInvalidConfig)
	}
	if config.Enabled && config.Interval <= 0 {
		return nil, fmt.Errorf("%w: interval must be positive, got %s", ErrInvalidConfig, config.Interval)
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultOverdueSweeperConfig().Timeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OverdueSweeper{
		marker: marker,
		config: config,
		logger: logger,
		now:    time.Now,
	}, nil
}

// Start launches the sweep loop. It returns immediately; a disabled sweeper does nothing.
func (s *OverdueSweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}
	if !s.config.Enabled {
		s.logger.Info("Overdue sweeper is disabled")
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.isRunning = true

	s.wg.Add(1)
	go s.loop(ctx)

	s.logger.Info("Overdue sweeper started", zap.Duration("interval", s.config.Interval))
	return nil
}

// Stop cancels the loop and waits for an in-flight sweep, bounded by ctx
func (s *OverdueSweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.cancel()
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Overdue sweeper stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Overdue sweeper stop timed out")
		return ctx.Err()
	}
}

// IsRunning reports whether the loop is active
func (s *OverdueSweeper) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

func (s *OverdueSweeper) loop(ctx context.Context) {
	defer s.wg.Done()

	if s.config.RunOnStart {
		s.sweep(ctx)
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *OverdueSweeper) sweep(ctx context.Context) {
	if _, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
		s.logger.Error("Overdue sweep failed", zap.Error(err))
	}
}

// RunOnce performs a single sweep as of now. Sweeps never overlap.
func (s *OverdueSweeper) RunOnce(ctx context.Context) (int, error) {
	if !s.sweeping.CompareAndSwap(false, true) {
		return 0, ErrSweepInProgress
	}
	defer s.sweeping.Store(false)

	sweepCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	start := time.Now()
	asOf := s.now().UTC()
	marked, err := s.marker.MarkOverdueInstallments(sweepCtx, asOf)
	if err != nil {
		return marked, fmt.Errorf("failed to mark overdue installments: %w", err)
	}

	s.logger.Info("Overdue sweep completed",
		zap.Time("as_of", asOf),
		zap.Int("marked", marked),
		zap.Duration("duration", time.Since(start)),
	)
	return marked, nil
}
