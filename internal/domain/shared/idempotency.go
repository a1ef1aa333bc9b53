package shared

import (
	"context"
	"time"
)

// IdempotencyStore claims external idempotency keys so duplicate deliveries are rejected early
type IdempotencyStore interface {
	// MarkProcessed claims key for ttl.
	// Returns true if the key was newly claimed, false if it was already claimed.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Release drops a claim so the key can be retried
	Release(ctx context.Context, key string) error

	// Close closes the store and releases resources
	Close() error
}

// DefaultIngestGuardTTL is how long a claimed provider transaction id blocks a duplicate
const DefaultIngestGuardTTL = 24 * time.Hour
