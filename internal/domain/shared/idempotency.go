package shared

import (
	"context"
	"time"
)

// IdempotencyStore records event IDs that have already been handled, so a
// redelivered payment webhook is acknowledged without reprocessing.
type IdempotencyStore interface {
	// MarkProcessed claims an event ID for the given window. It returns true
	// when this caller made the claim and false when the ID was already held.
	MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error)

	// IsProcessed reports whether an event ID currently holds a claim
	IsProcessed(ctx context.Context, eventID string) (bool, error)

	// Close releases any resources held by the store
	Close() error
}
