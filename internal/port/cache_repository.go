package port

import "context"

type CacheRepository interface {
	// SetIdempotency sets a key for idempotency check, returns false if already exists
	SetIdempotency(ctx context.Context, key string) (bool, error)

	// ReleaseIdempotency removes a key so the guarded action can run again
	ReleaseIdempotency(ctx context.Context, key string) error

	// DecrementStock atomically decreases the mirrored stock count, returns false if insufficient
	DecrementStock(ctx context.Context, productID string) (bool, error)

	// IncrementStock restores mirrored stock (for rollback on failure)
	IncrementStock(ctx context.Context, productID string) error

	// SetStock writes the mirrored stock count for a product
	SetStock(ctx context.Context, productID string, stock int) error
}
