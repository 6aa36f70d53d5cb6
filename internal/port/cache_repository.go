package port

import "context"

type CacheRepository interface {
	// DecrementStock atomically decreases the cached stock and returns
	// the remaining quantity. Fails with domain.ErrNotFound when the key
	// is absent and domain.ErrInsufficientStock when the cached quantity
	// is below amount; the cached value is unchanged on failure.
	DecrementStock(ctx context.Context, itemID string, amount int) (int, error)

	// IncrementStock restores stock (for rollback on failure) and
	// returns the new quantity.
	IncrementStock(ctx context.Context, itemID string, amount int) (int, error)

	// SetStock overwrites the cached stock value.
	SetStock(ctx context.Context, itemID string, quantity int) error

	// GetStock returns the cached stock, or domain.ErrNotFound.
	GetStock(ctx context.Context, itemID string) (int, error)

	// SetIdempotency sets a key for idempotency check, returns false if already exists
	SetIdempotency(ctx context.Context, key string) (bool, error)
}
