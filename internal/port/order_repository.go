package port

import (
	"context"

	"github.com/rl1809/stock-ledger/internal/core/domain"
)

type OrderRepository interface {
	// CreateOrder persists a new order, decrementing the durable
	// inventory row in the same transaction. The decrement is
	// conditional on sufficient stock.
	CreateOrder(ctx context.Context, order domain.Order) error

	// GetInventory returns the durable stock count for an item, or
	// domain.ErrNotFound.
	GetInventory(ctx context.Context, itemID string) (int, error)

	// UpsertInventory creates or overwrites the durable stock count.
	UpsertInventory(ctx context.Context, itemID string, quantity int) error
}
