package port

import (
	"context"

	"github.com/rl1809/stock-ledger/internal/core/domain"
)

// StockRepository is the authoritative ledger store. Implementations must
// make TryDecrement linearizable per item id: the quantity check and the
// subtraction are one indivisible step, and operations on different ids do
// not contend.
type StockRepository interface {
	// CreateItem persists a new item record, or fails with
	// domain.ErrAlreadyExists when the id is taken.
	CreateItem(ctx context.Context, item domain.Item) error

	// GetItem returns the item, or domain.ErrNotFound.
	GetItem(ctx context.Context, id string) (*domain.Item, error)

	// ListItems returns items with quantity >= minStock. minStock < 0
	// means no filter.
	ListItems(ctx context.Context, minStock int) ([]domain.Item, error)

	// SetQuantity overwrites the quantity unconditionally.
	SetQuantity(ctx context.Context, id string, quantity int) error

	// TryDecrement atomically subtracts amount if quantity >= amount and
	// returns the remaining quantity. On domain.ErrNotFound or
	// domain.ErrInsufficientStock the stored quantity is unchanged.
	TryDecrement(ctx context.Context, id string, amount int) (int, error)

	// IncrementStock adds amount back (restock, or rollback of a
	// decrement) and returns the new quantity.
	IncrementStock(ctx context.Context, id string, amount int) (int, error)
}
