package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rl1809/stock-ledger/internal/core/domain"
	"github.com/rl1809/stock-ledger/internal/port"
)

// LedgerService owns the authoritative quantity-per-item state. Input range
// checks happen here, before the storage call; the check-and-subtract of a
// purchase is delegated to the repository's atomic primitive so no
// read-then-write pair ever crosses the port.
type LedgerService struct {
	store port.StockRepository
}

func NewLedgerService(store port.StockRepository) *LedgerService {
	return &LedgerService{store: store}
}

func (s *LedgerService) CreateItem(ctx context.Context, name, description string, price decimal.Decimal, quantity int) (*domain.Item, error) {
	if len(name) < 2 {
		return nil, fmt.Errorf("name must be at least 2 characters: %w", domain.ErrInvalidInput)
	}
	if price.Sign() <= 0 {
		return nil, fmt.Errorf("price must be positive: %w", domain.ErrInvalidInput)
	}
	if quantity < 0 {
		return nil, fmt.Errorf("quantity must be non-negative: %w", domain.ErrInvalidInput)
	}

	now := time.Now()
	item := domain.Item{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		Price:       price,
		Quantity:    quantity,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.store.CreateItem(ctx, item); err != nil {
		return nil, fmt.Errorf("create item: %w", err)
	}
	return &item, nil
}

func (s *LedgerService) GetItem(ctx context.Context, id string) (*domain.Item, error) {
	return s.store.GetItem(ctx, id)
}

// ListItems returns items holding at least minStock units; pass a negative
// minStock for no filter.
func (s *LedgerService) ListItems(ctx context.Context, minStock int) ([]domain.Item, error) {
	return s.store.ListItems(ctx, minStock)
}

func (s *LedgerService) SetQuantity(ctx context.Context, id string, quantity int) error {
	if quantity < 0 {
		return fmt.Errorf("quantity must be non-negative: %w", domain.ErrInvalidInput)
	}
	return s.store.SetQuantity(ctx, id, quantity)
}

// Purchase atomically checks and subtracts amount, returning the remaining
// quantity. A failed purchase is a definite outcome, not a transient fault:
// there is no retry here.
func (s *LedgerService) Purchase(ctx context.Context, id string, amount int) (int, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("amount must be positive: %w", domain.ErrInvalidInput)
	}
	return s.store.TryDecrement(ctx, id, amount)
}

func (s *LedgerService) Restock(ctx context.Context, id string, amount int) (int, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("amount must be positive: %w", domain.ErrInvalidInput)
	}
	return s.store.IncrementStock(ctx, id, amount)
}
