package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/stock-ledger/internal/core/domain"
	"github.com/rl1809/stock-ledger/internal/port"
)

var ErrDuplicateRequest = errors.New("duplicate request")

// OrderService is the hot purchase path: the stock check-and-decrement runs
// against the cache's atomic primitive, and accepted orders are queued for a
// worker to persist durably. A worker that fails to persist restores the
// cached stock.
type OrderService struct {
	cache      port.CacheRepository
	orderQueue chan domain.Order
}

func NewOrderService(cache port.CacheRepository, queueSize int) *OrderService {
	return &OrderService{
		cache:      cache,
		orderQueue: make(chan domain.Order, queueSize),
	}
}

func (s *OrderService) Purchase(ctx context.Context, requestID, userID, itemID string, quantity int) (int, error) {
	if requestID == "" || userID == "" || itemID == "" {
		return 0, fmt.Errorf("missing request, user or item id: %w", domain.ErrInvalidInput)
	}
	if quantity <= 0 {
		return 0, fmt.Errorf("quantity must be positive: %w", domain.ErrInvalidInput)
	}

	idempotencyKey := fmt.Sprintf("order:%s", requestID)

	ok, err := s.cache.SetIdempotency(ctx, idempotencyKey)
	if err != nil {
		return 0, fmt.Errorf("idempotency check failed: %w", err)
	}
	if !ok {
		return 0, ErrDuplicateRequest
	}

	remaining, err := s.cache.DecrementStock(ctx, itemID, quantity)
	if err != nil {
		return 0, err
	}

	now := time.Now()
	order := domain.Order{
		ID:        uuid.NewString(),
		UserID:    userID,
		ItemID:    itemID,
		Quantity:  quantity,
		Status:    domain.OrderStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.orderQueue <- order

	return remaining, nil
}

func (s *OrderService) GetOrderQueue() <-chan domain.Order {
	return s.orderQueue
}

func (s *OrderService) Close() {
	close(s.orderQueue)
}
