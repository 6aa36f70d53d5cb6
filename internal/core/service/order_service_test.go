package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rl1809/stock-ledger/internal/core/domain"
)

// Mock CacheRepository
type mockCacheRepo struct {
	mu             sync.Mutex
	stock          map[string]int
	idempotencySet map[string]bool
}

func newMockCacheRepo() *mockCacheRepo {
	return &mockCacheRepo{
		stock:          make(map[string]int),
		idempotencySet: make(map[string]bool),
	}
}

func (m *mockCacheRepo) DecrementStock(ctx context.Context, itemID string, amount int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, exists := m.stock[itemID]
	if !exists {
		return 0, domain.ErrNotFound
	}
	if current < amount {
		return 0, domain.ErrInsufficientStock
	}
	m.stock[itemID] = current - amount
	return m.stock[itemID], nil
}

func (m *mockCacheRepo) IncrementStock(ctx context.Context, itemID string, amount int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stock[itemID] += amount
	return m.stock[itemID], nil
}

func (m *mockCacheRepo) SetStock(ctx context.Context, itemID string, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stock[itemID] = quantity
	return nil
}

func (m *mockCacheRepo) GetStock(ctx context.Context, itemID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	quantity, exists := m.stock[itemID]
	if !exists {
		return 0, domain.ErrNotFound
	}
	return quantity, nil
}

func (m *mockCacheRepo) SetIdempotency(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.idempotencySet[key] {
		return false, nil
	}
	m.idempotencySet[key] = true
	return true, nil
}

func TestOrderPurchase_Success(t *testing.T) {
	cache := newMockCacheRepo()
	cache.SetStock(context.Background(), "item-1", 10)
	svc := NewOrderService(cache, 100)
	defer svc.Close()

	// Drain queue
	go func() {
		for range svc.GetOrderQueue() {
		}
	}()

	remaining, err := svc.Purchase(context.Background(), "req-1", "user-1", "item-1", 1)
	if err != nil {
		t.Errorf("expected success, got error: %v", err)
	}
	if remaining != 9 {
		t.Errorf("expected remaining 9, got %d", remaining)
	}
}

func TestOrderPurchase_InsufficientStock(t *testing.T) {
	cache := newMockCacheRepo()
	cache.SetStock(context.Background(), "item-1", 0)
	svc := NewOrderService(cache, 100)
	defer svc.Close()

	go func() {
		for range svc.GetOrderQueue() {
		}
	}()

	_, err := svc.Purchase(context.Background(), "req-1", "user-1", "item-1", 1)
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Errorf("expected ErrInsufficientStock, got: %v", err)
	}
}

func TestOrderPurchase_UnknownItem(t *testing.T) {
	cache := newMockCacheRepo()
	svc := NewOrderService(cache, 100)
	defer svc.Close()

	go func() {
		for range svc.GetOrderQueue() {
		}
	}()

	_, err := svc.Purchase(context.Background(), "req-1", "user-1", "missing", 1)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got: %v", err)
	}
}

func TestOrderPurchase_InvalidInput(t *testing.T) {
	cache := newMockCacheRepo()
	cache.SetStock(context.Background(), "item-1", 10)
	svc := NewOrderService(cache, 100)
	defer svc.Close()

	if _, err := svc.Purchase(context.Background(), "", "user-1", "item-1", 1); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for empty request id, got: %v", err)
	}
	if _, err := svc.Purchase(context.Background(), "req-1", "user-1", "item-1", 0); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for zero quantity, got: %v", err)
	}

	// Nothing was decremented
	stock, _ := cache.GetStock(context.Background(), "item-1")
	if stock != 10 {
		t.Errorf("expected stock 10, got %d", stock)
	}
}

func TestOrderPurchase_DuplicateRequest(t *testing.T) {
	cache := newMockCacheRepo()
	cache.SetStock(context.Background(), "item-1", 10)
	svc := NewOrderService(cache, 100)
	defer svc.Close()

	go func() {
		for range svc.GetOrderQueue() {
		}
	}()

	// First request
	if _, err := svc.Purchase(context.Background(), "req-1", "user-1", "item-1", 1); err != nil {
		t.Fatalf("first purchase failed: %v", err)
	}

	// Duplicate request with same requestID
	_, err := svc.Purchase(context.Background(), "req-1", "user-1", "item-1", 1)
	if !errors.Is(err, ErrDuplicateRequest) {
		t.Errorf("expected ErrDuplicateRequest, got: %v", err)
	}

	// Stock should only be decremented once
	stock, _ := cache.GetStock(context.Background(), "item-1")
	if stock != 9 {
		t.Errorf("expected stock 9, got %d", stock)
	}
}

func TestOrderPurchase_Concurrent(t *testing.T) {
	initialStock := 20
	totalRequests := 50

	cache := newMockCacheRepo()
	cache.SetStock(context.Background(), "item-1", initialStock)
	svc := NewOrderService(cache, 100)
	defer svc.Close()

	go func() {
		for range svc.GetOrderQueue() {
		}
	}()

	var successCount atomic.Int32
	var failCount atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			requestID := fmt.Sprintf("req-%d", n)
			_, err := svc.Purchase(context.Background(), requestID, "user", "item-1", 1)
			if err == nil {
				successCount.Add(1)
			} else {
				failCount.Add(1)
			}
		}(i)
	}

	wg.Wait()

	if successCount.Load() != int32(initialStock) {
		t.Errorf("expected %d successes, got %d", initialStock, successCount.Load())
	}

	stock, _ := cache.GetStock(context.Background(), "item-1")
	if stock != 0 {
		t.Errorf("expected stock 0, got %d", stock)
	}
}

func TestOrderPurchase_OrderQueued(t *testing.T) {
	cache := newMockCacheRepo()
	cache.SetStock(context.Background(), "item-1", 10)
	svc := NewOrderService(cache, 100)

	if _, err := svc.Purchase(context.Background(), "req-1", "user-1", "item-1", 2); err != nil {
		t.Fatalf("purchase failed: %v", err)
	}

	// Read from queue
	order := <-svc.GetOrderQueue()

	if order.UserID != "user-1" {
		t.Errorf("expected user-1, got %s", order.UserID)
	}
	if order.ItemID != "item-1" {
		t.Errorf("expected item-1, got %s", order.ItemID)
	}
	if order.Quantity != 2 {
		t.Errorf("expected quantity 2, got %d", order.Quantity)
	}
	if order.Status != domain.OrderStatusPending {
		t.Errorf("expected pending status, got %s", order.Status)
	}
	if order.ID == "" {
		t.Error("expected non-empty order ID")
	}

	svc.Close()
}
