package storage

import (
	"context"
	"sync"
	"time"

	"github.com/rl1809/stock-ledger/internal/core/domain"
)

// memoryEntry carries its own lock so operations on different items never
// contend. The adapter-level RWMutex guards only map membership.
type memoryEntry struct {
	mu   sync.Mutex
	item domain.Item
}

type MemoryAdapter struct {
	mu    sync.RWMutex
	items map[string]*memoryEntry
}

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{items: make(map[string]*memoryEntry)}
}

func (m *MemoryAdapter) lookup(id string) *memoryEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.items[id]
}

func (m *MemoryAdapter) CreateItem(ctx context.Context, item domain.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.items[item.ID]; exists {
		return domain.ErrAlreadyExists
	}
	m.items[item.ID] = &memoryEntry{item: item}
	return nil
}

func (m *MemoryAdapter) GetItem(ctx context.Context, id string) (*domain.Item, error) {
	entry := m.lookup(id)
	if entry == nil {
		return nil, domain.ErrNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	item := entry.item
	return &item, nil
}

func (m *MemoryAdapter) ListItems(ctx context.Context, minStock int) ([]domain.Item, error) {
	m.mu.RLock()
	entries := make([]*memoryEntry, 0, len(m.items))
	for _, e := range m.items {
		entries = append(entries, e)
	}
	m.mu.RUnlock()

	var items []domain.Item
	for _, e := range entries {
		e.mu.Lock()
		item := e.item
		e.mu.Unlock()

		if minStock < 0 || item.Quantity >= minStock {
			items = append(items, item)
		}
	}
	return items, nil
}

func (m *MemoryAdapter) SetQuantity(ctx context.Context, id string, quantity int) error {
	entry := m.lookup(id)
	if entry == nil {
		return domain.ErrNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	entry.item.Quantity = quantity
	entry.item.Version++
	entry.item.UpdatedAt = time.Now()
	return nil
}

// TryDecrement holds the entry lock across the check and the subtraction,
// so concurrent decrements on one item serialize while other items proceed.
func (m *MemoryAdapter) TryDecrement(ctx context.Context, id string, amount int) (int, error) {
	entry := m.lookup(id)
	if entry == nil {
		return 0, domain.ErrNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.item.Quantity < amount {
		return 0, domain.ErrInsufficientStock
	}

	entry.item.Quantity -= amount
	entry.item.Version++
	entry.item.UpdatedAt = time.Now()
	return entry.item.Quantity, nil
}

func (m *MemoryAdapter) IncrementStock(ctx context.Context, id string, amount int) (int, error) {
	entry := m.lookup(id)
	if entry == nil {
		return 0, domain.ErrNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	entry.item.Quantity += amount
	entry.item.Version++
	entry.item.UpdatedAt = time.Now()
	return entry.item.Quantity, nil
}
