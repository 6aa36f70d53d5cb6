package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rl1809/stock-ledger/internal/core/domain"
)

type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

// CreateOrder inserts the order and decrements the durable inventory row in
// one transaction. The UPDATE is conditional on sufficient stock; zero rows
// affected means the precondition failed and nothing is committed.
func (m *MySQLAdapter) CreateOrder(ctx context.Context, order domain.Order) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, item_id, user_id, quantity, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		order.ID, order.ItemID, order.UserID, order.Quantity, order.Status,
		order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE inventory
		SET stock = stock - ?, version = version + 1, updated_at = NOW()
		WHERE item_id = ? AND stock >= ?`,
		order.Quantity, order.ItemID, order.Quantity,
	)
	if err != nil {
		return fmt.Errorf("update inventory: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return m.classifyMiss(ctx, tx, order.ItemID)
	}

	return tx.Commit()
}

// classifyMiss tells an absent inventory row apart from one with too little
// stock, so the caller can report the two differently.
func (m *MySQLAdapter) classifyMiss(ctx context.Context, tx *sql.Tx, itemID string) error {
	var stock int
	err := tx.QueryRowContext(ctx,
		`SELECT stock FROM inventory WHERE item_id = ?`, itemID,
	).Scan(&stock)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("query inventory: %w", err)
	}
	return domain.ErrInsufficientStock
}

func (m *MySQLAdapter) GetInventory(ctx context.Context, itemID string) (int, error) {
	var stock int
	err := m.db.QueryRowContext(ctx, `
		SELECT stock FROM inventory WHERE item_id = ?`, itemID,
	).Scan(&stock)

	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("query inventory: %w", err)
	}
	return stock, nil
}

func (m *MySQLAdapter) UpsertInventory(ctx context.Context, itemID string, quantity int) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO inventory (item_id, stock, version) VALUES (?, ?, 0)
		ON DUPLICATE KEY UPDATE stock = VALUES(stock), version = version + 1`,
		itemID, quantity,
	)
	if err != nil {
		return fmt.Errorf("upsert inventory: %w", err)
	}
	return nil
}
