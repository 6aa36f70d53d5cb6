package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item is a catalog record. Quantity is the only field the ledger mutates;
// name, description and price are carried along untouched.
type Item struct {
	ID          string
	Name        string
	Description string
	Price       decimal.Decimal
	Quantity    int
	Version     int // optimistic locking
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
