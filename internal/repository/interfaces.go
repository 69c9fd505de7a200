package repository

import (
	"context"
	"errors"
	"time"

	"merch-inventory-dashboard/internal/model"
)

var (
	// ErrDuplicateItem is returned by Add when the id is already taken.
	ErrDuplicateItem = errors.New("item id already exists")

	// ErrItemNotFound is returned when no inventory row matches the id.
	ErrItemNotFound = errors.New("item not found")

	// ErrInsufficientStock is returned by Sell when fewer units are on hand
	// than requested.
	ErrInsufficientStock = errors.New("insufficient stock")
)

// InventoryRepository defines inventory data access methods.
type InventoryRepository interface {
	// List returns every item in the storage engine's default order.
	List(ctx context.Context) ([]model.InventoryItem, error)

	// Get returns the item with the given id, or nil if there is none.
	Get(ctx context.Context, id string) (*model.InventoryItem, error)

	// Add inserts a new item. Returns ErrDuplicateItem if the id exists.
	Add(ctx context.Context, item model.InventoryItem) error

	// Update overwrites name, price and quantity. Returns ErrItemNotFound
	// if no row matched.
	Update(ctx context.Context, item model.InventoryItem) error

	// Delete removes the item. Returns ErrItemNotFound if no row matched.
	Delete(ctx context.Context, id string) error

	// Sell decrements the quantity and appends a sales log entry in one
	// transaction. Neither write is applied unless both are.
	Sell(ctx context.Context, id string, quantity int, soldAt time.Time) (*model.SaleReceipt, error)
}

// SalesLogRepository defines read access to the sales log.
type SalesLogRepository interface {
	// List returns all entries, most recent first.
	List(ctx context.Context) ([]model.SalesLogEntry, error)
}
