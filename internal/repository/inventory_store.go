package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"merch-inventory-dashboard/internal/model"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

// InventoryStore implements InventoryRepository.
type InventoryStore struct {
	store *Store
}

// List returns every inventory row.
func (r *InventoryStore) List(ctx context.Context) ([]model.InventoryItem, error) {
	items := []model.InventoryItem{}

	err := r.store.withConn(ctx, func(conn *sqlx.Conn) error {
		return sqlx.SelectContext(ctx, conn, &items, `SELECT id, name, price, quantity FROM inventory`)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list inventory: %w", err)
	}
	return items, nil
}

// Get returns the item with the given id, or nil if there is none.
func (r *InventoryStore) Get(ctx context.Context, id string) (*model.InventoryItem, error) {
	var item model.InventoryItem

	err := r.store.withConn(ctx, func(conn *sqlx.Conn) error {
		return sqlx.GetContext(ctx, conn, &item,
			r.store.rebind(`SELECT id, name, price, quantity FROM inventory WHERE id = ?`), id)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return &item, nil
}

// Add inserts item unless its id is already taken.
func (r *InventoryStore) Add(ctx context.Context, item model.InventoryItem) error {
	return r.store.withConn(ctx, func(conn *sqlx.Conn) error {
		_, err := withTx(ctx, conn, func(tx *sqlx.Tx) (struct{}, error) {
			var existing int
			err := tx.GetContext(ctx, &existing,
				r.store.rebind(`SELECT COUNT(*) FROM inventory WHERE id = ?`), item.ID)
			if err != nil {
				return struct{}{}, fmt.Errorf("failed to check item: %w", err)
			}
			if existing > 0 {
				return struct{}{}, fmt.Errorf("%w: %s", ErrDuplicateItem, item.ID)
			}

			_, err = tx.ExecContext(ctx,
				r.store.rebind(`INSERT INTO inventory (id, name, price, quantity) VALUES (?, ?, ?, ?)`),
				item.ID, item.Name, item.Price, item.Quantity)
			if err != nil {
				// Another writer inserted the same id between the check and the insert.
				if r.store.dialect.isDuplicateKey(err) {
					return struct{}{}, fmt.Errorf("%w: %s", ErrDuplicateItem, item.ID)
				}
				return struct{}{}, fmt.Errorf("failed to insert item: %w", err)
			}
			return struct{}{}, nil
		})
		return err
	})
}

// Update overwrites name, price and quantity of the item with item.ID.
func (r *InventoryStore) Update(ctx context.Context, item model.InventoryItem) error {
	return r.store.withConn(ctx, func(conn *sqlx.Conn) error {
		result, err := conn.ExecContext(ctx,
			r.store.rebind(`UPDATE inventory SET name = ?, price = ?, quantity = ? WHERE id = ?`),
			item.Name, item.Price, item.Quantity, item.ID)
		if err != nil {
			return fmt.Errorf("failed to update item: %w", err)
		}
		return requireAffected(result, item.ID)
	})
}

// Delete removes the item with the given id.
func (r *InventoryStore) Delete(ctx context.Context, id string) error {
	return r.store.withConn(ctx, func(conn *sqlx.Conn) error {
		result, err := conn.ExecContext(ctx, r.store.rebind(`DELETE FROM inventory WHERE id = ?`), id)
		if err != nil {
			return fmt.Errorf("failed to delete item: %w", err)
		}
		return requireAffected(result, id)
	})
}

// Sell reads the item under lock, checks stock, decrements it with a
// guarded UPDATE and appends the sales log entry. All of it commits
// together or not at all.
func (r *InventoryStore) Sell(ctx context.Context, id string, quantity int, soldAt time.Time) (*model.SaleReceipt, error) {
	var receipt *model.SaleReceipt

	err := r.store.withConn(ctx, func(conn *sqlx.Conn) error {
		var err error
		receipt, err = withTx(ctx, conn, func(tx *sqlx.Tx) (*model.SaleReceipt, error) {
			var item model.InventoryItem
			err := tx.GetContext(ctx, &item,
				r.store.rebind(`SELECT id, name, price, quantity FROM inventory WHERE id = ?`+r.store.dialect.lockSuffix), id)
			if errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("%w: %s", ErrItemNotFound, id)
			}
			if err != nil {
				return nil, fmt.Errorf("failed to read item: %w", err)
			}

			if item.Quantity < quantity {
				return nil, fmt.Errorf("%w: %s has %d, requested %d", ErrInsufficientStock, id, item.Quantity, quantity)
			}

			result, err := tx.ExecContext(ctx,
				r.store.rebind(`UPDATE inventory SET quantity = quantity - ? WHERE id = ? AND quantity >= ?`),
				quantity, id, quantity)
			if err != nil {
				return nil, fmt.Errorf("failed to decrement stock: %w", err)
			}
			rows, err := result.RowsAffected()
			if err != nil {
				return nil, fmt.Errorf("failed to decrement stock: %w", err)
			}
			if rows == 0 {
				return nil, fmt.Errorf("%w: %s", ErrInsufficientStock, id)
			}

			_, err = tx.ExecContext(ctx,
				r.store.rebind(fmt.Sprintf(
					`INSERT INTO sales_log (item_id, name, quantity_sold, %s) VALUES (?, ?, ?, ?)`,
					r.store.dialect.timestampColumn)),
				id, item.Name, quantity, soldAt)
			if err != nil {
				return nil, fmt.Errorf("failed to log sale: %w", err)
			}

			return &model.SaleReceipt{
				ItemID:       id,
				Name:         item.Name,
				QuantitySold: quantity,
				Remaining:    item.Quantity - quantity,
				SoldAt:       soldAt,
			}, nil
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"component": "store",
		"item_id":   id,
		"quantity":  quantity,
		"remaining": receipt.Remaining,
	}).Debug("sale committed")

	return receipt, nil
}

// requireAffected maps a statement that matched no rows to ErrItemNotFound.
func requireAffected(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}
	return nil
}

// Ensure InventoryStore implements InventoryRepository
var _ InventoryRepository = (*InventoryStore)(nil)
