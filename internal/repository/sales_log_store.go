package repository

import (
	"context"
	"fmt"

	"merch-inventory-dashboard/internal/model"

	"github.com/jmoiron/sqlx"
)

// SalesLogStore implements SalesLogRepository.
type SalesLogStore struct {
	store *Store
}

// List returns every sales log entry, most recent first. Entries written
// in the same instant keep insertion order reversed.
func (r *SalesLogStore) List(ctx context.Context) ([]model.SalesLogEntry, error) {
	ts := r.store.dialect.timestampColumn
	query := fmt.Sprintf(
		`SELECT id, item_id, name, quantity_sold, %s AS timestamp FROM sales_log ORDER BY %s DESC, id DESC`,
		ts, ts)

	entries := []model.SalesLogEntry{}
	err := r.store.withConn(ctx, func(conn *sqlx.Conn) error {
		return sqlx.SelectContext(ctx, conn, &entries, query)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list sales log: %w", err)
	}
	return entries, nil
}

// Ensure SalesLogStore implements SalesLogRepository
var _ SalesLogRepository = (*SalesLogStore)(nil)
