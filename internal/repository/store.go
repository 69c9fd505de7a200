package repository

import (
	"context"
	"database/sql"
	"fmt"

	"merch-inventory-dashboard/internal/config"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

// Store owns the connection pool shared by InventoryStore and SalesLogStore.
// Every repository operation checks out its own connection and returns it
// before the call completes.
type Store struct {
	db              *sqlx.DB
	dialect         dialect
	createInventory bool
}

// Open connects to the database described by cfg and verifies the
// connection.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	d, err := dialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(cfg.DriverName(), cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", d.name, err)
	}

	maxOpen := cfg.MaxOpenConns
	maxIdle := cfg.MaxIdleConns
	if d.maxOpenConns > 0 {
		maxOpen = d.maxOpenConns
		maxIdle = d.maxOpenConns
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", d.name, err)
	}

	logrus.WithFields(logrus.Fields{
		"component": "store",
		"driver":    d.name,
		"max_open":  maxOpen,
	}).Info("database connection established")

	return &Store{db: db, dialect: d, createInventory: cfg.CreateInventory}, nil
}

// EnsureSchema creates sales_log if it is absent. The inventory table is
// only created when the store was opened with CreateInventory.
func (s *Store) EnsureSchema(ctx context.Context) error {
	stmts := s.dialect.salesLogDDL
	if s.createInventory {
		stmts = append(append([]string{}, s.dialect.inventoryDDL...), stmts...)
	}

	return s.withConn(ctx, func(conn *sqlx.Conn) error {
		for _, stmt := range stmts {
			if _, err := conn.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("failed to create tables: %w", err)
			}
		}
		return nil
	})
}

// Inventory returns the inventory repository backed by this store.
func (s *Store) Inventory() *InventoryStore {
	return &InventoryStore{store: s}
}

// SalesLog returns the sales log repository backed by this store.
func (s *Store) SalesLog() *SalesLogStore {
	return &SalesLogStore{store: s}
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Driver returns the dialect name.
func (s *Store) Driver() string {
	return s.dialect.name
}

// Stats returns row counts and connection pool statistics.
func (s *Store) Stats(ctx context.Context) (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	err := s.withConn(ctx, func(conn *sqlx.Conn) error {
		var items, sales int64
		if err := conn.QueryRowxContext(ctx, "SELECT COUNT(*) FROM inventory").Scan(&items); err != nil {
			return fmt.Errorf("failed to count inventory: %w", err)
		}
		if err := conn.QueryRowxContext(ctx, "SELECT COUNT(*) FROM sales_log").Scan(&sales); err != nil {
			return fmt.Errorf("failed to count sales: %w", err)
		}
		stats["inventory_items"] = items
		stats["sales_log_entries"] = sales
		return nil
	})
	if err != nil {
		return nil, err
	}

	dbStats := s.db.Stats()
	stats["driver"] = s.dialect.name
	stats["connections"] = map[string]interface{}{
		"open":     dbStats.OpenConnections,
		"in_use":   dbStats.InUse,
		"idle":     dbStats.Idle,
		"max_open": dbStats.MaxOpenConnections,
	}

	return stats, nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// withConn checks out a connection for the duration of fn.
func (s *Store) withConn(ctx context.Context, fn func(conn *sqlx.Conn) error) error {
	conn, err := s.db.Connx(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Close()

	return fn(conn)
}

// withTx runs fn in a transaction on conn. The transaction is committed when
// fn returns nil and rolled back otherwise, including on panic.
func withTx[T any](ctx context.Context, conn *sqlx.Conn, fn func(tx *sqlx.Tx) (T, error)) (res T, err error) {
	tx, err := conn.BeginTxx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}

		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
				err = fmt.Errorf("tx failed: %w, rollback failed: %v", err, rbErr)
			}
			return
		}

		if err = tx.Commit(); err != nil {
			err = fmt.Errorf("failed to commit transaction: %w", err)
		}
	}()

	res, err = fn(tx)
	return res, err
}

// rebind converts ? placeholders for the store's driver.
func (s *Store) rebind(query string) string {
	return s.db.Rebind(query)
}
