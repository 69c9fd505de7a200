package repository

import (
	"fmt"

	"merch-inventory-dashboard/internal/config"
)

// dialect captures what differs between the supported SQL engines.
// Queries are written with ? placeholders and rebound by sqlx.
type dialect struct {
	name string

	// inventoryDDL creates the inventory table; only run when configured.
	inventoryDDL []string
	// salesLogDDL creates the sales_log table and its index.
	salesLogDDL []string

	// timestampColumn is the sales_log.timestamp column as it must be
	// written in queries.
	timestampColumn string

	// lockSuffix is appended to the row read in Sell.
	lockSuffix string

	// maxOpenConns overrides the configured pool size when non-zero.
	maxOpenConns int

	isDuplicateKey func(err error) bool
}

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case config.DriverMySQL:
		return mysqlDialect, nil
	case config.DriverPostgres:
		return postgresDialect, nil
	case config.DriverSQLite:
		return sqliteDialect, nil
	default:
		return dialect{}, fmt.Errorf("unsupported database driver %q", driver)
	}
}
