package repository

import (
	"errors"

	"github.com/lib/pq"
)

// pgUniqueViolation is the SQLSTATE for duplicate keys.
const pgUniqueViolation = "23505"

var postgresDialect = dialect{
	name: "postgres",
	inventoryDDL: []string{`
	CREATE TABLE IF NOT EXISTS inventory (
		id VARCHAR(50) PRIMARY KEY,
		name VARCHAR(100) NOT NULL,
		price NUMERIC(10,2) NOT NULL,
		quantity INTEGER NOT NULL
	)`},
	salesLogDDL: []string{`
	CREATE TABLE IF NOT EXISTS sales_log (
		id BIGSERIAL PRIMARY KEY,
		item_id VARCHAR(50),
		name VARCHAR(100),
		quantity_sold INTEGER,
		"timestamp" TIMESTAMPTZ
	)`,
		`CREATE INDEX IF NOT EXISTS idx_sales_log_timestamp ON sales_log("timestamp")`,
	},
	timestampColumn: `"timestamp"`,
	lockSuffix:      " FOR UPDATE",
	isDuplicateKey: func(err error) bool {
		var pgErr *pq.Error
		if errors.As(err, &pgErr) {
			return pgErr.Code == pq.ErrorCode(pgUniqueViolation)
		}
		return false
	},
}
