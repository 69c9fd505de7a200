package repository

import (
	"errors"

	"modernc.org/sqlite" // Pure Go SQLite driver - no CGO required
	sqlite3 "modernc.org/sqlite/lib"
)

var sqliteDialect = dialect{
	name: "sqlite",
	inventoryDDL: []string{`
	CREATE TABLE IF NOT EXISTS inventory (
		id TEXT NOT NULL PRIMARY KEY,
		name TEXT NOT NULL,
		price DECIMAL(10,2) NOT NULL,
		quantity INTEGER NOT NULL
	)`},
	salesLogDDL: []string{`
	CREATE TABLE IF NOT EXISTS sales_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		item_id TEXT,
		name TEXT,
		quantity_sold INTEGER,
		timestamp DATETIME
	)`,
		`CREATE INDEX IF NOT EXISTS idx_sales_log_timestamp ON sales_log(timestamp)`,
	},
	timestampColumn: "timestamp",
	// Row locks do not exist; the DSN opens transactions with BEGIN IMMEDIATE.
	lockSuffix: "",
	// SQLite only supports 1 writer
	maxOpenConns: 1,
	isDuplicateKey: func(err error) bool {
		var liteErr *sqlite.Error
		if errors.As(err, &liteErr) {
			code := liteErr.Code()
			return code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY || code == sqlite3.SQLITE_CONSTRAINT_UNIQUE
		}
		return false
	},
}
