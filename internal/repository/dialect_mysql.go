package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

var mysqlDialect = dialect{
	name: "mysql",
	inventoryDDL: []string{`
	CREATE TABLE IF NOT EXISTS inventory (
		id VARCHAR(50) NOT NULL PRIMARY KEY,
		name VARCHAR(100) NOT NULL,
		price DECIMAL(10,2) NOT NULL,
		quantity INT NOT NULL
	)`},
	salesLogDDL: []string{`
	CREATE TABLE IF NOT EXISTS sales_log (
		id INT AUTO_INCREMENT PRIMARY KEY,
		item_id VARCHAR(50),
		name VARCHAR(100),
		quantity_sold INT,
		timestamp DATETIME(6),
		INDEX idx_sales_log_timestamp (timestamp)
	)`},
	timestampColumn: "timestamp",
	lockSuffix:      " FOR UPDATE",
	isDuplicateKey: func(err error) bool {
		var myErr *mysql.MySQLError
		if errors.As(err, &myErr) {
			return myErr.Number == mysqlDuplicateEntry
		}
		return false
	},
}
