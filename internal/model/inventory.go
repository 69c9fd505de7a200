package model

import "github.com/shopspring/decimal"

// InventoryItem is a unit of merchandise tracked by id, name, price and
// quantity on hand. The id is assigned by the caller.
type InventoryItem struct {
	ID       string          `db:"id" json:"id"`
	Name     string          `db:"name" json:"name"`
	Price    decimal.Decimal `db:"price" json:"price"`
	Quantity int             `db:"quantity" json:"quantity"`
}

// StockValue returns price * quantity.
func (i InventoryItem) StockValue() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// OutOfStock reports whether no units are left.
func (i InventoryItem) OutOfStock() bool {
	return i.Quantity == 0
}
