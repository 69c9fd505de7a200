package model

import "time"

// SalesLogEntry is an immutable record of a completed sale. Name is a copy of
// the item's name at sale time and ItemID may refer to an item that has
// since been deleted.
type SalesLogEntry struct {
	ID           int64     `db:"id" json:"id"`
	ItemID       string    `db:"item_id" json:"item_id"`
	Name         string    `db:"name" json:"name"`
	QuantitySold int       `db:"quantity_sold" json:"quantity_sold"`
	Timestamp    time.Time `db:"timestamp" json:"timestamp"`
}

// SaleReceipt describes the outcome of a successful sale.
type SaleReceipt struct {
	ItemID       string    `json:"item_id"`
	Name         string    `json:"name"`
	QuantitySold int       `json:"quantity_sold"`
	Remaining    int       `json:"remaining"`
	SoldAt       time.Time `json:"sold_at"`
}
