package service

import (
	"strings"

	"github.com/shopspring/decimal"

	"merch-inventory-dashboard/internal/model"
)

// Summary holds the inventory view's headline figures.
type Summary struct {
	Items            int             `json:"items"`
	TotalQuantity    int             `json:"total_quantity"`
	PotentialRevenue decimal.Decimal `json:"potential_revenue"`
	OutOfStock       int             `json:"out_of_stock"`
}

// Summarize computes total quantity, potential revenue and the number of
// out-of-stock items.
func Summarize(items []model.InventoryItem) Summary {
	sum := Summary{Items: len(items), PotentialRevenue: decimal.Zero}
	for _, item := range items {
		sum.TotalQuantity += item.Quantity
		sum.PotentialRevenue = sum.PotentialRevenue.Add(item.StockValue())
		if item.OutOfStock() {
			sum.OutOfStock++
		}
	}
	return sum
}

// NameQuantity is one bar of the quantity-by-name chart.
type NameQuantity struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// Dashboard holds the dashboard view's figures.
type Dashboard struct {
	TotalValue   decimal.Decimal `json:"total_value"`
	Distribution []NameQuantity  `json:"distribution"`
	MaxQuantity  int             `json:"max_quantity"`
}

// Empty reports whether there is nothing to chart.
func (d Dashboard) Empty() bool {
	return len(d.Distribution) == 0
}

// BuildDashboard computes the total inventory value and the quantity held
// per item name. Items sharing a name are added together; names keep the
// order in which they first appear.
func BuildDashboard(items []model.InventoryItem) Dashboard {
	d := Dashboard{TotalValue: decimal.Zero}
	index := make(map[string]int, len(items))
	for _, item := range items {
		d.TotalValue = d.TotalValue.Add(item.StockValue())

		i, ok := index[item.Name]
		if !ok {
			i = len(d.Distribution)
			index[item.Name] = i
			d.Distribution = append(d.Distribution, NameQuantity{Name: item.Name})
		}
		d.Distribution[i].Quantity += item.Quantity
	}
	for _, bar := range d.Distribution {
		if bar.Quantity > d.MaxQuantity {
			d.MaxQuantity = bar.Quantity
		}
	}
	return d
}

// Search keeps items whose name contains term ignoring case, or whose id
// contains term exactly. An empty term keeps everything.
func Search(items []model.InventoryItem, term string) []model.InventoryItem {
	if term == "" {
		return items
	}
	lower := strings.ToLower(term)
	filtered := make([]model.InventoryItem, 0, len(items))
	for _, item := range items {
		if strings.Contains(strings.ToLower(item.Name), lower) || strings.Contains(item.ID, term) {
			filtered = append(filtered, item)
		}
	}
	return filtered
}
