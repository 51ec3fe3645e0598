package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog entry. AvailableSizes and Prices are parallel lists;
// size pricing only applies when both have the same length.
type Product struct {
	ID             int64           `json:"id"`
	Name           string          `json:"name"`
	Description    string          `json:"description,omitempty"`
	Price          decimal.Decimal `json:"price"`
	Image          string          `json:"image,omitempty"`
	AvailableSizes StringList      `json:"available_sizes"`
	Prices         DecimalList     `json:"prices"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// SizePrice returns the price listed for size, if the product has one.
func (p *Product) SizePrice(size string) (decimal.Decimal, bool) {
	if size == "" || len(p.AvailableSizes) != len(p.Prices) {
		return decimal.Zero, false
	}
	for i, s := range p.AvailableSizes {
		if s == size {
			return p.Prices[i], true
		}
	}
	return decimal.Zero, false
}

// ProductSummary is the product snapshot eager-loaded on order items.
type ProductSummary struct {
	ID    int64           `json:"id"`
	Name  string          `json:"name"`
	Image string          `json:"image,omitempty"`
	Price decimal.Decimal `json:"price"`
}
