package store

import (
	"github.com/shopspring/decimal"

	"github.com/safar/storefront/internal/models"
)

var hundred = decimal.NewFromInt(100)

// cents rounds to the scale of every money column.
func cents(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// callerAmount reports a client supplied amount in cents when it is still
// positive after rounding.
func callerAmount(d *decimal.Decimal) (decimal.Decimal, bool) {
	if d == nil {
		return decimal.Zero, false
	}
	c := cents(*d)
	return c, c.IsPositive()
}

// shippingFee is the requested fee in cents, zero when absent.
func shippingFee(fee *decimal.Decimal) decimal.Decimal {
	if fee == nil {
		return decimal.Zero
	}
	return cents(*fee)
}

func sizeOf(item OrderItemRequest) string {
	if item.Size == nil {
		return ""
	}
	return *item.Size
}

// priceProductItem resolves the unit price charged for a catalog product.
// The size table wins over the base price; positive client values win over
// both; a non-positive result falls back to the base price. Amounts are
// returned in cents.
func priceProductItem(p *models.Product, item OrderItemRequest) (decimal.Decimal, *decimal.Decimal) {
	unit := cents(p.Price)
	var sizePrice *decimal.Decimal

	size := sizeOf(item)
	if sp, ok := p.SizePrice(size); ok {
		sp = cents(sp)
		unit = sp
		sizePrice = &sp
	}

	if price, ok := callerAmount(item.Price); ok {
		unit = price
	}
	if sp, ok := callerAmount(item.SizePrice); ok {
		sizePrice = &sp
	}

	if !unit.IsPositive() {
		unit = cents(p.Price)
	}
	if sizePrice == nil && size != "" {
		sp := unit
		sizePrice = &sp
	}

	return unit, sizePrice
}

// priceProposalItem resolves the unit price charged for a custom proposal.
// Apparel ordered in a size records the unit price as its size price.
func priceProposalItem(p *models.CustomProposal, item OrderItemRequest) (decimal.Decimal, *decimal.Decimal) {
	unit := cents(p.TotalPrice)
	if price, ok := callerAmount(item.Price); ok {
		unit = price
	}

	var sizePrice *decimal.Decimal
	if p.Category == models.CategoryApparel && sizeOf(item) != "" {
		sp := unit
		sizePrice = &sp
	}

	return unit, sizePrice
}

// voucherDiscount is percent of subtotal rounded half away from zero to cents.
func voucherDiscount(subtotal decimal.Decimal, percent int) decimal.Decimal {
	return subtotal.Mul(decimal.NewFromInt(int64(percent))).Div(hundred).Round(2)
}

// orderTotal never goes below zero.
func orderTotal(subtotal, shipping, discount decimal.Decimal) decimal.Decimal {
	total := subtotal.Add(shipping).Sub(discount)
	if total.IsNegative() {
		return decimal.Zero
	}
	return total
}
