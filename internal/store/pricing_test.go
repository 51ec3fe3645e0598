package store

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/safar/storefront/internal/models"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func strPtr(s string) *string { return &s }

var decimalEqual = cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })

func TestPriceProductItem(t *testing.T) {
	sized := &models.Product{
		Price:          dec("100"),
		AvailableSizes: models.StringList{"S", "M", "L"},
		Prices:         models.DecimalList{dec("90"), dec("100"), dec("120")},
	}
	mismatched := &models.Product{
		Price:          dec("100"),
		AvailableSizes: models.StringList{"S", "M"},
		Prices:         models.DecimalList{dec("90")},
	}

	tests := []struct {
		name          string
		product       *models.Product
		item          OrderItemRequest
		wantUnit      decimal.Decimal
		wantSizePrice *decimal.Decimal
	}{
		{
			name:     "base price without size",
			product:  sized,
			item:     OrderItemRequest{Quantity: 1},
			wantUnit: dec("100"),
		},
		{
			name:          "size table price",
			product:       sized,
			item:          OrderItemRequest{Quantity: 1, Size: strPtr("L")},
			wantUnit:      dec("120"),
			wantSizePrice: decPtr("120"),
		},
		{
			name:          "unknown size falls back to base",
			product:       sized,
			item:          OrderItemRequest{Quantity: 1, Size: strPtr("XXL")},
			wantUnit:      dec("100"),
			wantSizePrice: decPtr("100"),
		},
		{
			name:          "parallel lists of different length are ignored",
			product:       mismatched,
			item:          OrderItemRequest{Quantity: 1, Size: strPtr("S")},
			wantUnit:      dec("100"),
			wantSizePrice: decPtr("100"),
		},
		{
			name:          "positive client price overrides",
			product:       sized,
			item:          OrderItemRequest{Quantity: 1, Size: strPtr("L"), Price: decPtr("110"), SizePrice: decPtr("115")},
			wantUnit:      dec("110"),
			wantSizePrice: decPtr("115"),
		},
		{
			name:     "non-positive client price is ignored",
			product:  sized,
			item:     OrderItemRequest{Quantity: 1, Price: decPtr("0")},
			wantUnit: dec("100"),
		},
		{
			name: "zero size price falls back to base",
			product: &models.Product{
				Price:          dec("80"),
				AvailableSizes: models.StringList{"M"},
				Prices:         models.DecimalList{dec("0")},
			},
			item:          OrderItemRequest{Quantity: 1, Size: strPtr("M")},
			wantUnit:      dec("80"),
			wantSizePrice: decPtr("0"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unit, sizePrice := priceProductItem(tt.product, tt.item)

			assert.True(t, tt.wantUnit.Equal(unit), "unit: want %s, got %s", tt.wantUnit, unit)
			if diff := cmp.Diff(tt.wantSizePrice, sizePrice, decimalEqual); diff != "" {
				t.Errorf("size price mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPriceProposalItem(t *testing.T) {
	apparel := &models.CustomProposal{Category: models.CategoryApparel, TotalPrice: dec("1500")}
	gear := &models.CustomProposal{Category: models.CategoryGear, TotalPrice: dec("900")}

	unit, sizePrice := priceProposalItem(apparel, OrderItemRequest{Size: strPtr("M")})
	assert.True(t, dec("1500").Equal(unit))
	if assert.NotNil(t, sizePrice) {
		assert.True(t, unit.Equal(*sizePrice))
	}

	unit, sizePrice = priceProposalItem(apparel, OrderItemRequest{Price: decPtr("1200"), Size: strPtr("M")})
	assert.True(t, dec("1200").Equal(unit))
	assert.True(t, dec("1200").Equal(*sizePrice))

	unit, sizePrice = priceProposalItem(gear, OrderItemRequest{Size: strPtr("M")})
	assert.True(t, dec("900").Equal(unit))
	assert.Nil(t, sizePrice)
}

func TestVoucherDiscountAndTotal(t *testing.T) {
	tests := []struct {
		subtotal, shipping string
		percent            int
		wantDiscount       string
		wantTotal          string
	}{
		{"250.00", "50", 10, "25.00", "275.00"},
		{"99.99", "0", 15, "15.00", "84.99"},
		{"10.05", "0", 50, "5.03", "5.02"},
		{"40", "0", 100, "40", "0"},
		{"0", "0", 30, "0", "0"},
	}

	for _, tt := range tests {
		discount := voucherDiscount(dec(tt.subtotal), tt.percent)
		total := orderTotal(dec(tt.subtotal), dec(tt.shipping), discount)

		assert.True(t, dec(tt.wantDiscount).Equal(discount), "discount for %s at %d%%: got %s", tt.subtotal, tt.percent, discount)
		assert.True(t, dec(tt.wantTotal).Equal(total), "total for %s: got %s", tt.subtotal, total)
	}
}

func TestOrderTotalNeverNegative(t *testing.T) {
	total := orderTotal(dec("10"), dec("0"), dec("25"))
	assert.True(t, total.IsZero())
}

func TestCallerAmountsAreRoundedToCents(t *testing.T) {
	product := &models.Product{Price: dec("100")}

	unit, sizePrice := priceProductItem(product, OrderItemRequest{
		Price:     decPtr("0.335"),
		SizePrice: decPtr("12.345"),
		Quantity:  3,
	})
	assert.True(t, dec("0.34").Equal(unit), "unit: got %s", unit)
	if assert.NotNil(t, sizePrice) {
		assert.True(t, dec("12.35").Equal(*sizePrice), "size price: got %s", sizePrice)
	}

	item := models.OrderItem{Price: unit, Quantity: 3}
	assert.True(t, dec("1.02").Equal(item.LineTotal()))

	shipping := shippingFee(decPtr("0.004"))
	assert.True(t, shipping.IsZero(), "shipping: got %s", shipping)

	total := orderTotal(item.LineTotal(), shipping, decimal.Zero)
	assert.True(t, total.Equal(total.Round(2)))
	assert.True(t, dec("1.02").Equal(total))

	// A client price that rounds to nothing falls back to the catalog price.
	unit, _ = priceProductItem(product, OrderItemRequest{Price: decPtr("0.004"), Quantity: 1})
	assert.True(t, dec("100").Equal(unit), "unit: got %s", unit)

	proposal := &models.CustomProposal{Category: models.CategoryGear, TotalPrice: dec("900")}
	unit, _ = priceProposalItem(proposal, OrderItemRequest{Price: decPtr("19.999")})
	assert.True(t, dec("20.00").Equal(unit), "proposal unit: got %s", unit)
}
