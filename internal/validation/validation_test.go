package validation

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type line struct {
	SKU      string `json:"sku" validate:"required"`
	Quantity int    `json:"quantity" validate:"min=1"`
}

type checkout struct {
	Secret string `json:"-" validate:"required"`
	Email  string `json:"email" validate:"required,email"`
	Lines  []line `json:"lines" validate:"required,min=1,dive"`
	Note   string `json:"note" validate:"max=5"`
}

func TestStructReportsJSONPaths(t *testing.T) {
	v := New()

	err := v.Struct(checkout{
		Email: "bad",
		Lines: []line{{SKU: "A", Quantity: 1}, {Quantity: 0}},
		Note:  "too long",
	})

	var verr *Error
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, map[string]string{
		"Secret":            "is required",
		"email":             "must be a valid email address",
		"lines[1].sku":      "is required",
		"lines[1].quantity": "must be at least 1",
		"note":              "must be at most 5",
	}, verr.Fields)
}

func TestStructRuleAndMessage(t *testing.T) {
	v := New()
	v.RegisterMessage("same_sku", "must differ from the first line")
	v.RegisterStructRule(func(sl validator.StructLevel) {
		c := sl.Current().Interface().(checkout)
		if len(c.Lines) == 2 && c.Lines[0].SKU == c.Lines[1].SKU {
			sl.ReportError(c.Lines, "lines", "Lines", "same_sku", "")
		}
	}, checkout{})

	err := v.Struct(checkout{
		Secret: "x",
		Email:  "a@b.co",
		Lines:  []line{{SKU: "A", Quantity: 1}, {SKU: "A", Quantity: 1}},
	})

	var verr *Error
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "must differ from the first line", verr.Fields["lines"])
}

func TestErrorHelpers(t *testing.T) {
	err := fmt.Errorf("place order: %w", Field("status", "invalid order status"))

	assert.True(t, IsValidationError(err))
	assert.False(t, IsValidationError(errors.New("boom")))
	assert.Equal(t, "validation failed: status: invalid order status", Field("status", "invalid order status").Error())
}
