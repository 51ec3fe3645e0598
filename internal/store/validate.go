package store

import (
	"github.com/go-playground/validator/v10"

	"github.com/safar/storefront/internal/validation"
)

func newValidator() *validation.Validator {
	v := validation.New()
	v.RegisterStructRule(orderItemRule, OrderItemRequest{})
	v.RegisterStructRule(placeOrderRule, PlaceOrderRequest{})
	v.RegisterStructRule(cartItemRule, AddCartItemRequest{})
	v.RegisterStructRule(proposalRule, CreateProposalRequest{})
	v.RegisterMessage("exactly_one_source", "exactly one of product_id or custom_proposal_id is required")
	v.RegisterMessage("customized_proposal", "must be true for custom proposal items")
	v.RegisterMessage("plain_product", "must be false for catalog products")
	return v
}

// orderItemRule requires exactly one source per line and an is_customized
// flag that agrees with it.
func orderItemRule(sl validator.StructLevel) {
	item := sl.Current().Interface().(OrderItemRequest)

	hasProduct := item.ProductID != nil
	hasProposal := item.CustomProposalID != nil

	switch {
	case hasProduct == hasProposal:
		sl.ReportError(item.ProductID, "product_id", "ProductID", "exactly_one_source", "")
	case hasProposal && !item.IsCustomized:
		sl.ReportError(item.IsCustomized, "is_customized", "IsCustomized", "customized_proposal", "")
	case hasProduct && item.IsCustomized:
		sl.ReportError(item.IsCustomized, "is_customized", "IsCustomized", "plain_product", "")
	}
}

func placeOrderRule(sl validator.StructLevel) {
	req := sl.Current().Interface().(PlaceOrderRequest)
	if req.ShippingFee != nil && req.ShippingFee.IsNegative() {
		sl.ReportError(req.ShippingFee, "shipping_fee", "ShippingFee", "gte", "0")
	}
}

func proposalRule(sl validator.StructLevel) {
	req := sl.Current().Interface().(CreateProposalRequest)
	if !req.TotalPrice.IsPositive() {
		sl.ReportError(req.TotalPrice, "total_price", "TotalPrice", "gt", "0")
	}
}
