package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const (
	OrderStatusPending    = "pending"
	OrderStatusConfirmed  = "confirmed"
	OrderStatusProcessing = "processing"
	OrderStatusPackaging  = "packaging"
	OrderStatusOnDelivery = "on_delivery"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
)

// Statuses a customer may set on their own order.
var CustomerOrderStatuses = []string{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// Statuses an admin may set. Cancellation is customer-only.
var AdminOrderStatuses = []string{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusProcessing,
	OrderStatusPackaging,
	OrderStatusOnDelivery,
	OrderStatusDelivered,
}

func StatusAllowed(allowed []string, status string) bool {
	for _, s := range allowed {
		if s == status {
			return true
		}
	}
	return false
}

const (
	PaymentCOD        = "cod"
	PaymentGCash      = "gcash"
	PaymentCreditCard = "credit-card"

	PaymentStatusPending = "pending"
)

// CustomerSnapshot is the contact data captured at checkout. It is stored
// as JSONB on the order and never updated.
type CustomerSnapshot struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
}

func (c *CustomerSnapshot) Scan(src any) error {
	if src == nil {
		return fmt.Errorf("%w: customer: unexpected NULL", ErrMalformedColumn)
	}
	return scanJSON("customer", src, c)
}

func (c CustomerSnapshot) Value() (driver.Value, error) {
	return valueJSON(c)
}

const CustomizationDetailsVersion = 1

// CustomizationDetails freezes a proposal's design fields on an order item.
type CustomizationDetails struct {
	Version              int      `json:"version"`
	CustomizationRequest string   `json:"customization_request"`
	DesignerMessage      string   `json:"designer_message,omitempty"`
	Material             string   `json:"material,omitempty"`
	Features             []string `json:"features"`
	Category             string   `json:"category"`
}

func (d *CustomizationDetails) Scan(src any) error {
	if src == nil {
		*d = CustomizationDetails{}
		return nil
	}
	if err := scanJSON("customization_details", src, d); err != nil {
		return err
	}
	if d.Version != CustomizationDetailsVersion {
		return fmt.Errorf("%w: customization_details: unsupported version %d", ErrMalformedColumn, d.Version)
	}
	return nil
}

func (d CustomizationDetails) Value() (driver.Value, error) {
	return valueJSON(d)
}

type Order struct {
	ID             int64            `json:"id"`
	UserID         int64            `json:"user_id"`
	Subtotal       decimal.Decimal  `json:"subtotal"`
	ShippingFee    decimal.Decimal  `json:"shipping_fee"`
	DiscountAmount decimal.Decimal  `json:"discount_amount"`
	TotalAmount    decimal.Decimal  `json:"total_amount"`
	VoucherID      *int64           `json:"voucher_id"`
	VoucherCode    *string          `json:"voucher_code"`
	PaymentMethod  string           `json:"payment_method"`
	PaymentStatus  string           `json:"payment_status"`
	Status         string           `json:"status"`
	Customer       CustomerSnapshot `json:"customer"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
	Items          []OrderItem      `json:"items"`
	Voucher        *Voucher         `json:"voucher,omitempty"`
	User           *UserSummary     `json:"user,omitempty"`
}

type OrderItem struct {
	ID                   int64                 `json:"id"`
	OrderID              int64                 `json:"order_id"`
	ProductID            *int64                `json:"product_id"`
	CustomProposalID     *int64                `json:"custom_proposal_id"`
	IsCustomized         bool                  `json:"is_customized"`
	Name                 string                `json:"name"`
	Price                decimal.Decimal       `json:"price"`
	SizePrice            *decimal.Decimal      `json:"size_price"`
	Quantity             int                   `json:"quantity"`
	Size                 *string               `json:"size"`
	Image                string                `json:"image,omitempty"`
	CustomizationDetails *CustomizationDetails `json:"customization_details,omitempty"`
	CreatedAt            time.Time             `json:"created_at"`
	Product              *ProductSummary       `json:"product,omitempty"`
	CustomProposal       *ProposalSummary      `json:"custom_proposal,omitempty"`
}

// LineTotal is the item's contribution to the order subtotal.
func (i *OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
