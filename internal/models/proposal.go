package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	CategoryApparel   = "apparel"
	CategoryAccessory = "accessory"
	CategoryGear      = "gear"
)

const (
	ProposalStatusPending = "pending"
	ProposalStatusOrdered = "ordered"
)

// CustomProposal is a clerk-quoted design addressed to one customer.
type CustomProposal struct {
	ID                   int64           `json:"id"`
	Name                 string          `json:"name"`
	CustomerID           int64           `json:"customer_id"`
	ClerkID              int64           `json:"clerk_id"`
	ConversationID       *int64          `json:"conversation_id,omitempty"`
	CustomizationRequest string          `json:"customization_request"`
	DesignerMessage      string          `json:"designer_message,omitempty"`
	Material             string          `json:"material,omitempty"`
	Features             StringList      `json:"features"`
	Images               StringList      `json:"images"`
	Category             string          `json:"category"`
	TotalPrice           decimal.Decimal `json:"total_price"`
	Status               string          `json:"status"`
	OrderID              *int64          `json:"order_id,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

func ValidCategory(c string) bool {
	switch c {
	case CategoryApparel, CategoryAccessory, CategoryGear:
		return true
	}
	return false
}

// Snapshot captures the customization fields as they are at order time.
func (p *CustomProposal) Snapshot() *CustomizationDetails {
	return &CustomizationDetails{
		Version:              CustomizationDetailsVersion,
		CustomizationRequest: p.CustomizationRequest,
		DesignerMessage:      p.DesignerMessage,
		Material:             p.Material,
		Features:             append([]string(nil), p.Features...),
		Category:             p.Category,
	}
}

// ProposalSummary is the proposal snapshot eager-loaded on order items.
type ProposalSummary struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Status   string `json:"status"`
}
