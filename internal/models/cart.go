package models

import "time"

type CartItem struct {
	ID               int64     `json:"id"`
	UserID           int64     `json:"user_id"`
	ProductID        *int64    `json:"product_id,omitempty"`
	CustomProposalID *int64    `json:"custom_proposal_id,omitempty"`
	Quantity         int       `json:"quantity"`
	Size             *string   `json:"size,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}
