package models

import "time"

type Message struct {
	ID               int64     `json:"id"`
	ConversationID   *int64    `json:"conversation_id,omitempty"`
	SenderID         int64     `json:"sender_id"`
	ReceiverID       int64     `json:"receiver_id"`
	Body             string    `json:"message"`
	CustomProposalID *int64    `json:"custom_proposal_id,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}
