package store

import (
	"context"
	"fmt"

	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
)

type SendMessageRequest struct {
	SenderID       int64  `json:"-"`
	ReceiverID     int64  `json:"receiver_id" validate:"required,gt=0"`
	ConversationID *int64 `json:"conversation_id" validate:"omitempty,gt=0"`
	Message        string `json:"message" validate:"required,max=5000"`
}

func (s *Store) SendMessage(ctx context.Context, req SendMessageRequest) (*models.Message, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}

	msg, err := insertMessage(ctx, s.db, models.Message{
		ConversationID: req.ConversationID,
		SenderID:       req.SenderID,
		ReceiverID:     req.ReceiverID,
		Body:           req.Message,
	})
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return nil, database.ErrUserNotFound
		}
		return nil, err
	}
	return msg, nil
}

func insertMessage(ctx context.Context, q database.DBTX, m models.Message) (*models.Message, error) {
	err := q.QueryRowContext(ctx, `
		INSERT INTO messages (conversation_id, sender_id, receiver_id, body, custom_proposal_id, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id, created_at`,
		m.ConversationID, m.SenderID, m.ReceiverID, m.Body, m.CustomProposalID,
	).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	return &m, nil
}
