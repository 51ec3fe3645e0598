package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
)

type CreateProposalRequest struct {
	ClerkID              int64           `json:"-"`
	CustomerID           int64           `json:"customer_id" validate:"required,gt=0"`
	ConversationID       *int64          `json:"conversation_id" validate:"omitempty,gt=0"`
	Name                 string          `json:"name" validate:"required,max=255"`
	CustomizationRequest string          `json:"customization_request" validate:"required"`
	DesignerMessage      string          `json:"designer_message"`
	Material             string          `json:"material" validate:"max=255"`
	Features             []string        `json:"features"`
	Images               []string        `json:"images"`
	Category             string          `json:"category" validate:"required,oneof=apparel accessory gear"`
	TotalPrice           decimal.Decimal `json:"total_price"`
}

const proposalColumns = `id, name, customer_id, clerk_id, conversation_id, customization_request,
	designer_message, material, features, images, category, total_price, status, order_id,
	created_at, updated_at`

func scanProposal(row interface{ Scan(...any) error }, p *models.CustomProposal) error {
	return row.Scan(
		&p.ID,
		&p.Name,
		&p.CustomerID,
		&p.ClerkID,
		&p.ConversationID,
		&p.CustomizationRequest,
		&p.DesignerMessage,
		&p.Material,
		&p.Features,
		&p.Images,
		&p.Category,
		&p.TotalPrice,
		&p.Status,
		&p.OrderID,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
}

// CreateProposal stores a proposal and the chat message announcing it to
// the customer in one transaction.
func (s *Store) CreateProposal(ctx context.Context, req CreateProposalRequest) (*models.CustomProposal, *models.Message, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, nil, err
	}

	var (
		proposal *models.CustomProposal
		message  *models.Message
	)

	err := database.WithTransaction(ctx, s.db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		proposal = &models.CustomProposal{}
		query := `
			INSERT INTO custom_proposals (name, customer_id, clerk_id, conversation_id, customization_request,
				designer_message, material, features, images, category, total_price, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
			RETURNING ` + proposalColumns

		row := tx.QueryRowContext(ctx, query,
			req.Name,
			req.CustomerID,
			req.ClerkID,
			req.ConversationID,
			req.CustomizationRequest,
			req.DesignerMessage,
			req.Material,
			models.StringList(req.Features),
			models.StringList(req.Images),
			req.Category,
			req.TotalPrice,
			models.ProposalStatusPending,
		)
		if err := scanProposal(row, proposal); err != nil {
			if database.IsForeignKeyViolation(err) {
				return database.ErrUserNotFound
			}
			return fmt.Errorf("create proposal: %w", err)
		}

		var err error
		message, err = insertMessage(ctx, tx, models.Message{
			ConversationID:   req.ConversationID,
			SenderID:         req.ClerkID,
			ReceiverID:       req.CustomerID,
			Body:             fmt.Sprintf("New custom proposal: %s", req.Name),
			CustomProposalID: &proposal.ID,
		})
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	return proposal, message, nil
}

func (s *Store) GetProposal(ctx context.Context, id int64) (*models.CustomProposal, error) {
	proposal := &models.CustomProposal{}

	row := s.db.QueryRowContext(ctx, `SELECT `+proposalColumns+` FROM custom_proposals WHERE id = $1`, id)
	if err := scanProposal(row, proposal); err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrProposalNotFound
		}
		return nil, fmt.Errorf("get proposal: %w", err)
	}

	return proposal, nil
}

// ListProposalsForCustomer returns the customer's proposals, newest first.
func (s *Store) ListProposalsForCustomer(ctx context.Context, customerID int64) ([]models.CustomProposal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+proposalColumns+`
		FROM custom_proposals
		WHERE customer_id = $1
		ORDER BY created_at DESC, id DESC`, customerID)
	if err != nil {
		return nil, fmt.Errorf("list proposals: %w", err)
	}
	defer rows.Close()

	proposals := []models.CustomProposal{}
	for rows.Next() {
		var p models.CustomProposal
		if err := scanProposal(rows, &p); err != nil {
			return nil, fmt.Errorf("scan proposal: %w", err)
		}
		proposals = append(proposals, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return proposals, nil
}

// lockProposal reads a proposal and holds its row until the transaction
// ends, so two orders cannot both claim it.
func lockProposal(ctx context.Context, tx *sql.Tx, id int64) (*models.CustomProposal, error) {
	proposal := &models.CustomProposal{}

	row := tx.QueryRowContext(ctx, `SELECT `+proposalColumns+` FROM custom_proposals WHERE id = $1 FOR UPDATE`, id)
	if err := scanProposal(row, proposal); err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrProposalNotFound
		}
		return nil, fmt.Errorf("lock proposal %d: %w", id, err)
	}

	return proposal, nil
}

func markProposalOrdered(ctx context.Context, tx *sql.Tx, proposalID, orderID int64) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE custom_proposals
		SET status = $1, order_id = $2, updated_at = NOW()
		WHERE id = $3`,
		models.ProposalStatusOrdered, orderID, proposalID)
	if err != nil {
		return fmt.Errorf("mark proposal %d ordered: %w", proposalID, err)
	}
	return nil
}
