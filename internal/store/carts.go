package store

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
)

type AddCartItemRequest struct {
	UserID           int64   `json:"-"`
	ProductID        *int64  `json:"product_id" validate:"omitempty,gt=0"`
	CustomProposalID *int64  `json:"custom_proposal_id" validate:"omitempty,gt=0"`
	Quantity         int     `json:"quantity" validate:"required,min=1"`
	Size             *string `json:"size" validate:"omitempty,max=50"`
}

func cartItemRule(sl validator.StructLevel) {
	req := sl.Current().Interface().(AddCartItemRequest)
	if (req.ProductID == nil) == (req.CustomProposalID == nil) {
		sl.ReportError(req.ProductID, "product_id", "ProductID", "exactly_one_source", "")
	}
}

func (s *Store) AddCartItem(ctx context.Context, req AddCartItemRequest) (*models.CartItem, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}

	item := &models.CartItem{}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO cart_items (user_id, product_id, custom_proposal_id, quantity, size, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id, user_id, product_id, custom_proposal_id, quantity, size, created_at`,
		req.UserID, req.ProductID, req.CustomProposalID, req.Quantity, req.Size,
	).Scan(
		&item.ID,
		&item.UserID,
		&item.ProductID,
		&item.CustomProposalID,
		&item.Quantity,
		&item.Size,
		&item.CreatedAt,
	)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			if req.ProductID != nil {
				return nil, database.ErrProductNotFound
			}
			return nil, database.ErrProposalNotFound
		}
		return nil, fmt.Errorf("add cart item: %w", err)
	}

	return item, nil
}

func (s *Store) ListCartItems(ctx context.Context, userID int64) ([]models.CartItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, product_id, custom_proposal_id, quantity, size, created_at
		FROM cart_items
		WHERE user_id = $1
		ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list cart: %w", err)
	}
	defer rows.Close()

	items := []models.CartItem{}
	for rows.Next() {
		var item models.CartItem
		err := rows.Scan(
			&item.ID,
			&item.UserID,
			&item.ProductID,
			&item.CustomProposalID,
			&item.Quantity,
			&item.Size,
			&item.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return items, nil
}

func (s *Store) CountCartItems(ctx context.Context, userID int64) (int64, error) {
	return countCart(ctx, s.db, userID)
}

// ClearCart empties the user's cart outside of any order and returns how
// many entries were removed.
func (s *Store) ClearCart(ctx context.Context, userID int64) (int64, error) {
	return deleteCart(ctx, s.db, userID)
}

func countCart(ctx context.Context, q database.DBTX, userID int64) (int64, error) {
	var n int64
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM cart_items WHERE user_id = $1`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count cart: %w", err)
	}
	return n, nil
}

func deleteCart(ctx context.Context, q database.DBTX, userID int64) (int64, error) {
	result, err := q.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("clear cart: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	return n, nil
}
