package store

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"

	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
)

func (s *Store) CreateUser(ctx context.Context, email, name, role string) (*models.User, error) {
	if !models.ValidRole(role) {
		return nil, fmt.Errorf("create user: unknown role %q", role)
	}

	user := &models.User{}
	query := `
		INSERT INTO users (email, name, role, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING id, email, name, role, created_at, updated_at`

	err := s.db.QueryRowContext(ctx, query, email, name, role).Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.Role,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, database.ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

func (s *Store) GetUser(ctx context.Context, id int64) (*models.User, error) {
	user := &models.User{}

	query := `
		SELECT id, email, name, role, created_at, updated_at
		FROM users
		WHERE id = $1`

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.Role,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	return user, nil
}

// IssueToken creates a bearer token for the user. Only its hash is stored,
// so the returned value cannot be recovered later.
func (s *Store) IssueToken(ctx context.Context, userID int64) (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	token := hex.EncodeToString(raw)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO api_tokens (token_hash, user_id, created_at) VALUES ($1, $2, NOW())`,
		hashToken(token), userID)
	if err != nil {
		return "", fmt.Errorf("store token: %w", err)
	}

	return token, nil
}

// UserForToken returns the owner of a bearer token.
func (s *Store) UserForToken(ctx context.Context, token string) (*models.User, error) {
	user := &models.User{}

	query := `
		SELECT u.id, u.email, u.name, u.role, u.created_at, u.updated_at
		FROM api_tokens t
		JOIN users u ON u.id = t.user_id
		WHERE t.token_hash = $1`

	err := s.db.QueryRowContext(ctx, query, hashToken(token)).Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.Role,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrTokenNotFound
		}
		return nil, fmt.Errorf("resolve token: %w", err)
	}

	return user, nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
