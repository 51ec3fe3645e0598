package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
)

type CreateVoucherRequest struct {
	Name               string `json:"name" validate:"required,max=255"`
	Percent            int    `json:"percent" validate:"required,min=1,max=100"`
	ExpirationType     string `json:"expiration_type" validate:"required,oneof=hours days"`
	ExpirationDuration int    `json:"expiration_duration" validate:"required,min=1"`
}

const voucherColumns = `v.id, v.name, v.percent, v.status, v.expiration_type, v.expiration_duration, v.created_at, v.updated_at`

const grantColumns = `uv.id, uv.user_id, uv.voucher_id, uv.voucher_code, uv.sent_at, uv.used_at, uv.expires_at, ` + voucherColumns

func scanVoucher(row interface{ Scan(...any) error }, v *models.Voucher) error {
	return row.Scan(
		&v.ID,
		&v.Name,
		&v.Percent,
		&v.Status,
		&v.ExpirationType,
		&v.ExpirationDuration,
		&v.CreatedAt,
		&v.UpdatedAt,
	)
}

func scanGrant(row interface{ Scan(...any) error }, g *models.UserVoucher) error {
	v := &models.Voucher{}
	err := row.Scan(
		&g.ID,
		&g.UserID,
		&g.VoucherID,
		&g.VoucherCode,
		&g.SentAt,
		&g.UsedAt,
		&g.ExpiresAt,
		&v.ID,
		&v.Name,
		&v.Percent,
		&v.Status,
		&v.ExpirationType,
		&v.ExpirationDuration,
		&v.CreatedAt,
		&v.UpdatedAt,
	)
	if err != nil {
		return err
	}
	g.Voucher = v
	return nil
}

func (s *Store) CreateVoucher(ctx context.Context, req CreateVoucherRequest) (*models.Voucher, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}

	v := &models.Voucher{}
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO vouchers AS v (name, percent, status, expiration_type, expiration_duration, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING `+voucherColumns,
		req.Name, req.Percent, models.VoucherEnabled, req.ExpirationType, req.ExpirationDuration)
	if err := scanVoucher(row, v); err != nil {
		return nil, fmt.Errorf("create voucher: %w", err)
	}

	return v, nil
}

// ToggleVoucherStatus flips a template between enabled and disabled.
// Grants already used are unaffected.
func (s *Store) ToggleVoucherStatus(ctx context.Context, id int64) (*models.Voucher, error) {
	v := &models.Voucher{}
	row := s.db.QueryRowContext(ctx, `
		UPDATE vouchers AS v
		SET status = CASE WHEN v.status = $1 THEN $2 ELSE $1 END,
		    updated_at = NOW()
		WHERE v.id = $3
		RETURNING `+voucherColumns,
		models.VoucherEnabled, models.VoucherDisabled, id)
	if err := scanVoucher(row, v); err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrVoucherNotFound
		}
		return nil, fmt.Errorf("toggle voucher: %w", err)
	}

	return v, nil
}

// IssueGrants sends the template to each user. Expiry is fixed at issue
// time from the template's duration.
func (s *Store) IssueGrants(ctx context.Context, voucherID int64, userIDs []int64) ([]models.UserVoucher, error) {
	if len(userIDs) == 0 {
		return nil, fmt.Errorf("issue grants: no recipients")
	}

	var grants []models.UserVoucher
	err := database.WithTransaction(ctx, s.db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		grants = grants[:0]

		v := &models.Voucher{}
		row := tx.QueryRowContext(ctx, `SELECT `+voucherColumns+` FROM vouchers v WHERE v.id = $1 FOR SHARE`, voucherID)
		if err := scanVoucher(row, v); err != nil {
			if err == sql.ErrNoRows {
				return database.ErrVoucherNotFound
			}
			return fmt.Errorf("load voucher: %w", err)
		}
		if v.Status != models.VoucherEnabled {
			return database.ErrVoucherInactive
		}

		known, err := existingUsers(ctx, tx, userIDs)
		if err != nil {
			return err
		}
		for _, userID := range userIDs {
			if !known[userID] {
				return fmt.Errorf("grant to user %d: %w", userID, database.ErrUserNotFound)
			}
		}

		sentAt := s.now().UTC().Truncate(time.Microsecond)
		expiresAt := v.ExpiresAt(sentAt)

		seen := make(map[int64]bool, len(userIDs))
		for _, userID := range userIDs {
			if seen[userID] {
				continue
			}
			seen[userID] = true

			g, err := insertGrant(ctx, tx, userID, v, sentAt, expiresAt)
			if err != nil {
				return err
			}
			grants = append(grants, *g)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return grants, nil
}

func insertGrant(ctx context.Context, tx *sql.Tx, userID int64, v *models.Voucher, sentAt, expiresAt time.Time) (*models.UserVoucher, error) {
	for attempt := 0; attempt < 5; attempt++ {
		g := &models.UserVoucher{
			UserID:      userID,
			VoucherID:   v.ID,
			VoucherCode: generateVoucherCode(),
			SentAt:      sentAt,
			ExpiresAt:   &expiresAt,
			Voucher:     v,
		}

		err := tx.QueryRowContext(ctx, `
			INSERT INTO user_vouchers (user_id, voucher_id, voucher_code, sent_at, expires_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (voucher_code) DO NOTHING
			RETURNING id`,
			g.UserID, g.VoucherID, g.VoucherCode, g.SentAt, g.ExpiresAt,
		).Scan(&g.ID)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			if database.IsForeignKeyViolation(err) {
				return nil, fmt.Errorf("grant to user %d: %w", userID, database.ErrUserNotFound)
			}
			return nil, fmt.Errorf("insert grant: %w", err)
		}
		return g, nil
	}
	return nil, fmt.Errorf("insert grant: could not generate a unique voucher code")
}

func generateVoucherCode() string {
	id := uuid.New()
	return "VC-" + strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:8])
}

// ListActiveGrants returns the user's unused, unexpired grants of enabled templates.
func (s *Store) ListActiveGrants(ctx context.Context, userID int64) ([]models.UserVoucher, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+grantColumns+`
		FROM user_vouchers uv
		JOIN vouchers v ON v.id = uv.voucher_id
		WHERE uv.user_id = $1
		  AND uv.used_at IS NULL
		  AND (uv.expires_at IS NULL OR uv.expires_at >= $2)
		  AND v.status = $3
		ORDER BY uv.sent_at DESC, uv.id DESC`,
		userID, s.now().UTC(), models.VoucherEnabled)
	if err != nil {
		return nil, fmt.Errorf("list grants: %w", err)
	}
	defer rows.Close()

	grants := []models.UserVoucher{}
	for rows.Next() {
		var g models.UserVoucher
		if err := scanGrant(rows, &g); err != nil {
			return nil, fmt.Errorf("scan grant: %w", err)
		}
		grants = append(grants, g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return grants, nil
}

// ValidateGrantCode looks up one of the user's grants by code. The grant is
// returned alongside a redemption error so callers can show its details.
func (s *Store) ValidateGrantCode(ctx context.Context, userID int64, code string) (*models.UserVoucher, error) {
	g := &models.UserVoucher{}
	row := s.db.QueryRowContext(ctx, `
		SELECT `+grantColumns+`
		FROM user_vouchers uv
		JOIN vouchers v ON v.id = uv.voucher_id
		WHERE uv.voucher_code = $1 AND uv.user_id = $2`,
		strings.TrimSpace(code), userID)
	if err := scanGrant(row, g); err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrVoucherNotFound
		}
		return nil, fmt.Errorf("validate voucher: %w", err)
	}

	return g, g.CheckRedeemable(s.now())
}

// BackfillGrantExpiry sets expires_at on grants issued before expiry was
// computed at issue time. It returns the number of grants updated.
func (s *Store) BackfillGrantExpiry(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE user_vouchers uv
		SET expires_at = CASE v.expiration_type
			WHEN $1 THEN uv.sent_at + make_interval(hours => v.expiration_duration)
			ELSE uv.sent_at + make_interval(days => v.expiration_duration)
		END
		FROM vouchers v
		WHERE v.id = uv.voucher_id
		  AND uv.expires_at IS NULL`,
		models.ExpirationHours)
	if err != nil {
		return 0, fmt.Errorf("backfill grant expiry: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	return n, nil
}

// lockGrant reads a grant owned by userID and holds its row until the
// transaction ends. Concurrent redemptions of one grant queue here.
func lockGrant(ctx context.Context, tx *sql.Tx, grantID, userID int64) (*models.UserVoucher, error) {
	g := &models.UserVoucher{}
	row := tx.QueryRowContext(ctx, `
		SELECT `+grantColumns+`
		FROM user_vouchers uv
		JOIN vouchers v ON v.id = uv.voucher_id
		WHERE uv.id = $1 AND uv.user_id = $2
		FOR UPDATE OF uv`,
		grantID, userID)
	if err := scanGrant(row, g); err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrVoucherNotFound
		}
		return nil, fmt.Errorf("lock grant %d: %w", grantID, err)
	}
	return g, nil
}

func markGrantUsed(ctx context.Context, tx *sql.Tx, grantID int64, at time.Time) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE user_vouchers SET used_at = $1 WHERE id = $2 AND used_at IS NULL`,
		at, grantID)
	if err != nil {
		return fmt.Errorf("mark grant used: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if n == 0 {
		return database.ErrVoucherUsed
	}
	return nil
}

// existingUsers reports which of ids belong to a user row.
func existingUsers(ctx context.Context, q database.DBTX, ids []int64) (map[int64]bool, error) {
	rows, err := q.QueryContext(ctx, `SELECT id FROM users WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	defer rows.Close()

	found := make(map[int64]bool, len(ids))
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		found[id] = true
	}
	return found, rows.Err()
}
