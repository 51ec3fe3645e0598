package models

import (
	"time"

	"github.com/safar/storefront/internal/database"
)

const (
	VoucherEnabled  = "enabled"
	VoucherDisabled = "disabled"

	ExpirationHours = "hours"
	ExpirationDays  = "days"
)

// Voucher is a reusable discount template.
type Voucher struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"name"`
	Percent            int       `json:"percent"`
	Status             string    `json:"status"`
	ExpirationType     string    `json:"expiration_type"`
	ExpirationDuration int       `json:"expiration_duration"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// ExpiresAt returns when a grant sent at sentAt stops being redeemable.
func (v *Voucher) ExpiresAt(sentAt time.Time) time.Time {
	d := time.Duration(v.ExpirationDuration)
	if v.ExpirationType == ExpirationHours {
		return sentAt.Add(d * time.Hour)
	}
	return sentAt.AddDate(0, 0, v.ExpirationDuration)
}

// UserVoucher is one grant of a template to one user.
type UserVoucher struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"user_id"`
	VoucherID   int64      `json:"voucher_id"`
	VoucherCode string     `json:"voucher_code"`
	SentAt      time.Time  `json:"sent_at"`
	UsedAt      *time.Time `json:"used_at"`
	ExpiresAt   *time.Time `json:"expires_at"`
	Voucher     *Voucher   `json:"voucher,omitempty"`
}

// CheckRedeemable reports why the grant cannot be applied at now, or nil.
// The template must be loaded.
func (g *UserVoucher) CheckRedeemable(now time.Time) error {
	if g.UsedAt != nil {
		return database.ErrVoucherUsed
	}
	if g.ExpiresAt != nil && now.After(*g.ExpiresAt) {
		return database.ErrVoucherExpired
	}
	if g.Voucher == nil || g.Voucher.Status != VoucherEnabled {
		return database.ErrVoucherInactive
	}
	return nil
}
