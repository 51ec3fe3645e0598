//go:build integration

package store_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/store"
)

func fixedClock(t time.Time) store.Option {
	return store.WithClock(func() time.Time { return t })
}

func TestIssueGrantsComputesExpiry(t *testing.T) {
	issuedAt := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	s := newStore(t, fixedClock(issuedAt))
	ctx := context.Background()

	a := mustUser(t, s, "a@example.com", models.RoleCustomer)
	b := mustUser(t, s, "b@example.com", models.RoleCustomer)

	hourly, err := s.CreateVoucher(ctx, store.CreateVoucherRequest{
		Name: "flash", Percent: 5, ExpirationType: models.ExpirationHours, ExpirationDuration: 6,
	})
	require.NoError(t, err)
	daily, err := s.CreateVoucher(ctx, store.CreateVoucherRequest{
		Name: "weekly", Percent: 15, ExpirationType: models.ExpirationDays, ExpirationDuration: 2,
	})
	require.NoError(t, err)

	grants, err := s.IssueGrants(ctx, hourly.ID, []int64{a.ID, b.ID, a.ID})
	require.NoError(t, err)
	require.Len(t, grants, 2)
	assert.NotEqual(t, grants[0].VoucherCode, grants[1].VoucherCode)
	for _, g := range grants {
		assert.True(t, strings.HasPrefix(g.VoucherCode, "VC-"))
		assert.Len(t, g.VoucherCode, len("VC-")+8)
		require.NotNil(t, g.ExpiresAt)
		assert.True(t, issuedAt.Add(6*time.Hour).Equal(*g.ExpiresAt))
	}

	grants, err = s.IssueGrants(ctx, daily.ID, []int64{a.ID})
	require.NoError(t, err)
	assert.True(t, issuedAt.AddDate(0, 0, 2).Equal(*grants[0].ExpiresAt))

	_, err = s.IssueGrants(ctx, daily.ID, []int64{a.ID, 999})
	assert.True(t, errors.Is(err, database.ErrUserNotFound))

	_, err = s.IssueGrants(ctx, 999, []int64{a.ID})
	assert.True(t, errors.Is(err, database.ErrVoucherNotFound))
}

func TestIssueGrantsRefusesDisabledTemplate(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	user := mustUser(t, s, "a@example.com", models.RoleCustomer)
	v, err := s.CreateVoucher(ctx, store.CreateVoucherRequest{
		Name: "off", Percent: 10, ExpirationType: models.ExpirationDays, ExpirationDuration: 1,
	})
	require.NoError(t, err)

	toggled, err := s.ToggleVoucherStatus(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VoucherDisabled, toggled.Status)

	_, err = s.IssueGrants(ctx, v.ID, []int64{user.ID})
	assert.True(t, errors.Is(err, database.ErrVoucherInactive))

	toggled, err = s.ToggleVoucherStatus(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VoucherEnabled, toggled.Status)
}

func TestActiveGrantsAndValidation(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	s := newStore(t, fixedClock(now))
	ctx := context.Background()

	user := mustUser(t, s, "a@example.com", models.RoleCustomer)
	other := mustUser(t, s, "b@example.com", models.RoleCustomer)
	product := mustProduct(t, s, "tee", "20")

	active := mustGrant(t, s, user, 10)
	used := mustGrant(t, s, user, 20)
	disabled := mustGrant(t, s, user, 30)

	req := orderRequest(user.ID, productItem(product.ID, 1))
	req.UserVoucherID = &used.ID
	_, err := s.PlaceOrder(ctx, req)
	require.NoError(t, err)

	_, err = s.ToggleVoucherStatus(ctx, disabled.VoucherID)
	require.NoError(t, err)

	grants, err := s.ListActiveGrants(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, grants, 1)
	assert.Equal(t, active.ID, grants[0].ID)

	g, err := s.ValidateGrantCode(ctx, user.ID, active.VoucherCode)
	require.NoError(t, err)
	assert.Equal(t, 10, g.Voucher.Percent)

	_, err = s.ValidateGrantCode(ctx, user.ID, used.VoucherCode)
	assert.True(t, errors.Is(err, database.ErrVoucherUsed))

	_, err = s.ValidateGrantCode(ctx, user.ID, disabled.VoucherCode)
	assert.True(t, errors.Is(err, database.ErrVoucherInactive))

	_, err = s.ValidateGrantCode(ctx, other.ID, active.VoucherCode)
	assert.True(t, errors.Is(err, database.ErrVoucherNotFound))

	later := store.New(testDB, fixedClock(now.AddDate(0, 0, 8)))
	_, err = later.ValidateGrantCode(ctx, user.ID, active.VoucherCode)
	assert.True(t, errors.Is(err, database.ErrVoucherExpired))

	grants, err = later.ListActiveGrants(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, grants)

	// Reads never write.
	assert.Equal(t, 1, countRows(t, `SELECT COUNT(*) FROM user_vouchers WHERE used_at IS NOT NULL`))
}

func TestExpiredGrantIsNotRedeemed(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	s := newStore(t, fixedClock(now))
	ctx := context.Background()

	user := mustUser(t, s, "a@example.com", models.RoleCustomer)
	product := mustProduct(t, s, "tee", "20")
	grant := mustGrant(t, s, user, 10)

	later := store.New(testDB, fixedClock(now.AddDate(0, 0, 30)))
	req := orderRequest(user.ID, productItem(product.ID, 1))
	req.UserVoucherID = &grant.ID
	result, err := later.PlaceOrder(ctx, req)
	require.NoError(t, err)

	assert.Nil(t, result.Order.VoucherID)
	assert.Equal(t, database.ErrVoucherExpired.Error(), result.VoucherRejected)
}

func TestBackfillGrantExpiry(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	user := mustUser(t, s, "a@example.com", models.RoleCustomer)
	grant := mustGrant(t, s, user, 10)

	_, err := testDB.Exec(`UPDATE user_vouchers SET expires_at = NULL, sent_at = '2025-01-01T00:00:00Z' WHERE id = $1`, grant.ID)
	require.NoError(t, err)

	n, err := s.BackfillGrantExpiry(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	var expires time.Time
	require.NoError(t, testDB.QueryRow(`SELECT expires_at FROM user_vouchers WHERE id = $1`, grant.ID).Scan(&expires))
	assert.True(t, time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC).Equal(expires))

	n, err = s.BackfillGrantExpiry(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCartAndMessages(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	clerk := mustUser(t, s, "clerk@example.com", models.RoleClerk)
	user := mustUser(t, s, "a@example.com", models.RoleCustomer)
	proposal := mustProposal(t, s, clerk, user, models.CategoryApparel, "500")

	size := "L"
	_, err := s.AddCartItem(ctx, store.AddCartItemRequest{UserID: user.ID, CustomProposalID: &proposal.ID, Quantity: 1, Size: &size})
	require.NoError(t, err)

	missing := int64(4040)
	_, err = s.AddCartItem(ctx, store.AddCartItemRequest{UserID: user.ID, ProductID: &missing, Quantity: 1})
	assert.True(t, errors.Is(err, database.ErrProductNotFound))

	items, err := s.ListCartItems(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "L", *items[0].Size)

	deleted, err := s.ClearCart(ctx, user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	conv := int64(12)
	msg, err := s.SendMessage(ctx, store.SendMessageRequest{SenderID: user.ID, ReceiverID: clerk.ID, ConversationID: &conv, Message: "Looks great"})
	require.NoError(t, err)
	assert.NotZero(t, msg.ID)
	assert.Equal(t, "Looks great", msg.Body)

	proposals, err := s.ListProposalsForCustomer(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, proposals, 1)
	assert.Equal(t, models.StringList{"embroidery", "custom name"}, proposals[0].Features)

	// proposal creation also posted a chat message to the customer
	assert.Equal(t, 1, countRows(t, `SELECT COUNT(*) FROM messages WHERE custom_proposal_id = $1 AND receiver_id = $2`, proposal.ID, user.ID))
}
