package api

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/safar/storefront/internal/broadcast"
	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/store"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) UserForToken(ctx context.Context, token string) (*models.User, error) {
	args := m.Called(ctx, token)
	return orNil[models.User](args.Get(0)), args.Error(1)
}

func (m *mockStore) GetUser(ctx context.Context, id int64) (*models.User, error) {
	args := m.Called(ctx, id)
	return orNil[models.User](args.Get(0)), args.Error(1)
}

func (m *mockStore) PlaceOrder(ctx context.Context, req store.PlaceOrderRequest) (*store.PlaceOrderResult, error) {
	args := m.Called(ctx, req)
	return orNil[store.PlaceOrderResult](args.Get(0)), args.Error(1)
}

func (m *mockStore) GetOrder(ctx context.Context, userID, id int64) (*models.Order, error) {
	args := m.Called(ctx, userID, id)
	return orNil[models.Order](args.Get(0)), args.Error(1)
}

func (m *mockStore) ListOrdersCursor(ctx context.Context, userID int64, cursor string, limit int) (*store.CursorPage[models.Order], error) {
	args := m.Called(ctx, userID, cursor, limit)
	return orNil[store.CursorPage[models.Order]](args.Get(0)), args.Error(1)
}

func (m *mockStore) UpdateOrderStatus(ctx context.Context, userID, id int64, status string) (*models.Order, error) {
	args := m.Called(ctx, userID, id, status)
	return orNil[models.Order](args.Get(0)), args.Error(1)
}

func (m *mockStore) AdminGetOrder(ctx context.Context, id int64) (*models.Order, error) {
	args := m.Called(ctx, id)
	return orNil[models.Order](args.Get(0)), args.Error(1)
}

func (m *mockStore) AdminListOrders(ctx context.Context, page, pageSize int) (*store.OffsetPage[models.Order], error) {
	args := m.Called(ctx, page, pageSize)
	return orNil[store.OffsetPage[models.Order]](args.Get(0)), args.Error(1)
}

func (m *mockStore) AdminUpdateOrderStatus(ctx context.Context, id int64, status string) (*models.Order, error) {
	args := m.Called(ctx, id, status)
	return orNil[models.Order](args.Get(0)), args.Error(1)
}

func (m *mockStore) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	args := m.Called(ctx, id)
	return orNil[models.Product](args.Get(0)), args.Error(1)
}

func (m *mockStore) ListProducts(ctx context.Context, page, pageSize int) (*store.OffsetPage[models.Product], error) {
	args := m.Called(ctx, page, pageSize)
	return orNil[store.OffsetPage[models.Product]](args.Get(0)), args.Error(1)
}

func (m *mockStore) AddCartItem(ctx context.Context, req store.AddCartItemRequest) (*models.CartItem, error) {
	args := m.Called(ctx, req)
	return orNil[models.CartItem](args.Get(0)), args.Error(1)
}

func (m *mockStore) ListCartItems(ctx context.Context, userID int64) ([]models.CartItem, error) {
	args := m.Called(ctx, userID)
	items, _ := args.Get(0).([]models.CartItem)
	return items, args.Error(1)
}

func (m *mockStore) CountCartItems(ctx context.Context, userID int64) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockStore) ClearCart(ctx context.Context, userID int64) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockStore) CreateProposal(ctx context.Context, req store.CreateProposalRequest) (*models.CustomProposal, *models.Message, error) {
	args := m.Called(ctx, req)
	return orNil[models.CustomProposal](args.Get(0)), orNil[models.Message](args.Get(1)), args.Error(2)
}

func (m *mockStore) ListProposalsForCustomer(ctx context.Context, customerID int64) ([]models.CustomProposal, error) {
	args := m.Called(ctx, customerID)
	items, _ := args.Get(0).([]models.CustomProposal)
	return items, args.Error(1)
}

func (m *mockStore) SendMessage(ctx context.Context, req store.SendMessageRequest) (*models.Message, error) {
	args := m.Called(ctx, req)
	return orNil[models.Message](args.Get(0)), args.Error(1)
}

func (m *mockStore) CreateVoucher(ctx context.Context, req store.CreateVoucherRequest) (*models.Voucher, error) {
	args := m.Called(ctx, req)
	return orNil[models.Voucher](args.Get(0)), args.Error(1)
}

func (m *mockStore) ToggleVoucherStatus(ctx context.Context, id int64) (*models.Voucher, error) {
	args := m.Called(ctx, id)
	return orNil[models.Voucher](args.Get(0)), args.Error(1)
}

func (m *mockStore) IssueGrants(ctx context.Context, voucherID int64, userIDs []int64) ([]models.UserVoucher, error) {
	args := m.Called(ctx, voucherID, userIDs)
	grants, _ := args.Get(0).([]models.UserVoucher)
	return grants, args.Error(1)
}

func (m *mockStore) ListActiveGrants(ctx context.Context, userID int64) ([]models.UserVoucher, error) {
	args := m.Called(ctx, userID)
	grants, _ := args.Get(0).([]models.UserVoucher)
	return grants, args.Error(1)
}

func (m *mockStore) ValidateGrantCode(ctx context.Context, userID int64, code string) (*models.UserVoucher, error) {
	args := m.Called(ctx, userID, code)
	return orNil[models.UserVoucher](args.Get(0)), args.Error(1)
}

func orNil[T any](v any) *T {
	if v == nil {
		return nil
	}
	return v.(*T)
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []broadcast.Event
}

func (b *recordingBroadcaster) Dispatch(_ context.Context, events ...broadcast.Event) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, events...)
	return len(events)
}
