// Package api exposes the storefront over JSON HTTP.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/safar/storefront/internal/auth"
	"github.com/safar/storefront/internal/broadcast"
	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/store"
	"github.com/safar/storefront/internal/telemetry"
)

type OrderService interface {
	PlaceOrder(ctx context.Context, req store.PlaceOrderRequest) (*store.PlaceOrderResult, error)
	GetOrder(ctx context.Context, userID, id int64) (*models.Order, error)
	ListOrdersCursor(ctx context.Context, userID int64, cursor string, limit int) (*store.CursorPage[models.Order], error)
	UpdateOrderStatus(ctx context.Context, userID, id int64, status string) (*models.Order, error)
	AdminGetOrder(ctx context.Context, id int64) (*models.Order, error)
	AdminListOrders(ctx context.Context, page, pageSize int) (*store.OffsetPage[models.Order], error)
	AdminUpdateOrderStatus(ctx context.Context, id int64, status string) (*models.Order, error)
}

type UserService interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
}

type CatalogService interface {
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	ListProducts(ctx context.Context, page, pageSize int) (*store.OffsetPage[models.Product], error)
}

type CartService interface {
	AddCartItem(ctx context.Context, req store.AddCartItemRequest) (*models.CartItem, error)
	ListCartItems(ctx context.Context, userID int64) ([]models.CartItem, error)
	CountCartItems(ctx context.Context, userID int64) (int64, error)
	ClearCart(ctx context.Context, userID int64) (int64, error)
}

type ProposalService interface {
	CreateProposal(ctx context.Context, req store.CreateProposalRequest) (*models.CustomProposal, *models.Message, error)
	ListProposalsForCustomer(ctx context.Context, customerID int64) ([]models.CustomProposal, error)
	SendMessage(ctx context.Context, req store.SendMessageRequest) (*models.Message, error)
}

type VoucherService interface {
	CreateVoucher(ctx context.Context, req store.CreateVoucherRequest) (*models.Voucher, error)
	ToggleVoucherStatus(ctx context.Context, id int64) (*models.Voucher, error)
	IssueGrants(ctx context.Context, voucherID int64, userIDs []int64) ([]models.UserVoucher, error)
	ListActiveGrants(ctx context.Context, userID int64) ([]models.UserVoucher, error)
	ValidateGrantCode(ctx context.Context, userID int64, code string) (*models.UserVoucher, error)
}

// Store is everything the handlers need from persistence. *store.Store
// satisfies it.
type Store interface {
	auth.TokenResolver
	UserService
	OrderService
	CatalogService
	CartService
	ProposalService
	VoucherService
}

// Broadcaster queues events for delivery after the triggering write commits.
type Broadcaster interface {
	Dispatch(ctx context.Context, events ...broadcast.Event) int
}

type Server struct {
	store   Store
	events  Broadcaster
	logger  zerolog.Logger
	metrics http.Handler
}

type Option func(*Server)

// WithMetrics mounts h at /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

func NewServer(st Store, events Broadcaster, logger zerolog.Logger, opts ...Option) *Server {
	s := &Server{store: st, events: events, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(requestLogger(s.logger))
	r.Use(recoverer)
	r.Use(telemetry.RouteAttribute)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(s.store))

		r.Get("/me", s.handleMe)

		r.Get("/products", s.handleListProducts)
		r.Get("/products/{id}", s.handleGetProduct)

		r.Post("/cart", s.handleAddCartItem)
		r.Get("/cart", s.handleListCart)

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", s.handlePlaceOrder)
			r.Get("/", s.handleListOrders)
			r.Post("/clear-cart", s.handleClearCart)
			r.Get("/cart-count", s.handleCartCount)
			r.Get("/{id}", s.handleGetOrder)
			r.Patch("/{id}/status", s.handleUpdateOrderStatus)
		})

		r.Get("/vouchers", s.handleListVouchers)
		r.Post("/vouchers/validate", s.handleValidateVoucher)

		r.Post("/messages", s.handleSendMessage)
		r.Get("/proposals", s.handleListProposals)
		r.With(auth.RequireRole(models.RoleClerk, models.RoleAdmin)).
			Post("/proposals", s.handleCreateProposal)

		r.Route("/admin", func(r chi.Router) {
			r.Use(auth.RequireRole(models.RoleAdmin))

			r.Get("/orders", s.handleAdminListOrders)
			r.Get("/orders/{id}", s.handleAdminGetOrder)
			r.Patch("/orders/{id}/status", s.handleAdminUpdateOrderStatus)

			r.Post("/vouchers", s.handleCreateVoucher)
			r.Patch("/vouchers/{id}/toggle", s.handleToggleVoucher)
			r.Post("/vouchers/{id}/send", s.handleSendVoucher)
		})
	})

	return r
}

// principal returns the caller set by auth.Middleware.
func principal(r *http.Request) auth.Principal {
	p, _ := auth.PrincipalFrom(r.Context())
	return p
}
