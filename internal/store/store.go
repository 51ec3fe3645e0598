// Package store persists the catalog, custom proposals, vouchers, carts,
// orders and chat messages in Postgres.
package store

import (
	"database/sql"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/safar/storefront/internal/validation"
)

const instrumentationName = "github.com/safar/storefront/internal/store"

var (
	tracer = otel.Tracer(instrumentationName)
	meter  = otel.Meter(instrumentationName)

	ordersPlaced, _ = meter.Int64Counter("storefront.orders.placed",
		metric.WithDescription("Orders committed by the order engine"))
	itemsSkipped, _ = meter.Int64Counter("storefront.order_items.skipped",
		metric.WithDescription("Requested order items dropped during placement, by reason"))
	vouchersApplied, _ = meter.Int64Counter("storefront.vouchers.applied",
		metric.WithDescription("Voucher grants redeemed on an order"))
	vouchersRejected, _ = meter.Int64Counter("storefront.vouchers.rejected",
		metric.WithDescription("Voucher grants refused during placement, by reason"))
)

type Store struct {
	db       *sql.DB
	now      func() time.Time
	validate *validation.Validator
}

type Option func(*Store)

// WithClock overrides the clock used for voucher issue and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(db *sql.DB, opts ...Option) *Store {
	s := &Store{
		db:       db,
		now:      time.Now,
		validate: newValidator(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
