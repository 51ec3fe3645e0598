package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
)

type OrderItemRequest struct {
	ProductID        *int64           `json:"product_id" validate:"omitempty,gt=0"`
	CustomProposalID *int64           `json:"custom_proposal_id" validate:"omitempty,gt=0"`
	Quantity         int              `json:"quantity" validate:"required,min=1"`
	Size             *string          `json:"size" validate:"omitempty,max=50"`
	Price            *decimal.Decimal `json:"price"`
	SizePrice        *decimal.Decimal `json:"size_price"`
	IsCustomized     bool             `json:"is_customized"`
}

// PlaceOrderRequest is a checkout. UserID is the authenticated principal
// and is never read from the request body.
type PlaceOrderRequest struct {
	UserID            int64              `json:"-"`
	Items             []OrderItemRequest `json:"items" validate:"required,min=1,dive"`
	UserVoucherID     *int64             `json:"user_voucher_id" validate:"omitempty,gt=0"`
	ShippingFee       *decimal.Decimal   `json:"shipping_fee"`
	PaymentMethod     string             `json:"payment_method" validate:"omitempty,oneof=cod gcash credit-card"`
	CustomerFirstName string             `json:"customer_first_name" validate:"required"`
	CustomerLastName  string             `json:"customer_last_name" validate:"required"`
	CustomerEmail     string             `json:"customer_email" validate:"required,email"`
	CustomerPhone     string             `json:"customer_phone" validate:"required"`
	CustomerAddress   string             `json:"customer_address" validate:"required"`
}

func (r PlaceOrderRequest) customer() models.CustomerSnapshot {
	return models.CustomerSnapshot{
		FirstName: r.CustomerFirstName,
		LastName:  r.CustomerLastName,
		Email:     r.CustomerEmail,
		Phone:     r.CustomerPhone,
		Address:   r.CustomerAddress,
	}
}

// SkippedItem explains why a requested line is missing from the order.
type SkippedItem struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

type PlaceOrderResult struct {
	Order            *models.Order `json:"order"`
	CartCleared      int64         `json:"cart_cleared"`
	InitialCartCount int64         `json:"initial_cart_count"`
	Skipped          []SkippedItem `json:"skipped,omitempty"`
	VoucherRejected  string        `json:"voucher_rejected,omitempty"`
}

// PlaceOrder prices the requested items, applies at most one voucher grant,
// stores the order and empties the user's cart in a single transaction.
// Lines that reference missing or foreign proposals and missing products
// are skipped; an unusable voucher leaves the order undiscounted.
func (s *Store) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*PlaceOrderResult, error) {
	if req.UserID <= 0 {
		return nil, database.ErrUnauthenticated
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "store.PlaceOrder", trace.WithAttributes(
		attribute.Int64("user.id", req.UserID),
		attribute.Int("order.items_requested", len(req.Items)),
	))
	defer span.End()

	var result *PlaceOrderResult
	err := database.WithRetry(ctx, s.db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		r, err := s.placeOrderTx(ctx, tx, req)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "place order failed")
		return nil, err
	}

	span.SetAttributes(
		attribute.Int64("order.id", result.Order.ID),
		attribute.Int("order.items_skipped", len(result.Skipped)),
	)
	recordPlacement(ctx, result)

	return result, nil
}

func (s *Store) placeOrderTx(ctx context.Context, tx *sql.Tx, req PlaceOrderRequest) (*PlaceOrderResult, error) {
	log := zerolog.Ctx(ctx)

	shipping := shippingFee(req.ShippingFee)
	payment := req.PaymentMethod
	if payment == "" {
		payment = models.PaymentCOD
	}

	var orderID int64
	err := tx.QueryRowContext(ctx, `
		INSERT INTO orders (user_id, subtotal, shipping_fee, discount_amount, total_amount,
			payment_method, payment_status, status, customer, created_at, updated_at)
		VALUES ($1, 0, $2, 0, 0, $3, $4, $5, $6, NOW(), NOW())
		RETURNING id`,
		req.UserID, shipping, payment, models.PaymentStatusPending, models.OrderStatusPending, req.customer(),
	).Scan(&orderID)
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	initialCart, err := countCart(ctx, tx, req.UserID)
	if err != nil {
		return nil, err
	}

	result := &PlaceOrderResult{InitialCartCount: initialCart}
	subtotal := decimal.Zero
	placed := 0

	for i, item := range req.Items {
		line, err := resolveItem(ctx, tx, req.UserID, item)
		if err != nil {
			reason, ok := skipReason(err)
			if !ok {
				return nil, err
			}
			log.Warn().
				Err(err).
				Int64("user_id", req.UserID).
				Int("item_index", i).
				Str("reason", reason).
				Msg("skipping order item")
			result.Skipped = append(result.Skipped, SkippedItem{Index: i, Reason: reason})
			continue
		}

		line.OrderID = orderID
		if err := insertOrderItem(ctx, tx, line); err != nil {
			return nil, err
		}
		if line.CustomProposalID != nil {
			if err := markProposalOrdered(ctx, tx, *line.CustomProposalID, orderID); err != nil {
				return nil, err
			}
		}

		subtotal = subtotal.Add(line.LineTotal())
		placed++
	}

	if placed == 0 {
		return nil, database.ErrNoOrderableItems
	}

	discount := decimal.Zero
	var (
		voucherID   *int64
		voucherCode *string
	)
	if req.UserVoucherID != nil {
		grant, err := s.redeemGrant(ctx, tx, *req.UserVoucherID, req.UserID)
		switch {
		case err == nil:
			discount = voucherDiscount(subtotal, grant.Voucher.Percent)
			voucherID = &grant.VoucherID
			voucherCode = &grant.VoucherCode
		case isVoucherRejection(err):
			log.Warn().
				Err(err).
				Int64("user_id", req.UserID).
				Int64("user_voucher_id", *req.UserVoucherID).
				Msg("voucher not applied")
			result.VoucherRejected = err.Error()
		default:
			return nil, err
		}
	}

	total := orderTotal(subtotal, shipping, discount)

	_, err = tx.ExecContext(ctx, `
		UPDATE orders
		SET subtotal = $1, discount_amount = $2, total_amount = $3,
		    voucher_id = $4, voucher_code = $5, updated_at = NOW()
		WHERE id = $6`,
		subtotal, discount, total, voucherID, voucherCode, orderID)
	if err != nil {
		return nil, fmt.Errorf("finalize order totals: %w", err)
	}

	cleared, err := deleteCart(ctx, tx, req.UserID)
	if err != nil {
		return nil, err
	}
	result.CartCleared = cleared

	order, err := loadOrder(ctx, tx, orderID, &req.UserID)
	if err != nil {
		return nil, fmt.Errorf("fetch created order: %w", err)
	}
	result.Order = order

	return result, nil
}

func resolveItem(ctx context.Context, tx *sql.Tx, userID int64, item OrderItemRequest) (*models.OrderItem, error) {
	if item.CustomProposalID != nil {
		return resolveProposalItem(ctx, tx, userID, item)
	}
	return resolveProductItem(ctx, tx, item)
}

func resolveProductItem(ctx context.Context, tx *sql.Tx, item OrderItemRequest) (*models.OrderItem, error) {
	product, err := getProduct(ctx, tx, *item.ProductID)
	if err != nil {
		return nil, err
	}

	unit, sizePrice := priceProductItem(product, item)
	return &models.OrderItem{
		ProductID: &product.ID,
		Name:      product.Name,
		Price:     unit,
		SizePrice: sizePrice,
		Quantity:  item.Quantity,
		Size:      item.Size,
		Image:     product.Image,
	}, nil
}

func resolveProposalItem(ctx context.Context, tx *sql.Tx, userID int64, item OrderItemRequest) (*models.OrderItem, error) {
	proposal, err := lockProposal(ctx, tx, *item.CustomProposalID)
	if err != nil {
		return nil, err
	}
	if proposal.CustomerID != userID {
		return nil, database.ErrProposalNotOwned
	}
	if proposal.Status == models.ProposalStatusOrdered {
		return nil, database.ErrProposalAlreadyTaken
	}

	unit, sizePrice := priceProposalItem(proposal, item)
	return &models.OrderItem{
		CustomProposalID:     &proposal.ID,
		IsCustomized:         true,
		Name:                 proposal.Name,
		Price:                unit,
		SizePrice:            sizePrice,
		Quantity:             item.Quantity,
		Size:                 item.Size,
		Image:                proposal.Images.First(),
		CustomizationDetails: proposal.Snapshot(),
	}, nil
}

func insertOrderItem(ctx context.Context, tx *sql.Tx, item *models.OrderItem) error {
	err := tx.QueryRowContext(ctx, `
		INSERT INTO order_items (order_id, product_id, custom_proposal_id, is_customized, name, price,
			size_price, quantity, size, image, customization_details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
		RETURNING id, created_at`,
		item.OrderID,
		item.ProductID,
		item.CustomProposalID,
		item.IsCustomized,
		item.Name,
		item.Price,
		item.SizePrice,
		item.Quantity,
		item.Size,
		item.Image,
		item.CustomizationDetails,
	).Scan(&item.ID, &item.CreatedAt)
	if err != nil {
		return fmt.Errorf("create order item: %w", err)
	}
	return nil
}

// redeemGrant locks the user's grant, checks it and marks it used. Callers
// waiting on the same grant see it as used once the holder commits.
func (s *Store) redeemGrant(ctx context.Context, tx *sql.Tx, grantID, userID int64) (*models.UserVoucher, error) {
	grant, err := lockGrant(ctx, tx, grantID, userID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if err := grant.CheckRedeemable(now); err != nil {
		return nil, err
	}
	if err := markGrantUsed(ctx, tx, grant.ID, now); err != nil {
		return nil, err
	}
	grant.UsedAt = &now
	return grant, nil
}

func skipReason(err error) (string, bool) {
	switch {
	case errors.Is(err, database.ErrProductNotFound):
		return "product_not_found", true
	case errors.Is(err, database.ErrProposalNotFound):
		return "proposal_not_found", true
	case errors.Is(err, database.ErrProposalNotOwned):
		return "proposal_not_owned", true
	case errors.Is(err, database.ErrProposalAlreadyTaken):
		return "proposal_already_ordered", true
	}
	return "", false
}

func isVoucherRejection(err error) bool {
	return errors.Is(err, database.ErrVoucherNotFound) ||
		errors.Is(err, database.ErrVoucherUsed) ||
		errors.Is(err, database.ErrVoucherExpired) ||
		errors.Is(err, database.ErrVoucherInactive)
}

func recordPlacement(ctx context.Context, r *PlaceOrderResult) {
	ordersPlaced.Add(ctx, 1, metric.WithAttributes(
		attribute.String("payment_method", r.Order.PaymentMethod),
	))
	for _, s := range r.Skipped {
		itemsSkipped.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", s.Reason)))
	}
	if r.Order.VoucherID != nil {
		vouchersApplied.Add(ctx, 1)
	}
	if r.VoucherRejected != "" {
		vouchersRejected.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", r.VoucherRejected)))
	}
}
