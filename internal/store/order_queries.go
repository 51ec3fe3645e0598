package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/validation"
)

const orderColumns = `o.id, o.user_id, o.subtotal, o.shipping_fee, o.discount_amount, o.total_amount,
	o.voucher_id, o.voucher_code, o.payment_method, o.payment_status, o.status, o.customer,
	o.created_at, o.updated_at`

func orderFields(o *models.Order) []any {
	return []any{
		&o.ID,
		&o.UserID,
		&o.Subtotal,
		&o.ShippingFee,
		&o.DiscountAmount,
		&o.TotalAmount,
		&o.VoucherID,
		&o.VoucherCode,
		&o.PaymentMethod,
		&o.PaymentStatus,
		&o.Status,
		&o.Customer,
		&o.CreatedAt,
		&o.UpdatedAt,
	}
}

// GetOrder returns one of the user's orders with items and voucher.
func (s *Store) GetOrder(ctx context.Context, userID, id int64) (*models.Order, error) {
	return loadOrder(ctx, s.db, id, &userID)
}

// AdminGetOrder returns any order with its owner, items and voucher.
func (s *Store) AdminGetOrder(ctx context.Context, id int64) (*models.Order, error) {
	order, err := loadOrder(ctx, s.db, id, nil)
	if err != nil {
		return nil, err
	}
	if err := attachUsers(ctx, s.db, []*models.Order{order}); err != nil {
		return nil, err
	}
	return order, nil
}

// loadOrder reads an order, restricted to ownerID when it is not nil.
func loadOrder(ctx context.Context, q database.DBTX, id int64, ownerID *int64) (*models.Order, error) {
	order := &models.Order{}

	query := `
		SELECT ` + orderColumns + `
		FROM orders o
		WHERE o.id = $1
		  AND ($2::bigint IS NULL OR o.user_id = $2)`

	if err := q.QueryRowContext(ctx, query, id, ownerID).Scan(orderFields(order)...); err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	if err := attachDetails(ctx, q, []*models.Order{order}); err != nil {
		return nil, err
	}
	return order, nil
}

// ListOrdersCursor pages through the user's orders newest first.
func (s *Store) ListOrdersCursor(ctx context.Context, userID int64, cursor string, limit int) (*CursorPage[models.Order], error) {
	cursorData, err := DecodeCursor(cursor)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT ` + orderColumns + `
		FROM orders o
		WHERE o.user_id = $1
		  AND (o.created_at, o.id) < ($2, $3)
		ORDER BY o.created_at DESC, o.id DESC
		LIMIT $4`

	rows, err := s.db.QueryContext(ctx, query, userID, cursorData.CreatedAt, cursorData.ID, limit+1)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	orders, err := scanOrders(rows)
	if err != nil {
		return nil, err
	}

	hasMore := len(orders) > limit
	if hasMore {
		orders = orders[:limit]
	}

	if err := attachDetails(ctx, s.db, orderPtrs(orders)); err != nil {
		return nil, err
	}

	var nextCursor string
	if hasMore && len(orders) > 0 {
		last := orders[len(orders)-1]
		nextCursor = EncodeCursor(OrderCursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	return &CursorPage[models.Order]{
		Items:      orders,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

// AdminListOrders pages through every order, newest first.
func (s *Store) AdminListOrders(ctx context.Context, page, pageSize int) (*OffsetPage[models.Order], error) {
	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`).Scan(&total); err != nil {
		return nil, fmt.Errorf("count orders: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders o
		ORDER BY o.created_at DESC, o.id DESC
		LIMIT $1 OFFSET $2`, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	orders, err := scanOrders(rows)
	if err != nil {
		return nil, err
	}

	ptrs := orderPtrs(orders)
	if err := attachDetails(ctx, s.db, ptrs); err != nil {
		return nil, err
	}
	if err := attachUsers(ctx, s.db, ptrs); err != nil {
		return nil, err
	}

	return newOffsetPage(orders, total, page, pageSize), nil
}

// UpdateOrderStatus sets the status of one of the user's orders.
func (s *Store) UpdateOrderStatus(ctx context.Context, userID, id int64, status string) (*models.Order, error) {
	return s.setStatus(ctx, id, &userID, status, models.CustomerOrderStatuses)
}

// AdminUpdateOrderStatus sets the status of any order from the admin set.
func (s *Store) AdminUpdateOrderStatus(ctx context.Context, id int64, status string) (*models.Order, error) {
	order, err := s.setStatus(ctx, id, nil, status, models.AdminOrderStatuses)
	if err != nil {
		return nil, err
	}
	if err := attachUsers(ctx, s.db, []*models.Order{order}); err != nil {
		return nil, err
	}
	return order, nil
}

// setStatus writes any allowed status; there is no transition graph.
func (s *Store) setStatus(ctx context.Context, id int64, ownerID *int64, status string, allowed []string) (*models.Order, error) {
	if !models.StatusAllowed(allowed, status) {
		return nil, &validation.Error{Fields: map[string]string{
			"status": fmt.Sprintf("%v: must be one of %v", database.ErrInvalidStatus, allowed),
		}}
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE orders
		SET status = $1, updated_at = NOW()
		WHERE id = $2
		  AND ($3::bigint IS NULL OR user_id = $3)`,
		status, id, ownerID)
	if err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("get rows affected: %w", err)
	}
	if n == 0 {
		return nil, database.ErrOrderNotFound
	}

	return loadOrder(ctx, s.db, id, ownerID)
}

func scanOrders(rows *sql.Rows) ([]models.Order, error) {
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		var o models.Order
		if err := rows.Scan(orderFields(&o)...); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return orders, nil
}

func orderPtrs(orders []models.Order) []*models.Order {
	ptrs := make([]*models.Order, len(orders))
	for i := range orders {
		ptrs[i] = &orders[i]
	}
	return ptrs
}

// attachDetails eager-loads items (with product/proposal snapshots) and
// voucher templates for a batch of orders.
func attachDetails(ctx context.Context, q database.DBTX, orders []*models.Order) error {
	if len(orders) == 0 {
		return nil
	}

	byID := make(map[int64]*models.Order, len(orders))
	ids := make([]int64, 0, len(orders))
	var voucherIDs []int64
	for _, o := range orders {
		o.Items = []models.OrderItem{}
		byID[o.ID] = o
		ids = append(ids, o.ID)
		if o.VoucherID != nil {
			voucherIDs = append(voucherIDs, *o.VoucherID)
		}
	}

	rows, err := q.QueryContext(ctx, `
		SELECT oi.id, oi.order_id, oi.product_id, oi.custom_proposal_id, oi.is_customized, oi.name,
		       oi.price, oi.size_price, oi.quantity, oi.size, oi.image, oi.customization_details, oi.created_at,
		       p.id, p.name, p.image, p.price,
		       cp.id, cp.name, cp.category, cp.status
		FROM order_items oi
		LEFT JOIN products p ON p.id = oi.product_id
		LEFT JOIN custom_proposals cp ON cp.id = oi.custom_proposal_id
		WHERE oi.order_id = ANY($1)
		ORDER BY oi.order_id, oi.id`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("get order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			item                              models.OrderItem
			productID, proposalID             *int64
			productName, productImage         *string
			productPrice                      decimal.NullDecimal
			proposalName, category, propState *string
		)
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.CustomProposalID,
			&item.IsCustomized,
			&item.Name,
			&item.Price,
			&item.SizePrice,
			&item.Quantity,
			&item.Size,
			&item.Image,
			&item.CustomizationDetails,
			&item.CreatedAt,
			&productID,
			&productName,
			&productImage,
			&productPrice,
			&proposalID,
			&proposalName,
			&category,
			&propState,
		)
		if err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}

		if productID != nil {
			item.Product = &models.ProductSummary{
				ID:    *productID,
				Name:  deref(productName),
				Image: deref(productImage),
				Price: productPrice.Decimal,
			}
		}
		if proposalID != nil {
			item.CustomProposal = &models.ProposalSummary{
				ID:       *proposalID,
				Name:     deref(proposalName),
				Category: deref(category),
				Status:   deref(propState),
			}
		}

		if o, ok := byID[item.OrderID]; ok {
			o.Items = append(o.Items, item)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows error: %w", err)
	}

	if len(voucherIDs) == 0 {
		return nil
	}
	return attachVouchers(ctx, q, orders, voucherIDs)
}

func attachVouchers(ctx context.Context, q database.DBTX, orders []*models.Order, ids []int64) error {
	rows, err := q.QueryContext(ctx, `SELECT `+voucherColumns+` FROM vouchers v WHERE v.id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("get vouchers: %w", err)
	}
	defer rows.Close()

	vouchers := make(map[int64]*models.Voucher, len(ids))
	for rows.Next() {
		v := &models.Voucher{}
		if err := scanVoucher(rows, v); err != nil {
			return fmt.Errorf("scan voucher: %w", err)
		}
		vouchers[v.ID] = v
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows error: %w", err)
	}

	for _, o := range orders {
		if o.VoucherID != nil {
			o.Voucher = vouchers[*o.VoucherID]
		}
	}
	return nil
}

func attachUsers(ctx context.Context, q database.DBTX, orders []*models.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.UserID)
	}

	rows, err := q.QueryContext(ctx, `SELECT id, name, email FROM users WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("get order users: %w", err)
	}
	defer rows.Close()

	users := make(map[int64]*models.UserSummary, len(ids))
	for rows.Next() {
		u := &models.UserSummary{}
		if err := rows.Scan(&u.ID, &u.Name, &u.Email); err != nil {
			return fmt.Errorf("scan user: %w", err)
		}
		users[u.ID] = u
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows error: %w", err)
	}

	for _, o := range orders {
		o.User = users[o.UserID]
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
