package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/catalog"
	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/internal/domain/order"
)

const (
	orderColumns = `order_id, user_id, status, total_amount, delivery_partner_id, order_date`

	createOrderSQL = `INSERT INTO orders (user_id, status, total_amount)
		VALUES ($1, 'Pending', 0) RETURNING ` + orderColumns

	getOrderSQL = `SELECT ` + orderColumns + ` FROM orders WHERE order_id = $1`

	listOrdersSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE $1::bigint = 0 OR user_id = $1
		ORDER BY order_date DESC, order_id DESC`

	listOrderItemsSQL = `SELECT oi.order_item_id, oi.order_id, oi.menu_id, oi.restaurant_id,
		COALESCE(r.name, ''), oi.item_name, oi.unit_price, oi.quantity
		FROM order_items oi
		LEFT JOIN restaurants r ON r.restaurant_id = oi.restaurant_id
		WHERE oi.order_id = ANY($1)
		ORDER BY oi.order_item_id`

	updateOrderStatusSQL = `UPDATE orders SET status = $3 WHERE order_id = $1 AND status = $2`

	activePartnersSQL = `SELECT delivery_partner_id FROM delivery_partners
		WHERE active = TRUE ORDER BY delivery_partner_id`

	assignPartnerSQL = `UPDATE orders SET delivery_partner_id = $2 WHERE order_id = $1`

	// Lines are locked so two concurrent checkouts of the same selection
	// serialize; the second sees them deleted and snapshots nothing.
	snapshotCartLinesSQL = `WITH selected AS (
			SELECT c.cart_id, c.menu_id, c.quantity, m.name, m.price, m.restaurant_id
			FROM cart c
			JOIN menu m ON m.menu_id = c.menu_id
			WHERE c.user_id = $2 AND c.cart_id = ANY($3)
			ORDER BY c.cart_id
			FOR UPDATE OF c
		), inserted AS (
			INSERT INTO order_items (order_id, menu_id, restaurant_id, item_name, unit_price, quantity)
			SELECT $1, menu_id, restaurant_id, name, price, quantity FROM selected ORDER BY cart_id
			RETURNING order_item_id, order_id, menu_id, restaurant_id, item_name, unit_price, quantity
		)
		SELECT i.order_item_id, i.order_id, i.menu_id, i.restaurant_id,
			COALESCE(r.name, ''), i.item_name, i.unit_price, i.quantity
		FROM inserted i
		LEFT JOIN restaurants r ON r.restaurant_id = i.restaurant_id
		ORDER BY i.order_item_id`

	setOrderTotalSQL = `UPDATE orders SET total_amount = $2 WHERE order_id = $1`

	createPaymentSQL = `INSERT INTO payments
		(order_id, amount, method, status, coupon_code, subtotal, discount, tax, delivery_fee)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING payment_id, paid_at`

	deleteCartLinesSQL = `DELETE FROM cart WHERE user_id = $1 AND cart_id = ANY($2) RETURNING cart_id`
)

var _ order.Store = (*OrderStore)(nil)

// OrderStore implements order.Store backed by PostgreSQL.
type OrderStore struct {
	pool *pgxpool.Pool
}

// NewOrderStore returns an OrderStore that uses the given pool.
func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

// InTx runs fn in a read-committed transaction.
func (s *OrderStore) InTx(ctx context.Context, fn func(tx order.Tx) error) error {
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		return fn(&orderTx{db: tx})
	})
}

func (s *OrderStore) GetOrder(ctx context.Context, id int64) (*order.Order, error) {
	rows, err := s.pool.Query(ctx, getOrderSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %d: %w", id, err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrOrderNotFound
		}
		return nil, fmt.Errorf("getting order %d: %w", id, err)
	}

	orders := []order.Order{o}
	if err := s.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

// ListOrders returns orders newest first. A zero userID lists all orders.
func (s *OrderStore) ListOrders(ctx context.Context, userID int64) ([]order.Order, error) {
	rows, err := s.pool.Query(ctx, listOrdersSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	if err := s.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *OrderStore) attachItems(ctx context.Context, orders []order.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]int64, len(orders))
	idx := make(map[int64]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		idx[o.ID] = i
	}

	rows, err := s.pool.Query(ctx, listOrderItemsSQL, ids)
	if err != nil {
		return fmt.Errorf("listing order items: %w", err)
	}
	items, err := pgx.CollectRows(rows, scanOrderItem)
	if err != nil {
		return fmt.Errorf("listing order items: %w", err)
	}
	for _, it := range items {
		i := idx[it.OrderID]
		orders[i].Items = append(orders[i].Items, it)
	}
	return nil
}

// UpdateStatus applies a guarded transition and reports whether a row moved.
func (s *OrderStore) UpdateStatus(ctx context.Context, id int64, from, next order.Status) (bool, error) {
	tag, err := s.pool.Exec(ctx, updateOrderStatusSQL, id, string(from), string(next))
	if err != nil {
		return false, fmt.Errorf("updating status of order %d: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}

// orderTx implements order.Tx on an open transaction.
type orderTx struct {
	db dbtx
}

var _ order.Tx = (*orderTx)(nil)

func (t *orderTx) CreateOrder(ctx context.Context, userID int64) (*order.Order, error) {
	rows, err := t.db.Query(ctx, createOrderSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("creating order for user %d: %w", userID, err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("creating order for user %d: %w", userID, err)
	}
	return &o, nil
}

func (t *orderTx) ActivePartnerIDs(ctx context.Context) ([]int64, error) {
	rows, err := t.db.Query(ctx, activePartnersSQL)
	if err != nil {
		return nil, fmt.Errorf("listing active delivery partners: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("listing active delivery partners: %w", err)
	}
	return ids, nil
}

func (t *orderTx) AssignPartner(ctx context.Context, orderID, partnerID int64) error {
	if _, err := t.db.Exec(ctx, assignPartnerSQL, orderID, partnerID); err != nil {
		return fmt.Errorf("assigning partner %d to order %d: %w", partnerID, orderID, err)
	}
	return nil
}

func (t *orderTx) SnapshotCartLines(ctx context.Context, orderID, userID int64, cartLineIDs []int64) ([]order.Item, error) {
	rows, err := t.db.Query(ctx, snapshotCartLinesSQL, orderID, userID, cartLineIDs)
	if err != nil {
		return nil, fmt.Errorf("snapshotting cart lines into order %d: %w", orderID, err)
	}
	items, err := pgx.CollectRows(rows, scanOrderItem)
	if err != nil {
		return nil, fmt.Errorf("snapshotting cart lines into order %d: %w", orderID, err)
	}
	return items, nil
}

func (t *orderTx) FindActive(ctx context.Context, code string, today time.Time) (*coupon.Coupon, error) {
	return findActiveCoupon(ctx, t.db, code, today)
}

func (t *orderTx) SetTotal(ctx context.Context, orderID int64, total decimal.Decimal) error {
	if _, err := t.db.Exec(ctx, setOrderTotalSQL, orderID, total); err != nil {
		return fmt.Errorf("setting total of order %d: %w", orderID, err)
	}
	return nil
}

func (t *orderTx) CreatePayment(ctx context.Context, p *order.Payment) error {
	var code *string
	if p.CouponCode != "" {
		code = &p.CouponCode
	}
	err := t.db.QueryRow(ctx, createPaymentSQL,
		p.OrderID, p.Amount, string(p.Method), string(p.Status), code,
		p.Quote.Subtotal, p.Quote.Discount, p.Quote.Tax, p.Quote.DeliveryFee,
	).Scan(&p.ID, &p.PaidAt)
	if err != nil {
		return fmt.Errorf("creating payment for order %d: %w", p.OrderID, err)
	}
	return nil
}

func (t *orderTx) DecrementStock(ctx context.Context, deltas []catalog.StockDelta) error {
	return decrementStock(ctx, t.db, deltas)
}

func (t *orderTx) DeleteCartLines(ctx context.Context, userID int64, ids []int64) ([]int64, error) {
	rows, err := t.db.Query(ctx, deleteCartLinesSQL, userID, ids)
	if err != nil {
		return nil, fmt.Errorf("deleting cart lines of user %d: %w", userID, err)
	}
	removed, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("deleting cart lines of user %d: %w", userID, err)
	}
	return removed, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o      order.Order
		status string
	)
	err := row.Scan(&o.ID, &o.UserID, &status, &o.Total, &o.DeliveryPartnerID, &o.OrderDate)
	o.Status = order.Status(status)
	return o, err
}

func scanOrderItem(row pgx.CollectableRow) (order.Item, error) {
	var (
		it           order.Item
		menuID       *int64
		restaurantID *int64
	)
	err := row.Scan(&it.ID, &it.OrderID, &menuID, &restaurantID,
		&it.RestaurantName, &it.Name, &it.UnitPrice, &it.Quantity)
	if menuID != nil {
		it.MenuID = *menuID
	}
	if restaurantID != nil {
		it.RestaurantID = *restaurantID
	}
	return it, err
}
