package order

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/catalog"
	"github.com/xenking/storefront/internal/domain/coupon"
)

// Store provides order persistence. Multi-step writes go through InTx.
type Store interface {
	// InTx runs fn in a single transaction, committing when fn returns nil
	// and rolling back every step otherwise.
	InTx(ctx context.Context, fn func(tx Tx) error) error

	// GetOrder returns an order with its items, or ErrOrderNotFound.
	GetOrder(ctx context.Context, id int64) (*Order, error)
	// ListOrders returns orders newest first with their items. A zero userID
	// lists every user's orders.
	ListOrders(ctx context.Context, userID int64) ([]Order, error)
	// UpdateStatus moves the order to next only while it is still in from,
	// reporting whether a row changed.
	UpdateStatus(ctx context.Context, id int64, from, next Status) (bool, error)
}

// Tx is the set of collaborators order placement needs inside one
// transaction.
type Tx interface {
	coupon.Lookup

	// CreateOrder inserts an order for userID in Pending with a zero total,
	// returning the stored row.
	CreateOrder(ctx context.Context, userID int64) (*Order, error)
	// ActivePartnerIDs returns every delivery partner currently on duty.
	ActivePartnerIDs(ctx context.Context) ([]int64, error)
	AssignPartner(ctx context.Context, orderID, partnerID int64) error
	// SnapshotCartLines copies cart lines that are both listed in
	// cartLineIDs and owned by userID into order items, returning them.
	SnapshotCartLines(ctx context.Context, orderID, userID int64, cartLineIDs []int64) ([]Item, error)
	SetTotal(ctx context.Context, orderID int64, total decimal.Decimal) error
	CreatePayment(ctx context.Context, p *Payment) error
	// DecrementStock subtracts each delta, flooring stock at zero.
	DecrementStock(ctx context.Context, deltas []catalog.StockDelta) error
	// DeleteCartLines removes lines listed in ids and owned by userID,
	// returning the ids actually removed.
	DeleteCartLines(ctx context.Context, userID int64, ids []int64) ([]int64, error)
}
