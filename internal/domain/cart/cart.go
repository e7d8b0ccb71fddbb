package cart

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidQuantity is returned when adding a non-positive quantity.
	ErrInvalidQuantity = errors.New("quantity must be greater than 0")
	// ErrQuantityLimit is returned when a line would hold more than
	// MaxQuantity units.
	ErrQuantityLimit = errors.New("quantity exceeds the per-item limit")
	// ErrMenuItemNotFound is returned when the menu item being added does not exist.
	ErrMenuItemNotFound = errors.New("menu item not found")
)

// MaxQuantity is the largest quantity a single cart line may hold.
const MaxQuantity = 999

// Line is one pending-purchase record of a user, joined with the menu item
// and restaurant it refers to. A (UserID, MenuID) pair appears at most once.
type Line struct {
	ID             int64
	UserID         int64
	MenuID         int64
	Quantity       int
	ItemName       string
	Category       string
	Price          decimal.Decimal
	RestaurantID   int64
	RestaurantName string
}

// Total returns price * quantity.
func (l Line) Total() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Repository defines persistence operations for cart lines.
type Repository interface {
	// Add inserts the line or, when the (user, menu item) pair exists, adds
	// quantity to it in the same statement. It returns the resulting line id
	// and quantity, or ErrQuantityLimit when the sum would exceed MaxQuantity.
	Add(ctx context.Context, userID, menuID int64, quantity int) (id int64, total int, err error)
	List(ctx context.Context, userID int64) ([]Line, error)
	// Remove deletes a line owned by userID and reports whether it existed.
	Remove(ctx context.Context, userID, cartID int64) (bool, error)
}
