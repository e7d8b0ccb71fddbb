package catalog

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrRestaurantNotFound is returned when a restaurant does not exist.
	ErrRestaurantNotFound = errors.New("restaurant not found")
	// ErrMenuItemNotFound is returned when a menu item does not exist.
	ErrMenuItemNotFound = errors.New("menu item not found")
)

// ValidationError reports an invalid field on a catalog write.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Restaurant is a venue that owns a menu.
type Restaurant struct {
	ID      int64
	Name    string
	Address string
}

// MenuItem is a purchasable dish. Stock is never negative.
type MenuItem struct {
	ID           int64
	RestaurantID int64
	Name         string
	Category     string
	Price        decimal.Decimal
	Stock        int
}

// InStock reports whether at least one unit is available.
func (m MenuItem) InStock() bool {
	return m.Stock > 0
}

// MenuUpdate carries the mutable fields of a menu item. Nil fields are left
// unchanged.
type MenuUpdate struct {
	Name     *string
	Category *string
	Price    *decimal.Decimal
	Stock    *int
}

// StockDelta is a quantity to subtract from a menu item's stock.
type StockDelta struct {
	MenuID   int64
	Quantity int
}

// Repository defines persistence for restaurants and menus.
type Repository interface {
	ListRestaurants(ctx context.Context) ([]Restaurant, error)
	GetRestaurant(ctx context.Context, id int64) (*Restaurant, error)
	CreateRestaurant(ctx context.Context, r *Restaurant) error
	// DeleteRestaurant removes the restaurant and every menu item it owns.
	DeleteRestaurant(ctx context.Context, id int64) error

	// ListMenu returns every item of a restaurant, including out-of-stock ones.
	ListMenu(ctx context.Context, restaurantID int64) ([]MenuItem, error)
	GetMenuItem(ctx context.Context, id int64) (*MenuItem, error)
	CreateMenuItem(ctx context.Context, m *MenuItem) error
	UpdateMenuItem(ctx context.Context, id int64, upd MenuUpdate) (*MenuItem, error)
	DeleteMenuItem(ctx context.Context, id int64) error
}
