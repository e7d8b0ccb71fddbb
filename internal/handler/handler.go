// Package handler exposes the storefront domain services over HTTP.
package handler

import (
	"context"
	"net/http"

	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/catalog"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/review"
)

// CatalogService is the restaurant and menu surface used by the handlers.
type CatalogService interface {
	ListRestaurants(ctx context.Context) ([]catalog.Restaurant, error)
	Menu(ctx context.Context, restaurantID int64) ([]catalog.MenuItem, error)
	MenuItem(ctx context.Context, id int64) (*catalog.MenuItem, error)
	CreateRestaurant(ctx context.Context, r *catalog.Restaurant) error
	DeleteRestaurant(ctx context.Context, id int64) error
	CreateMenuItem(ctx context.Context, m *catalog.MenuItem) error
	UpdateMenuItem(ctx context.Context, id int64, upd catalog.MenuUpdate) (*catalog.MenuItem, error)
	DeleteMenuItem(ctx context.Context, id int64) error
}

// CartService is the cart surface used by the handlers.
type CartService interface {
	Add(ctx context.Context, req cart.AddRequest) (*cart.AddResult, error)
	List(ctx context.Context, userID int64) ([]cart.Line, error)
	Remove(ctx context.Context, userID, cartID int64) (bool, error)
}

// OrderService is the order placement and lifecycle surface used by the
// handlers.
type OrderService interface {
	PlaceOrder(ctx context.Context, req order.PlaceOrderRequest) (*order.PlaceOrderResult, error)
	UpdateStatus(ctx context.Context, req order.UpdateStatusRequest) (*order.UpdateStatusResult, error)
	History(ctx context.Context, userID int64) ([]order.Order, error)
	ListAll(ctx context.Context) ([]order.Order, error)
}

// ReviewService is the review surface used by the handlers.
type ReviewService interface {
	Submit(ctx context.Context, r review.Review) (*review.Review, error)
	List(ctx context.Context, restaurantID int64) ([]review.Review, error)
}

var (
	_ CatalogService = (*catalog.Service)(nil)
	_ CartService    = (*cart.Service)(nil)
	_ OrderService   = (*order.Service)(nil)
	_ ReviewService  = (*review.Service)(nil)
)

// Handler serves the storefront JSON API. Identity always comes from the
// authenticated request, never from the body.
type Handler struct {
	catalog CatalogService
	carts   CartService
	orders  OrderService
	reviews ReviewService
}

// NewHandler constructs a Handler with the required domain services.
func NewHandler(
	catalog CatalogService,
	carts CartService,
	orders OrderService,
	reviews ReviewService,
) *Handler {
	return &Handler{
		catalog: catalog,
		carts:   carts,
		orders:  orders,
		reviews: reviews,
	}
}

// Register mounts every API route on mux. Browsing is public; cart, order
// and review writes need an API key; /api/admin needs the admin scope.
func (h *Handler) Register(mux *http.ServeMux, sec *SecurityHandler) {
	user := func(fn http.HandlerFunc) http.Handler {
		return sec.Authenticate(fn)
	}
	admin := func(fn http.HandlerFunc) http.Handler {
		return sec.Authenticate(RequireScope(auth.ScopeAdmin)(fn))
	}

	mux.HandleFunc("GET /api/restaurants", h.listRestaurants)
	mux.HandleFunc("GET /api/restaurants/{id}/menu", h.restaurantMenu)
	mux.HandleFunc("GET /api/restaurants/{id}/reviews", h.listReviews)
	mux.Handle("POST /api/restaurants/{id}/reviews", user(h.submitReview))

	mux.Handle("GET /api/cart", user(h.getCart))
	mux.Handle("POST /api/cart", user(h.addToCart))
	mux.Handle("DELETE /api/cart/{id}", user(h.removeFromCart))

	mux.Handle("POST /api/orders", user(h.placeOrder))
	mux.Handle("GET /api/orders", user(h.orderHistory))
	mux.Handle("POST /api/orders/{id}/status", user(h.updateOrderStatus))

	mux.Handle("POST /api/admin/restaurants", admin(h.createRestaurant))
	mux.Handle("DELETE /api/admin/restaurants/{id}", admin(h.deleteRestaurant))
	mux.Handle("POST /api/admin/restaurants/{id}/menu", admin(h.createMenuItem))
	mux.Handle("GET /api/admin/menu/{id}", admin(h.getMenuItem))
	mux.Handle("PUT /api/admin/menu/{id}", admin(h.updateMenuItem))
	mux.Handle("DELETE /api/admin/menu/{id}", admin(h.deleteMenuItem))
	mux.Handle("GET /api/admin/orders", admin(h.listAllOrders))
	mux.Handle("POST /api/admin/orders/{id}/status", admin(h.adminUpdateOrderStatus))
}
