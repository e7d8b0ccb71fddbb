package catalog

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// Service validates catalog writes and delegates to a Repository.
type Service struct {
	repo Repository
}

// NewService creates a catalog Service backed by repo.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ListRestaurants returns all restaurants.
func (s *Service) ListRestaurants(ctx context.Context) ([]Restaurant, error) {
	rs, err := s.repo.ListRestaurants(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list restaurants")
	}
	return rs, nil
}

// Menu returns the full menu of a restaurant. Out-of-stock items are
// included so administrative changes stay visible.
func (s *Service) Menu(ctx context.Context, restaurantID int64) ([]MenuItem, error) {
	if _, err := s.repo.GetRestaurant(ctx, restaurantID); err != nil {
		return nil, err
	}
	items, err := s.repo.ListMenu(ctx, restaurantID)
	if err != nil {
		return nil, errors.Wrap(err, "list menu")
	}
	return items, nil
}

// MenuItem returns a single menu item, in or out of stock.
func (s *Service) MenuItem(ctx context.Context, id int64) (*MenuItem, error) {
	return s.repo.GetMenuItem(ctx, id)
}

// CreateRestaurant validates and stores a new restaurant, filling r.ID.
func (s *Service) CreateRestaurant(ctx context.Context, r *Restaurant) error {
	r.Name = strings.TrimSpace(r.Name)
	r.Address = strings.TrimSpace(r.Address)
	if r.Name == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if err := s.repo.CreateRestaurant(ctx, r); err != nil {
		return errors.Wrap(err, "create restaurant")
	}
	zctx.From(ctx).Info("Restaurant created", zap.Int64("restaurant_id", r.ID))
	return nil
}

// DeleteRestaurant removes a restaurant together with its menu.
func (s *Service) DeleteRestaurant(ctx context.Context, id int64) error {
	if err := s.repo.DeleteRestaurant(ctx, id); err != nil {
		return err
	}
	zctx.From(ctx).Info("Restaurant deleted", zap.Int64("restaurant_id", id))
	return nil
}

// CreateMenuItem validates and stores a new menu item, filling m.ID.
func (s *Service) CreateMenuItem(ctx context.Context, m *MenuItem) error {
	m.Name = strings.TrimSpace(m.Name)
	m.Category = strings.TrimSpace(m.Category)
	if err := validateMenuItem(m.Name, m.Price.IsNegative(), m.Stock); err != nil {
		return err
	}
	m.Price = m.Price.Round(2)
	if err := s.repo.CreateMenuItem(ctx, m); err != nil {
		return err
	}
	return nil
}

// UpdateMenuItem applies the non-nil fields of upd.
func (s *Service) UpdateMenuItem(ctx context.Context, id int64, upd MenuUpdate) (*MenuItem, error) {
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return nil, &ValidationError{Field: "name", Reason: "must not be empty"}
		}
		upd.Name = &name
	}
	if upd.Price != nil {
		if upd.Price.IsNegative() {
			return nil, &ValidationError{Field: "price", Reason: "must not be negative"}
		}
		p := upd.Price.Round(2)
		upd.Price = &p
	}
	if upd.Stock != nil && *upd.Stock < 0 {
		return nil, &ValidationError{Field: "stock", Reason: "must not be negative"}
	}
	return s.repo.UpdateMenuItem(ctx, id, upd)
}

// DeleteMenuItem removes a menu item.
func (s *Service) DeleteMenuItem(ctx context.Context, id int64) error {
	return s.repo.DeleteMenuItem(ctx, id)
}

func validateMenuItem(name string, negativePrice bool, stock int) error {
	if name == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if negativePrice {
		return &ValidationError{Field: "price", Reason: "must not be negative"}
	}
	if stock < 0 {
		return &ValidationError{Field: "stock", Reason: "must not be negative"}
	}
	return nil
}
