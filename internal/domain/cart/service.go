package cart

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// AddRequest holds the input for adding an item to a cart.
type AddRequest struct {
	UserID   int64
	MenuID   int64
	Quantity int
	// Epoch scopes duplicate suppression. Empty disables the guard.
	Epoch string
}

// AddResult reports the state of the line after an add.
type AddResult struct {
	LineID   int64
	Quantity int
	// Duplicate is true when the request repeated one already applied in
	// the same epoch; nothing was written.
	Duplicate bool
}

// Service implements cart operations scoped to an explicit user.
type Service struct {
	repo  Repository
	guard Guard
}

// NewService creates a cart Service. guard may be nil to disable duplicate
// suppression.
func NewService(repo Repository, guard Guard) *Service {
	return &Service{repo: repo, guard: guard}
}

// Add upserts a cart line, incrementing quantity when the item is already
// in the user's cart. A failed add releases its guard key so the same click
// can be retried.
func (s *Service) Add(ctx context.Context, req AddRequest) (*AddResult, error) {
	if req.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	if req.Quantity > MaxQuantity {
		return nil, ErrQuantityLimit
	}

	var key *GuardKey
	if s.guard != nil && req.Epoch != "" {
		k := GuardKey{UserID: req.UserID, MenuID: req.MenuID, Epoch: req.Epoch}
		first, err := s.guard.Acquire(ctx, k)
		switch {
		case err != nil:
			// The guard only suppresses UI double-submits; losing it must
			// not block the cart.
			zctx.From(ctx).Warn("Cart guard unavailable", zap.Error(err))
		case !first:
			return &AddResult{Duplicate: true}, nil
		default:
			key = &k
		}
	}

	id, qty, err := s.repo.Add(ctx, req.UserID, req.MenuID, req.Quantity)
	if err != nil {
		if key != nil {
			if rerr := s.guard.Release(ctx, *key); rerr != nil {
				zctx.From(ctx).Warn("Cart guard release failed", zap.Error(rerr))
			}
		}
		switch {
		case errors.Is(err, ErrMenuItemNotFound):
			return nil, ErrMenuItemNotFound
		case errors.Is(err, ErrQuantityLimit):
			return nil, ErrQuantityLimit
		}
		return nil, errors.Wrap(err, "add cart line")
	}

	return &AddResult{LineID: id, Quantity: qty}, nil
}

// List returns the user's cart lines.
func (s *Service) List(ctx context.Context, userID int64) ([]Line, error) {
	lines, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "list cart")
	}
	return lines, nil
}

// Remove deletes a single line owned by userID. It reports false when the
// line does not exist or belongs to someone else.
func (s *Service) Remove(ctx context.Context, userID, cartID int64) (bool, error) {
	ok, err := s.repo.Remove(ctx, userID, cartID)
	if err != nil {
		return false, errors.Wrap(err, "remove cart line")
	}
	return ok, nil
}
