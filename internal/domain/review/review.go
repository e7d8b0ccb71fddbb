package review

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// Ratings are whole stars in [MinRating, MaxRating].
const (
	MinRating = 1
	MaxRating = 5
)

var (
	// ErrInvalidRating is returned when a rating is outside [MinRating, MaxRating].
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
	// ErrRestaurantNotFound is returned when reviewing a restaurant that does not exist.
	ErrRestaurantNotFound = errors.New("restaurant not found")
)

// Review is a rating a user left for a restaurant, optionally with a
// comment. A user may review the same restaurant repeatedly.
type Review struct {
	ID           int64
	UserID       int64
	UserName     string
	RestaurantID int64
	Rating       int
	Comment      string
	Date         time.Time
}

// Repository persists reviews.
type Repository interface {
	// Create stores r, filling ID and Date. It returns
	// ErrRestaurantNotFound when the restaurant does not exist.
	Create(ctx context.Context, r *Review) error
	// ListByRestaurant returns reviews newest first with reviewer names.
	ListByRestaurant(ctx context.Context, restaurantID int64) ([]Review, error)
}

// Service validates reviews and delegates to a Repository.
type Service struct {
	repo Repository
}

// NewService creates a review Service backed by repo.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Submit validates and stores a review.
func (s *Service) Submit(ctx context.Context, r Review) (*Review, error) {
	if r.Rating < MinRating || r.Rating > MaxRating {
		return nil, ErrInvalidRating
	}
	r.Comment = strings.TrimSpace(r.Comment)

	if err := s.repo.Create(ctx, &r); err != nil {
		if errors.Is(err, ErrRestaurantNotFound) {
			return nil, err
		}
		return nil, errors.Wrap(err, "create review")
	}

	zctx.From(ctx).Info("Review submitted",
		zap.Int64("review_id", r.ID),
		zap.Int64("restaurant_id", r.RestaurantID),
		zap.Int("rating", r.Rating),
	)
	return &r, nil
}

// List returns a restaurant's reviews, newest first.
func (s *Service) List(ctx context.Context, restaurantID int64) ([]Review, error) {
	reviews, err := s.repo.ListByRestaurant(ctx, restaurantID)
	if err != nil {
		return nil, errors.Wrap(err, "list reviews")
	}
	return reviews, nil
}
