package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/review"
)

const (
	createReviewSQL = `INSERT INTO reviews (user_id, restaurant_id, rating, comment)
		VALUES ($1, $2, $3, $4) RETURNING review_id, review_date`

	listReviewsSQL = `SELECT r.review_id, r.user_id, u.name, r.restaurant_id, r.rating, r.comment, r.review_date
		FROM reviews r
		JOIN users u ON u.user_id = r.user_id
		WHERE r.restaurant_id = $1
		ORDER BY r.review_date DESC, r.review_id DESC`

	reviewRestaurantForeignKey = "reviews_restaurant_id_fkey"
)

var _ review.Repository = (*ReviewRepository)(nil)

// ReviewRepository implements review.Repository backed by PostgreSQL.
type ReviewRepository struct {
	pool *pgxpool.Pool
}

// NewReviewRepository returns a ReviewRepository that uses the given pool.
func NewReviewRepository(pool *pgxpool.Pool) *ReviewRepository {
	return &ReviewRepository{pool: pool}
}

func (r *ReviewRepository) Create(ctx context.Context, rv *review.Review) error {
	err := r.pool.QueryRow(ctx, createReviewSQL,
		rv.UserID, rv.RestaurantID, rv.Rating, rv.Comment,
	).Scan(&rv.ID, &rv.Date)
	if err != nil {
		if pgCode(err) == codeForeignKeyViolation && pgConstraint(err) == reviewRestaurantForeignKey {
			return review.ErrRestaurantNotFound
		}
		return fmt.Errorf("creating review for restaurant %d: %w", rv.RestaurantID, err)
	}
	return nil
}

func (r *ReviewRepository) ListByRestaurant(ctx context.Context, restaurantID int64) ([]review.Review, error) {
	rows, err := r.pool.Query(ctx, listReviewsSQL, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("listing reviews of restaurant %d: %w", restaurantID, err)
	}
	reviews, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (review.Review, error) {
		var rv review.Review
		err := row.Scan(&rv.ID, &rv.UserID, &rv.UserName, &rv.RestaurantID, &rv.Rating, &rv.Comment, &rv.Date)
		return rv, err
	})
	if err != nil {
		return nil, fmt.Errorf("listing reviews of restaurant %d: %w", restaurantID, err)
	}
	return reviews, nil
}
