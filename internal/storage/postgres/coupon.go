package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/coupon"
)

const (
	findActiveCouponSQL = `SELECT code, discount_percent, max_discount_amount, active, expiry_date
		FROM coupons
		WHERE UPPER(code) = UPPER($1) AND active = TRUE
		  AND (expiry_date IS NULL OR expiry_date >= $2::date)`

	upsertCouponSQL = `INSERT INTO coupons (code, discount_percent, max_discount_amount, active, expiry_date)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT ((UPPER(code))) DO UPDATE SET
			discount_percent = EXCLUDED.discount_percent,
			max_discount_amount = EXCLUDED.max_discount_amount,
			active = EXCLUDED.active,
			expiry_date = EXCLUDED.expiry_date`
)

var _ coupon.Lookup = (*CouponRepository)(nil)

// CouponRepository implements coupon.Lookup backed by PostgreSQL.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// FindActive looks up a coupon by code (case-insensitive) that is active and
// not expired on today. Returns coupon.ErrNotFound on a miss.
func (r *CouponRepository) FindActive(ctx context.Context, code string, today time.Time) (*coupon.Coupon, error) {
	return findActiveCoupon(ctx, r.pool, code, today)
}

// Upsert inserts or replaces coupons in one batch, matching codes
// case-insensitively.
func (r *CouponRepository) Upsert(ctx context.Context, coupons []coupon.Coupon) error {
	if len(coupons) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, c := range coupons {
		batch.Queue(upsertCouponSQL, c.Code, c.DiscountPercent, c.MaxDiscount, c.Active, c.ExpiryDate)
	}

	br := r.pool.SendBatch(ctx, batch)
	for _, c := range coupons {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("upserting coupon %q: %w", c.Code, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("upserting coupons: %w", err)
	}
	return nil
}

func findActiveCoupon(ctx context.Context, db dbtx, code string, today time.Time) (*coupon.Coupon, error) {
	rows, err := db.Query(ctx, findActiveCouponSQL, code, coupon.Day(today))
	if err != nil {
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}
	return &c, nil
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var c coupon.Coupon
	err := row.Scan(&c.Code, &c.DiscountPercent, &c.MaxDiscount, &c.Active, &c.ExpiryDate)
	return c, err
}
