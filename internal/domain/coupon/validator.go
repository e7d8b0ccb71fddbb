package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Resolve looks up code through lookup and computes its discount against
// subtotal. An empty, unknown, inactive or expired code yields a zero
// Discount and no error; only lookup failures are returned.
func Resolve(ctx context.Context, lookup Lookup, code string, subtotal decimal.Decimal, today time.Time) (Discount, error) {
	code = NormalizeCode(code)
	if code == "" {
		return Discount{Amount: decimal.Zero}, nil
	}

	c, err := lookup.FindActive(ctx, code, today)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Discount{Amount: decimal.Zero}, nil
		}
		return Discount{}, errors.Wrap(err, "lookup coupon")
	}

	// Storage filters on the same conditions; re-check so a stale or
	// permissive lookup can never grant a discount.
	if !c.UsableOn(today) {
		return Discount{Amount: decimal.Zero}, nil
	}

	return Discount{
		Code:   c.Code,
		Amount: c.Amount(subtotal),
	}, nil
}
