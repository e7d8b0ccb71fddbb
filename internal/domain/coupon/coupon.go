package coupon

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned by a Lookup when no usable coupon matches the code.
// Callers treat it as "no discount", never as a failure.
var ErrNotFound = errors.New("coupon not found")

// Coupon is a named percentage discount with an absolute cap, gated by an
// active flag and an optional expiry date.
type Coupon struct {
	Code            string
	DiscountPercent decimal.Decimal
	MaxDiscount     decimal.Decimal
	Active          bool
	// ExpiryDate is the last calendar day the coupon can be used. Nil means
	// the coupon never expires.
	ExpiryDate *time.Time
}

// UsableOn reports whether the coupon is active and not expired on the
// calendar day of today.
func (c *Coupon) UsableOn(today time.Time) bool {
	if !c.Active {
		return false
	}
	if c.ExpiryDate == nil {
		return true
	}
	return !Day(*c.ExpiryDate).Before(Day(today))
}

// Lookup finds a coupon by code that is usable on the given day.
// Implementations return ErrNotFound on a miss.
type Lookup interface {
	FindActive(ctx context.Context, code string, today time.Time) (*Coupon, error)
}

// NormalizeCode trims surrounding whitespace. Codes compare case-insensitively
// in storage, so the case is preserved for display.
func NormalizeCode(code string) string {
	return strings.TrimSpace(code)
}

// Day truncates t to midnight of its calendar day in t's location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
