package coupon

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Discount holds the amount taken off a subtotal and the code that produced
// it. A zero Discount means no coupon applied.
type Discount struct {
	Code   string
	Amount decimal.Decimal
}

// Applied reports whether a coupon contributed to the discount.
func (d Discount) Applied() bool {
	return d.Code != ""
}

// Amount computes min(subtotal * percent / 100, cap) rounded to two places.
// Malformed rules are clamped: the percentage to [0, 100], the cap to at
// least zero, and the result to [0, subtotal].
func (c *Coupon) Amount(subtotal decimal.Decimal) decimal.Decimal {
	if !subtotal.IsPositive() {
		return decimal.Zero
	}

	pct := clamp(c.DiscountPercent, decimal.Zero, hundred)
	limit := floorAtZero(c.MaxDiscount)

	amount := subtotal.Mul(pct).Div(hundred)
	amount = decimal.Min(amount, limit, subtotal)
	return floorAtZero(amount).Round(2)
}

func clamp(v, lo, hi decimal.Decimal) decimal.Decimal {
	return decimal.Max(lo, decimal.Min(v, hi))
}

// floorAtZero clamps negative values to zero.
func floorAtZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
