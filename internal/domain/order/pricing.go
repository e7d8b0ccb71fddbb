package order

import (
	"github.com/shopspring/decimal"
)

var (
	// DefaultTaxRate is applied to the subtotal after coupon.
	DefaultTaxRate = decimal.RequireFromString("0.05")
	// DefaultDeliveryFee is the flat fee charged on any non-empty order.
	DefaultDeliveryFee = decimal.RequireFromString("30.00")
)

// Pricing holds the tax and delivery constants used to quote an order.
type Pricing struct {
	TaxRate     decimal.Decimal
	DeliveryFee decimal.Decimal
}

// DefaultPricing returns a 5% tax rate and a 30.00 delivery fee.
func DefaultPricing() Pricing {
	return Pricing{TaxRate: DefaultTaxRate, DeliveryFee: DefaultDeliveryFee}
}

// Quote is the price breakdown of an order.
//
// Total = AfterCoupon + Tax + DeliveryFee, and AfterCoupon = Subtotal - Discount.
type Quote struct {
	Subtotal    decimal.Decimal
	Discount    decimal.Decimal
	AfterCoupon decimal.Decimal
	Tax         decimal.Decimal
	DeliveryFee decimal.Decimal
	Total       decimal.Decimal
}

// Quote prices a subtotal with the given coupon discount. The discount is
// clamped to [0, subtotal] so AfterCoupon is never negative, and the delivery
// fee is waived only when the subtotal is zero.
func (p Pricing) Quote(subtotal, discount decimal.Decimal) Quote {
	subtotal = subtotal.Round(2)
	if subtotal.IsNegative() {
		subtotal = decimal.Zero
	}
	discount = decimal.Max(decimal.Zero, decimal.Min(discount.Round(2), subtotal))

	after := subtotal.Sub(discount)
	tax := after.Mul(p.TaxRate).Round(2)

	fee := decimal.Zero
	if subtotal.IsPositive() {
		fee = p.DeliveryFee.Round(2)
	}

	return Quote{
		Subtotal:    subtotal,
		Discount:    discount,
		AfterCoupon: after,
		Tax:         tax,
		DeliveryFee: fee,
		Total:       after.Add(tax).Add(fee),
	}
}

// Subtotal sums the line totals of items.
func Subtotal(items []Item) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.LineTotal())
	}
	return sum
}
