package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPricing_Quote(t *testing.T) {
	tests := []struct {
		name     string
		subtotal string
		discount string
		after    string
		tax      string
		fee      string
		total    string
	}{
		{name: "coupon capped", subtotal: "500", discount: "40", after: "460.00", tax: "23.00", fee: "30.00", total: "513.00"},
		{name: "no coupon", subtotal: "100", discount: "0", after: "100.00", tax: "5.00", fee: "30.00", total: "135.00"},
		{name: "zero subtotal", subtotal: "0", discount: "0", after: "0.00", tax: "0.00", fee: "0.00", total: "0.00"},
		{name: "discount above subtotal", subtotal: "50", discount: "80", after: "0.00", tax: "0.00", fee: "30.00", total: "30.00"},
		{name: "negative discount", subtotal: "50", discount: "-10", after: "50.00", tax: "2.50", fee: "30.00", total: "82.50"},
		{name: "tax rounds half up", subtotal: "10.10", discount: "0", after: "10.10", tax: "0.51", fee: "30.00", total: "40.61"},
	}

	p := DefaultPricing()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := p.Quote(dec(tt.subtotal), dec(tt.discount))
			assert.Equal(t, tt.after, q.AfterCoupon.StringFixed(2))
			assert.Equal(t, tt.tax, q.Tax.StringFixed(2))
			assert.Equal(t, tt.fee, q.DeliveryFee.StringFixed(2))
			assert.Equal(t, tt.total, q.Total.StringFixed(2))
			assert.True(t, q.Total.Equal(q.AfterCoupon.Add(q.Tax).Add(q.DeliveryFee)))
		})
	}
}

func TestPricing_Custom(t *testing.T) {
	p := Pricing{TaxRate: dec("0.18"), DeliveryFee: dec("0")}
	q := p.Quote(dec("200"), dec("0"))
	assert.Equal(t, "236.00", q.Total.StringFixed(2))
}

func TestStatus_CanTransition(t *testing.T) {
	assert.True(t, StatusPending.CanTransition(StatusDelivered))
	assert.True(t, StatusPending.CanTransition(StatusCancelled))
	assert.False(t, StatusPending.CanTransition(StatusPending))
	assert.False(t, StatusDelivered.CanTransition(StatusCancelled))
	assert.False(t, StatusCancelled.CanTransition(StatusDelivered))
}
