//go:build integration

package integration

import (
	"fmt"
	"net/http"
	"testing"
)

func placeOrder(t *testing.T, apiKey string, ids []int64, method, coupon string, want int) placeOrderResponse {
	t.Helper()

	body := map[string]any{
		"cartLineIds":   ids,
		"paymentMethod": method,
	}
	if coupon != "" {
		body["couponCode"] = coupon
	}
	return call[placeOrderResponse](t, http.MethodPost, "/api/orders", apiKey, body, want)
}

func menuStock(t *testing.T, restaurantID, menuID int64) int {
	t.Helper()

	menu := call[[]menuItemResponse](t, http.MethodGet, fmt.Sprintf("/api/restaurants/%d/menu", restaurantID), "", nil, http.StatusOK)
	for _, m := range menu {
		if m.ID == menuID {
			return m.Stock
		}
	}
	t.Fatalf("menu item %d not found in restaurant %d", menuID, restaurantID)
	return 0
}

func TestPlaceOrder_NoAuth(t *testing.T) {
	resp := doRequest(t, http.MethodPost, "/api/orders", "", map[string]any{"cartLineIds": []int64{1}, "paymentMethod": "UPI"})
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusUnauthorized)
}

func TestPlaceOrder_InvalidKey(t *testing.T) {
	resp := doRequest(t, http.MethodPost, "/api/orders", "wrong-key", map[string]any{"cartLineIds": []int64{1}, "paymentMethod": "UPI"})
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusUnauthorized)
}

func TestPlaceOrder_EmptySelection(t *testing.T) {
	resp := doRequest(t, http.MethodPost, "/api/orders", vikramKey, map[string]any{"cartLineIds": []int64{}, "paymentMethod": "UPI"})
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusBadRequest)
}

func TestPlaceOrder_InvalidPaymentMethod(t *testing.T) {
	resp := doRequest(t, http.MethodPost, "/api/orders", vikramKey, map[string]any{"cartLineIds": []int64{1}, "paymentMethod": "Bitcoin"})
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusUnprocessableEntity)
}

func TestPlaceOrder_FullFlow(t *testing.T) {
	emptyCart(t, vikramKey)

	dosaBefore := menuStock(t, 2, 5)
	dosa := addToCart(t, vikramKey, 5, 2)   // Masala Dosa 90.00
	coffee := addToCart(t, vikramKey, 7, 1) // Filter Coffee 35.00

	res := placeOrder(t, vikramKey, []int64{dosa.CartID, coffee.CartID}, "UPI", " SAVE10 ", http.StatusCreated)

	p := res.Pricing
	for _, c := range []struct {
		name      string
		got, want float64
	}{
		{"subtotal", p.Subtotal, 215},
		{"discount", p.Discount, 21.5},
		{"afterCoupon", p.AfterCoupon, 193.5},
		{"tax", p.Tax, 9.68},
		{"deliveryFee", p.DeliveryFee, 30},
		{"total", p.Total, 233.18},
		{"order total", res.Order.Total, 233.18},
		{"payment amount", res.Payment.Amount, 233.18},
	} {
		if !approx(c.got, c.want) {
			t.Errorf("%s: got %v, want %v", c.name, c.got, c.want)
		}
	}

	if res.Order.Status != "Pending" {
		t.Errorf("status: got %q, want Pending", res.Order.Status)
	}
	if len(res.Order.Items) != 2 {
		t.Fatalf("items: got %d, want 2", len(res.Order.Items))
	}
	if res.Payment.Method != "UPI" || res.Payment.Status != "Completed" {
		t.Errorf("payment: %+v", res.Payment)
	}
	if res.Payment.CouponCode == nil || *res.Payment.CouponCode != "SAVE10" {
		t.Errorf("payment coupon code: %v", res.Payment.CouponCode)
	}
	if id := res.Order.DeliveryPartnerID; id == nil || (*id != 1 && *id != 2) {
		t.Errorf("delivery partner: got %v, want an active partner", id)
	}
	if len(res.ConsumedCartLines) != 2 {
		t.Errorf("consumed cart lines: %v", res.ConsumedCartLines)
	}

	if got := menuStock(t, 2, 5); got != dosaBefore-2 {
		t.Errorf("dosa stock: got %d, want %d", got, dosaBefore-2)
	}
	c := call[cartResponse](t, http.MethodGet, "/api/cart", vikramKey, nil, http.StatusOK)
	if len(c.Items) != 0 {
		t.Errorf("cart not emptied: %+v", c.Items)
	}

	history := call[[]orderResponse](t, http.MethodGet, "/api/orders", vikramKey, nil, http.StatusOK)
	if len(history) == 0 || history[0].ID != res.Order.ID {
		t.Errorf("order %d not first in history", res.Order.ID)
	}

	// Replaying consumed ids yields an empty order instead of an error.
	replay := placeOrder(t, vikramKey, []int64{dosa.CartID, coffee.CartID}, "UPI", "", http.StatusCreated)
	if len(replay.Order.Items) != 0 || !approx(replay.Pricing.Total, 0) || !approx(replay.Pricing.DeliveryFee, 0) {
		t.Errorf("replay: items=%d pricing=%+v", len(replay.Order.Items), replay.Pricing)
	}
}

func TestPlaceOrder_CouponCapAndExpiry(t *testing.T) {
	for _, tt := range []struct {
		coupon   string
		discount float64
	}{
		{"FEAST25", 150},  // 25% of 660 capped at 150
		{"feast25", 150},  // case-insensitive
		{"OLDDEAL", 0},    // expired
		{"PAUSED", 0},     // inactive
		{"NOSUCHCODE", 0}, // unknown
	} {
		t.Run(tt.coupon, func(t *testing.T) {
			emptyCart(t, vikramKey)
			line := addToCart(t, vikramKey, 8, 3) // Quinoa Salad 220.00

			res := placeOrder(t, vikramKey, []int64{line.CartID}, "Cash", tt.coupon, http.StatusCreated)
			if !approx(res.Pricing.Subtotal, 660) {
				t.Fatalf("subtotal: got %v, want 660", res.Pricing.Subtotal)
			}
			if !approx(res.Pricing.Discount, tt.discount) {
				t.Errorf("discount: got %v, want %v", res.Pricing.Discount, tt.discount)
			}
			wantTotal := (660 - tt.discount) * 1.05
			if !approx(res.Pricing.Total, wantTotal+30) {
				t.Errorf("total: got %v, want %v", res.Pricing.Total, wantTotal+30)
			}
		})
	}
}

func TestPlaceOrder_StockFloorsAtZero(t *testing.T) {
	emptyCart(t, vikramKey)

	call[menuItemResponse](t, http.MethodPut, "/api/admin/menu/9", adminKey, map[string]any{"stock": 1}, http.StatusOK)
	line := addToCart(t, vikramKey, 9, 3) // Cold Pressed Juice, more than in stock

	placeOrder(t, vikramKey, []int64{line.CartID}, "Wallet", "", http.StatusCreated)

	if got := menuStock(t, 3, 9); got != 0 {
		t.Errorf("stock: got %d, want 0", got)
	}
}

func TestPlaceOrder_ForeignCartLinesExcluded(t *testing.T) {
	emptyCart(t, ashaKey)
	emptyCart(t, vikramKey)
	t.Cleanup(func() { emptyCart(t, ashaKey) })

	foreign := addToCart(t, ashaKey, 2, 1)

	res := placeOrder(t, vikramKey, []int64{foreign.CartID}, "Debit Card", "", http.StatusCreated)
	if len(res.Order.Items) != 0 {
		t.Errorf("foreign cart line was ordered: %+v", res.Order.Items)
	}
	if len(res.ConsumedCartLines) != 0 {
		t.Errorf("foreign cart line consumed: %v", res.ConsumedCartLines)
	}

	c := call[cartResponse](t, http.MethodGet, "/api/cart", ashaKey, nil, http.StatusOK)
	if len(c.Items) != 1 || c.Items[0].ID != foreign.CartID {
		t.Errorf("owner's cart changed: %+v", c.Items)
	}
}

func TestOrderStatus_Lifecycle(t *testing.T) {
	emptyCart(t, vikramKey)
	line := addToCart(t, vikramKey, 6, 1)
	res := placeOrder(t, vikramKey, []int64{line.CartID}, "Credit Card", "", http.StatusCreated)
	path := fmt.Sprintf("/api/orders/%d/status", res.Order.ID)

	// Another customer cannot see the order.
	resp := doRequest(t, http.MethodPost, path, ashaKey, map[string]any{"status": "Cancelled"})
	resp.Body.Close()
	expectStatus(t, resp, http.StatusNotFound)

	resp = doRequest(t, http.MethodPost, path, vikramKey, map[string]any{"status": "Shipped"})
	resp.Body.Close()
	expectStatus(t, resp, http.StatusUnprocessableEntity)

	cancelled := call[statusResponse](t, http.MethodPost, path, vikramKey, map[string]any{"status": "Cancelled"}, http.StatusOK)
	if !cancelled.Changed || cancelled.Order.Status != "Cancelled" {
		t.Errorf("cancel: %+v", cancelled)
	}

	// Terminal statuses do not move.
	again := call[statusResponse](t, http.MethodPost, path, vikramKey, map[string]any{"status": "Delivered"}, http.StatusOK)
	if again.Changed || again.Order.Status != "Cancelled" {
		t.Errorf("transition out of terminal status: %+v", again)
	}
}
