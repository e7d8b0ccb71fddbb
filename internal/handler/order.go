package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/storefront/internal/domain/order"
)

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	req := order.PlaceOrderRequest{UserID: identity(r).UserID}
	if err := decodeObject(r, func(d *jx.Decoder, key string) error {
		switch key {
		case "cartLineIds":
			return d.Arr(func(d *jx.Decoder) error {
				id, err := d.Int64()
				if err != nil {
					return badRequest("cartLineIds must be integers")
				}
				req.CartLineIDs = append(req.CartLineIDs, id)
				return nil
			})
		case "paymentMethod":
			v, err := d.Str()
			if err != nil {
				return badRequest("paymentMethod must be a string")
			}
			req.PaymentMethod = v
		case "couponCode":
			if d.Next() == jx.Null {
				return d.Null()
			}
			v, err := d.Str()
			if err != nil {
				return badRequest("couponCode must be a string")
			}
			req.CouponCode = v
		default:
			return d.Skip()
		}
		return nil
	}); err != nil {
		fail(w, r, err)
		return
	}

	res, err := h.orders.PlaceOrder(r.Context(), req)
	if err != nil {
		fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("order")
		encodeOrder(e, *res.Order)
		e.FieldStart("payment")
		encodePayment(e, *res.Payment)
		e.FieldStart("pricing")
		encodeQuote(e, res.Quote)
		e.FieldStart("consumedCartLines")
		encodeIDs(e, res.ConsumedCartLines)
		e.FieldStart("touchedMenuItems")
		encodeIDs(e, res.TouchedMenuItems)
		e.ObjEnd()
	})
}

func (h *Handler) orderHistory(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.History(r.Context(), identity(r).UserID)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeOrders(w, orders)
}

func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	h.changeStatus(w, r, false)
}

func (h *Handler) changeStatus(w http.ResponseWriter, r *http.Request, admin bool) {
	id, err := pathID(r)
	if err != nil {
		fail(w, r, err)
		return
	}

	req := order.UpdateStatusRequest{
		OrderID: id,
		UserID:  identity(r).UserID,
		Admin:   admin,
	}
	if err := decodeObject(r, func(d *jx.Decoder, key string) error {
		if key != "status" {
			return d.Skip()
		}
		v, err := d.Str()
		if err != nil {
			return badRequest("status must be a string")
		}
		req.Status = v
		return nil
	}); err != nil {
		fail(w, r, err)
		return
	}

	res, err := h.orders.UpdateStatus(r.Context(), req)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("order")
		encodeOrder(e, *res.Order)
		e.FieldStart("changed")
		e.Bool(res.Changed)
		e.ObjEnd()
	})
}

func writeOrders(w http.ResponseWriter, orders []order.Order) {
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for _, o := range orders {
			encodeOrder(e, o)
		}
		e.ArrEnd()
	})
}
