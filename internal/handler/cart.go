package handler

import (
	"net/http"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/cart"
)

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	lines, err := h.carts.List(r.Context(), identity(r).UserID)
	if err != nil {
		fail(w, r, err)
		return
	}

	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.Total())
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("items")
		e.ArrStart()
		for _, l := range lines {
			encodeCartLine(e, l)
		}
		e.ArrEnd()
		e.FieldStart("subtotal")
		encodeMoney(e, subtotal)
		e.ObjEnd()
	})
}

// addToCart upserts a line. The optional "epoch" field scopes duplicate
// suppression; a repeated request in the same epoch answers 200 with
// duplicate=true and writes nothing.
func (h *Handler) addToCart(w http.ResponseWriter, r *http.Request) {
	req := cart.AddRequest{UserID: identity(r).UserID}
	var hasMenu, hasQty bool
	if err := decodeObject(r, func(d *jx.Decoder, key string) error {
		switch key {
		case "menuId":
			v, err := d.Int64()
			if err != nil {
				return badRequest("menuId must be an integer")
			}
			req.MenuID = v
			hasMenu = true
		case "quantity":
			v, err := d.Int()
			if err != nil {
				return badRequest("quantity must be an integer")
			}
			req.Quantity = v
			hasQty = true
		case "epoch":
			v, err := d.Str()
			if err != nil {
				return badRequest("epoch must be a string")
			}
			req.Epoch = v
		default:
			return d.Skip()
		}
		return nil
	}); err != nil {
		fail(w, r, err)
		return
	}
	if !hasMenu || !hasQty {
		fail(w, r, badRequest("menuId and quantity are required"))
		return
	}

	res, err := h.carts.Add(r.Context(), req)
	if err != nil {
		fail(w, r, err)
		return
	}

	status := http.StatusCreated
	if res.Duplicate {
		status = http.StatusOK
	}
	writeJSON(w, status, func(e *jx.Encoder) {
		e.ObjStart()
		if !res.Duplicate {
			e.FieldStart("cartId")
			e.Int64(res.LineID)
			e.FieldStart("quantity")
			e.Int(res.Quantity)
		}
		e.FieldStart("duplicate")
		e.Bool(res.Duplicate)
		e.ObjEnd()
	})
}

func (h *Handler) removeFromCart(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	ok, err := h.carts.Remove(r.Context(), identity(r).UserID, id)
	if err != nil {
		fail(w, r, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "cart item not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
