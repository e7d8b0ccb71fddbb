package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/storefront/internal/domain/catalog"
)

func (h *Handler) createRestaurant(w http.ResponseWriter, r *http.Request) {
	var rest catalog.Restaurant
	if err := decodeObject(r, func(d *jx.Decoder, key string) error {
		switch key {
		case "name":
			v, err := d.Str()
			rest.Name = v
			return err
		case "address":
			v, err := d.Str()
			rest.Address = v
			return err
		default:
			return d.Skip()
		}
	}); err != nil {
		fail(w, r, err)
		return
	}

	if err := h.catalog.CreateRestaurant(r.Context(), &rest); err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		encodeRestaurant(e, rest)
	})
}

func (h *Handler) deleteRestaurant(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	if err := h.catalog.DeleteRestaurant(r.Context(), id); err != nil {
		fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) createMenuItem(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := pathID(r)
	if err != nil {
		fail(w, r, err)
		return
	}

	m := catalog.MenuItem{RestaurantID: restaurantID}
	var hasPrice bool
	if err := decodeObject(r, func(d *jx.Decoder, key string) error {
		switch key {
		case "name":
			v, err := d.Str()
			m.Name = v
			return err
		case "category":
			v, err := d.Str()
			m.Category = v
			return err
		case "price":
			v, err := decodeMoney(d)
			if err != nil {
				return badRequest("price must be a decimal")
			}
			m.Price = v
			hasPrice = true
		case "stock":
			v, err := d.Int()
			if err != nil {
				return badRequest("stock must be an integer")
			}
			m.Stock = v
		default:
			return d.Skip()
		}
		return nil
	}); err != nil {
		fail(w, r, err)
		return
	}
	if !hasPrice {
		fail(w, r, badRequest("price is required"))
		return
	}

	if err := h.catalog.CreateMenuItem(r.Context(), &m); err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		encodeMenuItem(e, m)
	})
}

func (h *Handler) getMenuItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	m, err := h.catalog.MenuItem(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeMenuItem(e, *m)
	})
}

func (h *Handler) updateMenuItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		fail(w, r, err)
		return
	}

	var upd catalog.MenuUpdate
	if err := decodeObject(r, func(d *jx.Decoder, key string) error {
		switch key {
		case "name":
			v, err := d.Str()
			upd.Name = &v
			return err
		case "category":
			v, err := d.Str()
			upd.Category = &v
			return err
		case "price":
			v, err := decodeMoney(d)
			if err != nil {
				return badRequest("price must be a decimal")
			}
			upd.Price = &v
		case "stock":
			v, err := d.Int()
			if err != nil {
				return badRequest("stock must be an integer")
			}
			upd.Stock = &v
		default:
			return d.Skip()
		}
		return nil
	}); err != nil {
		fail(w, r, err)
		return
	}

	m, err := h.catalog.UpdateMenuItem(r.Context(), id, upd)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeMenuItem(e, *m)
	})
}

func (h *Handler) deleteMenuItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	if err := h.catalog.DeleteMenuItem(r.Context(), id); err != nil {
		fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listAllOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListAll(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeOrders(w, orders)
}

func (h *Handler) adminUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	h.changeStatus(w, r, true)
}

