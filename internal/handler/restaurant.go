package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/storefront/internal/domain/review"
)

func (h *Handler) listRestaurants(w http.ResponseWriter, r *http.Request) {
	rs, err := h.catalog.ListRestaurants(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for _, rest := range rs {
			encodeRestaurant(e, rest)
		}
		e.ArrEnd()
	})
}

func (h *Handler) restaurantMenu(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	items, err := h.catalog.Menu(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for _, m := range items {
			encodeMenuItem(e, m)
		}
		e.ArrEnd()
	})
}

func (h *Handler) listReviews(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	reviews, err := h.reviews.List(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for _, rv := range reviews {
			encodeReview(e, rv)
		}
		e.ArrEnd()
	})
}

func (h *Handler) submitReview(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		fail(w, r, err)
		return
	}

	rv := review.Review{
		UserID:       identity(r).UserID,
		RestaurantID: id,
	}
	var hasRating bool
	if err := decodeObject(r, func(d *jx.Decoder, key string) error {
		switch key {
		case "rating":
			v, err := d.Int()
			if err != nil {
				return badRequest("rating must be an integer")
			}
			rv.Rating = v
			hasRating = true
			return nil
		case "comment":
			v, err := d.Str()
			rv.Comment = v
			return err
		default:
			return d.Skip()
		}
	}); err != nil {
		fail(w, r, err)
		return
	}
	if !hasRating {
		fail(w, r, badRequest("rating is required"))
		return
	}

	created, err := h.reviews.Submit(r.Context(), rv)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		encodeReview(e, *created)
	})
}
