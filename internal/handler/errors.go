package handler

import (
	"fmt"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/catalog"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/review"
)

// statusError is an error that carries its HTTP status and a message safe
// to return to the client.
type statusError struct {
	code int
	msg  string
}

func (e *statusError) Error() string {
	return e.msg
}

func badRequest(format string, args ...any) error {
	return &statusError{code: http.StatusBadRequest, msg: fmt.Sprintf(format, args...)}
}

// errorStatus maps a domain error to the HTTP status and client message.
func errorStatus(err error) (int, string) {
	var (
		se  *statusError
		ve  *catalog.ValidationError
		dse *order.DataStoreError
	)
	switch {
	case errors.As(err, &se):
		return se.code, se.msg
	case errors.As(err, &dse):
		// Placement rolled back; internals stay in the log.
		return http.StatusInternalServerError, "could not place order"
	case errors.As(err, &ve):
		return http.StatusUnprocessableEntity, ve.Error()

	case errors.Is(err, order.ErrEmptySelection):
		return http.StatusBadRequest, "no cart items selected"
	case errors.Is(err, order.ErrInvalidPaymentMethod),
		errors.Is(err, order.ErrInvalidStatus),
		errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, cart.ErrQuantityLimit),
		errors.Is(err, review.ErrInvalidRating):
		return http.StatusUnprocessableEntity, err.Error()

	case errors.Is(err, order.ErrOrderNotFound),
		errors.Is(err, catalog.ErrRestaurantNotFound),
		errors.Is(err, catalog.ErrMenuItemNotFound),
		errors.Is(err, cart.ErrMenuItemNotFound),
		errors.Is(err, review.ErrRestaurantNotFound):
		return http.StatusNotFound, rootMessage(err)

	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// rootMessage returns the message of the innermost wrapped error.
func rootMessage(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}

// fail writes err to the client, logging it when it is a server error.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	code, msg := errorStatus(err)
	if code >= http.StatusInternalServerError {
		zctx.From(r.Context()).Error("Request error", zap.Error(err))
	}
	writeError(w, code, msg)
}
