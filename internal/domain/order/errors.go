package order

import (
	"fmt"

	"github.com/go-faster/errors"
)

// Sentinel errors for order operations.
var (
	ErrEmptySelection       = errors.New("no cart lines selected")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrInvalidStatus        = errors.New("invalid order status")
	ErrOrderNotFound        = errors.New("order not found")
)

// DataStoreError wraps a persistence failure during a multi-step operation.
// The transaction it occurred in has been rolled back.
type DataStoreError struct {
	Op  string
	Err error
}

func (e *DataStoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *DataStoreError) Unwrap() error {
	return e.Err
}

func storeErr(op string, err error) error {
	return &DataStoreError{Op: op, Err: err}
}
