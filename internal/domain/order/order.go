package order

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Status is the delivery state of an order.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusDelivered Status = "Delivered"
	StatusCancelled Status = "Cancelled"
)

// ParseStatus validates a status name.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusPending, StatusDelivered, StatusCancelled:
		return st, nil
	default:
		return "", errors.Wrapf(ErrInvalidStatus, "%q", s)
	}
}

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// CanTransition reports whether s may move to next. Statuses only move
// forward: Pending to Delivered or Cancelled.
func (s Status) CanTransition(next Status) bool {
	return s == StatusPending && next.Terminal()
}

// Order is a purchase record. It is immutable once placed except for Status.
type Order struct {
	ID     int64
	UserID int64
	Status Status
	Total  decimal.Decimal
	// DeliveryPartnerID is nil when no partner was available at placement.
	DeliveryPartnerID *int64
	OrderDate         time.Time
	Items             []Item
}

// Item is a snapshot of a cart line taken when the order was placed.
type Item struct {
	ID      int64
	OrderID int64
	// MenuID is zero when the menu item has since been deleted.
	MenuID         int64
	RestaurantID   int64
	RestaurantName string
	Name           string
	UnitPrice      decimal.Decimal
	Quantity       int
}

// LineTotal returns unit price * quantity.
func (i Item) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// PaymentMethod is how the customer paid.
type PaymentMethod string

const (
	MethodCreditCard PaymentMethod = "Credit Card"
	MethodDebitCard  PaymentMethod = "Debit Card"
	MethodUPI        PaymentMethod = "UPI"
	MethodWallet     PaymentMethod = "Wallet"
	MethodCash       PaymentMethod = "Cash"
)

// PaymentMethods lists the accepted methods in display order.
var PaymentMethods = []PaymentMethod{MethodCreditCard, MethodDebitCard, MethodUPI, MethodWallet, MethodCash}

// ParsePaymentMethod validates a payment method name.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	for _, m := range PaymentMethods {
		if string(m) == s {
			return m, nil
		}
	}
	return "", errors.Wrapf(ErrInvalidPaymentMethod, "%q", s)
}

// PaymentStatus is the settlement state of a payment.
type PaymentStatus string

// PaymentCompleted marks a payment captured at placement.
const PaymentCompleted PaymentStatus = "Completed"

// Payment records how an order was paid. There is exactly one per order and
// Amount equals the order total.
type Payment struct {
	ID         int64
	OrderID    int64
	Amount     decimal.Decimal
	Method     PaymentMethod
	Status     PaymentStatus
	CouponCode string
	Quote      Quote
	PaidAt     time.Time
}
