package order

import (
	"context"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/catalog"
	"github.com/xenking/storefront/internal/domain/coupon"
)

const instrumentationName = "github.com/xenking/storefront/internal/domain/order"

// PlaceOrderRequest holds the input for placing an order from cart lines.
type PlaceOrderRequest struct {
	UserID        int64
	CartLineIDs   []int64
	PaymentMethod string
	CouponCode    string
}

// PlaceOrderResult holds the output of a successfully placed order, plus
// what changed so callers can decide which views to refresh.
type PlaceOrderResult struct {
	Order   *Order
	Payment *Payment
	Quote   Quote
	// ConsumedCartLines are the cart line ids removed by this order.
	ConsumedCartLines []int64
	// TouchedMenuItems are the menu items whose stock was decremented.
	TouchedMenuItems []int64
}

// Service encapsulates order placement and lifecycle logic.
type Service struct {
	store   Store
	pricing Pricing
	now     func() time.Time
	pick    func(n int) int

	tracer trace.Tracer
	placed metric.Int64Counter
	failed metric.Int64Counter
}

// Option configures a Service.
type Option func(*Service)

// WithPricing overrides the default tax rate and delivery fee.
func WithPricing(p Pricing) Option {
	return func(s *Service) { s.pricing = p }
}

// WithTracerProvider sets the tracer provider used for placement spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) { s.tracer = tp.Tracer(instrumentationName) }
}

// WithMeterProvider sets the meter provider used for order counters.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *Service) { s.meterProvider(mp) }
}

// NewService creates an order Service backed by store.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:   store,
		pricing: DefaultPricing(),
		now:     time.Now,
		pick:    rand.IntN,
		tracer:  tracenoop.NewTracerProvider().Tracer(instrumentationName),
	}
	s.meterProvider(metricnoop.NewMeterProvider())
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) meterProvider(mp metric.MeterProvider) {
	meter := mp.Meter(instrumentationName)
	placed, err := meter.Int64Counter("storefront.orders.placed",
		metric.WithDescription("Orders placed successfully"))
	if err != nil {
		placed, _ = metricnoop.Meter{}.Int64Counter("storefront.orders.placed")
	}
	failed, err := meter.Int64Counter("storefront.orders.failed",
		metric.WithDescription("Order placements rolled back"))
	if err != nil {
		failed, _ = metricnoop.Meter{}.Int64Counter("storefront.orders.failed")
	}
	s.placed, s.failed = placed, failed
}

// PlaceOrder converts the selected cart lines of a user into one order with
// one payment. Every write happens in a single transaction: on any error
// nothing is persisted. Selected ids that do not belong to the user, or were
// already consumed, are skipped.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*PlaceOrderResult, error) {
	if len(req.CartLineIDs) == 0 {
		return nil, ErrEmptySelection
	}
	method, err := ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		return nil, err
	}

	ids := uniqueIDs(req.CartLineIDs)
	code := coupon.NormalizeCode(req.CouponCode)

	ctx, span := s.tracer.Start(ctx, "order.PlaceOrder", trace.WithAttributes(
		attribute.Int64("user.id", req.UserID),
		attribute.Int("cart.selected", len(ids)),
		attribute.Bool("coupon.supplied", code != ""),
	))
	defer span.End()

	var result *PlaceOrderResult
	err = s.store.InTx(ctx, func(tx Tx) error {
		r, err := s.place(ctx, tx, req.UserID, ids, method, code)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		s.failed.Add(ctx, 1)
		span.RecordError(err)
		span.SetStatus(codes.Error, "place order")

		var dsErr *DataStoreError
		if !errors.As(err, &dsErr) {
			err = storeErr("place order", err)
		}
		zctx.From(ctx).Error("Order placement rolled back",
			zap.Int64("user_id", req.UserID),
			zap.Error(err),
		)
		return nil, err
	}

	s.placed.Add(ctx, 1, metric.WithAttributes(attribute.String("payment.method", string(method))))
	span.SetAttributes(
		attribute.Int64("order.id", result.Order.ID),
		attribute.Int("order.items", len(result.Order.Items)),
		attribute.String("order.total", result.Quote.Total.StringFixed(2)),
	)
	zctx.From(ctx).Info("Order placed",
		zap.Int64("order_id", result.Order.ID),
		zap.Int64("user_id", req.UserID),
		zap.Int("items", len(result.Order.Items)),
		zap.String("total", result.Quote.Total.StringFixed(2)),
	)

	return result, nil
}

func (s *Service) place(
	ctx context.Context,
	tx Tx,
	userID int64,
	ids []int64,
	method PaymentMethod,
	code string,
) (*PlaceOrderResult, error) {
	o, err := tx.CreateOrder(ctx, userID)
	if err != nil {
		return nil, storeErr("create order", err)
	}

	partners, err := tx.ActivePartnerIDs(ctx)
	if err != nil {
		return nil, storeErr("list delivery partners", err)
	}
	if len(partners) > 0 {
		partnerID := partners[s.pick(len(partners))]
		if err := tx.AssignPartner(ctx, o.ID, partnerID); err != nil {
			return nil, storeErr("assign delivery partner", err)
		}
		o.DeliveryPartnerID = &partnerID
	}

	items, err := tx.SnapshotCartLines(ctx, o.ID, userID, ids)
	if err != nil {
		return nil, storeErr("snapshot cart lines", err)
	}
	o.Items = items

	subtotal := Subtotal(items)
	discount, err := coupon.Resolve(ctx, tx, code, subtotal, s.now())
	if err != nil {
		return nil, storeErr("resolve coupon", err)
	}
	quote := s.pricing.Quote(subtotal, discount.Amount)

	if err := tx.SetTotal(ctx, o.ID, quote.Total); err != nil {
		return nil, storeErr("set order total", err)
	}
	o.Total = quote.Total

	p := &Payment{
		OrderID:    o.ID,
		Amount:     quote.Total,
		Method:     method,
		Status:     PaymentCompleted,
		CouponCode: code,
		Quote:      quote,
	}
	if err := tx.CreatePayment(ctx, p); err != nil {
		return nil, storeErr("create payment", err)
	}

	deltas := make([]catalog.StockDelta, 0, len(items))
	touched := make([]int64, 0, len(items))
	for _, it := range items {
		deltas = append(deltas, catalog.StockDelta{MenuID: it.MenuID, Quantity: it.Quantity})
		touched = append(touched, it.MenuID)
	}
	if len(deltas) > 0 {
		if err := tx.DecrementStock(ctx, deltas); err != nil {
			return nil, storeErr("decrement stock", err)
		}
	}

	consumed, err := tx.DeleteCartLines(ctx, userID, ids)
	if err != nil {
		return nil, storeErr("delete cart lines", err)
	}

	return &PlaceOrderResult{
		Order:             o,
		Payment:           p,
		Quote:             quote,
		ConsumedCartLines: consumed,
		TouchedMenuItems:  touched,
	}, nil
}

// UpdateStatusRequest asks to move an order to Status on behalf of UserID.
// Admin callers may update any order.
type UpdateStatusRequest struct {
	OrderID int64
	UserID  int64
	Admin   bool
	Status  string
}

// UpdateStatusResult reports the order as it stands after the request.
type UpdateStatusResult struct {
	Order   *Order
	Changed bool
}

// UpdateStatus moves a Pending order to Delivered or Cancelled. Requests
// from a terminal status, or to the current status, leave the order as it
// is and report Changed=false. Orders owned by someone else are reported as
// missing to non-admin callers.
func (s *Service) UpdateStatus(ctx context.Context, req UpdateStatusRequest) (*UpdateStatusResult, error) {
	next, err := ParseStatus(req.Status)
	if err != nil {
		return nil, err
	}

	o, err := s.store.GetOrder(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if !req.Admin && o.UserID != req.UserID {
		return nil, ErrOrderNotFound
	}
	if !o.Status.CanTransition(next) {
		return &UpdateStatusResult{Order: o}, nil
	}

	changed, err := s.store.UpdateStatus(ctx, o.ID, o.Status, next)
	if err != nil {
		return nil, errors.Wrap(err, "update order status")
	}
	if changed {
		zctx.From(ctx).Info("Order status changed",
			zap.Int64("order_id", o.ID),
			zap.String("from", string(o.Status)),
			zap.String("to", string(next)),
			zap.Bool("admin", req.Admin),
		)
		o.Status = next
	} else {
		// Lost a race with a concurrent update; report what is stored now.
		if o, err = s.store.GetOrder(ctx, req.OrderID); err != nil {
			return nil, err
		}
	}

	return &UpdateStatusResult{Order: o, Changed: changed}, nil
}

// History returns a user's orders, newest first.
func (s *Service) History(ctx context.Context, userID int64) ([]Order, error) {
	orders, err := s.store.ListOrders(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return orders, nil
}

// ListAll returns every order, newest first.
func (s *Service) ListAll(ctx context.Context) ([]Order, error) {
	orders, err := s.store.ListOrders(ctx, 0)
	if err != nil {
		return nil, errors.Wrap(err, "list all orders")
	}
	return orders, nil
}

func uniqueIDs(ids []int64) []int64 {
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}
