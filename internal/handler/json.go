package handler

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/catalog"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/review"
)

const maxBodyBytes = 64 << 10

// writeJSON encodes a response body with fn and writes it with status.
func writeJSON(w http.ResponseWriter, status int, fn func(e *jx.Encoder)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	fn(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// writeError writes the {"code","message"} error envelope.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("code")
		e.Int(status)
		e.FieldStart("message")
		e.Str(msg)
		e.ObjEnd()
	})
}

// decodeObject reads the request body as a JSON object, calling fn for
// every field.
func decodeObject(r *http.Request, fn func(d *jx.Decoder, key string) error) error {
	data, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err != nil {
		return badRequest("could not read request body")
	}
	if err := jx.DecodeBytes(data).Obj(fn); err != nil {
		var se *statusError
		if errors.As(err, &se) {
			return se
		}
		return badRequest("malformed JSON body")
	}
	return nil
}

// pathID parses the {id} path segment as a positive integer.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("invalid id")
	}
	return id, nil
}

// decodeMoney accepts a JSON number or a numeric string.
func decodeMoney(d *jx.Decoder) (decimal.Decimal, error) {
	var raw string
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Decimal{}, err
		}
		raw = s
	default:
		n, err := d.Num()
		if err != nil {
			return decimal.Decimal{}, err
		}
		raw = n.String()
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, errors.Wrap(err, "parse amount")
	}
	return v, nil
}

func encodeMoney(e *jx.Encoder, v decimal.Decimal) {
	e.Raw([]byte(v.StringFixed(2)))
}

func encodeTime(e *jx.Encoder, t time.Time) {
	e.Str(t.UTC().Format(time.RFC3339))
}

func encodeIDs(e *jx.Encoder, ids []int64) {
	e.ArrStart()
	for _, id := range ids {
		e.Int64(id)
	}
	e.ArrEnd()
}

func encodeRestaurant(e *jx.Encoder, r catalog.Restaurant) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(r.ID)
	e.FieldStart("name")
	e.Str(r.Name)
	e.FieldStart("address")
	e.Str(r.Address)
	e.ObjEnd()
}

func encodeMenuItem(e *jx.Encoder, m catalog.MenuItem) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(m.ID)
	e.FieldStart("restaurantId")
	e.Int64(m.RestaurantID)
	e.FieldStart("name")
	e.Str(m.Name)
	e.FieldStart("category")
	e.Str(m.Category)
	e.FieldStart("price")
	encodeMoney(e, m.Price)
	e.FieldStart("stock")
	e.Int(m.Stock)
	e.FieldStart("inStock")
	e.Bool(m.InStock())
	e.ObjEnd()
}

func encodeCartLine(e *jx.Encoder, l cart.Line) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(l.ID)
	e.FieldStart("menuId")
	e.Int64(l.MenuID)
	e.FieldStart("name")
	e.Str(l.ItemName)
	e.FieldStart("category")
	e.Str(l.Category)
	e.FieldStart("restaurantId")
	e.Int64(l.RestaurantID)
	e.FieldStart("restaurantName")
	e.Str(l.RestaurantName)
	e.FieldStart("price")
	encodeMoney(e, l.Price)
	e.FieldStart("quantity")
	e.Int(l.Quantity)
	e.FieldStart("total")
	encodeMoney(e, l.Total())
	e.ObjEnd()
}

func encodeOrder(e *jx.Encoder, o order.Order) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(o.ID)
	e.FieldStart("userId")
	e.Int64(o.UserID)
	e.FieldStart("status")
	e.Str(string(o.Status))
	e.FieldStart("total")
	encodeMoney(e, o.Total)
	e.FieldStart("deliveryPartnerId")
	if o.DeliveryPartnerID != nil {
		e.Int64(*o.DeliveryPartnerID)
	} else {
		e.Null()
	}
	e.FieldStart("orderDate")
	encodeTime(e, o.OrderDate)
	e.FieldStart("items")
	e.ArrStart()
	for _, it := range o.Items {
		encodeOrderItem(e, it)
	}
	e.ArrEnd()
	e.ObjEnd()
}

func encodeOrderItem(e *jx.Encoder, it order.Item) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(it.ID)
	e.FieldStart("menuId")
	if it.MenuID != 0 {
		e.Int64(it.MenuID)
	} else {
		e.Null()
	}
	e.FieldStart("restaurantId")
	e.Int64(it.RestaurantID)
	e.FieldStart("restaurantName")
	e.Str(it.RestaurantName)
	e.FieldStart("name")
	e.Str(it.Name)
	e.FieldStart("unitPrice")
	encodeMoney(e, it.UnitPrice)
	e.FieldStart("quantity")
	e.Int(it.Quantity)
	e.FieldStart("lineTotal")
	encodeMoney(e, it.LineTotal())
	e.ObjEnd()
}

func encodeQuote(e *jx.Encoder, q order.Quote) {
	e.ObjStart()
	e.FieldStart("subtotal")
	encodeMoney(e, q.Subtotal)
	e.FieldStart("discount")
	encodeMoney(e, q.Discount)
	e.FieldStart("afterCoupon")
	encodeMoney(e, q.AfterCoupon)
	e.FieldStart("tax")
	encodeMoney(e, q.Tax)
	e.FieldStart("deliveryFee")
	encodeMoney(e, q.DeliveryFee)
	e.FieldStart("total")
	encodeMoney(e, q.Total)
	e.ObjEnd()
}

func encodePayment(e *jx.Encoder, p order.Payment) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(p.ID)
	e.FieldStart("orderId")
	e.Int64(p.OrderID)
	e.FieldStart("amount")
	encodeMoney(e, p.Amount)
	e.FieldStart("method")
	e.Str(string(p.Method))
	e.FieldStart("status")
	e.Str(string(p.Status))
	e.FieldStart("couponCode")
	if p.CouponCode != "" {
		e.Str(p.CouponCode)
	} else {
		e.Null()
	}
	e.FieldStart("paidAt")
	encodeTime(e, p.PaidAt)
	e.ObjEnd()
}

func encodeReview(e *jx.Encoder, r review.Review) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(r.ID)
	e.FieldStart("restaurantId")
	e.Int64(r.RestaurantID)
	e.FieldStart("userId")
	e.Int64(r.UserID)
	e.FieldStart("userName")
	e.Str(r.UserName)
	e.FieldStart("rating")
	e.Int(r.Rating)
	e.FieldStart("comment")
	e.Str(r.Comment)
	e.FieldStart("date")
	encodeTime(e, r.Date)
	e.ObjEnd()
}
