//go:build integration

package postgres

import (
	"context"
	"log"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/catalog"
	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/review"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	os.Exit(testMain(m))
}

func testMain(m *testing.M) int {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	ctr, err := tcpostgres.Run(ctx, "postgres:17-alpine",
		tcpostgres.WithDatabase("storefront"),
		tcpostgres.WithUsername("storefront"),
		tcpostgres.WithPassword("storefront"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		log.Fatalf("start postgres: %v", err)
	}
	defer func() {
		if err := testcontainers.TerminateContainer(ctr); err != nil {
			log.Printf("terminate postgres: %v", err)
		}
	}()

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		log.Fatalf("connection string: %v", err)
	}

	testPool, err = NewPool(ctx, dsn)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer testPool.Close()

	if err := RunMigrations(ctx, testPool); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	return m.Run()
}

// fixture seeds one user, one restaurant with two dishes and a partner.
type fixture struct {
	userID       int64
	otherUserID  int64
	restaurantID int64
	biryani      int64
	lassi        int64
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()

	_, err := testPool.Exec(ctx, `TRUNCATE users, restaurants, delivery_partners, coupons RESTART IDENTITY CASCADE`)
	require.NoError(t, err)

	seeder := NewSeeder(testPool)
	require.NoError(t, seeder.UpsertUser(ctx, SeedUser{ID: 1, Name: "Asha", Email: "asha@example.com"}))
	require.NoError(t, seeder.UpsertUser(ctx, SeedUser{ID: 2, Name: "Ravi", Email: "ravi@example.com"}))
	require.NoError(t, seeder.UpsertPartner(ctx, SeedPartner{ID: 1, Name: "Kiran", Active: true}))
	require.NoError(t, seeder.UpsertRestaurant(ctx,
		catalog.Restaurant{ID: 1, Name: "Spice Route", Address: "MG Road"},
		[]catalog.MenuItem{
			{ID: 1, Name: "Biryani", Category: "Main", Price: decimal.RequireFromString("200.00"), Stock: 5},
			{ID: 2, Name: "Lassi", Category: "Drinks", Price: decimal.RequireFromString("100.00"), Stock: 1},
		},
	))
	require.NoError(t, seeder.SyncSequences(ctx))

	return fixture{userID: 1, otherUserID: 2, restaurantID: 1, biryani: 1, lassi: 2}
}

func TestCartRepository(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	repo := NewCartRepository(testPool)

	id, qty, err := repo.Add(ctx, f.userID, f.biryani, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, qty)

	again, qty, err := repo.Add(ctx, f.userID, f.biryani, 2)
	require.NoError(t, err)
	assert.Equal(t, id, again)
	assert.Equal(t, 3, qty)

	_, _, err = repo.Add(ctx, f.userID, 999, 1)
	require.ErrorIs(t, err, cart.ErrMenuItemNotFound)

	_, _, err = repo.Add(ctx, f.userID, f.biryani, cart.MaxQuantity-2)
	require.ErrorIs(t, err, cart.ErrQuantityLimit)

	lines, err := repo.List(ctx, f.userID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "Biryani", lines[0].ItemName)
	assert.Equal(t, "Spice Route", lines[0].RestaurantName)
	assert.Equal(t, "600.00", lines[0].Total().StringFixed(2))

	removed, err := repo.Remove(ctx, f.otherUserID, id)
	require.NoError(t, err)
	assert.False(t, removed)

	removed, err = repo.Remove(ctx, f.userID, id)
	require.NoError(t, err)
	assert.True(t, removed)
}

func TestCouponRepository(t *testing.T) {
	newFixture(t)
	ctx := context.Background()
	repo := NewCouponRepository(testPool)

	yesterday := time.Now().AddDate(0, 0, -1)
	require.NoError(t, repo.Upsert(ctx, []coupon.Coupon{
		{Code: "SAVE10", DiscountPercent: decimal.NewFromInt(10), MaxDiscount: decimal.NewFromInt(40), Active: true},
		{Code: "OLD", DiscountPercent: decimal.NewFromInt(50), MaxDiscount: decimal.NewFromInt(100), Active: true, ExpiryDate: &yesterday},
		{Code: "OFF", DiscountPercent: decimal.NewFromInt(50), MaxDiscount: decimal.NewFromInt(100)},
	}))

	c, err := repo.FindActive(ctx, "save10", time.Now())
	require.NoError(t, err)
	assert.Equal(t, "SAVE10", c.Code)
	assert.True(t, decimal.NewFromInt(40).Equal(c.MaxDiscount))

	for _, code := range []string{"OLD", "OFF", "MISSING"} {
		_, err := repo.FindActive(ctx, code, time.Now())
		assert.ErrorIs(t, err, coupon.ErrNotFound, code)
	}

	// Upsert matches case-insensitively.
	require.NoError(t, repo.Upsert(ctx, []coupon.Coupon{
		{Code: "save10", DiscountPercent: decimal.NewFromInt(20), MaxDiscount: decimal.NewFromInt(40), Active: true},
	}))
	c, err = repo.FindActive(ctx, "SAVE10", time.Now())
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(20).Equal(c.DiscountPercent))
}

func TestCatalogRepository(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	repo := NewCatalogRepository(testPool)

	menu, err := repo.ListMenu(ctx, f.restaurantID)
	require.NoError(t, err)
	require.Len(t, menu, 2)

	price := decimal.RequireFromString("120.50")
	updated, err := repo.UpdateMenuItem(ctx, f.lassi, catalog.MenuUpdate{Price: &price})
	require.NoError(t, err)
	assert.Equal(t, "Lassi", updated.Name)
	assert.True(t, price.Equal(updated.Price))

	_, err = repo.UpdateMenuItem(ctx, 999, catalog.MenuUpdate{Price: &price})
	require.ErrorIs(t, err, catalog.ErrMenuItemNotFound)

	require.NoError(t, decrementStock(ctx, testPool, []catalog.StockDelta{{MenuID: f.lassi, Quantity: 4}}))
	item, err := repo.GetMenuItem(ctx, f.lassi)
	require.NoError(t, err)
	assert.Zero(t, item.Stock)

	err = repo.CreateMenuItem(ctx, &catalog.MenuItem{RestaurantID: 999, Name: "Ghost", Price: price})
	require.ErrorIs(t, err, catalog.ErrRestaurantNotFound)

	require.NoError(t, repo.DeleteRestaurant(ctx, f.restaurantID))
	_, err = repo.GetMenuItem(ctx, f.biryani)
	require.ErrorIs(t, err, catalog.ErrMenuItemNotFound)
	require.ErrorIs(t, repo.DeleteRestaurant(ctx, f.restaurantID), catalog.ErrRestaurantNotFound)
}

func TestReviewRepository(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	repo := NewReviewRepository(testPool)

	for _, rating := range []int{5, 3} {
		require.NoError(t, repo.Create(ctx, &review.Review{UserID: f.userID, RestaurantID: f.restaurantID, Rating: rating}))
	}
	err := repo.Create(ctx, &review.Review{UserID: f.userID, RestaurantID: 999, Rating: 4})
	require.ErrorIs(t, err, review.ErrRestaurantNotFound)

	reviews, err := repo.ListByRestaurant(ctx, f.restaurantID)
	require.NoError(t, err)
	require.Len(t, reviews, 2)
	assert.Equal(t, 3, reviews[0].Rating)
	assert.Equal(t, "Asha", reviews[0].UserName)
}

func TestOrderStore_PlaceOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	carts := NewCartRepository(testPool)
	require.NoError(t, NewCouponRepository(testPool).Upsert(ctx, []coupon.Coupon{
		{Code: "SAVE10", DiscountPercent: decimal.NewFromInt(10), MaxDiscount: decimal.NewFromInt(40), Active: true},
	}))

	biryani, _, err := carts.Add(ctx, f.userID, f.biryani, 2)
	require.NoError(t, err)
	lassi, _, err := carts.Add(ctx, f.userID, f.lassi, 1)
	require.NoError(t, err)
	foreign, _, err := carts.Add(ctx, f.otherUserID, f.biryani, 1)
	require.NoError(t, err)

	store := NewOrderStore(testPool)
	svc := order.NewService(store)

	res, err := svc.PlaceOrder(ctx, order.PlaceOrderRequest{
		UserID:        f.userID,
		CartLineIDs:   []int64{biryani, lassi, foreign},
		PaymentMethod: "UPI",
		CouponCode:    "save10",
	})
	require.NoError(t, err)
	assert.Equal(t, "513.00", res.Order.Total.StringFixed(2))
	assert.Len(t, res.Order.Items, 2)
	require.NotNil(t, res.Order.DeliveryPartnerID)
	assert.ElementsMatch(t, []int64{biryani, lassi}, res.ConsumedCartLines)

	stored, err := store.GetOrder(ctx, res.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, "513.00", stored.Total.StringFixed(2))
	assert.Equal(t, "Spice Route", stored.Items[0].RestaurantName)

	var amount, subtotal, discount, tax, fee decimal.Decimal
	var code *string
	err = testPool.QueryRow(ctx,
		`SELECT amount, subtotal, discount, tax, delivery_fee, coupon_code FROM payments WHERE order_id = $1`,
		res.Order.ID,
	).Scan(&amount, &subtotal, &discount, &tax, &fee, &code)
	require.NoError(t, err)
	assert.True(t, amount.Equal(stored.Total))
	assert.Equal(t, "500.00", subtotal.StringFixed(2))
	assert.Equal(t, "40.00", discount.StringFixed(2))
	assert.Equal(t, "23.00", tax.StringFixed(2))
	assert.Equal(t, "30.00", fee.StringFixed(2))
	require.NotNil(t, code)
	assert.Equal(t, "save10", *code)

	lassiItem, err := NewCatalogRepository(testPool).GetMenuItem(ctx, f.lassi)
	require.NoError(t, err)
	assert.Zero(t, lassiItem.Stock)

	other, err := carts.List(ctx, f.otherUserID)
	require.NoError(t, err)
	assert.Len(t, other, 1)

	// The same selection again yields an empty, zero-total order.
	again, err := svc.PlaceOrder(ctx, order.PlaceOrderRequest{
		UserID:        f.userID,
		CartLineIDs:   []int64{biryani, lassi},
		PaymentMethod: "UPI",
	})
	require.NoError(t, err)
	assert.Empty(t, again.Order.Items)
	assert.True(t, again.Order.Total.IsZero())

	history, err := svc.History(ctx, f.userID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, again.Order.ID, history[0].ID)
}

func TestOrderStore_ConcurrentCheckout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	carts := NewCartRepository(testPool)

	line, _, err := carts.Add(ctx, f.userID, f.biryani, 1)
	require.NoError(t, err)

	svc := order.NewService(NewOrderStore(testPool))

	const attempts = 4
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		items int
	)
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.PlaceOrder(ctx, order.PlaceOrderRequest{
				UserID:        f.userID,
				CartLineIDs:   []int64{line},
				PaymentMethod: "Cash",
			})
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			items += len(res.Order.Items)
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, items, "a cart line must be consumed by exactly one order")
}

func TestOrderStore_ConcurrentCheckoutOppositeOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	carts := NewCartRepository(testPool)
	svc := order.NewService(NewOrderStore(testPool))

	// Cart lines are snapshotted in cart id order, so each user's lines name
	// the two dishes in the opposite order.
	for round := range 10 {
		a1, _, err := carts.Add(ctx, f.userID, f.biryani, 1)
		require.NoError(t, err)
		a2, _, err := carts.Add(ctx, f.userID, f.lassi, 1)
		require.NoError(t, err)
		b1, _, err := carts.Add(ctx, f.otherUserID, f.lassi, 1)
		require.NoError(t, err)
		b2, _, err := carts.Add(ctx, f.otherUserID, f.biryani, 1)
		require.NoError(t, err)

		reqs := []order.PlaceOrderRequest{
			{UserID: f.userID, CartLineIDs: []int64{a1, a2}, PaymentMethod: "Cash"},
			{UserID: f.otherUserID, CartLineIDs: []int64{b1, b2}, PaymentMethod: "Cash"},
		}

		var (
			wg    sync.WaitGroup
			start = make(chan struct{})
		)
		for _, req := range reqs {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				res, err := svc.PlaceOrder(ctx, req)
				if assert.NoError(t, err, "round %d user %d", round, req.UserID) {
					assert.Len(t, res.Order.Items, 2)
				}
			}()
		}
		close(start)
		wg.Wait()
	}

	item, err := NewCatalogRepository(testPool).GetMenuItem(ctx, f.biryani)
	require.NoError(t, err)
	assert.Zero(t, item.Stock, "stock floors at zero")
}

func TestOrderStore_UpdateStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	store := NewOrderStore(testPool)
	svc := order.NewService(store)

	res, err := svc.PlaceOrder(ctx, order.PlaceOrderRequest{
		UserID:        f.userID,
		CartLineIDs:   []int64{1},
		PaymentMethod: "Cash",
	})
	require.NoError(t, err)

	moved, err := store.UpdateStatus(ctx, res.Order.ID, order.StatusPending, order.StatusDelivered)
	require.NoError(t, err)
	assert.True(t, moved)

	moved, err = store.UpdateStatus(ctx, res.Order.ID, order.StatusPending, order.StatusCancelled)
	require.NoError(t, err)
	assert.False(t, moved)

	_, err = store.GetOrder(ctx, 999)
	require.ErrorIs(t, err, order.ErrOrderNotFound)
}
