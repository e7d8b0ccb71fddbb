package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/catalog"
	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/internal/handler"
	"github.com/xenking/storefront/internal/storage/postgres"
)

type fixture struct {
	Users       []userJSON       `json:"users"`
	APIKeys     []apiKeyJSON     `json:"apiKeys"`
	Restaurants []restaurantJSON `json:"restaurants"`
	Partners    []partnerJSON    `json:"deliveryPartners"`
	Coupons     []couponJSON     `json:"coupons"`
}

type userJSON struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

type apiKeyJSON struct {
	ID     string   `json:"id"`
	Key    string   `json:"key"`
	Name   string   `json:"name"`
	UserID int64    `json:"userId"`
	Scopes []string `json:"scopes"`
}

type restaurantJSON struct {
	ID      int64      `json:"id"`
	Name    string     `json:"name"`
	Address string     `json:"address"`
	Menu    []menuJSON `json:"menu"`
}

type menuJSON struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	Category string          `json:"category"`
	Price    decimal.Decimal `json:"price"`
	Stock    int             `json:"stock"`
}

type partnerJSON struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Phone  string `json:"phone"`
	Active bool   `json:"active"`
}

type couponJSON struct {
	Code            string          `json:"code"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
	MaxDiscount     decimal.Decimal `json:"maxDiscount"`
	Active          bool            `json:"active"`
	ExpiryDate      string          `json:"expiryDate"`
}

func main() {
	var (
		databaseURL  string
		fixtureFile  string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&fixtureFile, "fixture", "db/seed/storefront.json", "path to the seed fixture JSON file")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or STOREFRONT_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("STOREFRONT_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, fixtureFile, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, fixtureFile, pepper string) error {
	slog.Info("reading fixture", slog.String("path", fixtureFile))

	data, err := os.ReadFile(fixtureFile)
	if err != nil {
		return errors.Wrap(err, "read fixture")
	}
	var fx fixture
	if err := json.Unmarshal(data, &fx); err != nil {
		return errors.Wrap(err, "parse fixture JSON")
	}
	coupons, err := fx.coupons()
	if err != nil {
		return err
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	seeder := postgres.NewSeeder(pool)

	for _, u := range fx.Users {
		if err := seeder.UpsertUser(ctx, postgres.SeedUser(u)); err != nil {
			return err
		}
		slog.Info("upserted user", slog.Int64("id", u.ID), slog.String("name", u.Name))
	}

	for _, k := range fx.APIKeys {
		if err := seeder.UpsertAPIKey(ctx, postgres.SeedAPIKey{
			ID:      k.ID,
			KeyHash: handler.HashKey([]byte(pepper), k.Key),
			Name:    k.Name,
			UserID:  k.UserID,
			Scopes:  k.Scopes,
		}); err != nil {
			return err
		}
		slog.Info("upserted API key", slog.String("id", k.ID), slog.Int64("user_id", k.UserID))
	}

	for _, r := range fx.Restaurants {
		menu := make([]catalog.MenuItem, 0, len(r.Menu))
		for _, m := range r.Menu {
			menu = append(menu, catalog.MenuItem{
				ID:           m.ID,
				RestaurantID: r.ID,
				Name:         m.Name,
				Category:     m.Category,
				Price:        m.Price,
				Stock:        m.Stock,
			})
		}
		if err := seeder.UpsertRestaurant(ctx, catalog.Restaurant{
			ID:      r.ID,
			Name:    r.Name,
			Address: r.Address,
		}, menu); err != nil {
			return err
		}
		slog.Info("upserted restaurant", slog.Int64("id", r.ID), slog.Int("menu_items", len(menu)))
	}

	for _, p := range fx.Partners {
		if err := seeder.UpsertPartner(ctx, postgres.SeedPartner(p)); err != nil {
			return err
		}
	}
	slog.Info("upserted delivery partners", slog.Int("count", len(fx.Partners)))

	if err := seeder.SyncSequences(ctx); err != nil {
		return errors.Wrap(err, "sync sequences")
	}

	if err := postgres.NewCouponRepository(pool).Upsert(ctx, coupons); err != nil {
		return errors.Wrap(err, "upsert coupons")
	}
	slog.Info("upserted coupons", slog.Int("count", len(coupons)))

	return nil
}

func (fx *fixture) coupons() ([]coupon.Coupon, error) {
	out := make([]coupon.Coupon, 0, len(fx.Coupons))
	for _, c := range fx.Coupons {
		cp := coupon.Coupon{
			Code:            c.Code,
			DiscountPercent: c.DiscountPercent,
			MaxDiscount:     c.MaxDiscount,
			Active:          c.Active,
		}
		if c.ExpiryDate != "" {
			exp, err := time.Parse(time.DateOnly, c.ExpiryDate)
			if err != nil {
				return nil, errors.Wrapf(err, "parse expiry of coupon %s", c.Code)
			}
			cp.ExpiryDate = &exp
		}
		out = append(out, cp)
	}
	return out, nil
}
