package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/catalog"
)

const (
	upsertUserSQL = `INSERT INTO users (user_id, name, email, phone, address)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			name = EXCLUDED.name, email = EXCLUDED.email,
			phone = EXCLUDED.phone, address = EXCLUDED.address`

	upsertAPIKeySQL = `INSERT INTO api_keys (id, key_hash, name, user_id, scopes, active)
		VALUES ($1, $2, $3, $4, $5, TRUE)
		ON CONFLICT (id) DO UPDATE SET
			key_hash = EXCLUDED.key_hash, name = EXCLUDED.name,
			user_id = EXCLUDED.user_id, scopes = EXCLUDED.scopes, active = TRUE`

	upsertRestaurantSQL = `INSERT INTO restaurants (restaurant_id, name, address)
		VALUES ($1, $2, $3)
		ON CONFLICT (restaurant_id) DO UPDATE SET name = EXCLUDED.name, address = EXCLUDED.address`

	upsertMenuItemSQL = `INSERT INTO menu (menu_id, restaurant_id, name, category, price, stock)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (menu_id) DO UPDATE SET
			restaurant_id = EXCLUDED.restaurant_id, name = EXCLUDED.name,
			category = EXCLUDED.category, price = EXCLUDED.price, stock = EXCLUDED.stock`

	upsertPartnerSQL = `INSERT INTO delivery_partners (delivery_partner_id, name, phone, active)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (delivery_partner_id) DO UPDATE SET
			name = EXCLUDED.name, phone = EXCLUDED.phone, active = EXCLUDED.active`
)

// Serial sequences to advance past explicitly seeded ids.
var seededSequences = []struct{ table, column string }{
	{"users", "user_id"},
	{"restaurants", "restaurant_id"},
	{"menu", "menu_id"},
	{"delivery_partners", "delivery_partner_id"},
}

// SeedUser is a customer account created by the seed tool.
type SeedUser struct {
	ID      int64
	Name    string
	Email   string
	Phone   string
	Address string
}

// SeedAPIKey is an API key row; KeyHash is the HMAC of the raw key.
type SeedAPIKey struct {
	ID      string
	KeyHash string
	Name    string
	UserID  int64
	Scopes  []string
}

// SeedPartner is a delivery partner row.
type SeedPartner struct {
	ID     int64
	Name   string
	Phone  string
	Active bool
}

// Seeder upserts fixture data with explicit ids, so re-running it is safe.
type Seeder struct {
	pool *pgxpool.Pool
}

// NewSeeder returns a Seeder that uses the given pool.
func NewSeeder(pool *pgxpool.Pool) *Seeder {
	return &Seeder{pool: pool}
}

func (s *Seeder) UpsertUser(ctx context.Context, u SeedUser) error {
	if _, err := s.pool.Exec(ctx, upsertUserSQL, u.ID, u.Name, u.Email, u.Phone, u.Address); err != nil {
		return fmt.Errorf("upserting user %d: %w", u.ID, err)
	}
	return nil
}

func (s *Seeder) UpsertAPIKey(ctx context.Context, k SeedAPIKey) error {
	if _, err := s.pool.Exec(ctx, upsertAPIKeySQL, k.ID, k.KeyHash, k.Name, k.UserID, k.Scopes); err != nil {
		return fmt.Errorf("upserting api key %s: %w", k.ID, err)
	}
	return nil
}

// UpsertRestaurant writes a restaurant and its menu in one transaction.
func (s *Seeder) UpsertRestaurant(ctx context.Context, r catalog.Restaurant, menu []catalog.MenuItem) error {
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, upsertRestaurantSQL, r.ID, r.Name, r.Address); err != nil {
			return fmt.Errorf("upserting restaurant %d: %w", r.ID, err)
		}
		batch := &pgx.Batch{}
		for _, m := range menu {
			batch.Queue(upsertMenuItemSQL, m.ID, r.ID, m.Name, m.Category, m.Price, m.Stock)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("upserting menu of restaurant %d: %w", r.ID, err)
		}
		return nil
	})
}

func (s *Seeder) UpsertPartner(ctx context.Context, p SeedPartner) error {
	if _, err := s.pool.Exec(ctx, upsertPartnerSQL, p.ID, p.Name, p.Phone, p.Active); err != nil {
		return fmt.Errorf("upserting delivery partner %d: %w", p.ID, err)
	}
	return nil
}

// SyncSequences moves every serial sequence past the highest seeded id.
func (s *Seeder) SyncSequences(ctx context.Context) error {
	for _, seq := range seededSequences {
		sql := fmt.Sprintf(
			`SELECT setval(pg_get_serial_sequence('%[1]s', '%[2]s'), COALESCE(MAX(%[2]s), 0) + 1, false) FROM %[1]s`,
			seq.table, seq.column,
		)
		if _, err := s.pool.Exec(ctx, sql); err != nil {
			return fmt.Errorf("syncing sequence of %s: %w", seq.table, err)
		}
	}
	return nil
}
