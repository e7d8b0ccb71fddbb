package postgres

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/catalog"
)

const (
	listRestaurantsSQL = `SELECT restaurant_id, name, address FROM restaurants ORDER BY restaurant_id`

	getRestaurantSQL = `SELECT restaurant_id, name, address FROM restaurants WHERE restaurant_id = $1`

	createRestaurantSQL = `INSERT INTO restaurants (name, address) VALUES ($1, $2) RETURNING restaurant_id`

	deleteRestaurantMenuSQL = `DELETE FROM menu WHERE restaurant_id = $1`

	deleteRestaurantSQL = `DELETE FROM restaurants WHERE restaurant_id = $1`

	menuColumns = `menu_id, restaurant_id, name, category, price, stock`

	listMenuSQL = `SELECT ` + menuColumns + ` FROM menu WHERE restaurant_id = $1 ORDER BY menu_id`

	getMenuItemSQL = `SELECT ` + menuColumns + ` FROM menu WHERE menu_id = $1`

	createMenuItemSQL = `INSERT INTO menu (restaurant_id, name, category, price, stock)
		VALUES ($1, $2, $3, $4, $5) RETURNING menu_id`

	updateMenuItemSQL = `UPDATE menu SET
		name = COALESCE($2, name),
		category = COALESCE($3, category),
		price = COALESCE($4, price),
		stock = COALESCE($5, stock)
		WHERE menu_id = $1
		RETURNING ` + menuColumns

	deleteMenuItemSQL = `DELETE FROM menu WHERE menu_id = $1`

	decrementStockSQL = `UPDATE menu SET stock = GREATEST(stock - $2, 0) WHERE menu_id = $1`
)

var _ catalog.Repository = (*CatalogRepository)(nil)

// CatalogRepository implements catalog.Repository backed by PostgreSQL.
type CatalogRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository returns a CatalogRepository that uses the given pool.
func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

func (r *CatalogRepository) ListRestaurants(ctx context.Context) ([]catalog.Restaurant, error) {
	rows, err := r.pool.Query(ctx, listRestaurantsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing restaurants: %w", err)
	}
	restaurants, err := pgx.CollectRows(rows, scanRestaurant)
	if err != nil {
		return nil, fmt.Errorf("listing restaurants: %w", err)
	}
	return restaurants, nil
}

func (r *CatalogRepository) GetRestaurant(ctx context.Context, id int64) (*catalog.Restaurant, error) {
	rows, err := r.pool.Query(ctx, getRestaurantSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting restaurant %d: %w", id, err)
	}
	rest, err := pgx.CollectExactlyOneRow(rows, scanRestaurant)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrRestaurantNotFound
		}
		return nil, fmt.Errorf("getting restaurant %d: %w", id, err)
	}
	return &rest, nil
}

func (r *CatalogRepository) CreateRestaurant(ctx context.Context, rest *catalog.Restaurant) error {
	if err := r.pool.QueryRow(ctx, createRestaurantSQL, rest.Name, rest.Address).Scan(&rest.ID); err != nil {
		return fmt.Errorf("creating restaurant %q: %w", rest.Name, err)
	}
	return nil
}

// DeleteRestaurant removes the menu of a restaurant and then the restaurant
// itself in one transaction.
func (r *CatalogRepository) DeleteRestaurant(ctx context.Context, id int64) error {
	return pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, deleteRestaurantMenuSQL, id); err != nil {
			return fmt.Errorf("deleting menu of restaurant %d: %w", id, err)
		}
		tag, err := tx.Exec(ctx, deleteRestaurantSQL, id)
		if err != nil {
			return fmt.Errorf("deleting restaurant %d: %w", id, err)
		}
		if tag.RowsAffected() == 0 {
			return catalog.ErrRestaurantNotFound
		}
		return nil
	})
}

func (r *CatalogRepository) ListMenu(ctx context.Context, restaurantID int64) ([]catalog.MenuItem, error) {
	rows, err := r.pool.Query(ctx, listMenuSQL, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("listing menu of restaurant %d: %w", restaurantID, err)
	}
	items, err := pgx.CollectRows(rows, scanMenuItem)
	if err != nil {
		return nil, fmt.Errorf("listing menu of restaurant %d: %w", restaurantID, err)
	}
	return items, nil
}

func (r *CatalogRepository) GetMenuItem(ctx context.Context, id int64) (*catalog.MenuItem, error) {
	rows, err := r.pool.Query(ctx, getMenuItemSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting menu item %d: %w", id, err)
	}
	item, err := pgx.CollectExactlyOneRow(rows, scanMenuItem)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrMenuItemNotFound
		}
		return nil, fmt.Errorf("getting menu item %d: %w", id, err)
	}
	return &item, nil
}

func (r *CatalogRepository) CreateMenuItem(ctx context.Context, m *catalog.MenuItem) error {
	err := r.pool.QueryRow(ctx, createMenuItemSQL,
		m.RestaurantID, m.Name, m.Category, m.Price, m.Stock,
	).Scan(&m.ID)
	if err != nil {
		if pgCode(err) == codeForeignKeyViolation {
			return catalog.ErrRestaurantNotFound
		}
		return fmt.Errorf("creating menu item %q: %w", m.Name, err)
	}
	return nil
}

// UpdateMenuItem applies the non-nil fields of upd.
func (r *CatalogRepository) UpdateMenuItem(ctx context.Context, id int64, upd catalog.MenuUpdate) (*catalog.MenuItem, error) {
	rows, err := r.pool.Query(ctx, updateMenuItemSQL, id, upd.Name, upd.Category, upd.Price, upd.Stock)
	if err != nil {
		return nil, fmt.Errorf("updating menu item %d: %w", id, err)
	}
	item, err := pgx.CollectExactlyOneRow(rows, scanMenuItem)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrMenuItemNotFound
		}
		return nil, fmt.Errorf("updating menu item %d: %w", id, err)
	}
	return &item, nil
}

func (r *CatalogRepository) DeleteMenuItem(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, deleteMenuItemSQL, id)
	if err != nil {
		return fmt.Errorf("deleting menu item %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrMenuItemNotFound
	}
	return nil
}

// decrementStock sends one guarded UPDATE per delta in a single batch.
// Stock never goes below zero. Rows are updated in menu id order so
// concurrent checkouts lock them in the same order.
func decrementStock(ctx context.Context, db dbtx, deltas []catalog.StockDelta) error {
	if len(deltas) == 0 {
		return nil
	}

	deltas = slices.Clone(deltas)
	slices.SortFunc(deltas, func(a, b catalog.StockDelta) int {
		return cmp.Compare(a.MenuID, b.MenuID)
	})

	batch := &pgx.Batch{}
	for _, d := range deltas {
		batch.Queue(decrementStockSQL, d.MenuID, d.Quantity)
	}

	br := db.SendBatch(ctx, batch)
	for _, d := range deltas {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("decrementing stock of menu item %d: %w", d.MenuID, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("decrementing stock: %w", err)
	}
	return nil
}

func scanRestaurant(row pgx.CollectableRow) (catalog.Restaurant, error) {
	var r catalog.Restaurant
	err := row.Scan(&r.ID, &r.Name, &r.Address)
	return r, err
}

func scanMenuItem(row pgx.CollectableRow) (catalog.MenuItem, error) {
	var m catalog.MenuItem
	err := row.Scan(&m.ID, &m.RestaurantID, &m.Name, &m.Category, &m.Price, &m.Stock)
	return m, err
}
