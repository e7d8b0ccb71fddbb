package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/cart"
)

const (
	addCartLineSQL = `INSERT INTO cart (user_id, menu_id, quantity) VALUES ($1, $2, $3)
		ON CONFLICT (user_id, menu_id) DO UPDATE SET quantity = cart.quantity + EXCLUDED.quantity
		WHERE cart.quantity + EXCLUDED.quantity <= $4
		RETURNING cart_id, quantity`

	listCartSQL = `SELECT c.cart_id, c.user_id, c.menu_id, c.quantity,
		m.name, m.category, m.price, r.restaurant_id, r.name
		FROM cart c
		JOIN menu m ON m.menu_id = c.menu_id
		JOIN restaurants r ON r.restaurant_id = m.restaurant_id
		WHERE c.user_id = $1
		ORDER BY c.cart_id`

	removeCartLineSQL = `DELETE FROM cart WHERE cart_id = $1 AND user_id = $2`

	cartMenuForeignKey = "cart_menu_id_fkey"
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// Add upserts a cart line in a single statement so concurrent adds of the
// same item accumulate instead of racing. The conflict branch skips the
// update, returning no row, when the sum would pass cart.MaxQuantity.
func (r *CartRepository) Add(ctx context.Context, userID, menuID int64, quantity int) (int64, int, error) {
	var (
		id    int64
		total int
	)
	err := r.pool.QueryRow(ctx, addCartLineSQL, userID, menuID, quantity, cart.MaxQuantity).Scan(&id, &total)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, 0, cart.ErrQuantityLimit
		}
		if pgCode(err) == codeForeignKeyViolation && pgConstraint(err) == cartMenuForeignKey {
			return 0, 0, cart.ErrMenuItemNotFound
		}
		return 0, 0, fmt.Errorf("adding menu item %d to cart of user %d: %w", menuID, userID, err)
	}
	return id, total, nil
}

func (r *CartRepository) List(ctx context.Context, userID int64) ([]cart.Line, error) {
	rows, err := r.pool.Query(ctx, listCartSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing cart of user %d: %w", userID, err)
	}
	lines, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (cart.Line, error) {
		var l cart.Line
		err := row.Scan(&l.ID, &l.UserID, &l.MenuID, &l.Quantity,
			&l.ItemName, &l.Category, &l.Price, &l.RestaurantID, &l.RestaurantName)
		return l, err
	})
	if err != nil {
		return nil, fmt.Errorf("listing cart of user %d: %w", userID, err)
	}
	return lines, nil
}

func (r *CartRepository) Remove(ctx context.Context, userID, cartID int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, removeCartLineSQL, cartID, userID)
	if err != nil {
		return false, fmt.Errorf("removing cart line %d: %w", cartID, err)
	}
	return tag.RowsAffected() > 0, nil
}
