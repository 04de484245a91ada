package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/depot-store/internal/domain/cart"
)

const (
	listCartSQL = `SELECT product_id, product_name, unit, category, price, quantity
		FROM cart_items WHERE buyer_id = $1 ORDER BY product_id`

	addCartItemSQL = `INSERT INTO cart_items
		(buyer_id, product_id, product_name, unit, category, price, quantity)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (buyer_id, product_id) DO UPDATE
		SET product_name = EXCLUDED.product_name,
			unit = EXCLUDED.unit,
			category = EXCLUDED.category,
			price = EXCLUDED.price,
			quantity = cart_items.quantity + EXCLUDED.quantity
		RETURNING quantity`

	updateCartQuantitySQL = `UPDATE cart_items SET quantity = $3
		WHERE buyer_id = $1 AND product_id = $2`

	removeCartItemSQL = `DELETE FROM cart_items WHERE buyer_id = $1 AND product_id = $2`
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

// ListByBuyer returns the buyer's cart items ordered by product ID.
func (r *CartRepository) ListByBuyer(ctx context.Context, buyerID string) ([]cart.Item, error) {
	rows, err := r.pool.Query(ctx, listCartSQL, buyerID)
	if err != nil {
		return nil, fmt.Errorf("listing cart for buyer %q: %w", buyerID, err)
	}
	return pgx.CollectRows(rows, scanCartItem)
}

// Add inserts the item or, for a product already in the cart, adds the
// quantity onto the existing row while refreshing the snapshot fields.
func (r *CartRepository) Add(ctx context.Context, buyerID string, item cart.Item) (int, error) {
	var quantity int
	err := r.pool.QueryRow(ctx, addCartItemSQL,
		buyerID, item.ProductID, item.ProductName, item.Unit, item.Category,
		item.Price, item.Quantity,
	).Scan(&quantity)
	if err != nil {
		return 0, fmt.Errorf("adding cart item %q: %w", item.ProductID, err)
	}
	return quantity, nil
}

// UpdateQuantity sets the quantity of an existing item. Returns
// cart.ErrItemNotFound when the buyer has no such item.
func (r *CartRepository) UpdateQuantity(ctx context.Context, buyerID, productID string, quantity int) error {
	tag, err := r.pool.Exec(ctx, updateCartQuantitySQL, buyerID, productID, quantity)
	if err != nil {
		return fmt.Errorf("updating cart item %q: %w", productID, err)
	}
	if tag.RowsAffected() == 0 {
		return cart.ErrItemNotFound
	}
	return nil
}

// Remove deletes a single cart item. Removing an absent item is a no-op.
func (r *CartRepository) Remove(ctx context.Context, buyerID, productID string) error {
	_, err := r.pool.Exec(ctx, removeCartItemSQL, buyerID, productID)
	if err != nil {
		return fmt.Errorf("removing cart item %q: %w", productID, err)
	}
	return nil
}

func scanCartItem(row pgx.CollectableRow) (cart.Item, error) {
	var item cart.Item
	err := row.Scan(
		&item.ProductID, &item.ProductName, &item.Unit, &item.Category,
		&item.Price, &item.Quantity,
	)
	return item, err
}
