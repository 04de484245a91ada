package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/depot-store/internal/domain/inventory"
	"github.com/xenking/depot-store/internal/domain/order"
	"github.com/xenking/depot-store/internal/domain/product"
)

const (
	reserveStockSQL = `UPDATE products SET stock = stock - $2 WHERE id = $1 AND stock >= $2`

	getStockSQL = `SELECT stock FROM products WHERE id = $1`

	createOrderSQL = `INSERT INTO orders
		(id, buyer_id, buyer_name, items, subtotal, discount, total, promotion_id, promotion_code, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	clearCartSQL = `DELETE FROM cart_items WHERE buyer_id = $1`

	getOrderSQL = `SELECT id, buyer_id, buyer_name, items, subtotal, discount, total,
		promotion_id, promotion_code, status, created_at
		FROM orders WHERE id = $1`

	listOrdersByBuyerSQL = `SELECT id, buyer_id, buyer_name, items, subtotal, discount, total,
		promotion_id, promotion_code, status, created_at
		FROM orders WHERE buyer_id = $1 ORDER BY created_at DESC`

	updateOrderStatusSQL = `UPDATE orders SET status = $3 WHERE id = $1 AND status = $2`

	orderExistsSQL = `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`
)

// orderTx implements order.Tx on a single pgx transaction.
type orderTx struct {
	tx pgx.Tx
}

// ReserveStock conditionally decrements stock for every reservation. The
// decrement only applies when enough stock remains, so it can never drive
// stock negative; a zero-row update means the product is missing or short.
// Any failure aborts the surrounding transaction, undoing prior decrements.
func (t *orderTx) ReserveStock(ctx context.Context, reservations []inventory.Reservation) error {
	for _, r := range reservations {
		tag, err := t.tx.Exec(ctx, reserveStockSQL, r.ProductID, r.Quantity)
		if err != nil {
			return fmt.Errorf("reserving stock for %q: %w", r.ProductID, err)
		}
		if tag.RowsAffected() > 0 {
			continue
		}

		var available int
		err = t.tx.QueryRow(ctx, getStockSQL, r.ProductID).Scan(&available)
		if errors.Is(err, pgx.ErrNoRows) {
			return errors.Wrapf(product.ErrNotFound, "%q", r.ProductID)
		}
		if err != nil {
			return fmt.Errorf("reading stock for %q: %w", r.ProductID, err)
		}
		return &inventory.InsufficientStockError{
			ProductID: r.ProductID,
			Requested: r.Quantity,
			Available: available,
		}
	}
	return nil
}

// CreateOrder inserts the order row. Line items are serialized to JSON for
// the JSONB column.
func (t *orderTx) CreateOrder(ctx context.Context, o *order.Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshaling order items: %w", err)
	}

	var promoID, promoCode *string
	if o.Promotion != nil {
		promoID = &o.Promotion.ID
		promoCode = &o.Promotion.Code
	}

	_, err = t.tx.Exec(ctx, createOrderSQL,
		o.ID, o.BuyerID, o.BuyerName, itemsJSON,
		o.Subtotal, o.Discount, o.Total,
		promoID, promoCode, string(o.Status), o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	return nil
}

// ClearCart deletes every cart item belonging to the buyer.
func (t *orderTx) ClearCart(ctx context.Context, buyerID string) error {
	_, err := t.tx.Exec(ctx, clearCartSQL, buyerID)
	if err != nil {
		return fmt.Errorf("clearing cart for buyer %q: %w", buyerID, err)
	}
	return nil
}

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements the order ledger reads and status transitions
// backed by PostgreSQL. Order creation happens through the placement
// transaction instead.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// GetByID returns a single order by its identifier.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	return &o, nil
}

// ListByBuyer returns the buyer's orders, newest first.
func (r *OrderRepository) ListByBuyer(ctx context.Context, buyerID string) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersByBuyerSQL, buyerID)
	if err != nil {
		return nil, fmt.Errorf("listing orders for buyer %q: %w", buyerID, err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// UpdateStatus performs a check-and-set status change. A zero-row update
// means either the order does not exist (order.ErrNotFound) or its status
// moved concurrently (order.ErrConflict).
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, from, to order.Status) error {
	tag, err := r.pool.Exec(ctx, updateOrderStatusSQL, id, string(from), string(to))
	if err != nil {
		return fmt.Errorf("updating status for order %q: %w", id, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, orderExistsSQL, id).Scan(&exists); err != nil {
		return fmt.Errorf("checking order %q: %w", id, err)
	}
	if !exists {
		return order.ErrNotFound
	}
	return errors.Wrapf(order.ErrConflict, "order %q left status %s", id, from)
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o         order.Order
		itemsJSON []byte
		promoID   *string
		promoCode *string
		status    string
	)
	err := row.Scan(
		&o.ID, &o.BuyerID, &o.BuyerName, &itemsJSON,
		&o.Subtotal, &o.Discount, &o.Total,
		&promoID, &promoCode, &status, &o.CreatedAt,
	)
	if err != nil {
		return order.Order{}, err
	}

	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return order.Order{}, fmt.Errorf("unmarshaling order items: %w", err)
	}
	if promoID != nil && promoCode != nil {
		o.Promotion = &order.AppliedPromotion{ID: *promoID, Code: *promoCode}
	}
	o.Status = order.Status(status)
	return o, nil
}
