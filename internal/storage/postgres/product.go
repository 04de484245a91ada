package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/depot-store/internal/domain/buyer"
	"github.com/xenking/depot-store/internal/domain/product"
)

const (
	listProductsSQL = `SELECT p.id, p.name, p.unit, p.category, p.stock, pp.role, pp.price
		FROM products p
		LEFT JOIN product_prices pp ON pp.product_id = p.id
		ORDER BY p.id`

	getProductSQL = `SELECT p.id, p.name, p.unit, p.category, p.stock, pp.role, pp.price
		FROM products p
		LEFT JOIN product_prices pp ON pp.product_id = p.id
		WHERE p.id = $1`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
// Role prices live in a separate product_prices table; both queries join it
// and the rows are folded into the product's price map.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns all products from the catalog ordered by ID.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	defer rows.Close()

	return collectProducts(rows)
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	defer rows.Close()

	products, err := collectProducts(rows)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	if len(products) == 0 {
		return nil, product.ErrNotFound
	}
	return &products[0], nil
}

// collectProducts folds joined product/price rows into products with
// role-keyed price maps. Rows must be ordered so that a product's price
// rows are adjacent.
func collectProducts(rows pgx.Rows) ([]product.Product, error) {
	var out []product.Product
	for rows.Next() {
		var (
			p     product.Product
			role  *string
			price *decimal.Decimal
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.Unit, &p.Category, &p.Stock, &role, &price); err != nil {
			return nil, errors.Wrap(err, "scan product")
		}

		if len(out) == 0 || out[len(out)-1].ID != p.ID {
			p.Prices = make(map[buyer.Role]decimal.Decimal)
			out = append(out, p)
		}
		if role != nil && price != nil {
			out[len(out)-1].Prices[buyer.Role(*role)] = *price
		}
	}
	return out, rows.Err()
}
