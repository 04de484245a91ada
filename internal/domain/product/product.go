package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/depot-store/internal/domain/buyer"
)

var (
	// ErrNotFound is returned when a requested product does not exist.
	ErrNotFound = errors.New("product not found")
	// ErrNotEligible is returned when a role has no price entry for a
	// product and therefore cannot buy it.
	ErrNotEligible = errors.New("role not eligible for product")
)

// Product represents a catalog item available for purchase. Prices are
// keyed by buyer role; a role without an entry cannot buy the product.
type Product struct {
	ID       string
	Name     string
	Unit     string
	Category string
	Stock    int
	Prices   map[buyer.Role]decimal.Decimal
}

// PriceFor resolves the unit price for the given role. It returns
// ErrNotEligible when the role has no price entry. The resolved price is
// snapshotted into the cart at add-to-cart time and never re-resolved, so a
// later price change does not alter pending carts or orders.
func (p *Product) PriceFor(role buyer.Role) (decimal.Decimal, error) {
	price, ok := p.Prices[role]
	if !ok {
		return decimal.Zero, errors.Wrapf(ErrNotEligible, "product %s, role %s", p.ID, role)
	}
	return price, nil
}

// Repository defines read operations for the product catalog. Stock
// mutations happen only inside the order placement transaction.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
}
