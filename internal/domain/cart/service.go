package cart

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/xenking/depot-store/internal/domain/buyer"
	"github.com/xenking/depot-store/internal/domain/product"
)

// ErrInvalidQuantity is returned when an add request carries a non-positive
// quantity.
var ErrInvalidQuantity = errors.New("quantity must be greater than 0")

// Service implements cart operations on top of the catalog and the cart
// repository. Adding a product resolves the buyer's role price and snapshots
// it into the item.
type Service struct {
	products product.Repository
	carts    Repository
}

// NewService creates a cart Service with the required dependencies.
func NewService(products product.Repository, carts Repository) *Service {
	return &Service{
		products: products,
		carts:    carts,
	}
}

// List returns the buyer's current cart items.
func (s *Service) List(ctx context.Context, b buyer.Buyer) ([]Item, error) {
	items, err := s.carts.ListByBuyer(ctx, b.ID)
	if err != nil {
		return nil, errors.Wrap(err, "list cart")
	}
	return items, nil
}

// Add puts a product into the buyer's cart with the given quantity,
// snapshotting the role-resolved price. Adding an already-present product
// accumulates onto the existing quantity; setting an absolute quantity is
// what UpdateQuantity is for. Returns product.ErrNotEligible when the
// buyer's role has no price for the product.
func (s *Service) Add(ctx context.Context, b buyer.Buyer, productID string, quantity int) (*Item, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, errors.Wrapf(err, "get product %s", productID)
	}

	price, err := p.PriceFor(b.Role)
	if err != nil {
		return nil, err
	}

	item := Item{
		ProductID:   p.ID,
		ProductName: p.Name,
		Unit:        p.Unit,
		Category:    p.Category,
		Price:       price,
		Quantity:    quantity,
	}
	total, err := s.carts.Add(ctx, b.ID, item)
	if err != nil {
		return nil, errors.Wrap(err, "add cart item")
	}
	item.Quantity = total
	return &item, nil
}

// UpdateQuantity sets the quantity of an existing cart item. A quantity of
// zero or less removes the item, it never leaves a zero-quantity record.
func (s *Service) UpdateQuantity(ctx context.Context, b buyer.Buyer, productID string, quantity int) error {
	if quantity <= 0 {
		return s.Remove(ctx, b, productID)
	}
	if err := s.carts.UpdateQuantity(ctx, b.ID, productID, quantity); err != nil {
		return errors.Wrapf(err, "update quantity for %s", productID)
	}
	return nil
}

// Remove deletes a single item from the buyer's cart.
func (s *Service) Remove(ctx context.Context, b buyer.Buyer, productID string) error {
	if err := s.carts.Remove(ctx, b.ID, productID); err != nil {
		return errors.Wrapf(err, "remove cart item %s", productID)
	}
	return nil
}
