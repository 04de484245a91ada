package cart

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrItemNotFound is returned when a cart item does not exist for the buyer.
var ErrItemNotFound = errors.New("cart item not found")

// Item is one line of a buyer's cart. Price is a snapshot taken at
// add-to-cart time and is not re-resolved at checkout. Category is carried
// for promotion matching.
type Item struct {
	ProductID   string
	ProductName string
	Unit        string
	Category    string
	Price       decimal.Decimal
	Quantity    int
}

// Subtotal returns the line total, price times quantity.
func (i Item) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Repository defines persistence operations for buyer carts. Cart items are
// owned exclusively by their buyer and are never contended; clearing on
// successful order placement happens inside the order transaction instead.
type Repository interface {
	ListByBuyer(ctx context.Context, buyerID string) ([]Item, error)
	// Add inserts the item or, when the product is already in the cart,
	// adds the quantity onto the existing line while refreshing the
	// snapshot fields. It returns the resulting quantity.
	Add(ctx context.Context, buyerID string, item Item) (int, error)
	UpdateQuantity(ctx context.Context, buyerID, productID string, quantity int) error
	Remove(ctx context.Context, buyerID, productID string) error
}
