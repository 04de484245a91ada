// Package inventory defines the stock reservation vocabulary used by order
// placement. Reservations are validated and applied inside the same atomic
// transaction that creates the order; this is the sole gate against
// overselling shared stock.
package inventory

import (
	"fmt"

	"github.com/go-faster/errors"
)

// ErrInsufficientStock is the sentinel matched by errors.Is for any
// InsufficientStockError.
var ErrInsufficientStock = errors.New("insufficient stock")

// Reservation asks for quantity units of a single product.
type Reservation struct {
	ProductID string
	Quantity  int
}

// InsufficientStockError reports the first product whose available stock
// could not cover the requested quantity. The whole reservation fails, no
// partial decrements happen.
type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

// Is makes errors.Is(err, ErrInsufficientStock) match.
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}
