package promotion

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/xenking/depot-store/internal/domain/buyer"
)

// DiscountType enumerates the supported promotion discount strategies.
type DiscountType string

const (
	// DiscountPercentage applies a percentage of the subtotal, value in [0,100].
	DiscountPercentage DiscountType = "percentage"
	// DiscountFixed applies a fixed monetary discount capped at the subtotal.
	DiscountFixed DiscountType = "fixed"
)

// Conditions narrows when a promotion applies. Every field is optional; the
// zero value means unconstrained.
type Conditions struct {
	// MinAmount is the minimum order subtotal. Zero means no minimum.
	MinAmount decimal.Decimal
	// ProductCategory requires at least one cart item of this category.
	ProductCategory string
	// UserRole restricts the promotion to buyers of this role.
	UserRole buyer.Role
}

// Promotion is an admin-authored discount rule, read-only to this engine.
type Promotion struct {
	ID          string
	Code        string
	Description string
	Type        DiscountType
	Value       decimal.Decimal
	Conditions  Conditions
	Active      bool
}

// Item is a cart line as seen by the evaluator: the snapshot price, the
// quantity, and the product category for condition matching.
type Item struct {
	ProductID string
	Category  string
	Price     decimal.Decimal
	Quantity  int
}

// Repository provides read access to the promotion catalog.
type Repository interface {
	ListActive(ctx context.Context) ([]Promotion, error)
}
