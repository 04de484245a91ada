package promotion

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/depot-store/internal/domain/buyer"
)

var hundred = decimal.NewFromInt(100)

// Select picks the single best applicable promotion for a cart snapshot.
// It filters the given promotions down to active, eligible ones, computes
// each discount, and returns the promotion with the largest discount along
// with the amount. Discounts are clamped to the subtotal so an order total
// can never go negative. When no promotion is eligible, or every eligible
// promotion computes a zero discount, it returns (nil, 0).
//
// Ties on the computed discount are broken by the lowest promotion ID, so
// selection is deterministic regardless of input order.
func Select(items []Item, role buyer.Role, subtotal decimal.Decimal, promotions []Promotion) (*Promotion, decimal.Decimal) {
	var (
		best       *Promotion
		bestAmount = decimal.Zero
	)
	for i := range promotions {
		p := &promotions[i]
		if !p.Active || !eligible(p, items, role, subtotal) {
			continue
		}

		amount := computeDiscount(p, subtotal)
		switch {
		case amount.GreaterThan(bestAmount),
			best != nil && amount.Equal(bestAmount) && p.ID < best.ID:
			best = p
			bestAmount = amount
		}
	}
	if best == nil {
		return nil, decimal.Zero
	}
	return best, bestAmount
}

// eligible reports whether every set condition of the promotion holds for
// the given cart snapshot. Unset conditions always hold.
func eligible(p *Promotion, items []Item, role buyer.Role, subtotal decimal.Decimal) bool {
	c := p.Conditions
	if c.UserRole != "" && c.UserRole != role {
		return false
	}
	if c.MinAmount.IsPositive() && subtotal.LessThan(c.MinAmount) {
		return false
	}
	if c.ProductCategory != "" && !anyCategory(items, c.ProductCategory) {
		return false
	}
	return true
}

func anyCategory(items []Item, category string) bool {
	for _, item := range items {
		if item.Category == category {
			return true
		}
	}
	return false
}

// computeDiscount returns the discount amount for an eligible promotion,
// clamped to [0, subtotal].
func computeDiscount(p *Promotion, subtotal decimal.Decimal) decimal.Decimal {
	var amount decimal.Decimal
	switch p.Type {
	case DiscountPercentage:
		amount = subtotal.Mul(p.Value).Div(hundred)
	case DiscountFixed:
		amount = p.Value
	default:
		return decimal.Zero
	}

	if amount.IsNegative() {
		return decimal.Zero
	}
	return decimal.Min(amount, subtotal)
}
