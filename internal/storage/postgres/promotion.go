package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/depot-store/internal/domain/buyer"
	"github.com/xenking/depot-store/internal/domain/promotion"
)

// Condition columns use zero values ('' / 0) for "unconstrained", matching
// the domain's Conditions zero value.
const listActivePromotionsSQL = `SELECT id, code, description, discount_type, discount_value,
	min_amount, product_category, user_role, active
	FROM promotions WHERE active = TRUE ORDER BY id`

var _ promotion.Repository = (*PromotionRepository)(nil)

// PromotionRepository implements promotion.Repository backed by PostgreSQL.
// Promotions are authored by admin tooling; this engine only reads them.
type PromotionRepository struct {
	pool *pgxpool.Pool
}

// NewPromotionRepository returns a PromotionRepository that uses the given pool.
func NewPromotionRepository(pool *pgxpool.Pool) *PromotionRepository {
	return &PromotionRepository{pool: pool}
}

// ListActive returns all active promotions ordered by ID.
func (r *PromotionRepository) ListActive(ctx context.Context) ([]promotion.Promotion, error) {
	rows, err := r.pool.Query(ctx, listActivePromotionsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing active promotions: %w", err)
	}
	return pgx.CollectRows(rows, scanPromotion)
}

func scanPromotion(row pgx.CollectableRow) (promotion.Promotion, error) {
	var (
		p            promotion.Promotion
		discountType string
		userRole     string
	)
	err := row.Scan(
		&p.ID, &p.Code, &p.Description, &discountType, &p.Value,
		&p.Conditions.MinAmount, &p.Conditions.ProductCategory, &userRole,
		&p.Active,
	)
	p.Type = promotion.DiscountType(discountType)
	p.Conditions.UserRole = buyer.Role(userRole)
	return p, err
}
