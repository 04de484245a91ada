package handler

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/xenking/depot-store/internal/domain/promotion"
)

type promotionConditionsResponse struct {
	MinAmount       *decimal.Decimal `json:"min_amount,omitempty"`
	ProductCategory string           `json:"product_category,omitempty"`
	UserRole        string           `json:"user_role,omitempty"`
}

type promotionResponse struct {
	ID          string                      `json:"id"`
	Code        string                      `json:"code"`
	Description string                      `json:"description"`
	Type        string                      `json:"discount_type"`
	Value       decimal.Decimal             `json:"discount_value"`
	Conditions  promotionConditionsResponse `json:"conditions"`
}

// listPromotions exposes the active promotion catalog so the storefront can
// show what a buyer could qualify for.
func (h *Handler) listPromotions(w http.ResponseWriter, r *http.Request) {
	active, err := h.promotions.ListActive(r.Context())
	if err != nil {
		respondInternal(w, r, err)
		return
	}

	out := make([]promotionResponse, len(active))
	for i, p := range active {
		out[i] = toPromotionResponse(p)
	}
	respond(w, http.StatusOK, out)
}

func toPromotionResponse(p promotion.Promotion) promotionResponse {
	resp := promotionResponse{
		ID:          p.ID,
		Code:        p.Code,
		Description: p.Description,
		Type:        string(p.Type),
		Value:       p.Value,
		Conditions: promotionConditionsResponse{
			ProductCategory: p.Conditions.ProductCategory,
			UserRole:        string(p.Conditions.UserRole),
		},
	}
	if p.Conditions.MinAmount.IsPositive() {
		min := p.Conditions.MinAmount
		resp.Conditions.MinAmount = &min
	}
	return resp
}
