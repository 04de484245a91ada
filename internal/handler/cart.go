package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/depot-store/internal/domain/cart"
	"github.com/xenking/depot-store/internal/domain/product"
	"github.com/xenking/depot-store/internal/domain/promotion"
)

type cartItemResponse struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Unit        string          `json:"unit"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

type appliedPromotionResponse struct {
	ID   string `json:"id"`
	Code string `json:"code"`
}

// cartResponse mirrors the storefront cart summary: line items plus a
// preview of the promotion that would apply at checkout right now.
type cartResponse struct {
	Items     []cartItemResponse        `json:"items"`
	Subtotal  decimal.Decimal           `json:"subtotal"`
	Discount  decimal.Decimal           `json:"discount"`
	Total     decimal.Decimal           `json:"total"`
	Promotion *appliedPromotionResponse `json:"promotion,omitempty"`
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	b, ok := BuyerFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	items, err := h.carts.List(r.Context(), b)
	if err != nil {
		respondInternal(w, r, err)
		return
	}

	resp := cartResponse{
		Items:    make([]cartItemResponse, len(items)),
		Subtotal: decimal.Zero,
		Discount: decimal.Zero,
		Total:    decimal.Zero,
	}
	promoItems := make([]promotion.Item, len(items))
	for i, item := range items {
		resp.Items[i] = cartItemResponse{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Unit:        item.Unit,
			Category:    item.Category,
			Price:       item.Price,
			Quantity:    item.Quantity,
			Subtotal:    item.Subtotal(),
		}
		resp.Subtotal = resp.Subtotal.Add(item.Subtotal())
		promoItems[i] = promotion.Item{
			ProductID: item.ProductID,
			Category:  item.Category,
			Price:     item.Price,
			Quantity:  item.Quantity,
		}
	}

	// Preview only; the authoritative selection happens at placement time.
	if len(items) > 0 {
		active, err := h.promotions.ListActive(r.Context())
		if err != nil {
			respondInternal(w, r, err)
			return
		}
		if promo, discount := promotion.Select(promoItems, b.Role, resp.Subtotal, active); promo != nil {
			resp.Discount = discount
			resp.Promotion = &appliedPromotionResponse{ID: promo.ID, Code: promo.Code}
		}
	}
	resp.Total = resp.Subtotal.Sub(resp.Discount)

	respond(w, http.StatusOK, resp)
}

type addCartItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request) {
	b, ok := BuyerFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req addCartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ProductID == "" {
		respondError(w, http.StatusBadRequest, "product_id required")
		return
	}

	item, err := h.carts.Add(r.Context(), b, req.ProductID, req.Quantity)
	if err != nil {
		switch {
		case errors.Is(err, cart.ErrInvalidQuantity):
			respondError(w, http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, product.ErrNotFound):
			respondError(w, http.StatusUnprocessableEntity, "product not found")
		case errors.Is(err, product.ErrNotEligible):
			respondError(w, http.StatusForbidden, "your role cannot buy this product")
		default:
			respondInternal(w, r, err)
		}
		return
	}

	respond(w, http.StatusCreated, cartItemResponse{
		ProductID:   item.ProductID,
		ProductName: item.ProductName,
		Unit:        item.Unit,
		Category:    item.Category,
		Price:       item.Price,
		Quantity:    item.Quantity,
		Subtotal:    item.Subtotal(),
	})
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) updateCartItem(w http.ResponseWriter, r *http.Request) {
	b, ok := BuyerFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req updateCartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	productID := chi.URLParam(r, "productID")
	if err := h.carts.UpdateQuantity(r.Context(), b, productID, req.Quantity); err != nil {
		if errors.Is(err, cart.ErrItemNotFound) {
			respondError(w, http.StatusNotFound, "cart item not found")
			return
		}
		respondInternal(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	b, ok := BuyerFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.carts.Remove(r.Context(), b, chi.URLParam(r, "productID")); err != nil {
		respondInternal(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
