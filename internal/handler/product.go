package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/depot-store/internal/domain/buyer"
	"github.com/xenking/depot-store/internal/domain/product"
)

type productResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Unit     string `json:"unit"`
	Category string `json:"category"`
	InStock  bool   `json:"in_stock"`
	Stock    int    `json:"stock"`
	// Price is the calling buyer's role price; omitted when the role is not
	// entitled to buy this product.
	Price *decimal.Decimal `json:"price,omitempty"`
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	b, ok := BuyerFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	products, err := h.products.List(r.Context())
	if err != nil {
		respondInternal(w, r, err)
		return
	}

	out := make([]productResponse, len(products))
	for i := range products {
		out[i] = toProductResponse(&products[i], b.Role)
	}
	respond(w, http.StatusOK, out)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	b, ok := BuyerFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id := chi.URLParam(r, "productID")
	p, err := h.products.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			respondError(w, http.StatusNotFound, "product not found")
			return
		}
		respondInternal(w, r, err)
		return
	}
	respond(w, http.StatusOK, toProductResponse(p, b.Role))
}

func toProductResponse(p *product.Product, role buyer.Role) productResponse {
	resp := productResponse{
		ID:       p.ID,
		Name:     p.Name,
		Unit:     p.Unit,
		Category: p.Category,
		InStock:  p.Stock > 0,
		Stock:    p.Stock,
	}
	if price, err := p.PriceFor(role); err == nil {
		resp.Price = &price
	}
	return resp
}
