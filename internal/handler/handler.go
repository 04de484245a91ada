// Package handler exposes the storefront engine over HTTP: catalog reads,
// cart management, order placement, and status transitions. Every route is
// authenticated by API key; the resolved buyer identity drives role pricing
// and promotion eligibility.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/depot-store/internal/domain/cart"
	"github.com/xenking/depot-store/internal/domain/order"
	"github.com/xenking/depot-store/internal/domain/product"
	"github.com/xenking/depot-store/internal/domain/promotion"
)

// Handler wires the domain services to chi routes.
type Handler struct {
	products   product.Repository
	promotions promotion.Repository
	carts      *cart.Service
	orders     *order.Service
	ledger     order.Repository
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	products product.Repository,
	promotions promotion.Repository,
	carts *cart.Service,
	orders *order.Service,
	ledger order.Repository,
) *Handler {
	return &Handler{
		products:   products,
		promotions: promotions,
		carts:      carts,
		orders:     orders,
		ledger:     ledger,
	}
}

// Routes mounts every storefront endpoint under /api, guarded by the given
// security middleware.
func (h *Handler) Routes(security *Security) chi.Router {
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Use(security.Authenticate)

		r.Get("/products", h.listProducts)
		r.Get("/products/{productID}", h.getProduct)

		r.Get("/cart", h.getCart)
		r.Post("/cart", h.addCartItem)
		r.Patch("/cart/{productID}", h.updateCartItem)
		r.Delete("/cart/{productID}", h.removeCartItem)

		r.Get("/promotions", h.listPromotions)

		r.Post("/orders", h.placeOrder)
		r.Get("/orders", h.listOrders)
		r.Get("/orders/{orderID}", h.getOrder)
		r.Patch("/orders/{orderID}/status", h.transitionOrderStatus)
	})
	return r
}

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respond(w, status, errorResponse{Code: status, Message: message})
}

// respondInternal logs the error and hides its details from the client.
func respondInternal(w http.ResponseWriter, r *http.Request, err error) {
	zctx.From(r.Context()).Error("request failed",
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	respondError(w, http.StatusInternalServerError, "internal error")
}
