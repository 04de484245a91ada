package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/depot-store/internal/domain/inventory"
	"github.com/xenking/depot-store/internal/domain/order"
)

type orderItemResponse struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

type orderResponse struct {
	ID        string                    `json:"id"`
	BuyerID   string                    `json:"buyer_id"`
	BuyerName string                    `json:"buyer_name"`
	Items     []orderItemResponse       `json:"items"`
	Subtotal  decimal.Decimal           `json:"subtotal"`
	Discount  decimal.Decimal           `json:"discount"`
	Total     decimal.Decimal           `json:"total"`
	Promotion *appliedPromotionResponse `json:"promotion,omitempty"`
	Status    string                    `json:"status"`
	CreatedAt time.Time                 `json:"created_at"`
}

func toOrderResponse(o *order.Order) orderResponse {
	resp := orderResponse{
		ID:        o.ID,
		BuyerID:   o.BuyerID,
		BuyerName: o.BuyerName,
		Items:     make([]orderItemResponse, len(o.Items)),
		Subtotal:  o.Subtotal,
		Discount:  o.Discount,
		Total:     o.Total,
		Status:    string(o.Status),
		CreatedAt: o.CreatedAt,
	}
	for i, item := range o.Items {
		resp.Items[i] = orderItemResponse{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		}
	}
	if o.Promotion != nil {
		resp.Promotion = &appliedPromotionResponse{ID: o.Promotion.ID, Code: o.Promotion.Code}
	}
	return resp
}

// placeOrder turns the buyer's cart into an order. The heavy lifting, the
// atomic reserve-create-clear transaction, lives in the order service.
func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	b, ok := BuyerFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	o, err := h.orders.PlaceOrder(r.Context(), b)
	if err != nil {
		h.mapPlaceOrderError(w, r, err)
		return
	}
	respond(w, http.StatusCreated, toOrderResponse(o))
}

func (h *Handler) mapPlaceOrderError(w http.ResponseWriter, r *http.Request, err error) {
	var isErr *inventory.InsufficientStockError
	switch {
	case errors.Is(err, order.ErrEmptyCart):
		respondError(w, http.StatusBadRequest, "cart is empty")
	case errors.As(err, &isErr):
		respondError(w, http.StatusConflict, isErr.Error())
	case errors.Is(err, order.ErrConflict):
		respondError(w, http.StatusServiceUnavailable, "order could not be placed due to contention, try again")
	default:
		respondInternal(w, r, err)
	}
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	b, ok := BuyerFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id := chi.URLParam(r, "orderID")
	o, err := h.ledger.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			respondError(w, http.StatusNotFound, "order not found")
			return
		}
		respondInternal(w, r, err)
		return
	}
	// Buyers only see their own orders.
	if o.BuyerID != b.ID {
		respondError(w, http.StatusNotFound, "order not found")
		return
	}
	respond(w, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	b, ok := BuyerFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	list, err := h.ledger.ListByBuyer(r.Context(), b.ID)
	if err != nil {
		respondInternal(w, r, err)
		return
	}

	out := make([]orderResponse, len(list))
	for i := range list {
		out[i] = toOrderResponse(&list[i])
	}
	respond(w, http.StatusOK, out)
}

type transitionStatusRequest struct {
	Status string `json:"status"`
}

// transitionOrderStatus is the order-management hook: it validates the
// target against the fixed state machine and applies it with check-and-set.
func (h *Handler) transitionOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req transitionStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	next := order.Status(req.Status)
	if !next.Valid() {
		respondError(w, http.StatusBadRequest, "unknown order status")
		return
	}

	id := chi.URLParam(r, "orderID")
	err := h.orders.TransitionStatus(r.Context(), id, next)
	if err != nil {
		var itErr *order.InvalidTransitionError
		switch {
		case errors.Is(err, order.ErrNotFound):
			respondError(w, http.StatusNotFound, "order not found")
		case errors.As(err, &itErr):
			respondError(w, http.StatusUnprocessableEntity, itErr.Error())
		case errors.Is(err, order.ErrConflict):
			respondError(w, http.StatusConflict, "order status changed concurrently")
		default:
			respondInternal(w, r, err)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
