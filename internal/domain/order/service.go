package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/depot-store/internal/domain/buyer"
	"github.com/xenking/depot-store/internal/domain/cart"
	"github.com/xenking/depot-store/internal/domain/inventory"
	"github.com/xenking/depot-store/internal/domain/promotion"
)

// maxPlaceAttempts bounds the retry loop on transaction conflicts: one
// initial attempt plus two retries before ErrConflict is surfaced.
const maxPlaceAttempts = 3

// Service turns a buyer's cart into a durable order: snapshot prices,
// best-discount promotion selection, and an atomic reserve-create-clear
// transaction with bounded retry on conflicts.
type Service struct {
	carts      cart.Repository
	promotions promotion.Repository
	ledger     Repository
	store      TxRunner
	now        func() time.Time
}

// NewService creates an order Service with the required domain dependencies.
func NewService(carts cart.Repository, promotions promotion.Repository, ledger Repository, store TxRunner) *Service {
	return &Service{
		carts:      carts,
		promotions: promotions,
		ledger:     ledger,
		store:      store,
		now:        time.Now,
	}
}

// PlaceOrder reads the buyer's cart, evaluates promotions, and commits the
// order atomically: stock is verified and decremented, the order row is
// created, and the cart is cleared, all in one serializable transaction.
// On a write conflict with a concurrent placement the transaction is retried
// from the stock re-read, up to maxPlaceAttempts; then ErrConflict surfaces.
//
// Returned errors: ErrEmptyCart, *inventory.InsufficientStockError,
// ErrConflict, or a wrapped storage failure. In every failure case nothing
// is persisted.
func (s *Service) PlaceOrder(ctx context.Context, b buyer.Buyer) (*Order, error) {
	items, err := s.carts.ListByBuyer(ctx, b.ID)
	if err != nil {
		return nil, errors.Wrap(err, "read cart")
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	// Subtotal over snapshot prices; prices are not re-resolved here.
	subtotal := decimal.Zero
	promoItems := make([]promotion.Item, len(items))
	reservations := make([]inventory.Reservation, len(items))
	lines := make([]LineItem, len(items))
	for i, item := range items {
		subtotal = subtotal.Add(item.Subtotal())
		promoItems[i] = promotion.Item{
			ProductID: item.ProductID,
			Category:  item.Category,
			Price:     item.Price,
			Quantity:  item.Quantity,
		}
		reservations[i] = inventory.Reservation{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		}
		lines[i] = LineItem{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.Price,
		}
	}

	active, err := s.promotions.ListActive(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list promotions")
	}
	promo, discount := promotion.Select(promoItems, b.Role, subtotal, active)

	o := &Order{
		ID:        uuid.New().String(),
		BuyerID:   b.ID,
		BuyerName: b.Name,
		Items:     lines,
		Subtotal:  subtotal,
		Discount:  discount,
		Total:     subtotal.Sub(discount),
		Status:    StatusPending,
		CreatedAt: s.now().UTC(),
	}
	if promo != nil {
		o.Promotion = &AppliedPromotion{ID: promo.ID, Code: promo.Code}
	}

	for attempt := 1; ; attempt++ {
		err = s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
			if err := tx.ReserveStock(ctx, reservations); err != nil {
				return err
			}
			if err := tx.CreateOrder(ctx, o); err != nil {
				return errors.Wrap(err, "create order")
			}
			if err := tx.ClearCart(ctx, b.ID); err != nil {
				return errors.Wrap(err, "clear cart")
			}
			return nil
		})
		if err == nil {
			return o, nil
		}
		if !errors.Is(err, ErrConflict) || attempt >= maxPlaceAttempts {
			return nil, err
		}
	}
}

// TransitionStatus moves an order through the fixed state machine. It is
// exercised by the external order-management collaborator, never by the
// placement flow. Unknown target statuses and transitions out of terminal
// states are rejected with *InvalidTransitionError.
func (s *Service) TransitionStatus(ctx context.Context, id string, next Status) error {
	if !next.Valid() {
		return errors.Errorf("unknown order status %q", next)
	}

	o, err := s.ledger.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !o.Status.CanTransition(next) {
		return &InvalidTransitionError{From: o.Status, To: next}
	}
	return s.ledger.UpdateStatus(ctx, id, o.Status, next)
}
