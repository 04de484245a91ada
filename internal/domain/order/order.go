package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/depot-store/internal/domain/inventory"
)

// Status is the lifecycle state of an order. Orders are created pending;
// every later transition is an external order-management action.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Valid reports whether s is one of the five known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusShipped, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether the state machine permits moving from s to
// next. Completed and cancelled are terminal.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusProcessing || next == StatusCancelled
	case StatusProcessing:
		return next == StatusShipped || next == StatusCancelled
	case StatusShipped:
		return next == StatusCompleted
	default:
		return false
	}
}

// Sentinel errors surfaced by order placement and the ledger.
var (
	// ErrEmptyCart is returned when the buyer's cart has nothing to order.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrConflict is returned after the bounded retry budget is exhausted on
	// write conflicts with concurrent transactions, and by check-and-set
	// status updates that lost a race.
	ErrConflict = errors.New("transaction conflict")
	// ErrNotFound is returned when a requested order does not exist.
	ErrNotFound = errors.New("order not found")
)

// InvalidTransitionError reports a status change the state machine forbids.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition %s -> %s", e.From, e.To)
}

// LineItem is an immutable copy of a cart line taken at commit time. It
// holds values, not references; later product edits never alter it.
type LineItem struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// AppliedPromotion records which promotion discounted the order.
type AppliedPromotion struct {
	ID   string `json:"id"`
	Code string `json:"code"`
}

// Order is the durable record produced by a successful placement. It is
// append-only except for Status.
type Order struct {
	ID        string
	BuyerID   string
	BuyerName string
	Items     []LineItem
	Subtotal  decimal.Decimal
	Discount  decimal.Decimal
	Total     decimal.Decimal
	Promotion *AppliedPromotion
	Status    Status
	CreatedAt time.Time
}

// Repository exposes the order ledger outside the placement transaction.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Order, error)
	ListByBuyer(ctx context.Context, buyerID string) ([]Order, error)
	// UpdateStatus performs a check-and-set from one status to another.
	// It returns ErrNotFound when no order matches id, and ErrConflict when
	// the order exists but its status is no longer from.
	UpdateStatus(ctx context.Context, id string, from, to Status) error
}

// Tx is the set of writes available inside one placement transaction:
// stock reservation, order creation, and cart clearing. Either all of them
// take effect or none do.
type Tx interface {
	// ReserveStock verifies and decrements stock for every reservation.
	// Any shortfall fails the whole call with *inventory.InsufficientStockError.
	ReserveStock(ctx context.Context, reservations []inventory.Reservation) error
	CreateOrder(ctx context.Context, o *Order) error
	ClearCart(ctx context.Context, buyerID string) error
}

// TxRunner executes fn inside one atomic, serializable transaction.
// A commit-time write conflict with a concurrent transaction surfaces as
// ErrConflict; the caller decides whether to retry.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
