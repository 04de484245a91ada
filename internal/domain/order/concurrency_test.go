package order

import (
	"context"
	"sync"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/depot-store/internal/domain/buyer"
	"github.com/xenking/depot-store/internal/domain/cart"
	"github.com/xenking/depot-store/internal/domain/inventory"
)

// serialStore serializes transactions with a mutex, the way the database's
// isolation serializes contending placements.
type serialStore struct {
	mu sync.Mutex
	*memStore
}

func (s *serialStore) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.memStore.InTx(ctx, fn)
}

// Two buyers race for 3 units of stock, both asking for 2: exactly one
// placement succeeds and exactly 1 unit remains.
func TestPlaceOrder_ConcurrentContention(t *testing.T) {
	buyers := []buyer.Buyer{
		{ID: "b1", Name: "Agent One", Role: buyer.RoleAgentTier1},
		{ID: "b2", Name: "Agent Two", Role: buyer.RoleAgentTier1},
	}

	carts := &mockCartRepo{items: map[string][]cart.Item{}}
	for _, b := range buyers {
		carts.items[b.ID] = []cart.Item{cementItem(2)}
	}
	store := &serialStore{memStore: &memStore{
		stock: map[string]int{"cement-pcb40": 3},
		carts: carts,
	}}
	svc := NewService(carts, &mockPromotionRepo{}, &mockLedger{}, store)

	results := make([]error, len(buyers))
	var g errgroup.Group
	for i, b := range buyers {
		g.Go(func() error {
			_, err := svc.PlaceOrder(context.Background(), b)
			results[i] = err
			return nil
		})
	}
	require.NoError(t, g.Wait())

	var succeeded, outOfStock int
	for _, err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, inventory.ErrInsufficientStock):
			outOfStock++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, outOfStock)
	assert.Equal(t, 1, store.stock["cement-pcb40"])
	require.Len(t, store.orders, 1)
}
