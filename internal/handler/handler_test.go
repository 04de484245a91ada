package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/depot-store/internal/domain/buyer"
	"github.com/xenking/depot-store/internal/domain/cart"
	"github.com/xenking/depot-store/internal/domain/inventory"
	"github.com/xenking/depot-store/internal/domain/order"
	"github.com/xenking/depot-store/internal/domain/product"
	"github.com/xenking/depot-store/internal/domain/promotion"
)

const (
	testAPIKey = "test-key"
	testPepper = "test-pepper"
)

type stubProducts struct {
	mu       sync.Mutex
	products map[string]*product.Product
}

func (s *stubProducts) List(context.Context) ([]product.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]product.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, *p)
	}
	return out, nil
}

func (s *stubProducts) GetByID(_ context.Context, id string) (*product.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

type stubPromotions struct {
	promotions []promotion.Promotion
}

func (s *stubPromotions) ListActive(context.Context) ([]promotion.Promotion, error) {
	return s.promotions, nil
}

type memCarts struct {
	mu    sync.Mutex
	items map[string]map[string]cart.Item
}

func newMemCarts() *memCarts {
	return &memCarts{items: make(map[string]map[string]cart.Item)}
}

func (m *memCarts) ListByBuyer(_ context.Context, buyerID string) ([]cart.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]cart.Item, 0, len(m.items[buyerID]))
	for _, item := range m.items[buyerID] {
		out = append(out, item)
	}
	return out, nil
}

func (m *memCarts) Add(_ context.Context, buyerID string, item cart.Item) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.items[buyerID] == nil {
		m.items[buyerID] = make(map[string]cart.Item)
	}
	if existing, ok := m.items[buyerID][item.ProductID]; ok {
		item.Quantity += existing.Quantity
	}
	m.items[buyerID][item.ProductID] = item
	return item.Quantity, nil
}

func (m *memCarts) UpdateQuantity(_ context.Context, buyerID, productID string, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[buyerID][productID]
	if !ok {
		return cart.ErrItemNotFound
	}
	item.Quantity = quantity
	m.items[buyerID][productID] = item
	return nil
}

func (m *memCarts) Remove(_ context.Context, buyerID, productID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items[buyerID], productID)
	return nil
}

type memLedger struct {
	mu     sync.Mutex
	orders map[string]*order.Order
}

func newMemLedger() *memLedger {
	return &memLedger{orders: make(map[string]*order.Order)}
}

func (m *memLedger) GetByID(_ context.Context, id string) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memLedger) ListByBuyer(_ context.Context, buyerID string) ([]order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []order.Order
	for _, o := range m.orders {
		if o.BuyerID == buyerID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *memLedger) UpdateStatus(_ context.Context, id string, from, to order.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return order.ErrNotFound
	}
	if o.Status != from {
		return errors.Wrap(order.ErrConflict, "status moved")
	}
	o.Status = to
	return nil
}

// testStore runs order transactions against the in-memory fixtures,
// restoring stock on rollback.
type testStore struct {
	products *stubProducts
	carts    *memCarts
	ledger   *memLedger
}

type testTx struct {
	store *testStore
}

func (s *testStore) InTx(ctx context.Context, fn func(ctx context.Context, tx order.Tx) error) error {
	s.products.mu.Lock()
	snapshot := make(map[string]int, len(s.products.products))
	for id, p := range s.products.products {
		snapshot[id] = p.Stock
	}
	s.products.mu.Unlock()

	if err := fn(ctx, &testTx{store: s}); err != nil {
		s.products.mu.Lock()
		for id, stock := range snapshot {
			s.products.products[id].Stock = stock
		}
		s.products.mu.Unlock()
		return err
	}
	return nil
}

func (tx *testTx) ReserveStock(_ context.Context, reservations []inventory.Reservation) error {
	tx.store.products.mu.Lock()
	defer tx.store.products.mu.Unlock()
	for _, res := range reservations {
		p, ok := tx.store.products.products[res.ProductID]
		if !ok {
			return product.ErrNotFound
		}
		if p.Stock < res.Quantity {
			return &inventory.InsufficientStockError{
				ProductID: res.ProductID,
				Requested: res.Quantity,
				Available: p.Stock,
			}
		}
		p.Stock -= res.Quantity
	}
	return nil
}

func (tx *testTx) CreateOrder(_ context.Context, o *order.Order) error {
	tx.store.ledger.mu.Lock()
	defer tx.store.ledger.mu.Unlock()
	cp := *o
	tx.store.ledger.orders[o.ID] = &cp
	return nil
}

func (tx *testTx) ClearCart(_ context.Context, buyerID string) error {
	tx.store.carts.mu.Lock()
	defer tx.store.carts.mu.Unlock()
	delete(tx.store.carts.items, buyerID)
	return nil
}

type stubCredentials struct {
	cred *buyer.Credential
}

func (s *stubCredentials) FindByKeyHash(_ context.Context, hash string) (*buyer.Credential, error) {
	if s.cred == nil || s.cred.KeyHash != hash {
		return nil, buyer.ErrCredentialNotFound
	}
	return s.cred, nil
}

type failingCredentials struct{}

func (failingCredentials) FindByKeyHash(context.Context, string) (*buyer.Credential, error) {
	return nil, errors.New("connection refused")
}

type testEnv struct {
	router   http.Handler
	products *stubProducts
	carts    *memCarts
	ledger   *memLedger
	buyer    buyer.Buyer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	price := func(s string) decimal.Decimal { return decimal.RequireFromString(s) }

	products := &stubProducts{products: map[string]*product.Product{
		"fish-sauce": {
			ID: "fish-sauce", Name: "Premium Fish Sauce", Unit: "bottle", Category: "condiments", Stock: 10,
			Prices: map[buyer.Role]decimal.Decimal{
				buyer.RoleDistributor: price("78000"),
				buyer.RoleAgentTier1:  price("85000"),
			},
		},
		"rice-5kg": {
			ID: "rice-5kg", Name: "ST25 Rice 5kg", Unit: "bag", Category: "staples", Stock: 1,
			Prices: map[buyer.Role]decimal.Decimal{
				buyer.RoleDistributor: price("155000"),
			},
		},
	}}
	promotions := &stubPromotions{promotions: []promotion.Promotion{
		{
			ID: "promo-bulk10", Code: "BULK10", Type: promotion.DiscountPercentage,
			Value:      price("10"),
			Conditions: promotion.Conditions{MinAmount: price("150000")},
			Active:     true,
		},
	}}
	carts := newMemCarts()
	ledger := newMemLedger()
	store := &testStore{products: products, carts: carts, ledger: ledger}

	b := buyer.Buyer{ID: "buyer-1", Name: "Agent One", Role: buyer.RoleAgentTier1}
	creds := &stubCredentials{cred: &buyer.Credential{
		ID:      "buyer-1-key",
		KeyHash: HashKey(testAPIKey, []byte(testPepper)),
		Buyer:   b,
	}}

	h := NewHandler(
		products,
		promotions,
		cart.NewService(products, carts),
		order.NewService(carts, promotions, ledger, store),
		ledger,
	)

	return &testEnv{
		router:   h.Routes(NewSecurity(creds, []byte(testPepper))),
		products: products,
		carts:    carts,
		ledger:   ledger,
		buyer:    b,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(apiKeyHeader, testAPIKey)

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func TestAuthentication(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/products", nil)
	req.Header.Set(apiKeyHeader, "wrong-key")
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/products", nil).Code)
}

func TestAuthenticationStoreFailure(t *testing.T) {
	security := NewSecurity(failingCredentials{}, []byte(testPepper))
	h := security.Authenticate(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	req.Header.Set(apiKeyHeader, testAPIKey)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	// A broken credential store is a server fault, not a rejected key.
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decode[errorResponse](t, rec)
	assert.Equal(t, "internal error", resp.Message)
}

func TestListProductsRolePricing(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/products", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	products := decode[[]productResponse](t, rec)
	require.Len(t, products, 2)

	byID := make(map[string]productResponse, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	// The agent tier sees its own price for fish sauce but no price for
	// rice, which only has a distributor tier.
	require.NotNil(t, byID["fish-sauce"].Price)
	assert.Equal(t, "85000", byID["fish-sauce"].Price.String())
	assert.Nil(t, byID["rice-5kg"].Price)
}

func TestGetProductNotFound(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/products/ghost", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAddCartItem(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/cart", addCartItemRequest{ProductID: "fish-sauce", Quantity: 2})
	require.Equal(t, http.StatusCreated, rec.Code)

	item := decode[cartItemResponse](t, rec)
	assert.Equal(t, "fish-sauce", item.ProductID)
	assert.Equal(t, 2, item.Quantity)
	assert.Equal(t, "170000", item.Subtotal.String())

	// Adding the same product again accumulates the quantity.
	rec = env.do(t, http.MethodPost, "/api/cart", addCartItemRequest{ProductID: "fish-sauce", Quantity: 3})
	require.Equal(t, http.StatusCreated, rec.Code)

	item = decode[cartItemResponse](t, rec)
	assert.Equal(t, 5, item.Quantity)
	assert.Equal(t, "425000", item.Subtotal.String())
}

func TestAddCartItemErrors(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/cart", addCartItemRequest{ProductID: "ghost", Quantity: 1})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/cart", addCartItemRequest{ProductID: "fish-sauce", Quantity: 0})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	// rice-5kg has no agent tier price, so this buyer cannot buy it.
	rec = env.do(t, http.MethodPost, "/api/cart", addCartItemRequest{ProductID: "rice-5kg", Quantity: 1})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/cart", addCartItemRequest{Quantity: 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetCartPromotionPreview(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/cart", addCartItemRequest{ProductID: "fish-sauce", Quantity: 2})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/cart", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[cartResponse](t, rec)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "170000", resp.Subtotal.String())
	assert.Equal(t, "17000", resp.Discount.String())
	assert.Equal(t, "153000", resp.Total.String())
	require.NotNil(t, resp.Promotion)
	assert.Equal(t, "BULK10", resp.Promotion.Code)
}

func TestUpdateAndRemoveCartItem(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/cart", addCartItemRequest{ProductID: "fish-sauce", Quantity: 2})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodPatch, "/api/cart/fish-sauce", updateCartItemRequest{Quantity: 5})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	items, err := env.carts.ListByBuyer(context.Background(), env.buyer.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 5, items[0].Quantity)

	// Zero quantity removes the line.
	rec = env.do(t, http.MethodPatch, "/api/cart/fish-sauce", updateCartItemRequest{Quantity: 0})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	items, err = env.carts.ListByBuyer(context.Background(), env.buyer.ID)
	require.NoError(t, err)
	assert.Empty(t, items)

	rec = env.do(t, http.MethodPatch, "/api/cart/fish-sauce", updateCartItemRequest{Quantity: 3})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPlaceOrder(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/cart", addCartItemRequest{ProductID: "fish-sauce", Quantity: 2})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/orders", nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	resp := decode[orderResponse](t, rec)
	assert.Equal(t, env.buyer.ID, resp.BuyerID)
	assert.Equal(t, "170000", resp.Subtotal.String())
	assert.Equal(t, "17000", resp.Discount.String())
	assert.Equal(t, "153000", resp.Total.String())
	assert.Equal(t, string(order.StatusPending), resp.Status)
	require.NotNil(t, resp.Promotion)
	assert.Equal(t, "BULK10", resp.Promotion.Code)

	// Stock decremented and the cart cleared.
	assert.Equal(t, 8, env.products.products["fish-sauce"].Stock)
	items, err := env.carts.ListByBuyer(context.Background(), env.buyer.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestPlaceOrderEmptyCart(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/orders", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPlaceOrderInsufficientStock(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/cart", addCartItemRequest{ProductID: "fish-sauce", Quantity: 2})
	require.Equal(t, http.StatusCreated, rec.Code)

	env.products.products["fish-sauce"].Stock = 1

	rec = env.do(t, http.MethodPost, "/api/orders", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Nothing changed: stock intact, cart kept, no order written.
	assert.Equal(t, 1, env.products.products["fish-sauce"].Stock)
	items, err := env.carts.ListByBuyer(context.Background(), env.buyer.ID)
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Empty(t, env.ledger.orders)
}

func TestGetOrderScopedToBuyer(t *testing.T) {
	env := newTestEnv(t)

	env.ledger.orders["o-mine"] = &order.Order{ID: "o-mine", BuyerID: env.buyer.ID, Status: order.StatusPending}
	env.ledger.orders["o-other"] = &order.Order{ID: "o-other", BuyerID: "someone-else", Status: order.StatusPending}

	rec := env.do(t, http.MethodGet, "/api/orders/o-mine", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// A foreign order is indistinguishable from a missing one.
	rec = env.do(t, http.MethodGet, "/api/orders/o-other", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/orders/ghost", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTransitionOrderStatus(t *testing.T) {
	env := newTestEnv(t)

	env.ledger.orders["o-1"] = &order.Order{ID: "o-1", BuyerID: env.buyer.ID, Status: order.StatusPending}

	rec := env.do(t, http.MethodPatch, "/api/orders/o-1/status", transitionStatusRequest{Status: "processing"})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, order.StatusProcessing, env.ledger.orders["o-1"].Status)

	// Processing cannot jump straight to completed.
	rec = env.do(t, http.MethodPatch, "/api/orders/o-1/status", transitionStatusRequest{Status: "completed"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = env.do(t, http.MethodPatch, "/api/orders/o-1/status", transitionStatusRequest{Status: "teleported"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPatch, "/api/orders/ghost/status", transitionStatusRequest{Status: "processing"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
