package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/elitestore/go-storefront/internal/apperr"
	"github.com/elitestore/go-storefront/internal/cart"
	"github.com/elitestore/go-storefront/internal/catalog"
	"github.com/elitestore/go-storefront/internal/identity"
	"github.com/elitestore/go-storefront/internal/orders"
	"github.com/elitestore/go-storefront/internal/pricing"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSessions struct {
	principals map[string]identity.Principal
}

func (f *fakeSessions) Resolve(_ context.Context, token string) (identity.Principal, error) {
	p, ok := f.principals[token]
	if !ok {
		return identity.Principal{}, apperr.Unauthorized("unknown session")
	}
	return p, nil
}

type fakeCatalogStore struct {
	products   []catalog.Product
	lastFilter catalog.Filter
}

func (f *fakeCatalogStore) Categories(context.Context) ([]catalog.Category, error) {
	return nil, nil
}

func (f *fakeCatalogStore) CreateCategory(_ context.Context, in catalog.CategoryInput) (catalog.Category, error) {
	return catalog.Category{ID: 1, Name: in.Name, Slug: in.Slug}, nil
}

func (f *fakeCatalogStore) UpdateCategory(_ context.Context, id int64, _ catalog.CategoryPatch) (catalog.Category, error) {
	return catalog.Category{ID: id}, nil
}

func (f *fakeCatalogStore) DeleteCategory(context.Context, int64) error { return nil }

func (f *fakeCatalogStore) Products(_ context.Context, filter catalog.Filter) (catalog.Page, error) {
	f.lastFilter = filter
	return catalog.Page{Products: f.products, Total: len(f.products)}, nil
}

func (f *fakeCatalogStore) ProductWithCategory(_ context.Context, id int64) (catalog.ProductWithCategory, error) {
	for _, p := range f.products {
		if p.ID == id {
			return catalog.ProductWithCategory{Product: p}, nil
		}
	}
	return catalog.ProductWithCategory{}, apperr.NotFound("product")
}

func (f *fakeCatalogStore) CreateProduct(_ context.Context, in catalog.ProductInput) (catalog.Product, error) {
	return catalog.Product{ID: 99, Name: in.Name, Price: in.Price, IsActive: true}, nil
}

func (f *fakeCatalogStore) UpdateProduct(_ context.Context, id int64, _ catalog.ProductPatch) (catalog.Product, error) {
	return catalog.Product{ID: id}, nil
}

func (f *fakeCatalogStore) DeleteProduct(context.Context, int64) error { return nil }

type fakeCartStore struct {
	items   map[int64]cart.ItemWithProduct
	nextID  int64
	removed []int64
}

// Add merges duplicate (user, product) lines the way the store's
// ON CONFLICT upsert does.
func (f *fakeCartStore) Add(_ context.Context, userID string, productID int64, quantity int) (cart.Item, error) {
	for id, it := range f.items {
		if it.UserID == userID && it.ProductID == productID {
			it.Quantity += quantity
			f.items[id] = it
			return it.Item, nil
		}
	}
	f.nextID++
	it := cart.ItemWithProduct{Item: cart.Item{ID: f.nextID, UserID: userID, ProductID: productID, Quantity: quantity}}
	if f.items == nil {
		f.items = map[int64]cart.ItemWithProduct{}
	}
	f.items[f.nextID] = it
	return it.Item, nil
}

func (f *fakeCartStore) UpdateQuantity(_ context.Context, id int64, quantity int) (cart.Item, error) {
	it, ok := f.items[id]
	if !ok {
		return cart.Item{}, apperr.NotFound("cart item")
	}
	it.Quantity = quantity
	f.items[id] = it
	return it.Item, nil
}

func (f *fakeCartStore) Remove(_ context.Context, id int64) error {
	delete(f.items, id)
	f.removed = append(f.removed, id)
	return nil
}

func (f *fakeCartStore) Clear(_ context.Context, userID string) error {
	for id, it := range f.items {
		if it.UserID == userID {
			delete(f.items, id)
		}
	}
	return nil
}

func (f *fakeCartStore) Items(_ context.Context, userID string) ([]cart.ItemWithProduct, error) {
	var out []cart.ItemWithProduct
	for _, it := range f.items {
		if it.UserID == userID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (f *fakeCartStore) Owner(_ context.Context, id int64) (string, error) {
	it, ok := f.items[id]
	if !ok {
		return "", apperr.NotFound("cart item")
	}
	return it.UserID, nil
}

type fakeOrderService struct {
	checkoutRes orders.CheckoutResult
	checkoutErr error
	lastInput   orders.CheckoutInput
	confirmed   orders.Order
	known       orders.OrderWithItems
}

func (f *fakeOrderService) Checkout(_ context.Context, _ identity.Principal, in orders.CheckoutInput) (orders.CheckoutResult, error) {
	f.lastInput = in
	return f.checkoutRes, f.checkoutErr
}

func (f *fakeOrderService) ConfirmPayment(_ context.Context, _ identity.Principal, orderID, intentID string) (orders.Order, error) {
	f.confirmed = orders.Order{ID: orderID, Status: orders.StatusPaid, PaymentIntentID: intentID}
	return f.confirmed, nil
}

func (f *fakeOrderService) Orders(context.Context, identity.Principal) ([]orders.OrderWithItems, error) {
	return []orders.OrderWithItems{}, nil
}

func (f *fakeOrderService) Order(_ context.Context, _ identity.Principal, id string) (orders.OrderWithItems, error) {
	if f.known.ID == id {
		return f.known, nil
	}
	return orders.OrderWithItems{}, apperr.NotFound("order")
}

func (f *fakeOrderService) UpdateStatus(_ context.Context, _ identity.Principal, id string, to orders.Status) (orders.Order, error) {
	return orders.Order{ID: id, Status: to}, nil
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// newTestServer mirrors the route layout the API binary wires up.
func newTestServer(cs *fakeCatalogStore, crt *fakeCartStore, os *fakeOrderService) *httptest.Server {
	sessions := &fakeSessions{principals: map[string]identity.Principal{
		"tok-alice": {UserID: "alice", Email: "alice@example.com", Role: identity.RoleCustomer},
		"tok-admin": {UserID: "root", Email: "admin@example.com", Role: identity.RoleAdmin},
	}}
	auth := &Auth{Sessions: sessions}

	catalogH := &CatalogHandler{Store: cs}
	cartH := &CartHandler{Store: crt, Rates: pricing.DefaultRates()}
	ordersH := &OrdersHandler{Service: os}

	router := NewRouter()
	router.Route("/api", func(r chi.Router) {
		catalogH.RegisterPublic(r)
		r.Group(func(r chi.Router) {
			r.Use(auth.Require)
			cartH.Register(r)
			ordersH.Register(r)
		})
		r.Group(func(r chi.Router) {
			r.Use(auth.Require, auth.RequireAdmin)
			catalogH.RegisterAdmin(r)
			ordersH.RegisterAdmin(r)
		})
	})
	return httptest.NewServer(router)
}

func doJSON(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestAuthGating(t *testing.T) {
	srv := newTestServer(&fakeCatalogStore{}, &fakeCartStore{items: map[int64]cart.ItemWithProduct{}}, &fakeOrderService{})
	defer srv.Close()

	// protected route without a token
	resp := doJSON(t, http.MethodGet, srv.URL+"/api/cart", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	// unknown token
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/cart", "tok-nobody", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	// customer hitting an admin route
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/products", "tok-alice", map[string]any{"name": "x"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	// admin passes the gate
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/categories", "tok-admin",
		map[string]any{"name": "Desks", "slug": "desks"})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()
}

func TestPublicCatalogNeedsNoToken(t *testing.T) {
	cs := &fakeCatalogStore{products: []catalog.Product{
		{ID: 7, Name: "Desk", Price: dec("199.99"), IsActive: true},
	}}
	srv := newTestServer(cs, &fakeCartStore{}, &fakeOrderService{})
	defer srv.Close()

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/products", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var page catalog.Page
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&page))
	resp.Body.Close()
	assert.Equal(t, 1, page.Total)
	assert.False(t, cs.lastFilter.IncludeInactive)
}

func TestFilterParsing(t *testing.T) {
	cs := &fakeCatalogStore{}
	srv := newTestServer(cs, &fakeCartStore{}, &fakeOrderService{})
	defer srv.Close()

	resp := doJSON(t, http.MethodGet,
		srv.URL+"/api/products?category=3&search=desk&minPrice=10&maxPrice=99.50&featured=true&limit=12&offset=24", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	f := cs.lastFilter
	require.NotNil(t, f.CategoryID)
	assert.EqualValues(t, 3, *f.CategoryID)
	assert.Equal(t, "desk", f.Search)
	require.NotNil(t, f.MinPrice)
	assert.True(t, f.MinPrice.Equal(dec("10")))
	require.NotNil(t, f.MaxPrice)
	assert.True(t, f.MaxPrice.Equal(dec("99.50")))
	assert.True(t, f.FeaturedOnly)
	assert.Equal(t, 12, f.Limit)
	assert.Equal(t, 24, f.Offset)

	// malformed numeric filter
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/products?minPrice=cheap", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestAdminListingIncludesInactive(t *testing.T) {
	cs := &fakeCatalogStore{}
	srv := newTestServer(cs, &fakeCartStore{}, &fakeOrderService{})
	defer srv.Close()

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/admin/products", "tok-admin", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	assert.True(t, cs.lastFilter.IncludeInactive)
}

func TestCartAddDefaultsQuantity(t *testing.T) {
	crt := &fakeCartStore{items: map[int64]cart.ItemWithProduct{}}
	srv := newTestServer(&fakeCatalogStore{}, crt, &fakeOrderService{})
	defer srv.Close()

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/cart", "tok-alice", map[string]any{"productId": 7})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var item cart.Item
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&item))
	resp.Body.Close()
	assert.Equal(t, 1, item.Quantity)
	assert.Equal(t, "alice", item.UserID)
}

func TestCartAddMergesDuplicateLines(t *testing.T) {
	crt := &fakeCartStore{items: map[int64]cart.ItemWithProduct{}}
	srv := newTestServer(&fakeCatalogStore{}, crt, &fakeOrderService{})
	defer srv.Close()

	for i := 0; i < 2; i++ {
		resp := doJSON(t, http.MethodPost, srv.URL+"/api/cart", "tok-alice",
			map[string]any{"productId": 7, "quantity": 2})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		resp.Body.Close()
	}

	require.Len(t, crt.items, 1)
	for _, it := range crt.items {
		assert.Equal(t, 4, it.Quantity)
	}
}

func TestCartUpdateZeroRemovesLine(t *testing.T) {
	crt := &fakeCartStore{items: map[int64]cart.ItemWithProduct{
		5: {Item: cart.Item{ID: 5, UserID: "alice", ProductID: 7, Quantity: 2}},
	}}
	srv := newTestServer(&fakeCatalogStore{}, crt, &fakeOrderService{})
	defer srv.Close()

	resp := doJSON(t, http.MethodPut, srv.URL+"/api/cart/5", "tok-alice", map[string]any{"quantity": 0})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()
	assert.Equal(t, []int64{5}, crt.removed)
}

func TestCartUpdateForeignRowIsNotFound(t *testing.T) {
	crt := &fakeCartStore{items: map[int64]cart.ItemWithProduct{
		5: {Item: cart.Item{ID: 5, UserID: "bob", ProductID: 7, Quantity: 2}},
	}}
	srv := newTestServer(&fakeCatalogStore{}, crt, &fakeOrderService{})
	defer srv.Close()

	resp := doJSON(t, http.MethodPut, srv.URL+"/api/cart/5", "tok-alice", map[string]any{"quantity": 3})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
	assert.Equal(t, 2, crt.items[5].Quantity)
}

func TestCartQuoteUsesSharedCalculator(t *testing.T) {
	crt := &fakeCartStore{items: map[int64]cart.ItemWithProduct{
		1: {
			Item:    cart.Item{ID: 1, UserID: "alice", ProductID: 7, Quantity: 2},
			Product: catalog.Product{ID: 7, Price: dec("50.00")},
		},
	}}
	srv := newTestServer(&fakeCatalogStore{}, crt, &fakeOrderService{})
	defer srv.Close()

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/cart", "tok-alice", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var view struct {
		Items []cart.ItemWithProduct `json:"items"`
		Quote pricing.Quote          `json:"quote"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
	resp.Body.Close()

	// 100.00 sits on the free-shipping threshold, so shipping still applies
	assert.True(t, view.Quote.Subtotal.Equal(dec("100.00")))
	assert.True(t, view.Quote.Shipping.Equal(dec("9.99")))
	assert.True(t, view.Quote.Total.Equal(dec("117.99")))
}

func TestCheckoutReturnsClientSecret(t *testing.T) {
	svc := &fakeOrderService{checkoutRes: orders.CheckoutResult{
		Order:        orders.Order{ID: "ord-1", Status: orders.StatusPending},
		ClientSecret: "pi_1_secret",
	}}
	srv := newTestServer(&fakeCatalogStore{}, &fakeCartStore{}, svc)
	defer srv.Close()

	addr := map[string]any{
		"firstName": "A", "lastName": "B", "email": "a@b.c",
		"address": "1 Main", "city": "Oslo", "zipCode": "0150",
	}
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/orders",
		bytes.NewReader(mustJSONBody(t, map[string]any{"shippingAddress": addr, "billingAddress": addr})))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer tok-alice")
	req.Header.Set("Idempotency-Key", "retry-1")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var res orders.CheckoutResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	resp.Body.Close()
	assert.Equal(t, "pi_1_secret", res.ClientSecret)
	assert.Equal(t, "retry-1", svc.lastInput.IdempotencyKey)
}

func TestCheckoutResumedOrderIsOK(t *testing.T) {
	svc := &fakeOrderService{checkoutRes: orders.CheckoutResult{
		Order:    orders.Order{ID: "ord-1", Status: orders.StatusPending},
		Existing: true,
	}}
	srv := newTestServer(&fakeCatalogStore{}, &fakeCartStore{}, svc)
	defer srv.Close()

	addr := map[string]any{
		"firstName": "A", "lastName": "B", "email": "a@b.c",
		"address": "1 Main", "city": "Oslo", "zipCode": "0150",
	}
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/orders", "tok-alice",
		map[string]any{"shippingAddress": addr, "billingAddress": addr})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestCheckoutValidationMapsTo400(t *testing.T) {
	svc := &fakeOrderService{checkoutErr: apperr.Validation("cart is empty")}
	srv := newTestServer(&fakeCatalogStore{}, &fakeCartStore{}, svc)
	defer srv.Close()

	addr := map[string]any{
		"firstName": "A", "lastName": "B", "email": "a@b.c",
		"address": "1 Main", "city": "Oslo", "zipCode": "0150",
	}
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/orders", "tok-alice",
		map[string]any{"shippingAddress": addr, "billingAddress": addr})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	resp.Body.Close()
	assert.Equal(t, "cart is empty", body.Error)
}

func TestOrderStatusEndpoint(t *testing.T) {
	svc := &fakeOrderService{known: orders.OrderWithItems{
		Order: orders.Order{ID: "ord-1", UserID: "alice", Status: orders.StatusPending, PaymentStatus: orders.PaymentPending},
	}}
	srv := newTestServer(&fakeCatalogStore{}, &fakeCartStore{}, svc)
	defer srv.Close()

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/orders/ord-1/status", "tok-alice", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Status        string `json:"status"`
		PaymentStatus string `json:"payment_status"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	resp.Body.Close()
	assert.Equal(t, "pending", body.Status)
	assert.Equal(t, "pending", body.PaymentStatus)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/orders/missing/status", "tok-alice", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestOrderNotFoundMapsTo404(t *testing.T) {
	srv := newTestServer(&fakeCatalogStore{}, &fakeCartStore{}, &fakeOrderService{})
	defer srv.Close()

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/orders/missing", "tok-alice", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func mustJSONBody(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}
