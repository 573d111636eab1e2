package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"bloomcart/internal/cart"
	"bloomcart/internal/checkout"
	"bloomcart/internal/middleware"
	"bloomcart/internal/model"
	"bloomcart/internal/pricing"
	"bloomcart/internal/session"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type checkoutFixture struct {
	carts   *cart.Manager
	orders  *MockOrderService
	handler *CheckoutHandler
}

func newCheckoutFixture() *checkoutFixture {
	carts := cart.NewManager(session.NewMemoryStore(), pricing.DefaultSchedule(), zerolog.Nop())
	orders := new(MockOrderService)
	registry := checkout.NewRegistry(carts, orders, zerolog.Nop())
	return &checkoutFixture{
		carts:   carts,
		orders:  orders,
		handler: NewCheckoutHandler(registry, zerolog.Nop()),
	}
}

func (f *checkoutFixture) addItem(t *testing.T) {
	t.Helper()
	store := f.carts.Get(context.Background(), "sess-1")
	snap := model.CatalogSnapshot{ProductRef: "sku-1", Name: "Rose Bouquet", UnitPrice: 10_000, Stock: 5}
	require.NoError(t, store.AddItem(context.Background(), "sku-1", 3, snap))
}

func (f *checkoutFixture) do(h http.HandlerFunc, method, path, body, auth string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req = withSession(req)
	if auth != "" {
		req.Header.Set("Authorization", "Bearer "+auth)
	}
	w := httptest.NewRecorder()
	middleware.Identity(h).ServeHTTP(w, req)
	return w
}

func decodeState(t *testing.T, w *httptest.ResponseRecorder) checkout.State {
	t.Helper()
	var resp struct {
		State checkout.State `json:"state"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp.State
}

const (
	addressBody = `{"fullName":"Deisy","address":"Jl. Melati 5","phoneNumber":"0812"}`
	paymentBody = `{"paymentMethod":"bank_transfer"}`
)

func TestCheckoutHandler_HappyPath(t *testing.T) {
	f := newCheckoutFixture()
	f.addItem(t)

	placed := testOrder(uuid.New(), "user-1")
	f.orders.On("Place", mock.Anything, "user-1", mock.AnythingOfType("model.Cart")).Return(placed, nil)

	w := f.do(f.handler.GetState, http.MethodGet, "/api/checkout", "", "user-1")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, checkout.StateNoSession, decodeState(t, w))

	w = f.do(f.handler.SubmitAddress, http.MethodPost, "/api/checkout/shipping-address", addressBody, "user-1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, checkout.StateHasAddress, decodeState(t, w))

	w = f.do(f.handler.SelectPayment, http.MethodPost, "/api/checkout/payment-method", paymentBody, "user-1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, checkout.StateHasPaymentMethod, decodeState(t, w))

	w = f.do(f.handler.PlaceOrder, http.MethodPost, "/api/checkout/place-order", "", "user-1")
	require.Equal(t, http.StatusCreated, w.Code)

	var order model.Order
	require.NoError(t, json.NewDecoder(w.Body).Decode(&order))
	assert.Equal(t, placed.ID, order.ID)
	f.orders.AssertExpectations(t)
}

func TestCheckoutHandler_SubmitAddress_RequiresIdentity(t *testing.T) {
	f := newCheckoutFixture()
	f.addItem(t)

	w := f.do(f.handler.SubmitAddress, http.MethodPost, "/api/checkout/shipping-address", addressBody, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCheckoutHandler_SubmitAddress_InvalidAddress(t *testing.T) {
	f := newCheckoutFixture()
	f.addItem(t)

	w := f.do(f.handler.SubmitAddress, http.MethodPost, "/api/checkout/shipping-address",
		`{"fullName":"","address":""}`, "user-1")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCheckoutHandler_SelectPayment_WithoutAddress(t *testing.T) {
	f := newCheckoutFixture()
	f.addItem(t)

	w := f.do(f.handler.SelectPayment, http.MethodPost, "/api/checkout/payment-method", paymentBody, "user-1")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCheckoutHandler_SelectPayment_UnknownMethod(t *testing.T) {
	f := newCheckoutFixture()
	f.addItem(t)

	w := f.do(f.handler.SubmitAddress, http.MethodPost, "/api/checkout/shipping-address", addressBody, "user-1")
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(f.handler.SelectPayment, http.MethodPost, "/api/checkout/payment-method",
		`{"paymentMethod":"cheque"}`, "user-1")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCheckoutHandler_PlaceOrder_EmptyCart(t *testing.T) {
	f := newCheckoutFixture()

	w := f.do(f.handler.SubmitAddress, http.MethodPost, "/api/checkout/shipping-address", addressBody, "user-1")
	require.Equal(t, http.StatusOK, w.Code)
	w = f.do(f.handler.SelectPayment, http.MethodPost, "/api/checkout/payment-method", paymentBody, "user-1")
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(f.handler.PlaceOrder, http.MethodPost, "/api/checkout/place-order", "", "user-1")
	assert.Equal(t, http.StatusConflict, w.Code)

	var resp model.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, model.ErrCodeEmptyCart, resp.Error)
}

func TestCheckoutHandler_PlaceOrder_PersistenceFailure(t *testing.T) {
	f := newCheckoutFixture()
	f.addItem(t)

	f.orders.On("Place", mock.Anything, "user-1", mock.AnythingOfType("model.Cart")).
		Return(nil, model.ErrPersistenceUnavailable)

	w := f.do(f.handler.SubmitAddress, http.MethodPost, "/api/checkout/shipping-address", addressBody, "user-1")
	require.Equal(t, http.StatusOK, w.Code)
	w = f.do(f.handler.SelectPayment, http.MethodPost, "/api/checkout/payment-method", paymentBody, "user-1")
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(f.handler.PlaceOrder, http.MethodPost, "/api/checkout/place-order", "", "user-1")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	// The cart survives the failed attempt.
	store := f.carts.Get(context.Background(), "sess-1")
	assert.Len(t, store.CurrentState().Items, 1)
}

func TestCheckoutHandler_Back(t *testing.T) {
	f := newCheckoutFixture()
	f.addItem(t)

	w := f.do(f.handler.SubmitAddress, http.MethodPost, "/api/checkout/shipping-address", addressBody, "user-1")
	require.Equal(t, http.StatusOK, w.Code)
	w = f.do(f.handler.SelectPayment, http.MethodPost, "/api/checkout/payment-method", paymentBody, "user-1")
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(f.handler.Back, http.MethodPost, "/api/checkout/back", `{"target":"HAS_ADDRESS"}`, "user-1")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, checkout.StateHasAddress, decodeState(t, w))

	// Forward navigation through back is rejected.
	w = f.do(f.handler.Back, http.MethodPost, "/api/checkout/back", `{"target":"HAS_PAYMENT_METHOD"}`, "user-1")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
