package checkout

import (
	"context"
	"testing"
	"time"

	"bloomcart/internal/cart"
	"bloomcart/internal/model"
	"bloomcart/internal/pricing"
	"bloomcart/internal/session"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockOrderPlacer is a mock implementation of OrderPlacer.
type MockOrderPlacer struct {
	mock.Mock
}

func (m *MockOrderPlacer) Place(ctx context.Context, ownerRef string, c model.Cart) (*model.Order, error) {
	args := m.Called(ctx, ownerRef, c)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func newTestCart(t *testing.T) *cart.Store {
	t.Helper()
	return cart.NewStore(context.Background(), "test-session", session.NewMemoryStore(), pricing.DefaultSchedule(), zerolog.Nop())
}

func validAddress() model.ShippingAddress {
	return model.ShippingAddress{FullName: "Deisy", Address: "Jl. Melati 5", PhoneNumber: "0812"}
}

func placedOrder() *model.Order {
	return &model.Order{ID: uuid.New(), TotalPrice: 45_000}
}

func fillCart(t *testing.T, c *cart.Store) {
	t.Helper()
	require.NoError(t, c.AddItem(context.Background(), "sku-1", 2, model.CatalogSnapshot{
		Name: "Rose Bouquet", UnitPrice: 10_000, Stock: 5,
	}))
}

func TestWorkflow_HappyPath(t *testing.T) {
	ctx := context.Background()
	cartStore := newTestCart(t)
	fillCart(t, cartStore)

	placer := new(MockOrderPlacer)
	placer.On("Place", ctx, "user-1", mock.AnythingOfType("model.Cart")).Return(placedOrder(), nil)

	flow := NewWorkflow(cartStore, "", placer, zerolog.Nop())
	assert.Equal(t, StateNoSession, flow.State())

	require.NoError(t, flow.SubmitAddress(ctx, "user-1", validAddress()))
	assert.Equal(t, StateHasAddress, flow.State())

	require.NoError(t, flow.SelectPayment(ctx, model.PaymentBankTransfer))
	assert.Equal(t, StateHasPaymentMethod, flow.State())

	order, err := flow.PlaceOrder(ctx)
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Equal(t, StatePlaced, flow.State())

	// The cart is cleared by the terminal transition.
	assert.Empty(t, cartStore.CurrentState().Items)
	placer.AssertExpectations(t)
}

func TestWorkflow_SubmitAddress_RequiresIdentity(t *testing.T) {
	flow := NewWorkflow(newTestCart(t), "", new(MockOrderPlacer), zerolog.Nop())

	err := flow.SubmitAddress(context.Background(), "", validAddress())
	assert.ErrorIs(t, err, model.ErrNoSession)
	assert.Equal(t, StateNoSession, flow.State())
}

func TestWorkflow_SubmitAddress_RequiresValidAddress(t *testing.T) {
	flow := NewWorkflow(newTestCart(t), "", new(MockOrderPlacer), zerolog.Nop())

	err := flow.SubmitAddress(context.Background(), "user-1", model.ShippingAddress{FullName: "Deisy"})
	assert.ErrorIs(t, err, model.ErrMissingAddress)
}

func TestWorkflow_SelectPayment_GuardsSkippedAddressStep(t *testing.T) {
	flow := NewWorkflow(newTestCart(t), "user-1", new(MockOrderPlacer), zerolog.Nop())

	err := flow.SelectPayment(context.Background(), model.PaymentBankTransfer)
	assert.ErrorIs(t, err, model.ErrMissingAddress)
	assert.Equal(t, StateNoSession, flow.State())
}

func TestWorkflow_PlaceOrder_GuardsSkippedSteps(t *testing.T) {
	ctx := context.Background()
	cartStore := newTestCart(t)
	fillCart(t, cartStore)
	flow := NewWorkflow(cartStore, "user-1", new(MockOrderPlacer), zerolog.Nop())

	_, err := flow.PlaceOrder(ctx)
	assert.ErrorIs(t, err, model.ErrMissingAddress)

	require.NoError(t, flow.SubmitAddress(ctx, "user-1", validAddress()))
	_, err = flow.PlaceOrder(ctx)
	assert.ErrorIs(t, err, model.ErrMissingPaymentMethod)
}

func TestWorkflow_PlaceOrder_EmptyCart(t *testing.T) {
	ctx := context.Background()
	cartStore := newTestCart(t)
	placer := new(MockOrderPlacer)
	flow := NewWorkflow(cartStore, "", placer, zerolog.Nop())

	require.NoError(t, flow.SubmitAddress(ctx, "user-1", validAddress()))
	require.NoError(t, flow.SelectPayment(ctx, model.PaymentEWallet))

	_, err := flow.PlaceOrder(ctx)
	assert.ErrorIs(t, err, model.ErrEmptyCart)

	// State unchanged, no order created.
	assert.Equal(t, StateHasPaymentMethod, flow.State())
	placer.AssertNotCalled(t, "Place")
}

func TestWorkflow_PlaceOrder_PersistenceFailureKeepsCart(t *testing.T) {
	ctx := context.Background()
	cartStore := newTestCart(t)
	fillCart(t, cartStore)

	placer := new(MockOrderPlacer)
	placer.On("Place", ctx, "user-1", mock.AnythingOfType("model.Cart")).
		Return(nil, model.ErrPersistenceUnavailable).Once()
	placer.On("Place", ctx, "user-1", mock.AnythingOfType("model.Cart")).
		Return(placedOrder(), nil).Once()

	flow := NewWorkflow(cartStore, "", placer, zerolog.Nop())
	require.NoError(t, flow.SubmitAddress(ctx, "user-1", validAddress()))
	require.NoError(t, flow.SelectPayment(ctx, model.PaymentBankTransfer))

	_, err := flow.PlaceOrder(ctx)
	assert.ErrorIs(t, err, model.ErrPersistenceUnavailable)
	assert.Equal(t, StateHasPaymentMethod, flow.State())
	assert.NotEmpty(t, cartStore.CurrentState().Items)

	// The retry succeeds and clears the cart.
	order, err := flow.PlaceOrder(ctx)
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Empty(t, cartStore.CurrentState().Items)
	placer.AssertExpectations(t)
}

func TestWorkflow_SingleUse(t *testing.T) {
	ctx := context.Background()
	cartStore := newTestCart(t)
	fillCart(t, cartStore)

	placer := new(MockOrderPlacer)
	placer.On("Place", ctx, "user-1", mock.AnythingOfType("model.Cart")).Return(placedOrder(), nil).Once()

	flow := NewWorkflow(cartStore, "", placer, zerolog.Nop())
	require.NoError(t, flow.SubmitAddress(ctx, "user-1", validAddress()))
	require.NoError(t, flow.SelectPayment(ctx, model.PaymentBankTransfer))
	_, err := flow.PlaceOrder(ctx)
	require.NoError(t, err)

	_, err = flow.PlaceOrder(ctx)
	assert.ErrorIs(t, err, model.ErrCheckoutCompleted)
	assert.ErrorIs(t, flow.SubmitAddress(ctx, "user-1", validAddress()), model.ErrCheckoutCompleted)
	assert.ErrorIs(t, flow.SelectPayment(ctx, model.PaymentBankTransfer), model.ErrCheckoutCompleted)
}

func TestWorkflow_BackwardNavigationKeepsData(t *testing.T) {
	ctx := context.Background()
	cartStore := newTestCart(t)
	fillCart(t, cartStore)
	flow := NewWorkflow(cartStore, "", new(MockOrderPlacer), zerolog.Nop())

	require.NoError(t, flow.SubmitAddress(ctx, "user-1", validAddress()))
	require.NoError(t, flow.SelectPayment(ctx, model.PaymentBankTransfer))

	require.NoError(t, flow.Back(StateHasAddress))
	assert.Equal(t, StateHasAddress, flow.State())

	// Address and payment selections survive the backward step.
	state := cartStore.CurrentState()
	assert.NotNil(t, state.ShippingAddress)
	assert.Equal(t, model.PaymentBankTransfer, state.PaymentMethod)

	// Forward navigation is not a Back target.
	assert.Error(t, flow.Back(StateHasPaymentMethod))

	// Re-submitting the address re-enters HasAddress; payment selection must
	// then be confirmed again to move forward.
	require.NoError(t, flow.SubmitAddress(ctx, "user-1", validAddress()))
	assert.Equal(t, StateHasAddress, flow.State())
	require.NoError(t, flow.SelectPayment(ctx, model.PaymentBankTransfer))
	assert.Equal(t, StateHasPaymentMethod, flow.State())
}

func TestWorkflow_ResumesFromCollectedSelections(t *testing.T) {
	ctx := context.Background()
	cartStore := newTestCart(t)
	require.NoError(t, cartStore.SetShippingAddress(ctx, validAddress()))
	require.NoError(t, cartStore.SetPaymentMethod(ctx, model.PaymentEWallet))

	flow := NewWorkflow(cartStore, "user-1", new(MockOrderPlacer), zerolog.Nop())
	assert.Equal(t, StateHasPaymentMethod, flow.State())

	// Without an identity the collected selections do not advance the state.
	anon := NewWorkflow(cartStore, "", new(MockOrderPlacer), zerolog.Nop())
	assert.Equal(t, StateNoSession, anon.State())
}

func TestRegistry_NewInstanceAfterPlacement(t *testing.T) {
	ctx := context.Background()
	sessions := session.NewMemoryStore()
	carts := cart.NewManager(sessions, pricing.DefaultSchedule(), zerolog.Nop())

	placer := new(MockOrderPlacer)
	placer.On("Place", ctx, "user-1", mock.AnythingOfType("model.Cart")).Return(placedOrder(), nil)

	registry := NewRegistry(carts, placer, zerolog.Nop())

	flow := registry.Get(ctx, "s1", "user-1")
	assert.Same(t, flow, registry.Get(ctx, "s1", "user-1"))

	fillCart(t, carts.Get(ctx, "s1"))
	require.NoError(t, flow.SubmitAddress(ctx, "user-1", validAddress()))
	require.NoError(t, flow.SelectPayment(ctx, model.PaymentBankTransfer))
	_, err := flow.PlaceOrder(ctx)
	require.NoError(t, err)

	// A new checkout begins a new instance.
	next := registry.Get(ctx, "s1", "user-1")
	assert.NotSame(t, flow, next)
}

func TestRegistry_EvictsIdleWorkflows(t *testing.T) {
	ctx := context.Background()
	carts := cart.NewManager(session.NewMemoryStore(), pricing.DefaultSchedule(), zerolog.Nop())
	registry := NewRegistry(carts, new(MockOrderPlacer), zerolog.Nop())

	current := time.Now()
	registry.now = func() time.Time { return current }

	idle := registry.Get(ctx, "idle", "user-1")

	// Regular traffic keeps a session alive across sweeps.
	current = current.Add(20 * time.Minute)
	active := registry.Get(ctx, "active", "user-1")

	current = current.Add(15 * time.Minute)
	assert.Same(t, active, registry.Get(ctx, "active", "user-1"))
	assert.NotSame(t, idle, registry.Get(ctx, "idle", "user-1"))
}
