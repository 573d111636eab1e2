// Package checkout models the checkout steps as an explicit state machine,
// independent of any presentation layer. The UI is a thin caller that queries
// the current state and invokes transitions.
package checkout

import (
	"context"
	"sync"

	"bloomcart/internal/cart"
	"bloomcart/internal/model"

	"github.com/rs/zerolog"
)

// State is one stage of the linear checkout sequence.
type State string

const (
	StateNoSession        State = "NO_SESSION"
	StateHasAddress       State = "HAS_ADDRESS"
	StateHasPaymentMethod State = "HAS_PAYMENT_METHOD"
	StatePlaced           State = "PLACED"
)

// order returns the position of the state in the linear sequence.
func (s State) order() int {
	switch s {
	case StateNoSession:
		return 0
	case StateHasAddress:
		return 1
	case StateHasPaymentMethod:
		return 2
	case StatePlaced:
		return 3
	}
	return -1
}

// OrderPlacer is the server-side collaborator that durably creates the order
// record from the frozen cart.
type OrderPlacer interface {
	Place(ctx context.Context, ownerRef string, c model.Cart) (*model.Order, error)
}

// Workflow drives one checkout attempt for one session. It is single-use:
// once an order is placed, a new checkout needs a new instance.
type Workflow struct {
	cart   *cart.Store
	orders OrderPlacer
	logger zerolog.Logger

	mu       sync.Mutex
	state    State
	ownerRef string
	orderID  string
}

// NewWorkflow creates a checkout for the given session cart. The starting
// state honours selections already collected in the cart (a returning
// session resumes where it left off).
func NewWorkflow(cartStore *cart.Store, ownerRef string, orders OrderPlacer, logger zerolog.Logger) *Workflow {
	w := &Workflow{
		cart:     cartStore,
		orders:   orders,
		ownerRef: ownerRef,
		logger:   logger.With().Str("component", "checkout").Logger(),
		state:    StateNoSession,
	}

	if ownerRef != "" {
		c := cartStore.CurrentState()
		if c.ShippingAddress != nil {
			w.state = StateHasAddress
			if c.PaymentMethod != "" {
				w.state = StateHasPaymentMethod
			}
		}
	}
	return w
}

// State returns the current checkout state.
func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// SubmitAddress performs NoSession -> HasAddress. It requires an
// authenticated identity and a valid address, and persists the address into
// the cart and the durable session store. Submitting from a later step
// re-enters HasAddress without discarding the payment selection.
func (w *Workflow) SubmitAddress(ctx context.Context, ownerRef string, addr model.ShippingAddress) error {
	if ownerRef == "" {
		return model.ErrNoSession
	}
	if err := addr.Validate(); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state == StatePlaced {
		return model.ErrCheckoutCompleted
	}
	if err := w.cart.SetShippingAddress(ctx, addr); err != nil {
		return err
	}
	w.ownerRef = ownerRef
	w.state = StateHasAddress

	w.logger.Debug().Str("state", string(w.state)).Msg("shipping address submitted")
	return nil
}

// SelectPayment performs HasAddress -> HasPaymentMethod. It fails with
// ErrMissingAddress when the address step was skipped.
func (w *Workflow) SelectPayment(ctx context.Context, method model.PaymentMethod) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state == StatePlaced {
		return model.ErrCheckoutCompleted
	}
	// Guards direct navigation that skips the address step.
	if w.state == StateNoSession || w.cart.CurrentState().ShippingAddress == nil {
		return model.ErrMissingAddress
	}
	if err := w.cart.SetPaymentMethod(ctx, method); err != nil {
		return err
	}
	w.state = StateHasPaymentMethod

	w.logger.Debug().Str("state", string(w.state)).Msg("payment method selected")
	return nil
}

// PlaceOrder performs the terminal HasPaymentMethod -> Placed transition:
// the order is durably created from a frozen copy of the cart, then the cart
// is cleared. If the durable write fails neither happens, the workflow stays
// in HasPaymentMethod and the attempt can be retried without duplicating the
// order.
func (w *Workflow) PlaceOrder(ctx context.Context) (*model.Order, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch w.state {
	case StatePlaced:
		return nil, model.ErrCheckoutCompleted
	case StateNoSession:
		return nil, model.ErrMissingAddress
	case StateHasAddress:
		return nil, model.ErrMissingPaymentMethod
	}

	snapshot := w.cart.CurrentState()
	if len(snapshot.Items) == 0 {
		return nil, model.ErrEmptyCart
	}

	order, err := w.orders.Place(ctx, w.ownerRef, snapshot)
	if err != nil {
		w.logger.Warn().Err(err).Msg("order placement failed, cart retained")
		return nil, err
	}

	if err := w.cart.Clear(ctx); err != nil {
		// The order exists; a stale cart is the lesser harm.
		w.logger.Warn().Err(err).Str("order_id", order.ID.String()).Msg("failed to clear cart after placement")
	}
	w.state = StatePlaced
	w.orderID = order.ID.String()

	w.logger.Info().
		Str("order_id", order.ID.String()).
		Int64("total_price", order.TotalPrice).
		Msg("order placed")

	return order, nil
}

// Back re-enters an earlier step without discarding collected data. The
// machine never moves backward past NoSession or out of Placed.
func (w *Workflow) Back(target State) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state == StatePlaced {
		return model.ErrCheckoutCompleted
	}
	if target.order() < 0 || target.order() >= w.state.order() {
		return model.NewDomainError(model.ErrCodeInvalidNavigation, "can only navigate back to an earlier step")
	}
	w.state = target
	return nil
}
