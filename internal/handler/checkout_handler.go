package handler

import (
	"encoding/json"
	"net/http"

	"bloomcart/internal/checkout"
	"bloomcart/internal/middleware"
	"bloomcart/internal/model"

	"github.com/rs/zerolog"
)

// CheckoutHandler handles checkout-related HTTP requests.
type CheckoutHandler struct {
	registry *checkout.Registry
	logger   zerolog.Logger
}

// NewCheckoutHandler creates a new checkout handler.
func NewCheckoutHandler(registry *checkout.Registry, logger zerolog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		registry: registry,
		logger:   logger.With().Str("handler", "checkout").Logger(),
	}
}

// stateResponse reports where the session's checkout currently stands.
type stateResponse struct {
	State checkout.State `json:"state"`
}

func (h *CheckoutHandler) workflow(w http.ResponseWriter, r *http.Request) *checkout.Workflow {
	ownerRef, _ := middleware.OwnerFrom(r.Context())
	return h.registry.Get(r.Context(), sessionID(w, r), ownerRef)
}

// GetState handles GET /api/checkout requests.
func (h *CheckoutHandler) GetState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", h.logger)
		return
	}

	flow := h.workflow(w, r)
	writeJSON(w, http.StatusOK, stateResponse{State: flow.State()})
}

// SubmitAddress handles POST /api/checkout/shipping-address requests. It
// requires a bearer-authenticated caller.
func (h *CheckoutHandler) SubmitAddress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", h.logger)
		return
	}

	var addr model.ShippingAddress
	if err := json.NewDecoder(r.Body).Decode(&addr); err != nil {
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Error: model.ErrCodeInvalidJSON, Message: "invalid request body"})
		return
	}

	ownerRef, _ := middleware.OwnerFrom(r.Context())
	flow := h.workflow(w, r)
	if err := flow.SubmitAddress(r.Context(), ownerRef, addr); err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, stateResponse{State: flow.State()})
}

// selectPaymentRequest is the body of POST /api/checkout/payment-method.
type selectPaymentRequest struct {
	PaymentMethod model.PaymentMethod `json:"paymentMethod"`
}

// SelectPayment handles POST /api/checkout/payment-method requests.
func (h *CheckoutHandler) SelectPayment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", h.logger)
		return
	}

	var req selectPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Error: model.ErrCodeInvalidJSON, Message: "invalid request body"})
		return
	}

	flow := h.workflow(w, r)
	if err := flow.SelectPayment(r.Context(), req.PaymentMethod); err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, stateResponse{State: flow.State()})
}

// PlaceOrder handles POST /api/checkout/place-order requests.
func (h *CheckoutHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", h.logger)
		return
	}

	flow := h.workflow(w, r)
	order, err := flow.PlaceOrder(r.Context())
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, order)
}

// backRequest is the body of POST /api/checkout/back.
type backRequest struct {
	Target checkout.State `json:"target"`
}

// Back handles POST /api/checkout/back requests, re-entering an earlier
// checkout step without losing collected data.
func (h *CheckoutHandler) Back(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", h.logger)
		return
	}

	var req backRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Error: model.ErrCodeInvalidJSON, Message: "invalid request body"})
		return
	}

	flow := h.workflow(w, r)
	if err := flow.Back(req.Target); err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, stateResponse{State: flow.State()})
}
