package handler

import (
	"encoding/json"
	"net/http"

	"bloomcart/internal/middleware"
	"bloomcart/internal/model"
	"bloomcart/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// OrderHandler handles order-related HTTP requests.
type OrderHandler struct {
	service service.OrderService
	logger  zerolog.Logger
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(service service.OrderService, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		service: service,
		logger:  logger.With().Str("handler", "order").Logger(),
	}
}

// List handles GET /api/orders requests, returning the caller's orders.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", h.logger)
		return
	}

	ownerRef, ok := middleware.OwnerFrom(r.Context())
	if !ok {
		writeDomainError(w, model.ErrNoSession, h.logger)
		return
	}

	orders, err := h.service.ListByOwner(r.Context(), ownerRef)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to retrieve orders", h.logger)
		return
	}
	if orders == nil {
		orders = []model.Order{}
	}

	writeJSON(w, http.StatusOK, orders)
}

// GetByID handles GET /api/orders/{id} requests. Only the order's owner sees
// it; everyone else gets a 404.
func (h *OrderHandler) GetByID(w http.ResponseWriter, r *http.Request, orderIDStr string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", h.logger)
		return
	}

	ownerRef, ok := middleware.OwnerFrom(r.Context())
	if !ok {
		writeDomainError(w, model.ErrNoSession, h.logger)
		return
	}

	orderID, err := uuid.Parse(orderIDStr)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Error: model.ErrCodeInvalidJSON, Message: "invalid order ID format"})
		return
	}

	order, err := h.service.GetForOwner(r.Context(), ownerRef, orderID)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// confirmationRequest is the body of the webhook confirmation endpoints.
type confirmationRequest struct {
	OrderID string `json:"orderId"`
}

func (h *OrderHandler) decodeConfirmation(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	var req confirmationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Error: model.ErrCodeInvalidJSON, Message: "invalid request body"})
		return uuid.Nil, false
	}

	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Error: model.ErrCodeInvalidJSON, Message: "invalid order ID format"})
		return uuid.Nil, false
	}
	return orderID, true
}

// ConfirmPayment handles POST /api/webhooks/payment-confirmed requests from
// the payment provider. Duplicate confirmations get a 409.
func (h *OrderHandler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", h.logger)
		return
	}

	orderID, ok := h.decodeConfirmation(w, r)
	if !ok {
		return
	}

	order, err := h.service.ConfirmPayment(r.Context(), orderID)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// ConfirmDelivery handles POST /api/webhooks/delivery-confirmed requests from
// the fulfilment provider. The order must be paid first.
func (h *OrderHandler) ConfirmDelivery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", h.logger)
		return
	}

	orderID, ok := h.decodeConfirmation(w, r)
	if !ok {
		return
	}

	order, err := h.service.ConfirmDelivery(r.Context(), orderID)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}
