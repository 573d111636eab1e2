package handler

import (
	"encoding/json"
	"net/http"

	"bloomcart/internal/cart"
	"bloomcart/internal/catalog"
	"bloomcart/internal/model"
	"bloomcart/internal/pricing"

	"github.com/rs/zerolog"
)

// CartHandler handles cart-related HTTP requests.
type CartHandler struct {
	carts   *cart.Manager
	catalog catalog.Service
	logger  zerolog.Logger
}

// NewCartHandler creates a new cart handler.
func NewCartHandler(carts *cart.Manager, catalogSvc catalog.Service, logger zerolog.Logger) *CartHandler {
	return &CartHandler{
		carts:   carts,
		catalog: catalogSvc,
		logger:  logger.With().Str("handler", "cart").Logger(),
	}
}

// cartResponse is the cart payload with its derived totals.
type cartResponse struct {
	Items           []model.LineItem       `json:"items"`
	ShippingAddress *model.ShippingAddress `json:"shippingAddress,omitempty"`
	PaymentMethod   model.PaymentMethod    `json:"paymentMethod,omitempty"`
	ItemsPrice      int64                  `json:"itemsPrice"`
	ShippingPrice   int64                  `json:"shippingPrice"`
	TotalPrice      int64                  `json:"totalPrice"`
	Warning         string                 `json:"warning,omitempty"`
}

func newCartResponse(c model.Cart, totals pricing.Snapshot) cartResponse {
	if c.Items == nil {
		c.Items = []model.LineItem{}
	}
	return cartResponse{
		Items:           c.Items,
		ShippingAddress: c.ShippingAddress,
		PaymentMethod:   c.PaymentMethod,
		ItemsPrice:      totals.ItemsPrice,
		ShippingPrice:   totals.ShippingPrice,
		TotalPrice:      totals.TotalPrice,
	}
}

func (h *CartHandler) respondCart(w http.ResponseWriter, store *cart.Store, status int, warning string) {
	totals, err := store.Totals()
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	resp := newCartResponse(store.CurrentState(), totals)
	resp.Warning = warning
	writeJSON(w, status, resp)
}

// Get handles GET /api/cart requests. It waits for in-flight session writes
// to settle and reports the last persistence failure as a warning.
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", h.logger)
		return
	}

	store := h.carts.Get(r.Context(), sessionID(w, r))

	var warning string
	if err := store.Wait(); err != nil {
		warning = "cart changes may not have been saved durably"
	}
	h.respondCart(w, store, http.StatusOK, warning)
}

// addItemRequest is the body of POST /api/cart/items.
type addItemRequest struct {
	ProductRef string `json:"productRef"`
	Quantity   int    `json:"quantity"`
}

// AddItem handles POST /api/cart/items requests. The product's name, price
// and stock come from the catalog, never from the client.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", h.logger)
		return
	}

	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Error: model.ErrCodeInvalidJSON, Message: "invalid request body"})
		return
	}
	if req.ProductRef == "" {
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Error: model.ErrCodeInvalidLineItem, Message: "productRef is required"})
		return
	}

	snap, err := h.catalog.Snapshot(r.Context(), req.ProductRef)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	store := h.carts.Get(r.Context(), sessionID(w, r))
	if err := store.AddItem(r.Context(), req.ProductRef, req.Quantity, snap); err != nil {
		if err == model.ErrOutOfStock {
			// The cart holds the clamped quantity; report it with the warning.
			h.respondCart(w, store, http.StatusOK, model.ErrOutOfStock.Message)
			return
		}
		writeDomainError(w, err, h.logger)
		return
	}

	h.respondCart(w, store, http.StatusOK, "")
}

// updateItemRequest is the body of PUT /api/cart/items/{ref}.
type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

// UpdateItem handles PUT /api/cart/items/{ref} requests. A quantity of zero
// removes the line.
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request, productRef string) {
	var req updateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Error: model.ErrCodeInvalidJSON, Message: "invalid request body"})
		return
	}

	store := h.carts.Get(r.Context(), sessionID(w, r))
	if err := store.SetItemQuantity(r.Context(), productRef, req.Quantity); err != nil {
		if err == model.ErrOutOfStock {
			h.respondCart(w, store, http.StatusOK, model.ErrOutOfStock.Message)
			return
		}
		writeDomainError(w, err, h.logger)
		return
	}

	h.respondCart(w, store, http.StatusOK, "")
}

// RemoveItem handles DELETE /api/cart/items/{ref} requests. Removing an
// absent product succeeds.
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request, productRef string) {
	store := h.carts.Get(r.Context(), sessionID(w, r))
	if err := store.RemoveItem(r.Context(), productRef); err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	h.respondCart(w, store, http.StatusOK, "")
}
