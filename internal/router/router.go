package router

import (
	"net/http"
	"strings"

	"bloomcart/internal/handler"
	"bloomcart/internal/middleware"

	"github.com/rs/zerolog"
)

// New creates a new HTTP router with all routes and middleware configured.
func New(
	cartHandler *handler.CartHandler,
	checkoutHandler *handler.CheckoutHandler,
	orderHandler *handler.OrderHandler,
	sessionHandler *handler.SessionHandler,
	webhookAPIKey string,
	logger zerolog.Logger,
) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint (no authentication required)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy"}`))
	})

	// Cart routes
	mux.HandleFunc("/api/cart", cartHandler.Get)
	mux.HandleFunc("/api/cart/", cartHandler.Get)

	cartItemsHandler := func(w http.ResponseWriter, r *http.Request) {
		// Check if this is a request for a specific product ref
		ref := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/cart/items"), "/")
		if ref == "" {
			cartHandler.AddItem(w, r)
			return
		}

		switch r.Method {
		case http.MethodPut:
			cartHandler.UpdateItem(w, r, ref)
		case http.MethodDelete:
			cartHandler.RemoveItem(w, r, ref)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	}
	mux.HandleFunc("/api/cart/items", cartItemsHandler)
	mux.HandleFunc("/api/cart/items/", cartItemsHandler)

	// Checkout routes
	mux.HandleFunc("/api/checkout", checkoutHandler.GetState)
	mux.HandleFunc("/api/checkout/", checkoutHandler.GetState)
	mux.HandleFunc("/api/checkout/shipping-address", checkoutHandler.SubmitAddress)
	mux.HandleFunc("/api/checkout/payment-method", checkoutHandler.SelectPayment)
	mux.HandleFunc("/api/checkout/place-order", checkoutHandler.PlaceOrder)
	mux.HandleFunc("/api/checkout/back", checkoutHandler.Back)

	// Order routes
	orderRouteHandler := func(w http.ResponseWriter, r *http.Request) {
		id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/orders"), "/")
		if id == "" {
			orderHandler.List(w, r)
			return
		}
		orderHandler.GetByID(w, r, id)
	}
	mux.HandleFunc("/api/orders", orderRouteHandler)
	mux.HandleFunc("/api/orders/", orderRouteHandler)

	// Webhook routes guarded by the provider API key
	webhookAuth := middleware.APIKeyAuth(webhookAPIKey, logger)
	mux.Handle("/api/webhooks/payment-confirmed", webhookAuth(http.HandlerFunc(orderHandler.ConfirmPayment)))
	mux.Handle("/api/webhooks/delivery-confirmed", webhookAuth(http.HandlerFunc(orderHandler.ConfirmDelivery)))

	// Session routes
	mux.HandleFunc("/api/session/logout", sessionHandler.Logout)
	mux.HandleFunc("/api/session/preferences", sessionHandler.Preferences)

	// Apply middleware in order: Recovery -> Logging -> CORS -> Identity
	var h http.Handler = mux
	h = middleware.Identity(h)
	h = middleware.CORS(h)
	h = middleware.Logging(logger)(h)
	h = middleware.Recovery(logger)(h)

	return h
}
