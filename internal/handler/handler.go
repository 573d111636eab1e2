package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"bloomcart/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// sessionCookie carries the browsing session identifier. Carts and checkout
// progress hang off it; the bearer token identifies the user separately.
const sessionCookie = "cart_session"

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but don't expose it to the client
		return
	}
}

// writeError writes an error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string, logger zerolog.Logger) {
	logger.Error().Str("error", message).Int("status", status).Msg("handler error")
	writeJSON(w, status, model.ErrorResponse{Error: model.ErrCodeInternalError, Message: message})
}

// writeDomainError maps a business-rule violation onto an HTTP status and a
// structured error body. Unknown errors surface as 500 without detail.
func writeDomainError(w http.ResponseWriter, err error, logger zerolog.Logger) {
	var domainErr *model.DomainError
	if !errors.As(err, &domainErr) {
		writeError(w, http.StatusInternalServerError, "internal server error", logger)
		return
	}

	status := statusFor(domainErr.Code)
	logger.Warn().Str("code", domainErr.Code).Int("status", status).Msg(domainErr.Message)
	writeJSON(w, status, model.ErrorResponse{Error: domainErr.Code, Message: domainErr.Message})
}

// statusFor maps domain error codes onto HTTP status codes.
func statusFor(code string) int {
	switch code {
	case model.ErrCodeNoSession, model.ErrCodeUnauthorised:
		return http.StatusUnauthorized
	case model.ErrCodeProductNotFound, model.ErrCodeOrderNotFound:
		return http.StatusNotFound
	case model.ErrCodeOutOfStock,
		model.ErrCodeEmptyCart,
		model.ErrCodeAlreadyPaid,
		model.ErrCodeNotPaid,
		model.ErrCodeAlreadyDelivered,
		model.ErrCodeCheckoutCompleted:
		return http.StatusConflict
	case model.ErrCodePersistenceUnavailable:
		return http.StatusServiceUnavailable
	case model.ErrCodeInternalError:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// sessionID returns the browsing session identifier from the request cookie,
// minting and setting a fresh one when the request carries none.
func sessionID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		return c.Value
	}

	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}
