package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"bloomcart/internal/cart"
	"bloomcart/internal/checkout"
	"bloomcart/internal/model"
	"bloomcart/internal/session"

	"github.com/rs/zerolog"
)

// SessionHandler handles session lifecycle and preference requests.
type SessionHandler struct {
	carts    *cart.Manager
	registry *checkout.Registry
	sessions session.Store
	logger   zerolog.Logger
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(carts *cart.Manager, registry *checkout.Registry, sessions session.Store, logger zerolog.Logger) *SessionHandler {
	return &SessionHandler{
		carts:    carts,
		registry: registry,
		sessions: sessions,
		logger:   logger.With().Str("handler", "session").Logger(),
	}
}

// Logout handles POST /api/session/logout requests. It clears the user info
// and cart items from the durable store and retires the in-memory cart and
// checkout. The display preference survives.
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", h.logger)
		return
	}

	id := sessionID(w, r)
	h.registry.Drop(id)
	if err := h.carts.Logout(r.Context(), id); err != nil {
		h.logger.Error().Err(err).Str("session_id", id).Msg("logout failed")
		writeError(w, http.StatusInternalServerError, "failed to log out", h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// preferencesResponse carries the session display preference.
type preferencesResponse struct {
	DarkMode bool `json:"darkMode"`
}

// GetPreferences handles GET /api/session/preferences requests.
func (h *SessionHandler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	id := sessionID(w, r)

	var darkMode bool
	raw, err := h.sessions.Get(r.Context(), id, session.KeyDarkMode)
	switch {
	case err == nil:
		darkMode, _ = strconv.ParseBool(string(raw))
	case errors.Is(err, session.ErrNotFound):
		// Unset preference defaults to light mode.
	default:
		h.logger.Error().Err(err).Str("session_id", id).Msg("failed to read preferences")
		writeError(w, http.StatusInternalServerError, "failed to read preferences", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, preferencesResponse{DarkMode: darkMode})
}

// PutPreferences handles PUT /api/session/preferences requests.
func (h *SessionHandler) PutPreferences(w http.ResponseWriter, r *http.Request) {
	var req preferencesResponse
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Error: model.ErrCodeInvalidJSON, Message: "invalid request body"})
		return
	}

	id := sessionID(w, r)
	if err := h.sessions.Set(r.Context(), id, session.KeyDarkMode, []byte(strconv.FormatBool(req.DarkMode))); err != nil {
		h.logger.Error().Err(err).Str("session_id", id).Msg("failed to store preferences")
		writeError(w, http.StatusInternalServerError, "failed to store preferences", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, req)
}

// Preferences routes GET and PUT /api/session/preferences requests.
func (h *SessionHandler) Preferences(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.GetPreferences(w, r)
	case http.MethodPut:
		h.PutPreferences(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", h.logger)
	}
}
