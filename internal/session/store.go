// Package session is the durable key-value store backing one browsing
// session: the cart contents, shipping and payment selections, plus the user
// info and display preference the storefront keeps alongside them.
package session

import (
	"context"
	"errors"
)

// Keys written by the storefront. Values are serialized snapshots of the
// corresponding cart/session fields. There is no expiry management beyond
// clearing on logout or order placement.
const (
	KeyCartItems       = "cartItems"
	KeyShippingAddress = "shippingAddress"
	KeyPaymentMethod   = "paymentMethod"
	KeyUserInfo        = "userInfo"
	KeyDarkMode        = "darkMode"
)

// ErrNotFound is returned when a session has no value under the given key.
var ErrNotFound = errors.New("session key not found")

// Store defines the durable per-session key-value store.
type Store interface {
	// Get returns the value stored for the session under key, or ErrNotFound.
	Get(ctx context.Context, sessionID, key string) ([]byte, error)

	// Set stores the value for the session under key.
	Set(ctx context.Context, sessionID, key string, value []byte) error

	// Delete removes the given keys from the session. Missing keys are not an
	// error.
	Delete(ctx context.Context, sessionID string, keys ...string) error
}
