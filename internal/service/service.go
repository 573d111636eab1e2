package service

import (
	"context"

	"bloomcart/internal/model"

	"github.com/google/uuid"
)

// OrderService defines the server-side order lifecycle operations.
type OrderService interface {
	// Place creates the durable order record from a frozen copy of the cart.
	// Totals are computed once here and never recomputed for the record.
	Place(ctx context.Context, ownerRef string, c model.Cart) (*model.Order, error)

	// GetForOwner retrieves an order, restricted to its owner. Orders owned
	// by someone else surface as not found.
	GetForOwner(ctx context.Context, ownerRef string, id uuid.UUID) (*model.Order, error)

	// ListByOwner retrieves the owner's orders, newest first.
	ListByOwner(ctx context.Context, ownerRef string) ([]model.Order, error)

	// ConfirmPayment marks the order paid. Duplicate confirmations fail with
	// ErrAlreadyPaid and leave paidAt untouched.
	ConfirmPayment(ctx context.Context, id uuid.UUID) (*model.Order, error)

	// ConfirmDelivery marks the order delivered. It requires the order to be
	// paid first.
	ConfirmDelivery(ctx context.Context, id uuid.UUID) (*model.Order, error)
}
