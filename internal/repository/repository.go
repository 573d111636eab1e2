package repository

import (
	"context"
	"time"

	"bloomcart/internal/model"

	"github.com/google/uuid"
)

// OrderRepository defines the interface for order data access operations.
// The status updates are atomic read-modify-writes: the guard conditions are
// evaluated inside the update statement itself, so concurrent confirmation
// events cannot race past each other.
type OrderRepository interface {
	// Create durably stores a new order record with its items, all or
	// nothing.
	Create(ctx context.Context, order *model.Order) error

	// GetByID retrieves an order with its items. Returns (nil, nil) when no
	// such order exists.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)

	// ListByOwner retrieves the orders belonging to the given owner, newest
	// first.
	ListByOwner(ctx context.Context, ownerRef string) ([]model.Order, error)

	// MarkPaid flips isPaid to true and stamps paidAt. Fails with
	// ErrAlreadyPaid when the order is already paid, ErrOrderNotFound when it
	// does not exist.
	MarkPaid(ctx context.Context, id uuid.UUID, at time.Time) (*model.Order, error)

	// MarkDelivered flips isDelivered to true and stamps deliveredAt. Fails
	// with ErrNotPaid when the order has not been paid, ErrAlreadyDelivered
	// when already delivered, ErrOrderNotFound when it does not exist.
	MarkDelivered(ctx context.Context, id uuid.UUID, at time.Time) (*model.Order, error)
}
