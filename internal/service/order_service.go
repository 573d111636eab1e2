package service

import (
	"context"
	"fmt"
	"time"

	"bloomcart/internal/model"
	"bloomcart/internal/pricing"
	"bloomcart/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// orderService implements OrderService.
type orderService struct {
	repo     repository.OrderRepository
	schedule pricing.Schedule
	logger   zerolog.Logger
	now      func() time.Time
}

// NewOrderService creates a new order service.
func NewOrderService(repo repository.OrderRepository, schedule pricing.Schedule, logger zerolog.Logger) OrderService {
	return &orderService{
		repo:     repo,
		schedule: schedule,
		logger:   logger.With().Str("service", "order").Logger(),
		now:      time.Now,
	}
}

// Place creates the durable order record from a frozen copy of the cart.
func (s *orderService) Place(ctx context.Context, ownerRef string, c model.Cart) (*model.Order, error) {
	if ownerRef == "" {
		return nil, model.ErrNoSession
	}
	if len(c.Items) == 0 {
		return nil, model.ErrEmptyCart
	}
	if c.ShippingAddress == nil {
		return nil, model.ErrMissingAddress
	}
	if err := c.ShippingAddress.Validate(); err != nil {
		return nil, err
	}

	totals, err := pricing.ComputeTotals(c.Items, s.schedule)
	if err != nil {
		s.logger.Warn().Err(err).Msg("cart failed pricing validation")
		return nil, err
	}

	frozen := c.Clone()
	now := s.now()
	order := &model.Order{
		ID:              uuid.New(),
		OwnerRef:        ownerRef,
		Items:           frozen.Items,
		ShippingAddress: *frozen.ShippingAddress,
		ItemsPrice:      totals.ItemsPrice,
		ShippingPrice:   totals.ShippingPrice,
		TotalPrice:      totals.TotalPrice,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.repo.Create(ctx, order); err != nil {
		s.logger.Error().
			Err(err).
			Str("order_id", order.ID.String()).
			Msg("failed to persist order")
		return nil, model.ErrPersistenceUnavailable
	}

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Str("owner_ref", ownerRef).
		Int("item_count", len(order.Items)).
		Int64("total_price", order.TotalPrice).
		Msg("order placed")

	return order, nil
}

// GetForOwner retrieves an order, restricted to its owner.
func (s *orderService) GetForOwner(ctx context.Context, ownerRef string, id uuid.UUID) (*model.Order, error) {
	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to get order")
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if order == nil || order.OwnerRef != ownerRef {
		// Another owner's order is indistinguishable from a missing one.
		return nil, model.ErrOrderNotFound
	}
	return order, nil
}

// ListByOwner retrieves the owner's orders, newest first.
func (s *orderService) ListByOwner(ctx context.Context, ownerRef string) ([]model.Order, error) {
	orders, err := s.repo.ListByOwner(ctx, ownerRef)
	if err != nil {
		s.logger.Error().Err(err).Str("owner_ref", ownerRef).Msg("failed to list orders")
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// ConfirmPayment marks the order paid.
func (s *orderService) ConfirmPayment(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	order, err := s.repo.MarkPaid(ctx, id, s.now())
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("order_id", id.String()).
		Msg("payment confirmed")

	return order, nil
}

// ConfirmDelivery marks the order delivered.
func (s *orderService) ConfirmDelivery(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	order, err := s.repo.MarkDelivered(ctx, id, s.now())
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("order_id", id.String()).
		Msg("delivery confirmed")

	return order, nil
}
