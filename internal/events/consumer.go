// Package events consumes payment and delivery confirmations from the
// message broker. The broker delivers at least once; the guarded order
// transitions make redelivered confirmations harmless.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"bloomcart/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/streadway/amqp"
)

// Routing keys for the confirmation events.
const (
	RoutingKeyPaymentConfirmed  = "order.payment.confirmed"
	RoutingKeyDeliveryConfirmed = "order.delivery.confirmed"
)

// Confirmer applies confirmation events to order records.
type Confirmer interface {
	ConfirmPayment(ctx context.Context, id uuid.UUID) (*model.Order, error)
	ConfirmDelivery(ctx context.Context, id uuid.UUID) (*model.Order, error)
}

// confirmationEvent is the payload of both confirmation messages.
type confirmationEvent struct {
	OrderID string `json:"orderId"`
}

// Consumer binds a queue to the confirmation routing keys and feeds the
// events into the order service.
type Consumer struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
	orders  Confirmer
	logger  zerolog.Logger
}

// NewConsumer connects to the broker and declares the exchange, queue and
// bindings.
func NewConsumer(url, exchange, queue string, orders Confirmer, logger zerolog.Logger) (*Consumer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := channel.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	if _, err := channel.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	for _, key := range []string{RoutingKeyPaymentConfirmed, RoutingKeyDeliveryConfirmed} {
		if err := channel.QueueBind(queue, key, exchange, false, nil); err != nil {
			channel.Close()
			conn.Close()
			return nil, fmt.Errorf("failed to bind queue to %s: %w", key, err)
		}
	}

	return &Consumer{
		conn:    conn,
		channel: channel,
		queue:   queue,
		orders:  orders,
		logger:  logger.With().Str("component", "events-consumer").Logger(),
	}, nil
}

// Start consumes confirmation events until the context is cancelled or the
// channel closes.
func (c *Consumer) Start(ctx context.Context) error {
	deliveries, err := c.channel.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	c.logger.Info().Str("queue", c.queue).Msg("consuming confirmation events")

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					c.logger.Warn().Msg("delivery channel closed")
					return
				}
				c.handle(ctx, d)
			}
		}
	}()

	return nil
}

func (c *Consumer) handle(ctx context.Context, d amqp.Delivery) {
	requeue, err := c.process(ctx, d.RoutingKey, d.Body)
	if err == nil {
		if ackErr := d.Ack(false); ackErr != nil {
			c.logger.Error().Err(ackErr).Msg("failed to ack delivery")
		}
		return
	}

	if requeue {
		c.logger.Warn().Err(err).Str("routing_key", d.RoutingKey).Msg("confirmation event requeued")
		if nackErr := d.Nack(false, true); nackErr != nil {
			c.logger.Error().Err(nackErr).Msg("failed to nack delivery")
		}
		return
	}

	// Benign rejections (duplicates, unknown orders): ack so the broker
	// stops redelivering.
	c.logger.Warn().Err(err).Str("routing_key", d.RoutingKey).Msg("confirmation event dropped")
	if ackErr := d.Ack(false); ackErr != nil {
		c.logger.Error().Err(ackErr).Msg("failed to ack delivery")
	}
}

// process applies one confirmation event. It reports whether a failure is
// worth redelivering.
func (c *Consumer) process(ctx context.Context, routingKey string, body []byte) (requeue bool, err error) {
	var event confirmationEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return false, fmt.Errorf("failed to decode confirmation event: %w", err)
	}

	orderID, err := uuid.Parse(event.OrderID)
	if err != nil {
		return false, fmt.Errorf("invalid order id %q: %w", event.OrderID, err)
	}

	switch routingKey {
	case RoutingKeyPaymentConfirmed:
		_, err = c.orders.ConfirmPayment(ctx, orderID)
	case RoutingKeyDeliveryConfirmed:
		_, err = c.orders.ConfirmDelivery(ctx, orderID)
	default:
		return false, fmt.Errorf("unexpected routing key %q", routingKey)
	}

	switch {
	case err == nil:
		c.logger.Info().
			Str("order_id", orderID.String()).
			Str("routing_key", routingKey).
			Msg("confirmation event applied")
		return false, nil
	case errors.Is(err, model.ErrAlreadyPaid),
		errors.Is(err, model.ErrAlreadyDelivered),
		errors.Is(err, model.ErrNotPaid),
		errors.Is(err, model.ErrOrderNotFound):
		// Idempotency guards: the event is a duplicate or arrived out of
		// causal order. No retry needed.
		return false, err
	default:
		return true, err
	}
}

// Close shuts down the broker connection.
func (c *Consumer) Close() {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		c.conn.Close()
	}
}
