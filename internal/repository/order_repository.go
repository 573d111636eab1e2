package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bloomcart/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// orderRepository implements the OrderRepository interface using PostgreSQL.
type orderRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool *pgxpool.Pool, logger zerolog.Logger) OrderRepository {
	return &orderRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "order").Logger(),
	}
}

// Create durably stores a new order record with its items inside a single
// transaction.
func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				r.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	orderQuery := `
		INSERT INTO orders (
			id, owner_ref, full_name, address, phone_number,
			items_price, shipping_price, total_price,
			is_paid, is_delivered, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err = tx.Exec(ctx, orderQuery,
		order.ID,
		order.OwnerRef,
		order.ShippingAddress.FullName,
		order.ShippingAddress.Address,
		order.ShippingAddress.PhoneNumber,
		order.ItemsPrice,
		order.ShippingPrice,
		order.TotalPrice,
		order.IsPaid,
		order.IsDelivered,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", order.ID.String()).
			Msg("failed to insert order")
		return fmt.Errorf("failed to insert order: %w", err)
	}

	itemQuery := `
		INSERT INTO order_items (id, order_id, product_ref, name, unit_price, quantity, image_ref, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	batch := &pgx.Batch{}
	for i, item := range order.Items {
		batch.Queue(itemQuery, uuid.New(), order.ID, item.ProductRef, item.Name, item.UnitPrice, item.Quantity, item.ImageRef, i)
	}

	results := tx.SendBatch(ctx, batch)
	for i := range order.Items {
		if _, err = results.Exec(); err != nil {
			results.Close()
			r.logger.Error().
				Err(err).
				Str("order_id", order.ID.String()).
				Str("product_ref", order.Items[i].ProductRef).
				Msg("failed to insert order item")
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}
	if err = results.Close(); err != nil {
		return fmt.Errorf("failed to close batch: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		r.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to commit transaction")
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.logger.Debug().
		Str("order_id", order.ID.String()).
		Int("item_count", len(order.Items)).
		Msg("order created successfully")

	return nil
}

const orderColumns = `
	id, owner_ref, full_name, address, phone_number,
	items_price, shipping_price, total_price,
	is_paid, is_delivered, paid_at, delivered_at,
	created_at, updated_at
`

func scanOrder(row pgx.Row) (*model.Order, error) {
	var order model.Order
	err := row.Scan(
		&order.ID,
		&order.OwnerRef,
		&order.ShippingAddress.FullName,
		&order.ShippingAddress.Address,
		&order.ShippingAddress.PhoneNumber,
		&order.ItemsPrice,
		&order.ShippingPrice,
		&order.TotalPrice,
		&order.IsPaid,
		&order.IsDelivered,
		&order.PaidAt,
		&order.DeliveredAt,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetByID retrieves an order by its ID along with its items.
func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := scanOrder(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("order_id", id.String()).Msg("order not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to query order")
		return nil, fmt.Errorf("failed to query order: %w", err)
	}

	items, err := r.loadItems(ctx, id)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return order, nil
}

// ListByOwner retrieves the orders belonging to the given owner, newest
// first.
func (r *orderRepository) ListByOwner(ctx context.Context, ownerRef string) ([]model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE owner_ref = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, ownerRef)
	if err != nil {
		r.logger.Error().Err(err).Str("owner_ref", ownerRef).Msg("failed to query orders by owner")
		return nil, fmt.Errorf("failed to query orders by owner: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order row")
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *order)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order rows")
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	for i := range orders {
		items, err := r.loadItems(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Items = items
	}

	return orders, nil
}

// MarkPaid flips isPaid in a single guarded update, so a duplicate
// confirmation event cannot double-apply.
func (r *orderRepository) MarkPaid(ctx context.Context, id uuid.UUID, at time.Time) (*model.Order, error) {
	query := `
		UPDATE orders
		SET is_paid = TRUE, paid_at = $2, updated_at = $2
		WHERE id = $1 AND is_paid = FALSE
	`

	tag, err := r.pool.Exec(ctx, query, id, at)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to mark order paid")
		return nil, fmt.Errorf("failed to mark order paid: %w", err)
	}

	if tag.RowsAffected() == 0 {
		// The guard rejected the update: classify why.
		var isPaid bool
		err := r.pool.QueryRow(ctx, `SELECT is_paid FROM orders WHERE id = $1`, id).Scan(&isPaid)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrOrderNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("failed to inspect order: %w", err)
		}
		r.logger.Debug().Str("order_id", id.String()).Msg("duplicate payment confirmation ignored")
		return nil, model.ErrAlreadyPaid
	}

	return r.GetByID(ctx, id)
}

// MarkDelivered flips isDelivered in a single guarded update that also
// enforces the paid-before-delivered ordering.
func (r *orderRepository) MarkDelivered(ctx context.Context, id uuid.UUID, at time.Time) (*model.Order, error) {
	query := `
		UPDATE orders
		SET is_delivered = TRUE, delivered_at = $2, updated_at = $2
		WHERE id = $1 AND is_paid = TRUE AND is_delivered = FALSE
	`

	tag, err := r.pool.Exec(ctx, query, id, at)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to mark order delivered")
		return nil, fmt.Errorf("failed to mark order delivered: %w", err)
	}

	if tag.RowsAffected() == 0 {
		var isPaid, isDelivered bool
		err := r.pool.QueryRow(ctx, `SELECT is_paid, is_delivered FROM orders WHERE id = $1`, id).Scan(&isPaid, &isDelivered)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrOrderNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("failed to inspect order: %w", err)
		}
		if !isPaid {
			r.logger.Warn().Str("order_id", id.String()).Msg("delivery confirmation for unpaid order rejected")
			return nil, model.ErrNotPaid
		}
		r.logger.Debug().Str("order_id", id.String()).Msg("duplicate delivery confirmation ignored")
		return nil, model.ErrAlreadyDelivered
	}

	return r.GetByID(ctx, id)
}

func (r *orderRepository) loadItems(ctx context.Context, orderID uuid.UUID) ([]model.LineItem, error) {
	query := `
		SELECT product_ref, name, unit_price, quantity, image_ref
		FROM order_items
		WHERE order_id = $1
		ORDER BY position
	`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", orderID.String()).
			Msg("failed to query order items")
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var items []model.LineItem
	for rows.Next() {
		var item model.LineItem
		if err := rows.Scan(&item.ProductRef, &item.Name, &item.UnitPrice, &item.Quantity, &item.ImageRef); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order item row")
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order item rows")
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}

	return items, nil
}
