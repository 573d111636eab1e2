package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"bloomcart/internal/model"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

// productResponse is the catalog service's product payload.
type productResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Stock    int    `json:"stock"`
	ImageURL string `json:"imageUrl"`
}

// client fetches snapshots from the catalog service over HTTP, guarded by a
// circuit breaker so a flapping catalog cannot pile up cart requests.
type client struct {
	http    *resty.Client
	breaker *gobreaker.CircuitBreaker
	logger  zerolog.Logger
}

// NewClient creates a catalog client for the given base URL.
func NewClient(baseURL string, timeout time.Duration, logger zerolog.Logger) Service {
	componentLogger := logger.With().Str("component", "catalog-client").Logger()

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "catalog",
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			componentLogger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	})

	return &client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetRetryCount(2).
			SetRetryWaitTime(100 * time.Millisecond),
		breaker: breaker,
		logger:  componentLogger,
	}
}

// Snapshot returns the product's current catalog state.
func (c *client) Snapshot(ctx context.Context, productRef string) (model.CatalogSnapshot, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetch(ctx, productRef)
	})
	if err != nil {
		if errors.Is(err, model.ErrProductNotFound) {
			return model.CatalogSnapshot{}, model.ErrProductNotFound
		}
		c.logger.Error().Err(err).Str("product_ref", productRef).Msg("catalog lookup failed")
		return model.CatalogSnapshot{}, fmt.Errorf("catalog lookup failed: %w", err)
	}
	return result.(model.CatalogSnapshot), nil
}

func (c *client) fetch(ctx context.Context, productRef string) (model.CatalogSnapshot, error) {
	var product productResponse

	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&product).
		SetPathParam("ref", productRef).
		Get("/api/products/{ref}")
	if err != nil {
		return model.CatalogSnapshot{}, err
	}

	switch resp.StatusCode() {
	case http.StatusOK:
		return model.CatalogSnapshot{
			ProductRef: product.ID,
			Name:       product.Name,
			UnitPrice:  product.Price,
			Stock:      product.Stock,
			ImageRef:   product.ImageURL,
		}, nil
	case http.StatusNotFound:
		return model.CatalogSnapshot{}, model.ErrProductNotFound
	default:
		return model.CatalogSnapshot{}, fmt.Errorf("catalog returned status %d", resp.StatusCode())
	}
}
