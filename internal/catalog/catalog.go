// Package catalog resolves product references against the catalog service.
// The cart trusts catalog snapshots for the authoritative name, price and
// stock of a product at the moment it is added.
package catalog

import (
	"context"

	"bloomcart/internal/model"
)

// Service looks up the current catalog snapshot for a product.
type Service interface {
	// Snapshot returns the product's current name, unit price and stock.
	// Unknown product references fail with model.ErrProductNotFound.
	Snapshot(ctx context.Context, productRef string) (model.CatalogSnapshot, error)
}
