package catalog

import (
	"context"
	"sync"

	"bloomcart/internal/model"
)

// StaticCatalog serves snapshots from a fixed in-memory set of products.
// It backs local development and tests where no catalog service runs.
type StaticCatalog struct {
	mu       sync.RWMutex
	products map[string]model.CatalogSnapshot
}

// NewStaticCatalog creates a catalog over the given products.
func NewStaticCatalog(products []model.CatalogSnapshot) *StaticCatalog {
	byRef := make(map[string]model.CatalogSnapshot, len(products))
	for _, p := range products {
		byRef[p.ProductRef] = p
	}
	return &StaticCatalog{products: byRef}
}

// Snapshot returns the product's current catalog state.
func (c *StaticCatalog) Snapshot(_ context.Context, productRef string) (model.CatalogSnapshot, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap, ok := c.products[productRef]
	if !ok {
		return model.CatalogSnapshot{}, model.ErrProductNotFound
	}
	return snap, nil
}

// Put adds or replaces a product.
func (c *StaticCatalog) Put(snap model.CatalogSnapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products[snap.ProductRef] = snap
}
