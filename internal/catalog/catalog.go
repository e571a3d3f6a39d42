// Package catalog defines the read-only product catalog consumed by the
// resolver and the cart engine. The catalog is safely shared across all
// sessions without locking; implementations must be read-optimized.
package catalog

import (
	"context"

	"voicecart/internal/model"
)

// Store is the catalog lookup interface.
type Store interface {
	// Find returns candidate products for a free-text product name,
	// loosely matched; callers apply their own similarity thresholds.
	Find(ctx context.Context, query string) ([]model.Product, error)

	// FindByFilters returns products matching structured constraints.
	FindByFilters(ctx context.Context, filters model.SearchFilters) ([]model.Product, error)

	// Get returns the full product record, or nil when absent.
	Get(ctx context.Context, productID int64) (*model.Product, error)
}
