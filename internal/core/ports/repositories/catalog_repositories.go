package repositories

import (
	"context"

	"github.com/enviopago/envio_backend/internal/core/domain"
)

// CatalogRepositoryFacade defines persistence operations for catalog items
// and their inventory counters.
type CatalogRepositoryFacade interface {
	// SaveCatalogItem persists a new catalog item with its bundle components.
	SaveCatalogItem(ctx context.Context, item domain.CatalogItem) error

	// FindCatalogItemByID retrieves one catalog item with components.
	FindCatalogItemByID(ctx context.Context, catalogItemID string) (*domain.CatalogItem, error)

	// FindCatalogItemsByIDs retrieves a set of catalog items keyed by ID.
	// Missing IDs are simply absent from the map.
	FindCatalogItemsByIDs(ctx context.Context, catalogItemIDs []string) (map[string]domain.CatalogItem, error)

	// ListCatalogItems retrieves a cursor-paginated page of catalog items.
	ListCatalogItems(ctx context.Context, limit int, nextToken *string) ([]domain.CatalogItem, *string, error)

	// AdjustStock changes the on-hand stock of a product by delta. The
	// resulting stock must cover outstanding reservations; otherwise
	// apperrors.ErrConflict is returned.
	AdjustStock(ctx context.Context, catalogItemID string, delta int64, updatedBy string) error
}
