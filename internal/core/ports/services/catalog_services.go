package services

import (
	"context"

	"github.com/enviopago/envio_backend/internal/core/domain"
	"github.com/enviopago/envio_backend/internal/dto"
)

// CatalogReaderSvc defines read operations for catalog data.
type CatalogReaderSvc interface {
	// GetCatalogItemByID retrieves one catalog item.
	GetCatalogItemByID(ctx context.Context, catalogItemID string) (*domain.CatalogItem, error)

	// GetCatalogItemsByIDs retrieves a set of catalog items keyed by ID.
	GetCatalogItemsByIDs(ctx context.Context, catalogItemIDs []string) (map[string]domain.CatalogItem, error)

	// ListCatalogItems retrieves a cursor-paginated page of catalog items.
	ListCatalogItems(ctx context.Context, limit int, nextToken *string) ([]dto.CatalogItemResponse, *string, error)
}

// CatalogWriterSvc defines administrative catalog mutations.
type CatalogWriterSvc interface {
	// CreateCatalogItem registers a product or bundle. Admin only.
	CreateCatalogItem(ctx context.Context, req dto.CreateCatalogItemRequest, creatorUserID string) (*domain.CatalogItem, error)

	// AdjustStock changes on-hand stock by a delta. Admin only.
	AdjustStock(ctx context.Context, catalogItemID string, delta int64, actorID string) error
}

// CatalogSvcFacade combines all catalog service interfaces.
type CatalogSvcFacade interface {
	CatalogReaderSvc
	CatalogWriterSvc
}
