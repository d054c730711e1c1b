package dto

import (
	"time"

	"github.com/enviopago/envio_backend/internal/core/domain"
	"github.com/shopspring/decimal"
)

// BundleComponentRequest declares one component of a bundle.
type BundleComponentRequest struct {
	CatalogItemID     string `json:"catalogItemID" binding:"required"`
	QuantityPerBundle int64  `json:"quantityPerBundle" binding:"required,gt=0"`
}

// CreateCatalogItemRequest creates a product or a bundle.
type CreateCatalogItemRequest struct {
	Name         string                   `json:"name" binding:"required"`
	Type         domain.CatalogItemType   `json:"type" binding:"required,oneof=PRODUCT BUNDLE"`
	UnitPrice    decimal.Decimal          `json:"unitPrice" binding:"required"`
	CurrencyCode string                   `json:"currencyCode" binding:"required,len=3"`
	Stock        int64                    `json:"stock" binding:"gte=0"`
	Components   []BundleComponentRequest `json:"components" binding:"omitempty,dive"`
}

// AdjustStockRequest changes the on-hand quantity of a product by a delta.
type AdjustStockRequest struct {
	Delta int64 `json:"delta" binding:"required"`
}

// CatalogItemResponse is the returned shape of a catalog item.
type CatalogItemResponse struct {
	CatalogItemID string                   `json:"catalogItemID"`
	Name          string                   `json:"name"`
	Type          domain.CatalogItemType   `json:"type"`
	UnitPrice     decimal.Decimal          `json:"unitPrice"`
	CurrencyCode  string                   `json:"currencyCode"`
	Stock         int64                    `json:"stock"`
	Reserved      int64                    `json:"reserved"`
	Available     int64                    `json:"available"`
	IsActive      bool                     `json:"isActive"`
	Components    []domain.BundleComponent `json:"components,omitempty"`
	CreatedAt     time.Time                `json:"createdAt"`
}

// ToCatalogItemResponse converts a domain.CatalogItem to its response DTO.
func ToCatalogItemResponse(c *domain.CatalogItem) CatalogItemResponse {
	return CatalogItemResponse{
		CatalogItemID: c.CatalogItemID,
		Name:          c.Name,
		Type:          c.Type,
		UnitPrice:     c.UnitPrice,
		CurrencyCode:  c.CurrencyCode,
		Stock:         c.Stock,
		Reserved:      c.Reserved,
		Available:     c.Available(),
		IsActive:      c.IsActive,
		Components:    c.Components,
		CreatedAt:     c.CreatedAt,
	}
}

// ToCatalogItemResponses converts a slice of catalog items.
func ToCatalogItemResponses(items []domain.CatalogItem) []CatalogItemResponse {
	out := make([]CatalogItemResponse, len(items))
	for i := range items {
		out[i] = ToCatalogItemResponse(&items[i])
	}
	return out
}
