package mapping

import (
	"github.com/enviopago/envio_backend/internal/core/domain"
	"github.com/enviopago/envio_backend/internal/models"
)

// ToModelCatalogItem converts a domain CatalogItem to a model CatalogItem
func ToModelCatalogItem(d domain.CatalogItem) models.CatalogItem {
	return models.CatalogItem{
		CatalogItemID: d.CatalogItemID,
		Name:          d.Name,
		Type:          models.CatalogItemType(d.Type),
		UnitPrice:     d.UnitPrice,
		CurrencyCode:  d.CurrencyCode,
		Stock:         d.Stock,
		Reserved:      d.Reserved,
		IsActive:      d.IsActive,
		AuditFields:   ToModelAuditFields(d.AuditFields),
	}
}

// ToDomainCatalogItem converts a model CatalogItem plus its bundle component
// rows to a domain CatalogItem.
func ToDomainCatalogItem(m models.CatalogItem, components []models.BundleComponent) domain.CatalogItem {
	d := domain.CatalogItem{
		CatalogItemID: m.CatalogItemID,
		Name:          m.Name,
		Type:          domain.CatalogItemType(m.Type),
		UnitPrice:     m.UnitPrice,
		CurrencyCode:  m.CurrencyCode,
		Stock:         m.Stock,
		Reserved:      m.Reserved,
		IsActive:      m.IsActive,
		AuditFields:   ToDomainAuditFields(m.AuditFields),
	}
	if len(components) > 0 {
		d.Components = make([]domain.BundleComponent, len(components))
		for i, comp := range components {
			d.Components[i] = ToDomainBundleComponent(comp)
		}
	}
	return d
}

// ToModelBundleComponent converts a domain BundleComponent to its model
func ToModelBundleComponent(d domain.BundleComponent) models.BundleComponent {
	return models.BundleComponent{
		BundleID:          d.BundleID,
		CatalogItemID:     d.CatalogItemID,
		QuantityPerBundle: d.QuantityPerBundle,
		Position:          d.Position,
	}
}

// ToDomainBundleComponent converts a model BundleComponent to its domain
func ToDomainBundleComponent(m models.BundleComponent) domain.BundleComponent {
	return domain.BundleComponent{
		BundleID:          m.BundleID,
		CatalogItemID:     m.CatalogItemID,
		QuantityPerBundle: m.QuantityPerBundle,
		Position:          m.Position,
	}
}
