package domain

import "github.com/shopspring/decimal"

// ComponentSnapshot captures one bundle component at transaction creation time.
// The inventory ledger computes reserved quantity as
// transaction quantity x QuantityPerBundle without re-querying the bundle
// composition later, so retroactive catalog edits cannot corrupt history.
type ComponentSnapshot struct {
	CatalogItemID     string          `json:"catalogItemID"`
	QuantityPerBundle int64           `json:"quantityPerBundle"`
	UnitPriceSnapshot decimal.Decimal `json:"unitPriceSnapshot"`
}

// LineItem belongs to exactly one Transaction. Quantity and unit price are
// captured at creation and never re-read from the catalog.
type LineItem struct {
	LineItemID        string          `json:"lineItemID"` // Primary Key (UUID)
	TransactionID     string          `json:"transactionID"`
	CatalogItemID     string          `json:"catalogItemID"`
	Quantity          int64           `json:"quantity"` // > 0
	UnitPriceSnapshot decimal.Decimal `json:"unitPriceSnapshot"`

	// Components is non-empty only for bundle line items; ordered as defined
	// by the bundle at creation time.
	Components []ComponentSnapshot `json:"components,omitempty"`

	AuditFields
}

// IsBundle reports whether the line item was captured from a bundle.
func (li LineItem) IsBundle() bool {
	return len(li.Components) > 0
}

// ReservationQuantities expands the line item into per-catalog-item quantities
// to reserve. A product reserves its own quantity; a bundle reserves each
// component multiplied by the bundle quantity.
func (li LineItem) ReservationQuantities() map[string]int64 {
	out := make(map[string]int64)
	if !li.IsBundle() {
		out[li.CatalogItemID] = li.Quantity
		return out
	}
	for _, comp := range li.Components {
		out[comp.CatalogItemID] += comp.QuantityPerBundle * li.Quantity
	}
	return out
}

// BaseAmount returns the line item's contribution to the transaction base
// amount. For bundles this is the sum over components of
// componentUnitPrice x componentQuantity x bundleQuantity.
func (li LineItem) BaseAmount() decimal.Decimal {
	if !li.IsBundle() {
		return li.UnitPriceSnapshot.Mul(decimal.NewFromInt(li.Quantity))
	}
	total := decimal.Zero
	qty := decimal.NewFromInt(li.Quantity)
	for _, comp := range li.Components {
		total = total.Add(comp.UnitPriceSnapshot.Mul(decimal.NewFromInt(comp.QuantityPerBundle)).Mul(qty))
	}
	return total
}
