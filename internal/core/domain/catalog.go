package domain

import "github.com/shopspring/decimal"

// CatalogItemType distinguishes simple products from bundles ("combos").
type CatalogItemType string

const (
	ItemProduct CatalogItemType = "PRODUCT"
	ItemBundle  CatalogItemType = "BUNDLE"
)

// BundleComponent defines one component of a bundle with its fixed
// per-bundle quantity.
type BundleComponent struct {
	BundleID          string `json:"bundleID"`      // FK -> catalog_items.catalog_item_id
	CatalogItemID     string `json:"catalogItemID"` // component item
	QuantityPerBundle int64  `json:"quantityPerBundle"`
	Position          int    `json:"position"` // ordering within the bundle
}

// CatalogItem is a purchasable product or bundle. Stock and Reserved are the
// inventory ledger counters for product items; bundles carry no stock of
// their own, their components do.
type CatalogItem struct {
	CatalogItemID string          `json:"catalogItemID"` // Primary Key (UUID)
	Name          string          `json:"name"`
	Type          CatalogItemType `json:"type"`
	UnitPrice     decimal.Decimal `json:"unitPrice"`
	CurrencyCode  string          `json:"currencyCode"`
	Stock         int64           `json:"stock"`    // on-hand quantity
	Reserved      int64           `json:"reserved"` // reserved but not yet deducted
	IsActive      bool            `json:"isActive"`

	// Components is populated for bundles only.
	Components []BundleComponent `json:"components,omitempty"`

	AuditFields
}

// Available is the quantity a new reservation may draw from.
func (c CatalogItem) Available() int64 {
	return c.Stock - c.Reserved
}

// InventoryEffect describes the ledger side effect a status transition carries.
type InventoryEffect string

const (
	// EffectNone leaves the reservation untouched.
	EffectNone InventoryEffect = "NONE"
	// EffectCommit converts the reservation into a permanent deduction.
	EffectCommit InventoryEffect = "COMMIT"
	// EffectRelease returns reserved-but-not-deducted stock to availability.
	EffectRelease InventoryEffect = "RELEASE"
)

// ReservationStatus tracks one transaction's hold on one catalog item.
// The (transaction, catalog item) pair is the idempotency key: commit and
// release only act on RESERVED rows, so applying either twice is a no-op.
type ReservationStatus string

const (
	ReservationReserved  ReservationStatus = "RESERVED"
	ReservationCommitted ReservationStatus = "COMMITTED"
	ReservationReleased  ReservationStatus = "RELEASED"
)

// InventoryReservation is a temporary hold on inventory that has not yet been
// permanently deducted.
type InventoryReservation struct {
	TransactionID string            `json:"transactionID"`
	CatalogItemID string            `json:"catalogItemID"`
	Quantity      int64             `json:"quantity"`
	Status        ReservationStatus `json:"status"`
}
