package models

import "github.com/shopspring/decimal"

// CatalogItemType mirrors the domain catalog item type at the storage layer.
type CatalogItemType string

// CatalogItem represents a row of the catalog_items table.
type CatalogItem struct {
	CatalogItemID string          `db:"catalog_item_id"`
	Name          string          `db:"name"`
	Type          CatalogItemType `db:"type"`
	UnitPrice     decimal.Decimal `db:"unit_price"`
	CurrencyCode  string          `db:"currency_code"`
	Stock         int64           `db:"stock"`
	Reserved      int64           `db:"reserved"`
	IsActive      bool            `db:"is_active"`
	AuditFields
}

// BundleComponent represents a row of the bundle_components table.
type BundleComponent struct {
	BundleID          string `db:"bundle_id"`
	CatalogItemID     string `db:"catalog_item_id"`
	QuantityPerBundle int64  `db:"quantity_per_bundle"`
	Position          int    `db:"position"`
}

// InventoryReservation represents a row of the inventory_reservations table.
// The (transaction_id, catalog_item_id) pair is the primary key.
type InventoryReservation struct {
	TransactionID string `db:"transaction_id"`
	CatalogItemID string `db:"catalog_item_id"`
	Quantity      int64  `db:"quantity"`
	Status        string `db:"status"`
}
