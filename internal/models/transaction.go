package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType mirrors the domain transaction type at the storage layer.
type TransactionType string

const (
	Order      TransactionType = "ORDER"
	Remittance TransactionType = "REMITTANCE"
)

// TransactionStatus mirrors the domain lifecycle status at the storage layer.
type TransactionStatus string

// Transaction represents a row of the transactions table.
type Transaction struct {
	TransactionID   string            `db:"transaction_id"`
	ReferenceNumber string            `db:"reference_number"` // unique
	OwnerID         string            `db:"owner_id"`
	Type            TransactionType   `db:"type"`
	Status          TransactionStatus `db:"status"`

	BaseAmount          decimal.Decimal `db:"base_amount"`
	BaseCurrency        string          `db:"base_currency"`
	ExchangeRate        decimal.Decimal `db:"exchange_rate"`
	CommissionPct       decimal.Decimal `db:"commission_pct"`
	CommissionFixed     decimal.Decimal `db:"commission_fixed"`
	CommissionTotal     decimal.Decimal `db:"commission_total"`
	DeliverableAmount   decimal.Decimal `db:"deliverable_amount"`
	DestinationCurrency string          `db:"destination_currency"`

	RecipientName    string `db:"recipient_name"`
	RecipientDetails string `db:"recipient_details"`

	ProofHandle      *string `db:"proof_handle"`
	PaymentReference *string `db:"payment_reference"`

	ValidatedBy           *string    `db:"validated_by"`
	ValidatedAt           *time.Time `db:"validated_at"`
	RejectionReason       *string    `db:"rejection_reason"`
	ProcessingStartedAt   *time.Time `db:"processing_started_at"`
	DeliveredAt           *time.Time `db:"delivered_at"`
	DeliveryProofHandle   *string    `db:"delivery_proof_handle"`
	RecipientConfirmation *string    `db:"recipient_confirmation"`
	CompletedAt           *time.Time `db:"completed_at"`
	CancelledAt           *time.Time `db:"cancelled_at"`
	CancellationReason    *string    `db:"cancellation_reason"`
	CancelledBy           *string    `db:"cancelled_by"`

	AuditFields
}

// LineItem represents a row of the transaction_line_items table.
type LineItem struct {
	LineItemID        string          `db:"line_item_id"`
	TransactionID     string          `db:"transaction_id"`
	CatalogItemID     string          `db:"catalog_item_id"`
	Quantity          int64           `db:"quantity"`
	UnitPriceSnapshot decimal.Decimal `db:"unit_price_snapshot"`
	AuditFields
}

// LineItemComponent represents a row of the line_item_components table:
// one captured bundle component of a line item.
type LineItemComponent struct {
	LineItemID        string          `db:"line_item_id"`
	CatalogItemID     string          `db:"catalog_item_id"`
	QuantityPerBundle int64           `db:"quantity_per_bundle"`
	UnitPriceSnapshot decimal.Decimal `db:"unit_price_snapshot"`
	Position          int             `db:"position"`
}

// StatusHistoryEntry represents a row of the append-only
// transaction_status_history table.
type StatusHistoryEntry struct {
	EntryID        string             `db:"entry_id"`
	TransactionID  string             `db:"transaction_id"`
	PreviousStatus *TransactionStatus `db:"previous_status"` // NULL for the creation event
	NewStatus      TransactionStatus  `db:"new_status"`
	ActorID        *string            `db:"actor_id"`
	Reason         *string            `db:"reason"`
	CreatedAt      time.Time          `db:"created_at"`
}
