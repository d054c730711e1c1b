package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType distinguishes goods purchases from money transfers.
// Both share the same lifecycle shape; they differ in line-item semantics.
type TransactionType string

const (
	TypeOrder      TransactionType = "ORDER"
	TypeRemittance TransactionType = "REMITTANCE"
)

// ReferencePrefix returns the reference-number prefix for this type.
func (t TransactionType) ReferencePrefix() string {
	if t == TypeRemittance {
		return "REM"
	}
	return "ORD"
}

// TransactionStatus is the lifecycle state of a transaction.
type TransactionStatus string

const (
	StatusCreated        TransactionStatus = "CREATED"
	StatusProofSubmitted TransactionStatus = "PROOF_SUBMITTED"
	StatusValidated      TransactionStatus = "VALIDATED"
	StatusRejected       TransactionStatus = "REJECTED"
	StatusProcessing     TransactionStatus = "PROCESSING"
	StatusDelivered      TransactionStatus = "DELIVERED"
	StatusCompleted      TransactionStatus = "COMPLETED"
	StatusCancelled      TransactionStatus = "CANCELLED"
)

// allowedTransitions maps a current status to the statuses legally reachable
// from it. REJECTED -> PROOF_SUBMITTED is the one cycle in the graph: a user
// may re-submit a corrected proof after rejection. COMPLETED and CANCELLED
// are terminal.
var allowedTransitions = map[TransactionStatus][]TransactionStatus{
	StatusCreated:        {StatusProofSubmitted, StatusCancelled},
	StatusProofSubmitted: {StatusValidated, StatusRejected, StatusCancelled},
	StatusValidated:      {StatusProcessing, StatusCancelled},
	StatusRejected:       {StatusProofSubmitted, StatusCancelled},
	StatusProcessing:     {StatusDelivered, StatusCancelled},
	StatusDelivered:      {StatusCompleted, StatusCancelled},
	StatusCompleted:      {},
	StatusCancelled:      {},
}

// CanTransition reports whether moving from one status to another is legal.
func CanTransition(from, to TransactionStatus) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are legal from the status.
func (s TransactionStatus) IsTerminal() bool {
	return len(allowedTransitions[s]) == 0
}

// ValidStatusPair reports whether (previous, new) is a legal audit pair.
// A nil previous status denotes the creation event, which must land on CREATED.
func ValidStatusPair(previous *TransactionStatus, next TransactionStatus) bool {
	if previous == nil {
		return next == StatusCreated
	}
	return CanTransition(*previous, next)
}

// Transaction is the central lifecycle entity. The monetary snapshot fields
// are captured once at creation and never silently recomputed; a proof
// resubmission after rejection keeps the original snapshot.
type Transaction struct {
	TransactionID   string          `json:"transactionID"`   // Primary Key (UUID)
	ReferenceNumber string          `json:"referenceNumber"` // e.g. REM-2025-0001, immutable once assigned
	OwnerID         string          `json:"ownerID"`         // FK -> users.user_id, immutable
	Type            TransactionType `json:"type"`

	Status TransactionStatus `json:"status"`

	// Monetary snapshot, captured at creation.
	BaseAmount          decimal.Decimal `json:"baseAmount"`
	BaseCurrency        string          `json:"baseCurrency"`
	ExchangeRate        decimal.Decimal `json:"exchangeRate"`
	CommissionPct       decimal.Decimal `json:"commissionPct"`
	CommissionFixed     decimal.Decimal `json:"commissionFixed"`
	CommissionTotal     decimal.Decimal `json:"commissionTotal"`
	DeliverableAmount   decimal.Decimal `json:"deliverableAmount"`
	DestinationCurrency string          `json:"destinationCurrency"`

	// Destination details supplied by the owner at creation.
	RecipientName    string `json:"recipientName"`
	RecipientDetails string `json:"recipientDetails"` // free text: address, phone, card number...

	// Opaque blob-store handles; never fetched or interpreted here.
	ProofHandle      *string `json:"proofHandle,omitempty"`
	PaymentReference *string `json:"paymentReference,omitempty"`

	// Administrative fields, set by the corresponding transitions.
	ValidatedBy           *string    `json:"validatedBy,omitempty"`
	ValidatedAt           *time.Time `json:"validatedAt,omitempty"`
	RejectionReason       *string    `json:"rejectionReason,omitempty"`
	ProcessingStartedAt   *time.Time `json:"processingStartedAt,omitempty"`
	DeliveredAt           *time.Time `json:"deliveredAt,omitempty"`
	DeliveryProofHandle   *string    `json:"deliveryProofHandle,omitempty"`
	RecipientConfirmation *string    `json:"recipientConfirmation,omitempty"`
	CompletedAt           *time.Time `json:"completedAt,omitempty"`
	CancelledAt           *time.Time `json:"cancelledAt,omitempty"`
	CancellationReason    *string    `json:"cancellationReason,omitempty"`
	CancelledBy           *string    `json:"cancelledBy,omitempty"`

	AuditFields
}
