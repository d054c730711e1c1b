package domain

import "time"

// StatusHistoryEntry is one immutable audit record of a status change.
// Entries are append-only: never updated, never deleted. Entries for one
// transaction are totally ordered by CreatedAt and form a walk of the
// transition graph.
type StatusHistoryEntry struct {
	EntryID        string             `json:"entryID"`                  // Primary Key (UUID)
	TransactionID  string             `json:"transactionID"`            // FK -> transactions.transaction_id
	PreviousStatus *TransactionStatus `json:"previousStatus,omitempty"` // nil for the creation event
	NewStatus      TransactionStatus  `json:"newStatus"`
	ActorID        *string            `json:"actorID,omitempty"` // nil for system-generated transitions
	Reason         *string            `json:"reason,omitempty"`
	CreatedAt      time.Time          `json:"createdAt"`
}
