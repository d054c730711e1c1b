package repositories

import (
	"context"

	"github.com/enviopago/envio_backend/internal/core/domain"
)

// TransactionReaderRepository defines read operations for transaction data.
type TransactionReaderRepository interface {
	// FindTransactionByID retrieves a transaction by its ID.
	FindTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error)

	// FindLineItemsByTransactionID retrieves the captured line items of a
	// transaction, including bundle component snapshots.
	FindLineItemsByTransactionID(ctx context.Context, transactionID string) ([]domain.LineItem, error)

	// ListTransactionsByOwner retrieves a cursor-paginated page of an owner's
	// transactions, newest first.
	ListTransactionsByOwner(ctx context.Context, ownerID string, limit int, nextToken *string) ([]domain.Transaction, *string, error)

	// ListTransactions retrieves a cursor-paginated page of all transactions,
	// optionally filtered by status, newest first.
	ListTransactions(ctx context.Context, status *domain.TransactionStatus, limit int, nextToken *string) ([]domain.Transaction, *string, error)

	// MaxReferenceSequence returns the highest reference sequence already
	// claimed for a (prefix, year) pair; zero when none exists.
	MaxReferenceSequence(ctx context.Context, prefix string, year int) (int, error)
}

// TransactionWriterRepository defines the two atomic mutations of the
// lifecycle engine. Each call is all-or-nothing: inventory, audit entry and
// transaction state either all persist or none do.
type TransactionWriterRepository interface {
	// CreateTransaction persists a new transaction, its line items, the
	// initial audit entry, and reserves inventory for every requested catalog
	// item in the same unit. Availability is checked under a per-item lock;
	// a multi-item transaction never partially reserves.
	// Returns apperrors.ErrInsufficientStock when any item cannot be covered,
	// apperrors.ErrDuplicate when the reference number is already claimed.
	CreateTransaction(ctx context.Context, txn domain.Transaction, items []domain.LineItem, entry domain.StatusHistoryEntry) error

	// ApplyTransition persists a status change together with its audit entry
	// and inventory effect. The update is guarded by the expected current
	// status: when a concurrent operation already moved the transaction,
	// apperrors.ErrIllegalTransition is returned and nothing is written.
	// Inventory effects act only on still-RESERVED reservations, making
	// commit and release idempotent.
	ApplyTransition(ctx context.Context, txn domain.Transaction, expected domain.TransactionStatus, entry domain.StatusHistoryEntry, effect domain.InventoryEffect) error
}

// StatusHistoryRepository defines access to the append-only audit trail.
type StatusHistoryRepository interface {
	// FindHistoryByTransactionID returns all audit entries for a transaction,
	// oldest first.
	FindHistoryByTransactionID(ctx context.Context, transactionID string) ([]domain.StatusHistoryEntry, error)
}

// TransactionRepositoryFacade combines all transaction repository interfaces.
type TransactionRepositoryFacade interface {
	TransactionReaderRepository
	TransactionWriterRepository
	StatusHistoryRepository
}
