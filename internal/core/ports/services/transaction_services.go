package services

import (
	"context"

	"github.com/enviopago/envio_backend/internal/core/domain"
	"github.com/enviopago/envio_backend/internal/dto"
)

// TransactionReaderSvc defines read operations on the transaction lifecycle.
type TransactionReaderSvc interface {
	// GetTransactionByID retrieves a transaction with its line items. Owners
	// see their own transactions; managers and admins see all.
	GetTransactionByID(ctx context.Context, transactionID string, requestingUserID string) (*dto.TransactionResponse, error)

	// ListTransactions retrieves a cursor-paginated page. Customers are
	// scoped to their own transactions.
	ListTransactions(ctx context.Context, requestingUserID string, params dto.ListTransactionsParams) (*dto.ListTransactionsResponse, error)

	// History returns the full audit trail of a transaction, oldest first.
	History(ctx context.Context, transactionID string, requestingUserID string) ([]dto.StatusHistoryEntryResponse, error)
}

// TransactionLifecycleSvc defines the state machine operations. Every call
// consults the access control gate first and runs its side effects (inventory
// ledger, pricing snapshot, audit append, state persist) as one atomic unit.
type TransactionLifecycleSvc interface {
	// CreateTransaction validates availability and bounds, captures the
	// monetary snapshot, reserves inventory, assigns a reference number and
	// writes the initial audit entry.
	CreateTransaction(ctx context.Context, req dto.CreateTransactionRequest, creatorUserID string) (*dto.TransactionResponse, error)

	// SubmitProof attaches a proof-of-payment handle. Legal from CREATED and
	// REJECTED only.
	SubmitProof(ctx context.Context, transactionID string, req dto.SubmitProofRequest, actorID string) (*dto.TransactionResponse, error)

	// Validate confirms the payment proof, converting the inventory
	// reservation into a permanent deduction. Legal from PROOF_SUBMITTED.
	Validate(ctx context.Context, transactionID string, actorID string) (*dto.TransactionResponse, error)

	// Reject declines the payment proof with a mandatory reason and releases
	// the reservation. Legal from PROOF_SUBMITTED.
	Reject(ctx context.Context, transactionID string, req dto.RejectRequest, actorID string) (*dto.TransactionResponse, error)

	// StartProcessing marks fulfilment as begun. Legal from VALIDATED.
	StartProcessing(ctx context.Context, transactionID string, actorID string) (*dto.TransactionResponse, error)

	// MarkDelivered records delivery with its proof handle. Legal from
	// PROCESSING.
	MarkDelivered(ctx context.Context, transactionID string, req dto.MarkDeliveredRequest, actorID string) (*dto.TransactionResponse, error)

	// Complete closes the transaction. Legal from DELIVERED.
	Complete(ctx context.Context, transactionID string, actorID string) (*dto.TransactionResponse, error)

	// Cancel aborts the transaction from any non-terminal state, releasing
	// any still-outstanding reservation.
	Cancel(ctx context.Context, transactionID string, req dto.CancelRequest, actorID string) (*dto.TransactionResponse, error)
}

// TransactionSvcFacade combines all transaction service interfaces.
type TransactionSvcFacade interface {
	TransactionReaderSvc
	TransactionLifecycleSvc
}

// RateResolverSvc supplies the pre-resolved exchange rate captured into the
// monetary snapshot at creation. The lifecycle engine never fetches rates
// from external providers itself.
type RateResolverSvc interface {
	ResolveRate(ctx context.Context, fromCurrencyCode, toCurrencyCode string) (*domain.ExchangeRate, error)
}
