package services

import (
	"context"
	"fmt"
	"time"

	"github.com/enviopago/envio_backend/internal/apperrors"
	"github.com/enviopago/envio_backend/internal/core/domain"
	portsrepo "github.com/enviopago/envio_backend/internal/core/ports/repositories"
	"github.com/google/uuid"
)

// auditRecorder builds and reads the append-only status history. Entries are
// written by the transaction repository inside the same atomic unit as the
// status change itself; the recorder's job is to construct them and, as a
// defense-in-depth check, to refuse any entry whose (previous, new) pair is
// absent from the transition graph. Legality of the transition is the state
// machine's responsibility; the recorder just fails loudly on corruption.
type auditRecorder struct {
	historyRepo portsrepo.StatusHistoryRepository
}

func newAuditRecorder(historyRepo portsrepo.StatusHistoryRepository) *auditRecorder {
	return &auditRecorder{historyRepo: historyRepo}
}

// NewEntry constructs one immutable audit record for a status change.
// A nil previous status denotes the creation event.
func (r *auditRecorder) NewEntry(transactionID string, previous *domain.TransactionStatus, next domain.TransactionStatus, actorID *string, reason *string, at time.Time) (domain.StatusHistoryEntry, error) {
	if !domain.ValidStatusPair(previous, next) {
		prev := "<nil>"
		if previous != nil {
			prev = string(*previous)
		}
		return domain.StatusHistoryEntry{}, fmt.Errorf("%w: audit entry %s -> %s is not in the transition graph", apperrors.ErrIllegalTransition, prev, next)
	}
	return domain.StatusHistoryEntry{
		EntryID:        uuid.NewString(),
		TransactionID:  transactionID,
		PreviousStatus: previous,
		NewStatus:      next,
		ActorID:        actorID,
		Reason:         reason,
		CreatedAt:      at,
	}, nil
}

// History returns the audit trail of a transaction, oldest first.
func (r *auditRecorder) History(ctx context.Context, transactionID string) ([]domain.StatusHistoryEntry, error) {
	return r.historyRepo.FindHistoryByTransactionID(ctx, transactionID)
}
