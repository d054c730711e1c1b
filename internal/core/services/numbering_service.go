package services

import (
	"context"
	"fmt"

	"github.com/enviopago/envio_backend/internal/core/domain"
	portsrepo "github.com/enviopago/envio_backend/internal/core/ports/repositories"
)

// numberingService generates human-readable reference numbers of the form
// {PREFIX}-{YYYY}-{NNNN}. The counter is scoped to (prefix, year), so counters
// reset implicitly at year boundaries; the year is part of the uniqueness key.
//
// Next proposes a candidate; the claim itself happens when the transaction is
// persisted under the reference number's unique constraint. The caller retries
// a bounded number of times on collision.
type numberingService struct {
	txnRepo portsrepo.TransactionReaderRepository
}

func newNumberingService(txnRepo portsrepo.TransactionReaderRepository) *numberingService {
	return &numberingService{txnRepo: txnRepo}
}

// FormatReference renders a reference number from its parts.
func FormatReference(prefix string, year int, sequence int) string {
	return fmt.Sprintf("%s-%04d-%04d", prefix, year, sequence)
}

// Next returns the next candidate reference number for (type, year): the
// current max sequence plus one. Two concurrent creators may receive the same
// candidate; exactly one wins the unique-constraint claim and the other
// re-reads on retry.
func (s *numberingService) Next(ctx context.Context, txnType domain.TransactionType, year int) (string, error) {
	prefix := txnType.ReferencePrefix()
	max, err := s.txnRepo.MaxReferenceSequence(ctx, prefix, year)
	if err != nil {
		return "", fmt.Errorf("failed to read reference counter for %s-%d: %w", prefix, year, err)
	}
	return FormatReference(prefix, year, max+1), nil
}
