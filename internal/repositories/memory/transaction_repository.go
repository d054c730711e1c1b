package memory

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/enviopago/envio_backend/internal/apperrors"
	"github.com/enviopago/envio_backend/internal/core/domain"
	portsrepo "github.com/enviopago/envio_backend/internal/core/ports/repositories"
	"github.com/enviopago/envio_backend/internal/utils/pagination"
)

// MemTransactionRepository is the in-memory transaction adapter.
type MemTransactionRepository struct {
	store *Store
}

var _ portsrepo.TransactionRepositoryFacade = (*MemTransactionRepository)(nil)

// CreateTransaction implements the atomic creation unit: reference claim,
// inventory reservation, line items and initial audit entry succeed or fail
// together under the store lock.
func (r *MemTransactionRepository) CreateTransaction(_ context.Context, txn domain.Transaction, items []domain.LineItem, entry domain.StatusHistoryEntry) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.transactionsByRef[txn.ReferenceNumber]; exists {
		return apperrors.ErrDuplicate
	}
	if _, exists := s.transactions[txn.TransactionID]; exists {
		return apperrors.ErrDuplicate
	}

	// Check the full reservation before touching any counter so a shortfall
	// on the last item leaves the first untouched.
	quantities := make(map[string]int64)
	for _, li := range items {
		for itemID, qty := range li.ReservationQuantities() {
			quantities[itemID] += qty
		}
	}
	for itemID, qty := range quantities {
		item, ok := s.catalogItems[itemID]
		if !ok {
			return fmt.Errorf("%w: catalog item %s", apperrors.ErrNotFound, itemID)
		}
		if item.Available() < qty {
			return fmt.Errorf("%w: catalog item %s has %d available, %d requested",
				apperrors.ErrInsufficientStock, itemID, item.Available(), qty)
		}
	}

	for itemID, qty := range quantities {
		item := s.catalogItems[itemID]
		item.Reserved += qty
		s.catalogItems[itemID] = item
	}
	if len(quantities) > 0 {
		held := make(map[string]domain.InventoryReservation, len(quantities))
		for itemID, qty := range quantities {
			held[itemID] = domain.InventoryReservation{
				TransactionID: txn.TransactionID,
				CatalogItemID: itemID,
				Quantity:      qty,
				Status:        domain.ReservationReserved,
			}
		}
		s.reservations[txn.TransactionID] = held
	}

	s.transactions[txn.TransactionID] = txn
	s.transactionsByRef[txn.ReferenceNumber] = txn.TransactionID
	s.lineItems[txn.TransactionID] = append([]domain.LineItem(nil), items...)
	s.history[txn.TransactionID] = append(s.history[txn.TransactionID], entry)
	return nil
}

// ApplyTransition implements the guarded atomic status change.
func (r *MemTransactionRepository) ApplyTransition(_ context.Context, txn domain.Transaction, expected domain.TransactionStatus, entry domain.StatusHistoryEntry, effect domain.InventoryEffect) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.transactions[txn.TransactionID]
	if !ok {
		return apperrors.ErrNotFound
	}
	if current.Status != expected {
		return fmt.Errorf("%w: transaction %s is no longer %s", apperrors.ErrIllegalTransition, txn.TransactionID, expected)
	}

	switch effect {
	case domain.EffectNone:
	case domain.EffectCommit, domain.EffectRelease:
		// Only still-RESERVED holds are touched, making the effect idempotent.
		for itemID, res := range s.reservations[txn.TransactionID] {
			if res.Status != domain.ReservationReserved {
				continue
			}
			item := s.catalogItems[itemID]
			item.Reserved -= res.Quantity
			if effect == domain.EffectCommit {
				item.Stock -= res.Quantity
				res.Status = domain.ReservationCommitted
			} else {
				res.Status = domain.ReservationReleased
			}
			s.catalogItems[itemID] = item
			s.reservations[txn.TransactionID][itemID] = res
		}
	default:
		return fmt.Errorf("unknown inventory effect %q", effect)
	}

	s.transactions[txn.TransactionID] = txn
	s.history[txn.TransactionID] = append(s.history[txn.TransactionID], entry)
	return nil
}

func (r *MemTransactionRepository) FindTransactionByID(_ context.Context, transactionID string) (*domain.Transaction, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	txn, ok := s.transactions[transactionID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &txn, nil
}

func (r *MemTransactionRepository) FindLineItemsByTransactionID(_ context.Context, transactionID string) ([]domain.LineItem, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]domain.LineItem(nil), s.lineItems[transactionID]...), nil
}

// list applies the shared cursor pagination over a filtered snapshot.
func (r *MemTransactionRepository) list(filter func(domain.Transaction) bool, limit int, nextToken *string) ([]domain.Transaction, *string, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 20
	}

	all := make([]domain.Transaction, 0, len(s.transactions))
	for _, txn := range s.transactions {
		if filter(txn) {
			all = append(all, txn)
		}
	}
	// Newest first; transaction ID breaks timestamp ties.
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].TransactionID > all[j].TransactionID
	})

	start := 0
	if nextToken != nil && *nextToken != "" {
		lastCreatedAt, lastID, err := pagination.DecodeToken(*nextToken)
		if err != nil {
			return nil, nil, apperrors.NewAppError(400, "invalid nextToken", err)
		}
		for i, txn := range all {
			if txn.CreatedAt.Before(lastCreatedAt) ||
				(txn.CreatedAt.Equal(lastCreatedAt) && txn.TransactionID < lastID) {
				start = i
				break
			}
			start = len(all)
		}
	}

	end := start + limit
	var next *string
	if end < len(all) {
		last := all[end-1]
		token := pagination.EncodeToken(last.CreatedAt, last.TransactionID)
		next = &token
	} else {
		end = len(all)
	}
	return append([]domain.Transaction(nil), all[start:end]...), next, nil
}

func (r *MemTransactionRepository) ListTransactionsByOwner(_ context.Context, ownerID string, limit int, nextToken *string) ([]domain.Transaction, *string, error) {
	return r.list(func(t domain.Transaction) bool { return t.OwnerID == ownerID }, limit, nextToken)
}

func (r *MemTransactionRepository) ListTransactions(_ context.Context, status *domain.TransactionStatus, limit int, nextToken *string) ([]domain.Transaction, *string, error) {
	return r.list(func(t domain.Transaction) bool {
		return status == nil || t.Status == *status
	}, limit, nextToken)
}

func (r *MemTransactionRepository) MaxReferenceSequence(_ context.Context, prefix string, year int) (int, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	want := fmt.Sprintf("%s-%04d-", prefix, year)
	max := 0
	for ref := range s.transactionsByRef {
		if !strings.HasPrefix(ref, want) {
			continue
		}
		seq, err := strconv.Atoi(ref[len(want):])
		if err != nil {
			continue
		}
		if seq > max {
			max = seq
		}
	}
	return max, nil
}

func (r *MemTransactionRepository) FindHistoryByTransactionID(_ context.Context, transactionID string) ([]domain.StatusHistoryEntry, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]domain.StatusHistoryEntry(nil), s.history[transactionID]...), nil
}
