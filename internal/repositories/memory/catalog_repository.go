package memory

import (
	"context"
	"sort"
	"time"

	"github.com/enviopago/envio_backend/internal/apperrors"
	"github.com/enviopago/envio_backend/internal/core/domain"
	portsrepo "github.com/enviopago/envio_backend/internal/core/ports/repositories"
	"github.com/enviopago/envio_backend/internal/utils/pagination"
)

// MemCatalogRepository is the in-memory catalog adapter.
type MemCatalogRepository struct {
	store *Store
}

var _ portsrepo.CatalogRepositoryFacade = (*MemCatalogRepository)(nil)

func (r *MemCatalogRepository) SaveCatalogItem(_ context.Context, item domain.CatalogItem) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.catalogItems[item.CatalogItemID]; exists {
		return apperrors.ErrDuplicate
	}
	item.Components = append([]domain.BundleComponent(nil), item.Components...)
	s.catalogItems[item.CatalogItemID] = item
	return nil
}

func (r *MemCatalogRepository) FindCatalogItemByID(_ context.Context, catalogItemID string) (*domain.CatalogItem, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.catalogItems[catalogItemID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	item.Components = append([]domain.BundleComponent(nil), item.Components...)
	return &item, nil
}

func (r *MemCatalogRepository) FindCatalogItemsByIDs(_ context.Context, catalogItemIDs []string) (map[string]domain.CatalogItem, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	found := make(map[string]domain.CatalogItem, len(catalogItemIDs))
	for _, id := range catalogItemIDs {
		if item, ok := s.catalogItems[id]; ok {
			item.Components = append([]domain.BundleComponent(nil), item.Components...)
			found[id] = item
		}
	}
	return found, nil
}

func (r *MemCatalogRepository) ListCatalogItems(_ context.Context, limit int, nextToken *string) ([]domain.CatalogItem, *string, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 20
	}

	all := make([]domain.CatalogItem, 0, len(s.catalogItems))
	for _, item := range s.catalogItems {
		all = append(all, item)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].CatalogItemID > all[j].CatalogItemID
	})

	start := 0
	if nextToken != nil && *nextToken != "" {
		lastCreatedAt, lastID, err := pagination.DecodeToken(*nextToken)
		if err != nil {
			return nil, nil, apperrors.NewAppError(400, "invalid nextToken", err)
		}
		for i, item := range all {
			if item.CreatedAt.Before(lastCreatedAt) ||
				(item.CreatedAt.Equal(lastCreatedAt) && item.CatalogItemID < lastID) {
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
		token := pagination.EncodeToken(last.CreatedAt, last.CatalogItemID)
		next = &token
	} else {
		end = len(all)
	}

	page := make([]domain.CatalogItem, 0, end-start)
	for _, item := range all[start:end] {
		item.Components = append([]domain.BundleComponent(nil), item.Components...)
		page = append(page, item)
	}
	return page, next, nil
}

// AdjustStock applies a signed delta; the result must still cover outstanding
// reservations.
func (r *MemCatalogRepository) AdjustStock(_ context.Context, catalogItemID string, delta int64, updatedBy string) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.catalogItems[catalogItemID]
	if !ok {
		return apperrors.ErrNotFound
	}
	newStock := item.Stock + delta
	if newStock < 0 || newStock < item.Reserved {
		return apperrors.ErrConflict
	}
	item.Stock = newStock
	item.LastUpdatedAt = time.Now().UTC()
	item.LastUpdatedBy = updatedBy
	s.catalogItems[catalogItemID] = item
	return nil
}
