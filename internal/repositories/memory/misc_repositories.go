package memory

import (
	"context"
	"sort"
	"time"

	"github.com/enviopago/envio_backend/internal/apperrors"
	"github.com/enviopago/envio_backend/internal/core/domain"
	portsrepo "github.com/enviopago/envio_backend/internal/core/ports/repositories"
)

// MemUserRepository is the in-memory user adapter.
type MemUserRepository struct {
	store *Store
}

var _ portsrepo.UserRepositoryFacade = (*MemUserRepository)(nil)

func (r *MemUserRepository) SaveUser(_ context.Context, user domain.User) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[user.UserID]; exists {
		return apperrors.ErrDuplicate
	}
	if _, exists := s.usersByEmail[user.Email]; exists {
		return apperrors.ErrDuplicate
	}
	s.users[user.UserID] = user
	s.usersByEmail[user.Email] = user.UserID
	return nil
}

func (r *MemUserRepository) FindUserByID(_ context.Context, userID string) (*domain.User, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok || user.DeletedAt != nil {
		return nil, apperrors.ErrNotFound
	}
	return &user, nil
}

func (r *MemUserRepository) FindUserByEmail(_ context.Context, email string) (*domain.User, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	userID, ok := s.usersByEmail[email]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	user := s.users[userID]
	if user.DeletedAt != nil {
		return nil, apperrors.ErrNotFound
	}
	return &user, nil
}

func (r *MemUserRepository) ListUsers(_ context.Context, limit int, offset int) ([]domain.User, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 20
	}

	all := make([]domain.User, 0, len(s.users))
	for _, user := range s.users {
		if user.DeletedAt == nil {
			all = append(all, user)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.Before(all[j].CreatedAt)
		}
		return all[i].UserID < all[j].UserID
	})

	if offset >= len(all) {
		return []domain.User{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return append([]domain.User(nil), all[offset:end]...), nil
}

func (r *MemUserRepository) UpdateUser(_ context.Context, user domain.User) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.users[user.UserID]
	if !ok || current.DeletedAt != nil {
		return apperrors.ErrNotFound
	}
	current.Name = user.Name
	current.LastUpdatedAt = user.LastUpdatedAt
	current.LastUpdatedBy = user.LastUpdatedBy
	s.users[user.UserID] = current
	return nil
}

func (r *MemUserRepository) DeleteUser(_ context.Context, userID string, deletedBy string) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok || user.DeletedAt != nil {
		return apperrors.ErrNotFound
	}
	now := time.Now().UTC()
	user.DeletedAt = &now
	user.LastUpdatedAt = now
	user.LastUpdatedBy = deletedBy
	s.users[userID] = user
	return nil
}

// MemCurrencyRepository is the in-memory currency adapter.
type MemCurrencyRepository struct {
	store *Store
}

var _ portsrepo.CurrencyRepositoryFacade = (*MemCurrencyRepository)(nil)

func (r *MemCurrencyRepository) SaveCurrency(_ context.Context, currency domain.Currency) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.currencies[currency.CurrencyCode]; exists {
		return apperrors.ErrDuplicate
	}
	s.currencies[currency.CurrencyCode] = currency
	return nil
}

func (r *MemCurrencyRepository) FindCurrencyByCode(_ context.Context, currencyCode string) (*domain.Currency, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	currency, ok := s.currencies[currencyCode]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &currency, nil
}

func (r *MemCurrencyRepository) ListCurrencies(_ context.Context) ([]domain.Currency, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	all := make([]domain.Currency, 0, len(s.currencies))
	for _, currency := range s.currencies {
		all = append(all, currency)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CurrencyCode < all[j].CurrencyCode })
	return all, nil
}

// MemExchangeRateRepository is the in-memory exchange rate adapter.
type MemExchangeRateRepository struct {
	store *Store
}

var _ portsrepo.ExchangeRateRepositoryFacade = (*MemExchangeRateRepository)(nil)

func (r *MemExchangeRateRepository) SaveExchangeRate(_ context.Context, rate domain.ExchangeRate) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rates = append(s.rates, rate)
	return nil
}

func (r *MemExchangeRateRepository) FindExchangeRateByID(_ context.Context, exchangeRateID string) (*domain.ExchangeRate, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rate := range s.rates {
		if rate.ExchangeRateID == exchangeRateID {
			return &rate, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *MemExchangeRateRepository) FindLatestRate(_ context.Context, fromCurrencyCode, toCurrencyCode string) (*domain.ExchangeRate, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var latest *domain.ExchangeRate
	for i := range s.rates {
		rate := s.rates[i]
		if rate.FromCurrencyCode != fromCurrencyCode || rate.ToCurrencyCode != toCurrencyCode {
			continue
		}
		if latest == nil ||
			rate.DateEffective.After(latest.DateEffective) ||
			(rate.DateEffective.Equal(latest.DateEffective) && rate.CreatedAt.After(latest.CreatedAt)) {
			copied := rate
			latest = &copied
		}
	}
	if latest == nil {
		return nil, apperrors.ErrNotFound
	}
	return latest, nil
}
