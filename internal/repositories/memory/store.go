// Package memory provides a mutex-guarded in-memory repository set. It backs
// local development without Postgres and the concurrency tests of the
// lifecycle engine; every facade method holds the shared store lock for its
// whole duration, giving the same all-or-nothing semantics as the pgsql
// adapter's database transactions.
package memory

import (
	"sync"

	"github.com/enviopago/envio_backend/internal/core/domain"
	portsrepo "github.com/enviopago/envio_backend/internal/core/ports/repositories"
)

// Store is the shared in-memory state behind all repository facades.
type Store struct {
	mu sync.Mutex

	transactions      map[string]domain.Transaction
	transactionsByRef map[string]string // reference number -> transaction ID
	lineItems         map[string][]domain.LineItem
	history           map[string][]domain.StatusHistoryEntry
	reservations      map[string]map[string]domain.InventoryReservation // transaction ID -> catalog item ID

	catalogItems map[string]domain.CatalogItem

	users        map[string]domain.User
	usersByEmail map[string]string // email -> user ID

	currencies map[string]domain.Currency
	rates      []domain.ExchangeRate
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		transactions:      make(map[string]domain.Transaction),
		transactionsByRef: make(map[string]string),
		lineItems:         make(map[string][]domain.LineItem),
		history:           make(map[string][]domain.StatusHistoryEntry),
		reservations:      make(map[string]map[string]domain.InventoryReservation),
		catalogItems:      make(map[string]domain.CatalogItem),
		users:             make(map[string]domain.User),
		usersByEmail:      make(map[string]string),
		currencies:        make(map[string]domain.Currency),
	}
}

// NewRepositoryProvider wires the in-memory repository set over one store.
func NewRepositoryProvider() portsrepo.RepositoryProvider {
	store := NewStore()
	return portsrepo.RepositoryProvider{
		TransactionRepo:  &MemTransactionRepository{store: store},
		CatalogRepo:      &MemCatalogRepository{store: store},
		UserRepo:         &MemUserRepository{store: store},
		CurrencyRepo:     &MemCurrencyRepository{store: store},
		ExchangeRateRepo: &MemExchangeRateRepository{store: store},
	}
}
