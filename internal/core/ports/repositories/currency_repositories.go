package repositories

import (
	"context"

	"github.com/enviopago/envio_backend/internal/core/domain"
)

// CurrencyRepositoryFacade defines persistence operations for currencies.
type CurrencyRepositoryFacade interface {
	// SaveCurrency persists a new currency.
	SaveCurrency(ctx context.Context, currency domain.Currency) error

	// FindCurrencyByCode retrieves a currency by its code.
	FindCurrencyByCode(ctx context.Context, currencyCode string) (*domain.Currency, error)

	// ListCurrencies retrieves all registered currencies.
	ListCurrencies(ctx context.Context) ([]domain.Currency, error)
}
