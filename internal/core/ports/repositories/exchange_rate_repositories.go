package repositories

import (
	"context"

	"github.com/enviopago/envio_backend/internal/core/domain"
)

// ExchangeRateRepositoryFacade defines persistence operations for exchange
// rates.
type ExchangeRateRepositoryFacade interface {
	// SaveExchangeRate persists a new exchange rate.
	SaveExchangeRate(ctx context.Context, rate domain.ExchangeRate) error

	// FindExchangeRateByID retrieves a rate by ID.
	FindExchangeRateByID(ctx context.Context, exchangeRateID string) (*domain.ExchangeRate, error)

	// FindLatestRate retrieves the most recently effective rate for a
	// currency pair.
	FindLatestRate(ctx context.Context, fromCurrencyCode, toCurrencyCode string) (*domain.ExchangeRate, error)
}
