package services

import (
	"context"

	"github.com/enviopago/envio_backend/internal/core/domain"
	"github.com/enviopago/envio_backend/internal/dto"
)

// CurrencySvcFacade defines operations for managing currencies.
type CurrencySvcFacade interface {
	// CreateCurrency registers a supported currency. Admin only.
	CreateCurrency(ctx context.Context, req dto.CreateCurrencyRequest, creatorUserID string) (*domain.Currency, error)

	// GetCurrencyByCode retrieves a currency by code.
	GetCurrencyByCode(ctx context.Context, currencyCode string) (*domain.Currency, error)

	// ListCurrencies retrieves all registered currencies.
	ListCurrencies(ctx context.Context) ([]domain.Currency, error)
}

// ExchangeRateSvcFacade defines operations for managing exchange rates.
type ExchangeRateSvcFacade interface {
	RateResolverSvc

	// CreateExchangeRate records a new conversion rate. Admin only.
	CreateExchangeRate(ctx context.Context, req dto.CreateExchangeRateRequest, creatorUserID string) (*domain.ExchangeRate, error)

	// GetExchangeRateByID retrieves a rate by ID.
	GetExchangeRateByID(ctx context.Context, exchangeRateID string) (*domain.ExchangeRate, error)
}
