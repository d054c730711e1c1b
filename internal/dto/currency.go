package dto

import "github.com/enviopago/envio_backend/internal/core/domain"

// CreateCurrencyRequest registers a supported currency.
type CreateCurrencyRequest struct {
	CurrencyCode string `json:"currencyCode" binding:"required,len=3,uppercase"`
	Symbol       string `json:"symbol" binding:"required"`
	Name         string `json:"name" binding:"required"`
}

// CurrencyResponse is the returned shape of a currency.
type CurrencyResponse struct {
	CurrencyCode string `json:"currencyCode"`
	Symbol       string `json:"symbol"`
	Name         string `json:"name"`
}

// ToCurrencyResponse converts a domain.Currency to its response DTO.
func ToCurrencyResponse(c *domain.Currency) CurrencyResponse {
	return CurrencyResponse{
		CurrencyCode: c.CurrencyCode,
		Symbol:       c.Symbol,
		Name:         c.Name,
	}
}

// ToCurrencyResponses converts a slice of currencies.
func ToCurrencyResponses(currencies []domain.Currency) []CurrencyResponse {
	out := make([]CurrencyResponse, len(currencies))
	for i := range currencies {
		out[i] = ToCurrencyResponse(&currencies[i])
	}
	return out
}
