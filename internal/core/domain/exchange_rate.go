package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExchangeRate is a conversion rate between two currencies, effective from a
// given date. The lifecycle engine captures the resolved rate value into the
// transaction snapshot at creation; it never re-reads rates afterwards.
type ExchangeRate struct {
	ExchangeRateID   string          `json:"exchangeRateID"` // Primary Key (UUID)
	FromCurrencyCode string          `json:"fromCurrencyCode"`
	ToCurrencyCode   string          `json:"toCurrencyCode"`
	Rate             decimal.Decimal `json:"rate"`
	DateEffective    time.Time       `json:"dateEffective"`
	AuditFields
}
