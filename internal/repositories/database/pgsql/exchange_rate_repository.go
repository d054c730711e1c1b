package pgsql

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/enviopago/envio_backend/internal/apperrors"
	"github.com/enviopago/envio_backend/internal/core/domain"
	portsrepo "github.com/enviopago/envio_backend/internal/core/ports/repositories"
	"github.com/enviopago/envio_backend/internal/models"
	"github.com/enviopago/envio_backend/internal/utils/mapping"
)

type PgxExchangeRateRepository struct {
	db *pgxpool.Pool
}

func newPgxExchangeRateRepository(db *pgxpool.Pool) portsrepo.ExchangeRateRepositoryFacade {
	return &PgxExchangeRateRepository{db: db}
}

var _ portsrepo.ExchangeRateRepositoryFacade = (*PgxExchangeRateRepository)(nil)

const exchangeRateColumns = `exchange_rate_id, from_currency_code, to_currency_code, rate, date_effective, created_at, created_by, last_updated_at, last_updated_by`

func scanExchangeRate(row rowScanner) (models.ExchangeRate, error) {
	var m models.ExchangeRate
	err := row.Scan(
		&m.ExchangeRateID, &m.FromCurrencyCode, &m.ToCurrencyCode, &m.Rate, &m.DateEffective,
		&m.CreatedAt, &m.CreatedBy, &m.LastUpdatedAt, &m.LastUpdatedBy,
	)
	return m, err
}

func (r *PgxExchangeRateRepository) SaveExchangeRate(ctx context.Context, rate domain.ExchangeRate) error {
	m := mapping.ToModelExchangeRate(rate)
	query := `
		INSERT INTO exchange_rates (` + exchangeRateColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
	`
	_, err := r.db.Exec(ctx, query,
		m.ExchangeRateID, m.FromCurrencyCode, m.ToCurrencyCode, m.Rate, m.DateEffective,
		m.CreatedAt, m.CreatedBy, m.LastUpdatedAt, m.LastUpdatedBy,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to save exchange rate "+m.ExchangeRateID, err)
	}
	return nil
}

func (r *PgxExchangeRateRepository) FindExchangeRateByID(ctx context.Context, exchangeRateID string) (*domain.ExchangeRate, error) {
	query := `SELECT ` + exchangeRateColumns + ` FROM exchange_rates WHERE exchange_rate_id = $1;`
	m, err := scanExchangeRate(r.db.QueryRow(ctx, query, exchangeRateID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find exchange rate "+exchangeRateID, err)
	}
	d := mapping.ToDomainExchangeRate(m)
	return &d, nil
}

// FindLatestRate retrieves the most recently effective rate for a pair.
func (r *PgxExchangeRateRepository) FindLatestRate(ctx context.Context, fromCurrencyCode, toCurrencyCode string) (*domain.ExchangeRate, error) {
	query := `
		SELECT ` + exchangeRateColumns + `
		FROM exchange_rates
		WHERE from_currency_code = $1 AND to_currency_code = $2
		ORDER BY date_effective DESC, created_at DESC
		LIMIT 1;
	`
	m, err := scanExchangeRate(r.db.QueryRow(ctx, query, fromCurrencyCode, toCurrencyCode))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find latest rate "+fromCurrencyCode+"/"+toCurrencyCode, err)
	}
	d := mapping.ToDomainExchangeRate(m)
	return &d, nil
}
