package pgsql

import (
	portsrepo "github.com/enviopago/envio_backend/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewRepositoryProvider wires the Postgres-backed repository set.
func NewRepositoryProvider(dbPool *pgxpool.Pool) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		TransactionRepo:  newPgxTransactionRepository(dbPool),
		CatalogRepo:      newPgxCatalogRepository(dbPool),
		UserRepo:         newPgxUserRepository(dbPool),
		CurrencyRepo:     newPgxCurrencyRepository(dbPool),
		ExchangeRateRepo: newPgxExchangeRateRepository(dbPool),
	}
}
