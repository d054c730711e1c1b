package services

import (
	portsrepo "github.com/enviopago/envio_backend/internal/core/ports/repositories"
	portssvc "github.com/enviopago/envio_backend/internal/core/ports/services"
	"github.com/enviopago/envio_backend/internal/platform/config"
	"github.com/enviopago/envio_backend/internal/platform/events"
)

// NewServiceContainer wires every service over the supplied repositories.
// The repository provider decides the backing store; the services do not care.
func NewServiceContainer(repos portsrepo.RepositoryProvider, publisher events.Publisher, cfg *config.Config) *portssvc.ServiceContainer {
	userSvc := NewUserService(repos.UserRepo)
	catalogSvc := NewCatalogService(repos.CatalogRepo, repos.CurrencyRepo, userSvc)
	currencySvc := NewCurrencyService(repos.CurrencyRepo, userSvc)
	rateSvc := NewExchangeRateService(repos.ExchangeRateRepo, repos.CurrencyRepo, userSvc)
	transactionSvc := NewTransactionService(repos.TransactionRepo, catalogSvc, userSvc, rateSvc, publisher, cfg)
	tokenSvc := NewTokenService(userSvc, cfg)

	return &portssvc.ServiceContainer{
		Transaction:  transactionSvc,
		Catalog:      catalogSvc,
		Currency:     currencySvc,
		ExchangeRate: rateSvc,
		User:         userSvc,
		Token:        tokenSvc,
	}
}
