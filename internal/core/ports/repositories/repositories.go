package repositories

// RepositoryProvider bundles every repository implementation handed to the
// service container. Both the pgsql and the memory adapter sets satisfy it.
type RepositoryProvider struct {
	TransactionRepo  TransactionRepositoryFacade
	CatalogRepo      CatalogRepositoryFacade
	UserRepo         UserRepositoryFacade
	CurrencyRepo     CurrencyRepositoryFacade
	ExchangeRateRepo ExchangeRateRepositoryFacade
}
