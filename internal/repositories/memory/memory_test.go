package memory_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/enviopago/envio_backend/internal/apperrors"
	"github.com/enviopago/envio_backend/internal/core/domain"
	portsrepo "github.com/enviopago/envio_backend/internal/core/ports/repositories"
	portssvc "github.com/enviopago/envio_backend/internal/core/ports/services"
	"github.com/enviopago/envio_backend/internal/core/services"
	"github.com/enviopago/envio_backend/internal/dto"
	"github.com/enviopago/envio_backend/internal/platform/config"
	"github.com/enviopago/envio_backend/internal/repositories/memory"
)

// testEnv drives the real service stack over the in-memory repositories, so
// the lifecycle invariants are exercised end to end without Postgres.
type testEnv struct {
	repos    portsrepo.RepositoryProvider
	svc      *portssvc.ServiceContainer
	admin    domain.User
	manager  domain.User
	customer domain.User
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := &config.Config{
		BaseCurrency:         "USD",
		OrderBounds:          config.AmountBounds{Min: decimal.NewFromInt(1), Max: decimal.NewFromInt(5000)},
		RemittanceBounds:     config.AmountBounds{Min: decimal.NewFromInt(5), Max: decimal.NewFromInt(2000)},
		OrderCommission:      config.CommissionScheme{Pct: decimal.RequireFromString("2.5"), Fixed: decimal.Zero},
		RemittanceCommission: config.CommissionScheme{Pct: decimal.RequireFromString("3.0"), Fixed: decimal.Zero},
		ReferenceMaxAttempts: 50,
	}

	repos := memory.NewRepositoryProvider()
	env := &testEnv{
		repos: repos,
		svc:   services.NewServiceContainer(repos, nil, cfg),
	}

	env.admin = env.seedUser(t, domain.RoleAdmin)
	env.manager = env.seedUser(t, domain.RoleManager)
	env.customer = env.seedUser(t, domain.RoleCustomer)

	ctx := context.Background()
	for _, code := range []string{"USD", "VES"} {
		require.NoError(t, repos.CurrencyRepo.SaveCurrency(ctx, domain.Currency{
			CurrencyCode: code,
			Name:         code,
			Symbol:       code,
			AuditFields:  auditBy(env.admin.UserID),
		}))
	}
	require.NoError(t, repos.ExchangeRateRepo.SaveExchangeRate(ctx, domain.ExchangeRate{
		ExchangeRateID:   uuid.NewString(),
		FromCurrencyCode: "USD",
		ToCurrencyCode:   "VES",
		Rate:             decimal.NewFromInt(320),
		DateEffective:    time.Now().UTC().Add(-time.Hour),
		AuditFields:      auditBy(env.admin.UserID),
	}))
	return env
}

func auditBy(userID string) domain.AuditFields {
	now := time.Now().UTC()
	return domain.AuditFields{CreatedAt: now, CreatedBy: userID, LastUpdatedAt: now, LastUpdatedBy: userID}
}

func (e *testEnv) seedUser(t *testing.T, role domain.UserRole) domain.User {
	t.Helper()
	user := domain.User{
		UserID:       uuid.NewString(),
		Name:         string(role),
		Email:        uuid.NewString() + "@example.test",
		PasswordHash: "x",
		Role:         role,
		AuditFields:  auditBy("seed"),
	}
	require.NoError(t, e.repos.UserRepo.SaveUser(context.Background(), user))
	return user
}

func (e *testEnv) seedProduct(t *testing.T, stock int64, unitPrice string) domain.CatalogItem {
	t.Helper()
	item := domain.CatalogItem{
		CatalogItemID: uuid.NewString(),
		Name:          "Widget",
		Type:          domain.ItemProduct,
		UnitPrice:     decimal.RequireFromString(unitPrice),
		CurrencyCode:  "USD",
		Stock:         stock,
		IsActive:      true,
		AuditFields:   auditBy(e.admin.UserID),
	}
	require.NoError(t, e.repos.CatalogRepo.SaveCatalogItem(context.Background(), item))
	return item
}

func orderRequest(itemID string, qty int64) dto.CreateTransactionRequest {
	return dto.CreateTransactionRequest{
		Type:                domain.TypeOrder,
		LineItems:           []dto.LineItemRequest{{CatalogItemID: itemID, Quantity: qty}},
		DestinationCurrency: "VES",
		RecipientName:       "Maria Perez",
		RecipientDetails:    "Caracas",
	}
}

func remittanceRequest(amount string) dto.CreateTransactionRequest {
	base := decimal.RequireFromString(amount)
	return dto.CreateTransactionRequest{
		Type:                domain.TypeRemittance,
		BaseAmount:          &base,
		DestinationCurrency: "VES",
		RecipientName:       "Maria Perez",
		RecipientDetails:    "Caracas",
	}
}

func TestConcurrentOrders_NeverOversell(t *testing.T) {
	env := newTestEnv(t)
	item := env.seedProduct(t, 10, "4.00")
	ctx := context.Background()

	const attempts = 30
	results := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.svc.Transaction.CreateTransaction(ctx, orderRequest(item.CatalogItemID, 1), env.customer.UserID)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded, shortfalls := 0, 0
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, apperrors.ErrInsufficientStock):
			shortfalls++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require.Equal(t, 10, succeeded)
	require.Equal(t, attempts-10, shortfalls)

	after, err := env.repos.CatalogRepo.FindCatalogItemByID(ctx, item.CatalogItemID)
	require.NoError(t, err)
	require.EqualValues(t, 10, after.Stock)
	require.EqualValues(t, 10, after.Reserved)
	require.EqualValues(t, 0, after.Available())
}

func TestConcurrentCreates_UniqueReferences(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	const n = 8
	type result struct {
		ref string
		err error
	}
	results := make(chan result, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := env.svc.Transaction.CreateTransaction(ctx, remittanceRequest("100.00"), env.customer.UserID)
			if err != nil {
				results <- result{err: err}
				return
			}
			results <- result{ref: resp.ReferenceNumber}
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[string]bool, n)
	for res := range results {
		require.NoError(t, res.err)
		require.False(t, seen[res.ref], "duplicate reference %s", res.ref)
		seen[res.ref] = true
	}
	require.Len(t, seen, n)

	year := time.Now().UTC().Year()
	for seq := 1; seq <= n; seq++ {
		require.Contains(t, seen, services.FormatReference("REM", year, seq))
	}
}

func TestConcurrentValidate_CommitsOnce(t *testing.T) {
	env := newTestEnv(t)
	item := env.seedProduct(t, 10, "4.00")
	ctx := context.Background()

	created, err := env.svc.Transaction.CreateTransaction(ctx, orderRequest(item.CatalogItemID, 2), env.customer.UserID)
	require.NoError(t, err)
	_, err = env.svc.Transaction.SubmitProof(ctx, created.TransactionID,
		dto.SubmitProofRequest{ProofHandle: "blob://proof/1"}, env.customer.UserID)
	require.NoError(t, err)

	actors := []string{env.admin.UserID, env.manager.UserID}
	results := make(chan error, len(actors))
	var wg sync.WaitGroup
	for _, actorID := range actors {
		wg.Add(1)
		go func(actorID string) {
			defer wg.Done()
			_, err := env.svc.Transaction.Validate(ctx, created.TransactionID, actorID)
			results <- err
		}(actorID)
	}
	wg.Wait()
	close(results)

	succeeded, conflicts := 0, 0
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, apperrors.ErrIllegalTransition):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require.Equal(t, 1, succeeded)
	require.Equal(t, 1, conflicts)

	// The deduction happened exactly once.
	after, err := env.repos.CatalogRepo.FindCatalogItemByID(ctx, item.CatalogItemID)
	require.NoError(t, err)
	require.EqualValues(t, 8, after.Stock)
	require.EqualValues(t, 0, after.Reserved)
}

func TestReject_ReturnsStockToAvailability(t *testing.T) {
	env := newTestEnv(t)
	item := env.seedProduct(t, 5, "4.00")
	ctx := context.Background()

	created, err := env.svc.Transaction.CreateTransaction(ctx, orderRequest(item.CatalogItemID, 3), env.customer.UserID)
	require.NoError(t, err)
	_, err = env.svc.Transaction.SubmitProof(ctx, created.TransactionID,
		dto.SubmitProofRequest{ProofHandle: "blob://proof/1"}, env.customer.UserID)
	require.NoError(t, err)
	_, err = env.svc.Transaction.Reject(ctx, created.TransactionID,
		dto.RejectRequest{Reason: "proof illegible"}, env.manager.UserID)
	require.NoError(t, err)

	after, err := env.repos.CatalogRepo.FindCatalogItemByID(ctx, item.CatalogItemID)
	require.NoError(t, err)
	require.EqualValues(t, 5, after.Stock)
	require.EqualValues(t, 0, after.Reserved)
	require.EqualValues(t, 5, after.Available())
}

func TestFullLifecycle_AuditTrailOrdered(t *testing.T) {
	env := newTestEnv(t)
	item := env.seedProduct(t, 5, "4.00")
	ctx := context.Background()

	created, err := env.svc.Transaction.CreateTransaction(ctx, orderRequest(item.CatalogItemID, 1), env.customer.UserID)
	require.NoError(t, err)
	id := created.TransactionID

	_, err = env.svc.Transaction.SubmitProof(ctx, id, dto.SubmitProofRequest{ProofHandle: "blob://proof/1"}, env.customer.UserID)
	require.NoError(t, err)
	_, err = env.svc.Transaction.Validate(ctx, id, env.manager.UserID)
	require.NoError(t, err)
	_, err = env.svc.Transaction.StartProcessing(ctx, id, env.admin.UserID)
	require.NoError(t, err)
	_, err = env.svc.Transaction.MarkDelivered(ctx, id, dto.MarkDeliveredRequest{DeliveryProofHandle: "blob://delivery/1"}, env.admin.UserID)
	require.NoError(t, err)
	_, err = env.svc.Transaction.Complete(ctx, id, env.admin.UserID)
	require.NoError(t, err)

	trail, err := env.svc.Transaction.History(ctx, id, env.admin.UserID)
	require.NoError(t, err)
	require.Len(t, trail, 6)

	wantStatuses := []domain.TransactionStatus{
		domain.StatusCreated,
		domain.StatusProofSubmitted,
		domain.StatusValidated,
		domain.StatusProcessing,
		domain.StatusDelivered,
		domain.StatusCompleted,
	}
	require.Nil(t, trail[0].PreviousStatus)
	for i, entry := range trail {
		require.Equal(t, wantStatuses[i], entry.NewStatus)
		if i > 0 {
			require.NotNil(t, entry.PreviousStatus)
			require.Equal(t, wantStatuses[i-1], *entry.PreviousStatus)
		}
	}
}

func TestAdjustStock_RejectsDropBelowReserved(t *testing.T) {
	env := newTestEnv(t)
	item := env.seedProduct(t, 10, "4.00")
	ctx := context.Background()

	_, err := env.svc.Transaction.CreateTransaction(ctx, orderRequest(item.CatalogItemID, 6), env.customer.UserID)
	require.NoError(t, err)

	// 10 on hand, 6 reserved. Removing 5 would leave 5 < 6 reserved.
	err = env.repos.CatalogRepo.AdjustStock(ctx, item.CatalogItemID, -5, env.admin.UserID)
	require.ErrorIs(t, err, apperrors.ErrConflict)

	require.NoError(t, env.repos.CatalogRepo.AdjustStock(ctx, item.CatalogItemID, -4, env.admin.UserID))
	after, err := env.repos.CatalogRepo.FindCatalogItemByID(ctx, item.CatalogItemID)
	require.NoError(t, err)
	require.EqualValues(t, 6, after.Stock)
}

func TestListTransactions_PaginatesWithCursor(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := env.svc.Transaction.CreateTransaction(ctx, remittanceRequest("50.00"), env.customer.UserID)
		require.NoError(t, err)
	}

	page1, err := env.svc.Transaction.ListTransactions(ctx, env.admin.UserID, dto.ListTransactionsParams{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page1.Transactions, 2)
	require.NotNil(t, page1.NextToken)

	page2, err := env.svc.Transaction.ListTransactions(ctx, env.admin.UserID,
		dto.ListTransactionsParams{Limit: 2, NextToken: page1.NextToken})
	require.NoError(t, err)
	require.Len(t, page2.Transactions, 2)
	require.NotNil(t, page2.NextToken)

	page3, err := env.svc.Transaction.ListTransactions(ctx, env.admin.UserID,
		dto.ListTransactionsParams{Limit: 2, NextToken: page2.NextToken})
	require.NoError(t, err)
	require.Len(t, page3.Transactions, 1)
	require.Nil(t, page3.NextToken)

	seen := make(map[string]bool)
	for _, page := range [][]dto.TransactionResponse{page1.Transactions, page2.Transactions, page3.Transactions} {
		for _, txn := range page {
			require.False(t, seen[txn.TransactionID], "transaction repeated across pages")
			seen[txn.TransactionID] = true
		}
	}
	require.Len(t, seen, 5)
}

func TestCancelAfterRelease_LeavesLedgerUntouched(t *testing.T) {
	env := newTestEnv(t)
	item := env.seedProduct(t, 5, "4.00")
	ctx := context.Background()

	created, err := env.svc.Transaction.CreateTransaction(ctx, orderRequest(item.CatalogItemID, 2), env.customer.UserID)
	require.NoError(t, err)
	_, err = env.svc.Transaction.SubmitProof(ctx, created.TransactionID,
		dto.SubmitProofRequest{ProofHandle: "blob://proof/1"}, env.customer.UserID)
	require.NoError(t, err)
	_, err = env.svc.Transaction.Reject(ctx, created.TransactionID,
		dto.RejectRequest{Reason: "wrong amount"}, env.manager.UserID)
	require.NoError(t, err)

	// The rejection already released the hold. The owner cancels afterwards;
	// the second release must be a no-op.
	_, err = env.svc.Transaction.Cancel(ctx, created.TransactionID,
		dto.CancelRequest{Reason: "giving up"}, env.customer.UserID)
	require.NoError(t, err)

	after, err := env.repos.CatalogRepo.FindCatalogItemByID(ctx, item.CatalogItemID)
	require.NoError(t, err)
	require.EqualValues(t, 5, after.Stock)
	require.EqualValues(t, 0, after.Reserved)
}
