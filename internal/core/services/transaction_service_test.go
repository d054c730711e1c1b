package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/enviopago/envio_backend/internal/apperrors"
	"github.com/enviopago/envio_backend/internal/core/domain"
	portsrepo "github.com/enviopago/envio_backend/internal/core/ports/repositories"
	portssvc "github.com/enviopago/envio_backend/internal/core/ports/services"
	"github.com/enviopago/envio_backend/internal/core/services"
	"github.com/enviopago/envio_backend/internal/dto"
	"github.com/enviopago/envio_backend/internal/platform/config"
)

// --- Mock TransactionRepository ---
type MockTransactionRepository struct {
	mock.Mock
}

var _ portsrepo.TransactionRepositoryFacade = (*MockTransactionRepository)(nil)

func (m *MockTransactionRepository) FindTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) FindLineItemsByTransactionID(ctx context.Context, transactionID string) ([]domain.LineItem, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.LineItem), args.Error(1)
}

func (m *MockTransactionRepository) ListTransactionsByOwner(ctx context.Context, ownerID string, limit int, nextToken *string) ([]domain.Transaction, *string, error) {
	args := m.Called(ctx, ownerID, limit, nextToken)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	var returnedNextToken *string
	if args.Get(1) != nil {
		tokenVal := args.Get(1).(string)
		returnedNextToken = &tokenVal
	}
	return args.Get(0).([]domain.Transaction), returnedNextToken, args.Error(2)
}

func (m *MockTransactionRepository) ListTransactions(ctx context.Context, status *domain.TransactionStatus, limit int, nextToken *string) ([]domain.Transaction, *string, error) {
	args := m.Called(ctx, status, limit, nextToken)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	var returnedNextToken *string
	if args.Get(1) != nil {
		tokenVal := args.Get(1).(string)
		returnedNextToken = &tokenVal
	}
	return args.Get(0).([]domain.Transaction), returnedNextToken, args.Error(2)
}

func (m *MockTransactionRepository) MaxReferenceSequence(ctx context.Context, prefix string, year int) (int, error) {
	args := m.Called(ctx, prefix, year)
	return args.Int(0), args.Error(1)
}

func (m *MockTransactionRepository) CreateTransaction(ctx context.Context, txn domain.Transaction, items []domain.LineItem, entry domain.StatusHistoryEntry) error {
	args := m.Called(ctx, txn, items, entry)
	return args.Error(0)
}

func (m *MockTransactionRepository) ApplyTransition(ctx context.Context, txn domain.Transaction, expected domain.TransactionStatus, entry domain.StatusHistoryEntry, effect domain.InventoryEffect) error {
	args := m.Called(ctx, txn, expected, entry, effect)
	return args.Error(0)
}

func (m *MockTransactionRepository) FindHistoryByTransactionID(ctx context.Context, transactionID string) ([]domain.StatusHistoryEntry, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.StatusHistoryEntry), args.Error(1)
}

// --- Mock CatalogReaderSvc ---
type MockCatalogReader struct {
	mock.Mock
}

var _ portssvc.CatalogReaderSvc = (*MockCatalogReader)(nil)

func (m *MockCatalogReader) GetCatalogItemByID(ctx context.Context, catalogItemID string) (*domain.CatalogItem, error) {
	args := m.Called(ctx, catalogItemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CatalogItem), args.Error(1)
}

func (m *MockCatalogReader) GetCatalogItemsByIDs(ctx context.Context, catalogItemIDs []string) (map[string]domain.CatalogItem, error) {
	args := m.Called(ctx, catalogItemIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]domain.CatalogItem), args.Error(1)
}

func (m *MockCatalogReader) ListCatalogItems(ctx context.Context, limit int, nextToken *string) ([]dto.CatalogItemResponse, *string, error) {
	args := m.Called(ctx, limit, nextToken)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).([]dto.CatalogItemResponse), nil, args.Error(2)
}

// --- Mock UserReaderSvc ---
type MockUserReader struct {
	mock.Mock
}

var _ portssvc.UserReaderSvc = (*MockUserReader)(nil)

func (m *MockUserReader) GetUserByID(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserReader) ListUsers(ctx context.Context, limit int, offset int) ([]domain.User, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.User), args.Error(1)
}

// --- Mock RateResolverSvc ---
type MockRateResolver struct {
	mock.Mock
}

var _ portssvc.RateResolverSvc = (*MockRateResolver)(nil)

func (m *MockRateResolver) ResolveRate(ctx context.Context, fromCurrencyCode, toCurrencyCode string) (*domain.ExchangeRate, error) {
	args := m.Called(ctx, fromCurrencyCode, toCurrencyCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExchangeRate), args.Error(1)
}

// --- Test Suite Setup ---
type TransactionServiceTestSuite struct {
	suite.Suite
	mockTxnRepo    *MockTransactionRepository
	mockCatalogSvc *MockCatalogReader
	mockUserSvc    *MockUserReader
	mockRateSvc    *MockRateResolver
	cfg            *config.Config
	service        portssvc.TransactionSvcFacade

	customer domain.User
	manager  domain.User
	admin    domain.User
	product  domain.CatalogItem
}

func (suite *TransactionServiceTestSuite) SetupTest() {
	suite.mockTxnRepo = new(MockTransactionRepository)
	suite.mockCatalogSvc = new(MockCatalogReader)
	suite.mockUserSvc = new(MockUserReader)
	suite.mockRateSvc = new(MockRateResolver)
	suite.cfg = &config.Config{
		BaseCurrency:         "USD",
		OrderBounds:          config.AmountBounds{Min: decimal.NewFromInt(1), Max: decimal.NewFromInt(5000)},
		RemittanceBounds:     config.AmountBounds{Min: decimal.NewFromInt(5), Max: decimal.NewFromInt(2000)},
		OrderCommission:      config.CommissionScheme{Pct: decimal.RequireFromString("2.5"), Fixed: decimal.Zero},
		RemittanceCommission: config.CommissionScheme{Pct: decimal.RequireFromString("3.0"), Fixed: decimal.Zero},
		ReferenceMaxAttempts: 3,
	}
	suite.service = services.NewTransactionService(suite.mockTxnRepo, suite.mockCatalogSvc, suite.mockUserSvc, suite.mockRateSvc, nil, suite.cfg)

	suite.customer = domain.User{UserID: uuid.NewString(), Role: domain.RoleCustomer}
	suite.manager = domain.User{UserID: uuid.NewString(), Role: domain.RoleManager}
	suite.admin = domain.User{UserID: uuid.NewString(), Role: domain.RoleAdmin}
	suite.product = domain.CatalogItem{
		CatalogItemID: uuid.NewString(),
		Name:          "Rice 5kg",
		Type:          domain.ItemProduct,
		UnitPrice:     decimal.NewFromInt(50),
		CurrencyCode:  "USD",
		Stock:         100,
		IsActive:      true,
	}
}

func (suite *TransactionServiceTestSuite) expectUser(user domain.User) {
	u := user
	suite.mockUserSvc.On("GetUserByID", mock.Anything, user.UserID).Return(&u, nil)
}

func (suite *TransactionServiceTestSuite) usdRate(rate string) *domain.ExchangeRate {
	return &domain.ExchangeRate{
		ExchangeRateID:   uuid.NewString(),
		FromCurrencyCode: "USD",
		ToCurrencyCode:   "VES",
		Rate:             decimal.RequireFromString(rate),
		DateEffective:    time.Now(),
	}
}

func (suite *TransactionServiceTestSuite) proofSubmittedTxn(owner string) *domain.Transaction {
	return &domain.Transaction{
		TransactionID:       uuid.NewString(),
		ReferenceNumber:     "ORD-2026-0001",
		OwnerID:             owner,
		Type:                domain.TypeOrder,
		Status:              domain.StatusProofSubmitted,
		BaseAmount:          decimal.NewFromInt(100),
		BaseCurrency:        "USD",
		ExchangeRate:        decimal.NewFromInt(320),
		CommissionPct:       decimal.RequireFromString("2.5"),
		CommissionTotal:     decimal.RequireFromString("2.50"),
		DeliverableAmount:   decimal.RequireFromString("31200.00"),
		DestinationCurrency: "VES",
	}
}

// --- CreateTransaction ---

func (suite *TransactionServiceTestSuite) TestCreateOrder_Success() {
	ctx := context.Background()
	suite.expectUser(suite.customer)
	suite.mockCatalogSvc.On("GetCatalogItemsByIDs", ctx, []string{suite.product.CatalogItemID}).
		Return(map[string]domain.CatalogItem{suite.product.CatalogItemID: suite.product}, nil).Once()
	suite.mockRateSvc.On("ResolveRate", ctx, "USD", "VES").Return(suite.usdRate("320"), nil).Once()
	suite.mockTxnRepo.On("MaxReferenceSequence", ctx, "ORD", time.Now().UTC().Year()).Return(0, nil).Once()

	var savedTxn domain.Transaction
	var savedEntry domain.StatusHistoryEntry
	suite.mockTxnRepo.On("CreateTransaction", ctx, mock.AnythingOfType("domain.Transaction"), mock.AnythingOfType("[]domain.LineItem"), mock.AnythingOfType("domain.StatusHistoryEntry")).
		Run(func(args mock.Arguments) {
			savedTxn = args.Get(1).(domain.Transaction)
			savedEntry = args.Get(3).(domain.StatusHistoryEntry)
		}).Return(nil).Once()

	resp, err := suite.service.CreateTransaction(ctx, dto.CreateTransactionRequest{
		Type:                domain.TypeOrder,
		LineItems:           []dto.LineItemRequest{{CatalogItemID: suite.product.CatalogItemID, Quantity: 2}},
		DestinationCurrency: "VES",
		RecipientName:       "Maria Perez",
		RecipientDetails:    "Av. Principal 123, Caracas",
	}, suite.customer.UserID)

	suite.Require().NoError(err)
	suite.Require().NotNil(resp)
	suite.Equal(domain.StatusCreated, resp.Status)
	suite.Equal(services.FormatReference("ORD", time.Now().UTC().Year(), 1), resp.ReferenceNumber)
	// 2 x 50 = 100; commission 2.5% = 2.50; (100 - 2.50) * 320 = 31200.00
	suite.True(resp.BaseAmount.Equal(decimal.NewFromInt(100)), "base amount %s", resp.BaseAmount)
	suite.True(resp.CommissionTotal.Equal(decimal.RequireFromString("2.50")), "commission %s", resp.CommissionTotal)
	suite.True(resp.DeliverableAmount.Equal(decimal.RequireFromString("31200.00")), "deliverable %s", resp.DeliverableAmount)
	suite.Len(resp.LineItems, 1)
	suite.True(resp.LineItems[0].UnitPriceSnapshot.Equal(decimal.NewFromInt(50)))

	// Initial audit entry: nil previous status, actor is the creator.
	suite.Nil(savedEntry.PreviousStatus)
	suite.Equal(domain.StatusCreated, savedEntry.NewStatus)
	suite.Require().NotNil(savedEntry.ActorID)
	suite.Equal(suite.customer.UserID, *savedEntry.ActorID)
	suite.Equal(savedTxn.TransactionID, savedEntry.TransactionID)

	suite.mockTxnRepo.AssertExpectations(suite.T())
	suite.mockCatalogSvc.AssertExpectations(suite.T())
}

func (suite *TransactionServiceTestSuite) TestCreateRemittance_Success() {
	ctx := context.Background()
	suite.expectUser(suite.customer)
	suite.mockRateSvc.On("ResolveRate", ctx, "USD", "VES").Return(suite.usdRate("350"), nil).Once()
	suite.mockTxnRepo.On("MaxReferenceSequence", ctx, "REM", time.Now().UTC().Year()).Return(41, nil).Once()
	suite.mockTxnRepo.On("CreateTransaction", ctx, mock.AnythingOfType("domain.Transaction"), mock.AnythingOfType("[]domain.LineItem"), mock.AnythingOfType("domain.StatusHistoryEntry")).
		Return(nil).Once()

	base := decimal.NewFromInt(50)
	resp, err := suite.service.CreateTransaction(ctx, dto.CreateTransactionRequest{
		Type:                domain.TypeRemittance,
		BaseAmount:          &base,
		DestinationCurrency: "VES",
		RecipientName:       "Jose Gomez",
		RecipientDetails:    "0412-5551234",
	}, suite.customer.UserID)

	suite.Require().NoError(err)
	suite.Equal(services.FormatReference("REM", time.Now().UTC().Year(), 42), resp.ReferenceNumber)
	// 3% of 50 = 1.50; (50 - 1.50) * 350 = 16975.00
	suite.True(resp.CommissionTotal.Equal(decimal.RequireFromString("1.50")), "commission %s", resp.CommissionTotal)
	suite.True(resp.DeliverableAmount.Equal(decimal.RequireFromString("16975.00")), "deliverable %s", resp.DeliverableAmount)
	suite.mockTxnRepo.AssertExpectations(suite.T())
}

func (suite *TransactionServiceTestSuite) TestCreateOrder_InsufficientStock() {
	ctx := context.Background()
	suite.expectUser(suite.customer)
	suite.mockCatalogSvc.On("GetCatalogItemsByIDs", ctx, []string{suite.product.CatalogItemID}).
		Return(map[string]domain.CatalogItem{suite.product.CatalogItemID: suite.product}, nil).Once()
	suite.mockRateSvc.On("ResolveRate", ctx, "USD", "VES").Return(suite.usdRate("320"), nil).Once()
	suite.mockTxnRepo.On("MaxReferenceSequence", ctx, "ORD", time.Now().UTC().Year()).Return(0, nil).Once()
	suite.mockTxnRepo.On("CreateTransaction", ctx, mock.Anything, mock.Anything, mock.Anything).
		Return(apperrors.ErrInsufficientStock).Once()

	_, err := suite.service.CreateTransaction(ctx, dto.CreateTransactionRequest{
		Type:                domain.TypeOrder,
		LineItems:           []dto.LineItemRequest{{CatalogItemID: suite.product.CatalogItemID, Quantity: 2}},
		DestinationCurrency: "VES",
		RecipientName:       "Maria Perez",
		RecipientDetails:    "Av. Principal 123",
	}, suite.customer.UserID)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrInsufficientStock)
	// No retry on stock failure.
	suite.mockTxnRepo.AssertNumberOfCalls(suite.T(), "CreateTransaction", 1)
}

func (suite *TransactionServiceTestSuite) TestCreateRemittance_BelowMinimum() {
	ctx := context.Background()
	suite.expectUser(suite.customer)

	base := decimal.RequireFromString("4.99")
	_, err := suite.service.CreateTransaction(ctx, dto.CreateTransactionRequest{
		Type:                domain.TypeRemittance,
		BaseAmount:          &base,
		DestinationCurrency: "VES",
		RecipientName:       "Jose Gomez",
		RecipientDetails:    "0412-5551234",
	}, suite.customer.UserID)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrInvalidAmount)
	suite.mockTxnRepo.AssertNotCalled(suite.T(), "CreateTransaction", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *TransactionServiceTestSuite) TestCreateOrder_LineItemsRequired() {
	ctx := context.Background()
	suite.expectUser(suite.customer)

	_, err := suite.service.CreateTransaction(ctx, dto.CreateTransactionRequest{
		Type:                domain.TypeOrder,
		DestinationCurrency: "VES",
		RecipientName:       "Maria Perez",
		RecipientDetails:    "Av. Principal 123",
	}, suite.customer.UserID)

	suite.Require().Error(err)
	suite.ErrorIs(err, services.ErrLineItemsRequired)
}

func (suite *TransactionServiceTestSuite) TestCreate_ReferenceCollisionRetries() {
	ctx := context.Background()
	suite.expectUser(suite.customer)
	suite.mockRateSvc.On("ResolveRate", ctx, "USD", "VES").Return(suite.usdRate("350"), nil).Once()
	year := time.Now().UTC().Year()
	// First candidate loses the claim to a concurrent creator; the re-read
	// yields the next sequence and succeeds.
	suite.mockTxnRepo.On("MaxReferenceSequence", ctx, "REM", year).Return(7, nil).Once()
	suite.mockTxnRepo.On("MaxReferenceSequence", ctx, "REM", year).Return(8, nil).Once()
	suite.mockTxnRepo.On("CreateTransaction", ctx, mock.Anything, mock.Anything, mock.Anything).
		Return(apperrors.ErrDuplicate).Once()
	var savedTxn domain.Transaction
	suite.mockTxnRepo.On("CreateTransaction", ctx, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { savedTxn = args.Get(1).(domain.Transaction) }).
		Return(nil).Once()

	base := decimal.NewFromInt(100)
	resp, err := suite.service.CreateTransaction(ctx, dto.CreateTransactionRequest{
		Type:                domain.TypeRemittance,
		BaseAmount:          &base,
		DestinationCurrency: "VES",
		RecipientName:       "Jose Gomez",
		RecipientDetails:    "0412-5551234",
	}, suite.customer.UserID)

	suite.Require().NoError(err)
	suite.Equal(services.FormatReference("REM", year, 9), resp.ReferenceNumber)
	suite.Equal(resp.ReferenceNumber, savedTxn.ReferenceNumber)
	suite.mockTxnRepo.AssertExpectations(suite.T())
}

func (suite *TransactionServiceTestSuite) TestCreate_NumberingExhausted() {
	ctx := context.Background()
	suite.expectUser(suite.customer)
	suite.mockRateSvc.On("ResolveRate", ctx, "USD", "VES").Return(suite.usdRate("350"), nil).Once()
	suite.mockTxnRepo.On("MaxReferenceSequence", ctx, "REM", time.Now().UTC().Year()).Return(7, nil).Times(3)
	suite.mockTxnRepo.On("CreateTransaction", ctx, mock.Anything, mock.Anything, mock.Anything).
		Return(apperrors.ErrDuplicate).Times(3)

	base := decimal.NewFromInt(100)
	_, err := suite.service.CreateTransaction(ctx, dto.CreateTransactionRequest{
		Type:                domain.TypeRemittance,
		BaseAmount:          &base,
		DestinationCurrency: "VES",
		RecipientName:       "Jose Gomez",
		RecipientDetails:    "0412-5551234",
	}, suite.customer.UserID)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrNumberGenerationExhausted)
	suite.mockTxnRepo.AssertNumberOfCalls(suite.T(), "CreateTransaction", 3)
}

// --- Transitions ---

func (suite *TransactionServiceTestSuite) TestValidate_ManagerCommitsInventory() {
	ctx := context.Background()
	txn := suite.proofSubmittedTxn(suite.customer.UserID)
	suite.expectUser(suite.manager)
	suite.mockTxnRepo.On("FindTransactionByID", ctx, txn.TransactionID).Return(txn, nil).Once()

	var savedTxn domain.Transaction
	var savedEntry domain.StatusHistoryEntry
	suite.mockTxnRepo.On("ApplyTransition", ctx, mock.AnythingOfType("domain.Transaction"), domain.StatusProofSubmitted, mock.AnythingOfType("domain.StatusHistoryEntry"), domain.EffectCommit).
		Run(func(args mock.Arguments) {
			savedTxn = args.Get(1).(domain.Transaction)
			savedEntry = args.Get(3).(domain.StatusHistoryEntry)
		}).Return(nil).Once()

	resp, err := suite.service.Validate(ctx, txn.TransactionID, suite.manager.UserID)

	suite.Require().NoError(err)
	suite.Equal(domain.StatusValidated, resp.Status)
	suite.Require().NotNil(savedTxn.ValidatedBy)
	suite.Equal(suite.manager.UserID, *savedTxn.ValidatedBy)
	suite.NotNil(savedTxn.ValidatedAt)
	suite.Require().NotNil(savedEntry.PreviousStatus)
	suite.Equal(domain.StatusProofSubmitted, *savedEntry.PreviousStatus)
	suite.Equal(domain.StatusValidated, savedEntry.NewStatus)
	suite.mockTxnRepo.AssertExpectations(suite.T())
}

func (suite *TransactionServiceTestSuite) TestValidate_CustomerForbidden() {
	ctx := context.Background()
	txn := suite.proofSubmittedTxn(suite.customer.UserID)
	suite.expectUser(suite.customer)
	suite.mockTxnRepo.On("FindTransactionByID", ctx, txn.TransactionID).Return(txn, nil).Once()

	_, err := suite.service.Validate(ctx, txn.TransactionID, suite.customer.UserID)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrForbidden)
	suite.mockTxnRepo.AssertNotCalled(suite.T(), "ApplyTransition", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *TransactionServiceTestSuite) TestValidate_FromCreatedIsIllegal() {
	ctx := context.Background()
	txn := suite.proofSubmittedTxn(suite.customer.UserID)
	txn.Status = domain.StatusCreated
	suite.expectUser(suite.admin)
	suite.mockTxnRepo.On("FindTransactionByID", ctx, txn.TransactionID).Return(txn, nil).Once()

	_, err := suite.service.Validate(ctx, txn.TransactionID, suite.admin.UserID)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrIllegalTransition)
	suite.mockTxnRepo.AssertNotCalled(suite.T(), "ApplyTransition", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *TransactionServiceTestSuite) TestReject_RequiresReason() {
	ctx := context.Background()
	_, err := suite.service.Reject(ctx, uuid.NewString(), dto.RejectRequest{Reason: "   "}, suite.manager.UserID)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.mockTxnRepo.AssertNotCalled(suite.T(), "FindTransactionByID", mock.Anything, mock.Anything)
}

func (suite *TransactionServiceTestSuite) TestReject_ReleasesReservation() {
	ctx := context.Background()
	txn := suite.proofSubmittedTxn(suite.customer.UserID)
	suite.expectUser(suite.manager)
	suite.mockTxnRepo.On("FindTransactionByID", ctx, txn.TransactionID).Return(txn, nil).Once()

	var savedTxn domain.Transaction
	var savedEntry domain.StatusHistoryEntry
	suite.mockTxnRepo.On("ApplyTransition", ctx, mock.AnythingOfType("domain.Transaction"), domain.StatusProofSubmitted, mock.AnythingOfType("domain.StatusHistoryEntry"), domain.EffectRelease).
		Run(func(args mock.Arguments) {
			savedTxn = args.Get(1).(domain.Transaction)
			savedEntry = args.Get(3).(domain.StatusHistoryEntry)
		}).Return(nil).Once()

	resp, err := suite.service.Reject(ctx, txn.TransactionID, dto.RejectRequest{Reason: "proof unreadable"}, suite.manager.UserID)

	suite.Require().NoError(err)
	suite.Equal(domain.StatusRejected, resp.Status)
	suite.Require().NotNil(savedTxn.RejectionReason)
	suite.Equal("proof unreadable", *savedTxn.RejectionReason)
	suite.Require().NotNil(savedEntry.Reason)
	suite.Equal("proof unreadable", *savedEntry.Reason)
	suite.mockTxnRepo.AssertExpectations(suite.T())
}

func (suite *TransactionServiceTestSuite) TestSubmitProof_AfterRejection_PreservesSnapshot() {
	ctx := context.Background()
	txn := suite.proofSubmittedTxn(suite.customer.UserID)
	txn.Status = domain.StatusRejected
	reason := "blurry photo"
	txn.RejectionReason = &reason
	originalDeliverable := txn.DeliverableAmount

	suite.expectUser(suite.customer)
	suite.mockTxnRepo.On("FindTransactionByID", ctx, txn.TransactionID).Return(txn, nil).Once()

	var savedTxn domain.Transaction
	suite.mockTxnRepo.On("ApplyTransition", ctx, mock.AnythingOfType("domain.Transaction"), domain.StatusRejected, mock.AnythingOfType("domain.StatusHistoryEntry"), domain.EffectNone).
		Run(func(args mock.Arguments) { savedTxn = args.Get(1).(domain.Transaction) }).
		Return(nil).Once()

	resp, err := suite.service.SubmitProof(ctx, txn.TransactionID, dto.SubmitProofRequest{ProofHandle: "blob://proofs/retry.jpg"}, suite.customer.UserID)

	suite.Require().NoError(err)
	suite.Equal(domain.StatusProofSubmitted, resp.Status)
	// The monetary snapshot survives the resubmission untouched.
	suite.True(savedTxn.DeliverableAmount.Equal(originalDeliverable))
	suite.True(savedTxn.ExchangeRate.Equal(txn.ExchangeRate))
	suite.Require().NotNil(savedTxn.ProofHandle)
	suite.Equal("blob://proofs/retry.jpg", *savedTxn.ProofHandle)
	suite.mockTxnRepo.AssertExpectations(suite.T())
}

func (suite *TransactionServiceTestSuite) TestCancel_OwnerEarlyStage() {
	ctx := context.Background()
	txn := suite.proofSubmittedTxn(suite.customer.UserID)
	txn.Status = domain.StatusCreated
	suite.expectUser(suite.customer)
	suite.mockTxnRepo.On("FindTransactionByID", ctx, txn.TransactionID).Return(txn, nil).Once()
	suite.mockTxnRepo.On("ApplyTransition", ctx, mock.AnythingOfType("domain.Transaction"), domain.StatusCreated, mock.AnythingOfType("domain.StatusHistoryEntry"), domain.EffectRelease).
		Return(nil).Once()

	resp, err := suite.service.Cancel(ctx, txn.TransactionID, dto.CancelRequest{Reason: "changed my mind"}, suite.customer.UserID)

	suite.Require().NoError(err)
	suite.Equal(domain.StatusCancelled, resp.Status)
	suite.mockTxnRepo.AssertExpectations(suite.T())
}

func (suite *TransactionServiceTestSuite) TestCancel_OwnerAfterValidationForbidden() {
	ctx := context.Background()
	txn := suite.proofSubmittedTxn(suite.customer.UserID)
	txn.Status = domain.StatusValidated
	suite.expectUser(suite.customer)
	suite.mockTxnRepo.On("FindTransactionByID", ctx, txn.TransactionID).Return(txn, nil).Once()

	_, err := suite.service.Cancel(ctx, txn.TransactionID, dto.CancelRequest{Reason: "too slow"}, suite.customer.UserID)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrForbidden)
}

func (suite *TransactionServiceTestSuite) TestCancel_TerminalIsIllegal() {
	ctx := context.Background()
	txn := suite.proofSubmittedTxn(suite.customer.UserID)
	txn.Status = domain.StatusCompleted
	suite.expectUser(suite.admin)
	suite.mockTxnRepo.On("FindTransactionByID", ctx, txn.TransactionID).Return(txn, nil).Once()

	_, err := suite.service.Cancel(ctx, txn.TransactionID, dto.CancelRequest{Reason: "cleanup"}, suite.admin.UserID)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrIllegalTransition)
}

func (suite *TransactionServiceTestSuite) TestTransition_LostRaceSurfacesConflict() {
	ctx := context.Background()
	txn := suite.proofSubmittedTxn(suite.customer.UserID)
	suite.expectUser(suite.admin)
	suite.mockTxnRepo.On("FindTransactionByID", ctx, txn.TransactionID).Return(txn, nil).Once()
	suite.mockTxnRepo.On("ApplyTransition", ctx, mock.Anything, domain.StatusProofSubmitted, mock.Anything, domain.EffectCommit).
		Return(apperrors.ErrIllegalTransition).Once()

	_, err := suite.service.Validate(ctx, txn.TransactionID, suite.admin.UserID)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrIllegalTransition)
}

func (suite *TransactionServiceTestSuite) TestFulfilmentChain_AdminOnly() {
	ctx := context.Background()
	suite.expectUser(suite.admin)

	txn := suite.proofSubmittedTxn(suite.customer.UserID)
	txn.Status = domain.StatusValidated
	suite.mockTxnRepo.On("FindTransactionByID", ctx, txn.TransactionID).Return(txn, nil).Once()
	suite.mockTxnRepo.On("ApplyTransition", ctx, mock.Anything, domain.StatusValidated, mock.Anything, domain.EffectNone).Return(nil).Once()

	resp, err := suite.service.StartProcessing(ctx, txn.TransactionID, suite.admin.UserID)
	suite.Require().NoError(err)
	suite.Equal(domain.StatusProcessing, resp.Status)

	txn2 := suite.proofSubmittedTxn(suite.customer.UserID)
	txn2.Status = domain.StatusProcessing
	suite.mockTxnRepo.On("FindTransactionByID", ctx, txn2.TransactionID).Return(txn2, nil).Once()
	suite.mockTxnRepo.On("ApplyTransition", ctx, mock.Anything, domain.StatusProcessing, mock.Anything, domain.EffectNone).Return(nil).Once()

	resp, err = suite.service.MarkDelivered(ctx, txn2.TransactionID, dto.MarkDeliveredRequest{DeliveryProofHandle: "blob://deliveries/1.jpg"}, suite.admin.UserID)
	suite.Require().NoError(err)
	suite.Equal(domain.StatusDelivered, resp.Status)

	txn3 := suite.proofSubmittedTxn(suite.customer.UserID)
	txn3.Status = domain.StatusDelivered
	suite.mockTxnRepo.On("FindTransactionByID", ctx, txn3.TransactionID).Return(txn3, nil).Once()
	suite.mockTxnRepo.On("ApplyTransition", ctx, mock.Anything, domain.StatusDelivered, mock.Anything, domain.EffectNone).Return(nil).Once()

	resp, err = suite.service.Complete(ctx, txn3.TransactionID, suite.admin.UserID)
	suite.Require().NoError(err)
	suite.Equal(domain.StatusCompleted, resp.Status)
	suite.mockTxnRepo.AssertExpectations(suite.T())
}

// --- Reads ---

func (suite *TransactionServiceTestSuite) TestGetTransaction_NonOwnerSeesNotFound() {
	ctx := context.Background()
	other := domain.User{UserID: uuid.NewString(), Role: domain.RoleCustomer}
	txn := suite.proofSubmittedTxn(suite.customer.UserID)
	suite.expectUser(other)
	suite.mockTxnRepo.On("FindTransactionByID", ctx, txn.TransactionID).Return(txn, nil).Once()

	_, err := suite.service.GetTransactionByID(ctx, txn.TransactionID, other.UserID)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrNotFound)
}

func (suite *TransactionServiceTestSuite) TestListTransactions_CustomerScopedToOwn() {
	ctx := context.Background()
	suite.expectUser(suite.customer)
	txns := []domain.Transaction{*suite.proofSubmittedTxn(suite.customer.UserID)}
	suite.mockTxnRepo.On("ListTransactionsByOwner", ctx, suite.customer.UserID, 20, (*string)(nil)).
		Return(txns, nil, nil).Once()

	resp, err := suite.service.ListTransactions(ctx, suite.customer.UserID, dto.ListTransactionsParams{})

	suite.Require().NoError(err)
	suite.Len(resp.Transactions, 1)
	suite.mockTxnRepo.AssertNotCalled(suite.T(), "ListTransactions", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *TransactionServiceTestSuite) TestListTransactions_ManagerSeesAll() {
	ctx := context.Background()
	suite.expectUser(suite.manager)
	status := string(domain.StatusProofSubmitted)
	wantStatus := domain.StatusProofSubmitted
	txns := []domain.Transaction{*suite.proofSubmittedTxn(suite.customer.UserID)}
	suite.mockTxnRepo.On("ListTransactions", ctx, &wantStatus, 50, (*string)(nil)).
		Return(txns, nil, nil).Once()

	resp, err := suite.service.ListTransactions(ctx, suite.manager.UserID, dto.ListTransactionsParams{Limit: 50, Status: &status})

	suite.Require().NoError(err)
	suite.Len(resp.Transactions, 1)
	suite.mockTxnRepo.AssertExpectations(suite.T())
}

func (suite *TransactionServiceTestSuite) TestHistory_ReturnsTrailInOrder() {
	ctx := context.Background()
	txn := suite.proofSubmittedTxn(suite.customer.UserID)
	suite.expectUser(suite.customer)
	suite.mockTxnRepo.On("FindTransactionByID", ctx, txn.TransactionID).Return(txn, nil).Once()

	created := domain.StatusCreated
	entries := []domain.StatusHistoryEntry{
		{EntryID: uuid.NewString(), TransactionID: txn.TransactionID, NewStatus: domain.StatusCreated, CreatedAt: time.Now().Add(-time.Hour)},
		{EntryID: uuid.NewString(), TransactionID: txn.TransactionID, PreviousStatus: &created, NewStatus: domain.StatusProofSubmitted, CreatedAt: time.Now()},
	}
	suite.mockTxnRepo.On("FindHistoryByTransactionID", ctx, txn.TransactionID).Return(entries, nil).Once()

	history, err := suite.service.History(ctx, txn.TransactionID, suite.customer.UserID)

	suite.Require().NoError(err)
	suite.Require().Len(history, 2)
	suite.Nil(history[0].PreviousStatus)
	suite.Equal(domain.StatusCreated, history[0].NewStatus)
	suite.Equal(domain.StatusProofSubmitted, history[1].NewStatus)
}

func TestTransactionServiceTestSuite(t *testing.T) {
	suite.Run(t, new(TransactionServiceTestSuite))
}
