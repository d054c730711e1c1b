package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/enviopago/envio_backend/internal/apperrors"
	"github.com/enviopago/envio_backend/internal/core/domain"
	portsrepo "github.com/enviopago/envio_backend/internal/core/ports/repositories"
	portssvc "github.com/enviopago/envio_backend/internal/core/ports/services"
	"github.com/enviopago/envio_backend/internal/dto"
	"github.com/enviopago/envio_backend/internal/middleware"
	"github.com/enviopago/envio_backend/internal/platform/config"
	"github.com/enviopago/envio_backend/internal/platform/events"
	"github.com/enviopago/envio_backend/internal/utils/pricing"
)

var (
	ErrLineItemsRequired   = errors.New("orders require at least one line item")
	ErrLineItemsForbidden  = errors.New("remittances do not carry line items")
	ErrBaseAmountRequired  = errors.New("remittances require a positive base amount")
	ErrReasonRequired      = errors.New("a non-empty reason is required")
	ErrCatalogItemInactive = errors.New("catalog item is inactive")
	ErrNoRateAvailable     = errors.New("no exchange rate available for currency pair")
)

// transactionService is the state machine core: it orchestrates the access
// control gate, transition legality, the inventory ledger, the pricing
// snapshot, the numbering service and the audit recorder. Every mutation is
// one atomic repository round-trip; domain events are emitted only after the
// unit commits, fire-and-forget.
type transactionService struct {
	txnRepo    portsrepo.TransactionRepositoryFacade
	catalogSvc portssvc.CatalogReaderSvc
	userSvc    portssvc.UserReaderSvc
	rateSvc    portssvc.RateResolverSvc
	publisher  events.Publisher
	numbering  *numberingService
	audit      *auditRecorder
	cfg        *config.Config
}

// NewTransactionService creates a new transaction lifecycle service.
func NewTransactionService(
	txnRepo portsrepo.TransactionRepositoryFacade,
	catalogSvc portssvc.CatalogReaderSvc,
	userSvc portssvc.UserReaderSvc,
	rateSvc portssvc.RateResolverSvc,
	publisher events.Publisher,
	cfg *config.Config,
) portssvc.TransactionSvcFacade {
	return &transactionService{
		txnRepo:    txnRepo,
		catalogSvc: catalogSvc,
		userSvc:    userSvc,
		rateSvc:    rateSvc,
		publisher:  publisher,
		numbering:  newNumberingService(txnRepo),
		audit:      newAuditRecorder(txnRepo),
		cfg:        cfg,
	}
}

// Ensure transactionService implements the facade.
var _ portssvc.TransactionSvcFacade = (*transactionService)(nil)

// actorRole loads the acting user and returns their role.
func (s *transactionService) actorRole(ctx context.Context, actorID string) (domain.UserRole, error) {
	actor, err := s.userSvc.GetUserByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return "", fmt.Errorf("%w: unknown actor", apperrors.ErrForbidden)
		}
		return "", fmt.Errorf("failed to load actor %s: %w", actorID, err)
	}
	return actor.Role, nil
}

// bounds returns the configured amount bounds and commission scheme for a
// transaction type.
func (s *transactionService) bounds(txnType domain.TransactionType) (config.AmountBounds, config.CommissionScheme) {
	if txnType == domain.TypeRemittance {
		return s.cfg.RemittanceBounds, s.cfg.RemittanceCommission
	}
	return s.cfg.OrderBounds, s.cfg.OrderCommission
}

// buildLineItems captures line items from the request: quantities, unit
// prices and bundle compositions are snapshotted now so later catalog edits
// cannot corrupt this transaction.
func (s *transactionService) buildLineItems(ctx context.Context, transactionID string, reqItems []dto.LineItemRequest, creatorUserID string, now time.Time) ([]domain.LineItem, error) {
	itemIDs := make([]string, 0, len(reqItems))
	for _, ri := range reqItems {
		if ri.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity must be positive for catalog item %s", apperrors.ErrValidation, ri.CatalogItemID)
		}
		itemIDs = append(itemIDs, ri.CatalogItemID)
	}

	catalogItems, err := s.catalogSvc.GetCatalogItemsByIDs(ctx, itemIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch catalog items: %w", err)
	}

	// Bundle components are priced from their own catalog entries; collect
	// the component IDs we still need.
	componentIDs := make([]string, 0)
	for _, id := range itemIDs {
		item, found := catalogItems[id]
		if !found {
			return nil, fmt.Errorf("%w: catalog item %s", apperrors.ErrNotFound, id)
		}
		if !item.IsActive {
			return nil, fmt.Errorf("%w: %s", ErrCatalogItemInactive, id)
		}
		for _, comp := range item.Components {
			if _, ok := catalogItems[comp.CatalogItemID]; !ok {
				componentIDs = append(componentIDs, comp.CatalogItemID)
			}
		}
	}
	if len(componentIDs) > 0 {
		components, err := s.catalogSvc.GetCatalogItemsByIDs(ctx, componentIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch bundle components: %w", err)
		}
		for id, item := range components {
			catalogItems[id] = item
		}
	}

	audit := domain.AuditFields{
		CreatedAt:     now,
		CreatedBy:     creatorUserID,
		LastUpdatedAt: now,
		LastUpdatedBy: creatorUserID,
	}

	lineItems := make([]domain.LineItem, len(reqItems))
	for i, ri := range reqItems {
		item := catalogItems[ri.CatalogItemID]
		li := domain.LineItem{
			LineItemID:        uuid.NewString(),
			TransactionID:     transactionID,
			CatalogItemID:     ri.CatalogItemID,
			Quantity:          ri.Quantity,
			UnitPriceSnapshot: item.UnitPrice,
			AuditFields:       audit,
		}
		if item.Type == domain.ItemBundle {
			li.Components = make([]domain.ComponentSnapshot, len(item.Components))
			for j, comp := range item.Components {
				compItem, found := catalogItems[comp.CatalogItemID]
				if !found {
					return nil, fmt.Errorf("%w: bundle component %s", apperrors.ErrNotFound, comp.CatalogItemID)
				}
				if !compItem.IsActive {
					return nil, fmt.Errorf("%w: bundle component %s", ErrCatalogItemInactive, comp.CatalogItemID)
				}
				li.Components[j] = domain.ComponentSnapshot{
					CatalogItemID:     comp.CatalogItemID,
					QuantityPerBundle: comp.QuantityPerBundle,
					UnitPriceSnapshot: compItem.UnitPrice,
				}
			}
		}
		lineItems[i] = li
	}
	return lineItems, nil
}

// CreateTransaction implements portssvc.TransactionLifecycleSvc.
func (s *transactionService) CreateTransaction(ctx context.Context, req dto.CreateTransactionRequest, creatorUserID string) (*dto.TransactionResponse, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	role, err := s.actorRole(ctx, creatorUserID)
	if err != nil {
		return nil, err
	}
	if !domain.Authorize(creatorUserID, role, domain.TransitionCreate, domain.Transaction{}) {
		return nil, fmt.Errorf("%w: create denied for role %s", apperrors.ErrForbidden, role)
	}

	now := time.Now().UTC()
	transactionID := uuid.NewString()

	var lineItems []domain.LineItem
	var baseAmount decimal.Decimal
	switch req.Type {
	case domain.TypeOrder:
		if len(req.LineItems) == 0 {
			return nil, ErrLineItemsRequired
		}
		lineItems, err = s.buildLineItems(ctx, transactionID, req.LineItems, creatorUserID, now)
		if err != nil {
			return nil, err
		}
		amounts := make([]decimal.Decimal, len(lineItems))
		for i, li := range lineItems {
			amounts[i] = li.BaseAmount()
		}
		baseAmount = pricing.TotalBaseAmount(amounts)
	case domain.TypeRemittance:
		if len(req.LineItems) > 0 {
			return nil, ErrLineItemsForbidden
		}
		if req.BaseAmount == nil || req.BaseAmount.LessThanOrEqual(decimal.Zero) {
			return nil, ErrBaseAmountRequired
		}
		baseAmount = *req.BaseAmount
	default:
		return nil, fmt.Errorf("%w: unknown transaction type %q", apperrors.ErrValidation, req.Type)
	}

	bounds, scheme := s.bounds(req.Type)
	if baseAmount.LessThan(bounds.Min) || baseAmount.GreaterThan(bounds.Max) {
		return nil, fmt.Errorf("%w: %s amount %s outside [%s, %s]", apperrors.ErrInvalidAmount, req.Type, baseAmount, bounds.Min, bounds.Max)
	}

	// Resolve the exchange rate once; the value is captured into the snapshot
	// and never re-read.
	rate, err := s.rateSvc.ResolveRate(ctx, s.cfg.BaseCurrency, req.DestinationCurrency)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s -> %s", ErrNoRateAvailable, s.cfg.BaseCurrency, req.DestinationCurrency)
		}
		return nil, fmt.Errorf("failed to resolve exchange rate: %w", err)
	}

	quote := pricing.Calculate(baseAmount, scheme.Pct, scheme.Fixed, rate.Rate)

	txn := domain.Transaction{
		TransactionID:       transactionID,
		OwnerID:             creatorUserID,
		Type:                req.Type,
		Status:              domain.StatusCreated,
		BaseAmount:          baseAmount,
		BaseCurrency:        s.cfg.BaseCurrency,
		ExchangeRate:        rate.Rate,
		CommissionPct:       scheme.Pct,
		CommissionFixed:     scheme.Fixed,
		CommissionTotal:     quote.CommissionTotal,
		DeliverableAmount:   quote.DeliverableAmount,
		DestinationCurrency: req.DestinationCurrency,
		RecipientName:       req.RecipientName,
		RecipientDetails:    req.RecipientDetails,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     creatorUserID,
			LastUpdatedAt: now,
			LastUpdatedBy: creatorUserID,
		},
	}

	entry, err := s.audit.NewEntry(transactionID, nil, domain.StatusCreated, &creatorUserID, nil, now)
	if err != nil {
		return nil, err
	}

	// Claim a reference number under its unique constraint, retrying a
	// bounded number of times when a concurrent creator wins the candidate.
	for attempt := 0; attempt < s.cfg.ReferenceMaxAttempts; attempt++ {
		ref, err := s.numbering.Next(ctx, req.Type, now.Year())
		if err != nil {
			return nil, err
		}
		txn.ReferenceNumber = ref

		err = s.txnRepo.CreateTransaction(ctx, txn, lineItems, entry)
		if err == nil {
			logger.Info("Transaction created",
				slog.String("transaction_id", transactionID),
				slog.String("reference_number", ref),
				slog.String("type", string(req.Type)))
			s.emit(ctx, txn, nil, &creatorUserID, now)
			resp := dto.ToTransactionResponseWithItems(&txn, lineItems)
			return &resp, nil
		}
		if errors.Is(err, apperrors.ErrDuplicate) {
			logger.Warn("Reference number collision, retrying",
				slog.String("reference_number", ref),
				slog.Int("attempt", attempt+1))
			continue
		}
		if errors.Is(err, apperrors.ErrInsufficientStock) {
			logger.Warn("Insufficient stock for transaction", slog.String("error", err.Error()))
			return nil, err
		}
		logger.Error("Failed to persist transaction", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to persist transaction: %w", err)
	}

	logger.Error("Reference number generation exhausted",
		slog.String("type", string(req.Type)),
		slog.Int("attempts", s.cfg.ReferenceMaxAttempts))
	return nil, apperrors.ErrNumberGenerationExhausted
}

// transition runs the shared mutation path: load, authorize, legality check,
// mutate, persist atomically with audit entry and inventory effect, emit.
func (s *transactionService) transition(
	ctx context.Context,
	transactionID string,
	actorID string,
	tr domain.Transition,
	effect domain.InventoryEffect,
	reason *string,
	mutate func(txn *domain.Transaction, now time.Time),
) (*dto.TransactionResponse, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	txn, err := s.txnRepo.FindTransactionByID(ctx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find transaction %s: %w", transactionID, err)
	}

	role, err := s.actorRole(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !domain.Authorize(actorID, role, tr, *txn) {
		logger.Warn("Transition denied by access gate",
			slog.String("transaction_id", transactionID),
			slog.String("transition", string(tr)),
			slog.String("role", string(role)))
		return nil, fmt.Errorf("%w: %s denied for role %s", apperrors.ErrForbidden, tr, role)
	}

	target, ok := tr.TargetStatus()
	if !ok {
		return nil, fmt.Errorf("%w: unknown transition %q", apperrors.ErrValidation, tr)
	}
	if !domain.CanTransition(txn.Status, target) {
		return nil, fmt.Errorf("%w: %s -> %s", apperrors.ErrIllegalTransition, txn.Status, target)
	}

	now := time.Now().UTC()
	previous := txn.Status
	mutate(txn, now)
	txn.Status = target
	txn.LastUpdatedAt = now
	txn.LastUpdatedBy = actorID

	entry, err := s.audit.NewEntry(transactionID, &previous, target, &actorID, reason, now)
	if err != nil {
		return nil, err
	}

	if err := s.txnRepo.ApplyTransition(ctx, *txn, previous, entry, effect); err != nil {
		if errors.Is(err, apperrors.ErrIllegalTransition) {
			// A concurrent operation moved the transaction first.
			logger.Warn("Transition lost a concurrent race",
				slog.String("transaction_id", transactionID),
				slog.String("transition", string(tr)))
			return nil, err
		}
		logger.Error("Failed to apply transition",
			slog.String("transaction_id", transactionID),
			slog.String("transition", string(tr)),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to apply %s: %w", tr, err)
	}

	logger.Info("Transition applied",
		slog.String("transaction_id", transactionID),
		slog.String("reference_number", txn.ReferenceNumber),
		slog.String("from", string(previous)),
		slog.String("to", string(target)))
	s.emit(ctx, *txn, &previous, &actorID, now)

	resp := dto.ToTransactionResponse(txn)
	return &resp, nil
}

// emit publishes the domain event for a committed transition. Fire-and-forget:
// delivery is the collaborator's problem and never affects the caller.
func (s *transactionService) emit(ctx context.Context, txn domain.Transaction, previous *domain.TransactionStatus, actorID *string, at time.Time) {
	if s.publisher == nil {
		return
	}
	event := events.TransactionEvent{
		TransactionID:   txn.TransactionID,
		ReferenceNumber: txn.ReferenceNumber,
		PreviousStatus:  previous,
		NewStatus:       txn.Status,
		ActorID:         actorID,
		Timestamp:       at,
	}
	go s.publisher.Publish(context.WithoutCancel(ctx), event)
}

// SubmitProof implements portssvc.TransactionLifecycleSvc. Legal from CREATED
// and REJECTED; a resubmission after rejection keeps the original monetary
// snapshot untouched.
func (s *transactionService) SubmitProof(ctx context.Context, transactionID string, req dto.SubmitProofRequest, actorID string) (*dto.TransactionResponse, error) {
	if strings.TrimSpace(req.ProofHandle) == "" {
		return nil, fmt.Errorf("%w: proof handle is required", apperrors.ErrValidation)
	}
	return s.transition(ctx, transactionID, actorID, domain.TransitionSubmitProof, domain.EffectNone, nil,
		func(txn *domain.Transaction, _ time.Time) {
			proof := req.ProofHandle
			txn.ProofHandle = &proof
			if req.PaymentReference != "" {
				ref := req.PaymentReference
				txn.PaymentReference = &ref
			}
		})
}

// Validate implements portssvc.TransactionLifecycleSvc. Converts the
// inventory reservation into a permanent deduction.
func (s *transactionService) Validate(ctx context.Context, transactionID string, actorID string) (*dto.TransactionResponse, error) {
	return s.transition(ctx, transactionID, actorID, domain.TransitionValidate, domain.EffectCommit, nil,
		func(txn *domain.Transaction, now time.Time) {
			validator := actorID
			txn.ValidatedBy = &validator
			txn.ValidatedAt = &now
		})
}

// Reject implements portssvc.TransactionLifecycleSvc. Releases the
// reservation back to available stock.
func (s *transactionService) Reject(ctx context.Context, transactionID string, req dto.RejectRequest, actorID string) (*dto.TransactionResponse, error) {
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrValidation, ErrReasonRequired)
	}
	return s.transition(ctx, transactionID, actorID, domain.TransitionReject, domain.EffectRelease, &reason,
		func(txn *domain.Transaction, _ time.Time) {
			txn.RejectionReason = &reason
		})
}

// StartProcessing implements portssvc.TransactionLifecycleSvc.
func (s *transactionService) StartProcessing(ctx context.Context, transactionID string, actorID string) (*dto.TransactionResponse, error) {
	return s.transition(ctx, transactionID, actorID, domain.TransitionStartProcessing, domain.EffectNone, nil,
		func(txn *domain.Transaction, now time.Time) {
			txn.ProcessingStartedAt = &now
		})
}

// MarkDelivered implements portssvc.TransactionLifecycleSvc.
func (s *transactionService) MarkDelivered(ctx context.Context, transactionID string, req dto.MarkDeliveredRequest, actorID string) (*dto.TransactionResponse, error) {
	if strings.TrimSpace(req.DeliveryProofHandle) == "" {
		return nil, fmt.Errorf("%w: delivery proof handle is required", apperrors.ErrValidation)
	}
	return s.transition(ctx, transactionID, actorID, domain.TransitionMarkDelivered, domain.EffectNone, nil,
		func(txn *domain.Transaction, now time.Time) {
			proof := req.DeliveryProofHandle
			txn.DeliveredAt = &now
			txn.DeliveryProofHandle = &proof
			if req.RecipientConfirmation != "" {
				confirmation := req.RecipientConfirmation
				txn.RecipientConfirmation = &confirmation
			}
		})
}

// Complete implements portssvc.TransactionLifecycleSvc.
func (s *transactionService) Complete(ctx context.Context, transactionID string, actorID string) (*dto.TransactionResponse, error) {
	return s.transition(ctx, transactionID, actorID, domain.TransitionComplete, domain.EffectNone, nil,
		func(txn *domain.Transaction, now time.Time) {
			txn.CompletedAt = &now
		})
}

// Cancel implements portssvc.TransactionLifecycleSvc. The release is an
// idempotent no-op when the reservation was already deducted or released.
func (s *transactionService) Cancel(ctx context.Context, transactionID string, req dto.CancelRequest, actorID string) (*dto.TransactionResponse, error) {
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrValidation, ErrReasonRequired)
	}
	return s.transition(ctx, transactionID, actorID, domain.TransitionCancel, domain.EffectRelease, &reason,
		func(txn *domain.Transaction, now time.Time) {
			canceller := actorID
			txn.CancelledAt = &now
			txn.CancelledBy = &canceller
			txn.CancellationReason = &reason
		})
}

// canRead reports whether the requesting user may see a transaction.
// Customers only see their own; existence is obscured with ErrNotFound.
func (s *transactionService) canRead(role domain.UserRole, requestingUserID string, txn *domain.Transaction) bool {
	if role == domain.RoleAdmin || role == domain.RoleManager {
		return true
	}
	return txn.OwnerID == requestingUserID
}

// GetTransactionByID implements portssvc.TransactionReaderSvc.
func (s *transactionService) GetTransactionByID(ctx context.Context, transactionID string, requestingUserID string) (*dto.TransactionResponse, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	txn, err := s.txnRepo.FindTransactionByID(ctx, transactionID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			logger.Error("Failed to find transaction", slog.String("error", err.Error()), slog.String("transaction_id", transactionID))
		}
		return nil, fmt.Errorf("failed to find transaction %s: %w", transactionID, err)
	}

	role, err := s.actorRole(ctx, requestingUserID)
	if err != nil {
		return nil, err
	}
	if !s.canRead(role, requestingUserID, txn) {
		return nil, apperrors.ErrNotFound // Obscure existence
	}

	items, err := s.txnRepo.FindLineItemsByTransactionID(ctx, transactionID)
	if err != nil {
		logger.Error("Failed to fetch line items", slog.String("error", err.Error()), slog.String("transaction_id", transactionID))
		return nil, fmt.Errorf("failed to retrieve line items for %s: %w", transactionID, apperrors.ErrInternal)
	}

	resp := dto.ToTransactionResponseWithItems(txn, items)
	return &resp, nil
}

// ListTransactions implements portssvc.TransactionReaderSvc.
func (s *transactionService) ListTransactions(ctx context.Context, requestingUserID string, params dto.ListTransactionsParams) (*dto.ListTransactionsResponse, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	role, err := s.actorRole(ctx, requestingUserID)
	if err != nil {
		return nil, err
	}

	limit := params.Limit
	if limit <= 0 {
		limit = 20 // Default limit
	}

	var txns []domain.Transaction
	var nextToken *string
	if role == domain.RoleAdmin || role == domain.RoleManager {
		var status *domain.TransactionStatus
		if params.Status != nil && *params.Status != "" {
			st := domain.TransactionStatus(*params.Status)
			status = &st
		}
		txns, nextToken, err = s.txnRepo.ListTransactions(ctx, status, limit, params.NextToken)
	} else {
		txns, nextToken, err = s.txnRepo.ListTransactionsByOwner(ctx, requestingUserID, limit, params.NextToken)
	}
	if err != nil {
		logger.Error("Failed to list transactions", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to retrieve transactions: %w", err)
	}

	responses := make([]dto.TransactionResponse, len(txns))
	for i := range txns {
		responses[i] = dto.ToTransactionResponse(&txns[i])
	}

	return &dto.ListTransactionsResponse{
		Transactions: responses,
		NextToken:    nextToken,
	}, nil
}

// History implements portssvc.TransactionReaderSvc.
func (s *transactionService) History(ctx context.Context, transactionID string, requestingUserID string) ([]dto.StatusHistoryEntryResponse, error) {
	txn, err := s.txnRepo.FindTransactionByID(ctx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find transaction %s: %w", transactionID, err)
	}

	role, err := s.actorRole(ctx, requestingUserID)
	if err != nil {
		return nil, err
	}
	if !s.canRead(role, requestingUserID, txn) {
		return nil, apperrors.ErrNotFound
	}

	entries, err := s.audit.History(ctx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve history for %s: %w", transactionID, err)
	}
	return dto.ToStatusHistoryEntryResponses(entries), nil
}
