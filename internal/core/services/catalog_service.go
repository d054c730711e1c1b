package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/enviopago/envio_backend/internal/apperrors"
	"github.com/enviopago/envio_backend/internal/core/domain"
	portsrepo "github.com/enviopago/envio_backend/internal/core/ports/repositories"
	portssvc "github.com/enviopago/envio_backend/internal/core/ports/services"
	"github.com/enviopago/envio_backend/internal/dto"
	"github.com/enviopago/envio_backend/internal/middleware"
)

var (
	ErrBundleNeedsComponents  = errors.New("bundles require at least one component")
	ErrProductHasComponents   = errors.New("products cannot carry components")
	ErrBundleComponentMissing = errors.New("bundle component does not exist")
	ErrBundleOfBundles        = errors.New("bundle components must be products")
)

type catalogService struct {
	catalogRepo  portsrepo.CatalogRepositoryFacade
	currencyRepo portsrepo.CurrencyRepositoryFacade
	userSvc      portssvc.UserReaderSvc
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(catalogRepo portsrepo.CatalogRepositoryFacade, currencyRepo portsrepo.CurrencyRepositoryFacade, userSvc portssvc.UserReaderSvc) portssvc.CatalogSvcFacade {
	return &catalogService{
		catalogRepo:  catalogRepo,
		currencyRepo: currencyRepo,
		userSvc:      userSvc,
	}
}

var _ portssvc.CatalogSvcFacade = (*catalogService)(nil)

func (s *catalogService) requireAdmin(ctx context.Context, actorID string) error {
	actor, err := s.userSvc.GetUserByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return fmt.Errorf("%w: unknown actor", apperrors.ErrForbidden)
		}
		return fmt.Errorf("failed to load actor %s: %w", actorID, err)
	}
	if actor.Role != domain.RoleAdmin {
		return fmt.Errorf("%w: admin role required", apperrors.ErrForbidden)
	}
	return nil
}

// CreateCatalogItem implements portssvc.CatalogWriterSvc.
func (s *catalogService) CreateCatalogItem(ctx context.Context, req dto.CreateCatalogItemRequest, creatorUserID string) (*domain.CatalogItem, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if err := s.requireAdmin(ctx, creatorUserID); err != nil {
		return nil, err
	}

	if req.UnitPrice.IsNegative() {
		return nil, fmt.Errorf("%w: unit price cannot be negative", apperrors.ErrValidation)
	}
	if _, err := s.currencyRepo.FindCurrencyByCode(ctx, req.CurrencyCode); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: currency %s is not registered", apperrors.ErrValidation, req.CurrencyCode)
		}
		return nil, fmt.Errorf("failed to verify currency %s: %w", req.CurrencyCode, err)
	}

	switch req.Type {
	case domain.ItemBundle:
		if len(req.Components) == 0 {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrValidation, ErrBundleNeedsComponents)
		}
	case domain.ItemProduct:
		if len(req.Components) > 0 {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrValidation, ErrProductHasComponents)
		}
	default:
		return nil, fmt.Errorf("%w: unknown catalog item type %q", apperrors.ErrValidation, req.Type)
	}

	now := time.Now().UTC()
	item := domain.CatalogItem{
		CatalogItemID: uuid.NewString(),
		Name:          req.Name,
		Type:          req.Type,
		UnitPrice:     req.UnitPrice,
		CurrencyCode:  req.CurrencyCode,
		Stock:         req.Stock,
		IsActive:      true,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     creatorUserID,
			LastUpdatedAt: now,
			LastUpdatedBy: creatorUserID,
		},
	}

	if req.Type == domain.ItemBundle {
		// Bundles never carry stock of their own.
		item.Stock = 0
		item.Components = make([]domain.BundleComponent, len(req.Components))
		for i, comp := range req.Components {
			compItem, err := s.catalogRepo.FindCatalogItemByID(ctx, comp.CatalogItemID)
			if err != nil {
				if errors.Is(err, apperrors.ErrNotFound) {
					return nil, fmt.Errorf("%w: %s", ErrBundleComponentMissing, comp.CatalogItemID)
				}
				return nil, fmt.Errorf("failed to verify bundle component %s: %w", comp.CatalogItemID, err)
			}
			if compItem.Type != domain.ItemProduct {
				return nil, fmt.Errorf("%w: %s", ErrBundleOfBundles, comp.CatalogItemID)
			}
			item.Components[i] = domain.BundleComponent{
				BundleID:          item.CatalogItemID,
				CatalogItemID:     comp.CatalogItemID,
				QuantityPerBundle: comp.QuantityPerBundle,
				Position:          i,
			}
		}
	}

	if err := s.catalogRepo.SaveCatalogItem(ctx, item); err != nil {
		logger.Error("Failed to save catalog item", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to save catalog item: %w", err)
	}

	logger.Info("Catalog item created",
		slog.String("catalog_item_id", item.CatalogItemID),
		slog.String("type", string(item.Type)))
	return &item, nil
}

// AdjustStock implements portssvc.CatalogWriterSvc.
func (s *catalogService) AdjustStock(ctx context.Context, catalogItemID string, delta int64, actorID string) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	if err := s.requireAdmin(ctx, actorID); err != nil {
		return err
	}

	item, err := s.catalogRepo.FindCatalogItemByID(ctx, catalogItemID)
	if err != nil {
		return fmt.Errorf("failed to find catalog item %s: %w", catalogItemID, err)
	}
	if item.Type != domain.ItemProduct {
		return fmt.Errorf("%w: stock adjustments apply to products only", apperrors.ErrValidation)
	}

	if err := s.catalogRepo.AdjustStock(ctx, catalogItemID, delta, actorID); err != nil {
		logger.Warn("Stock adjustment refused",
			slog.String("catalog_item_id", catalogItemID),
			slog.Int64("delta", delta),
			slog.String("error", err.Error()))
		return err
	}

	logger.Info("Stock adjusted",
		slog.String("catalog_item_id", catalogItemID),
		slog.Int64("delta", delta))
	return nil
}

// GetCatalogItemByID implements portssvc.CatalogReaderSvc.
func (s *catalogService) GetCatalogItemByID(ctx context.Context, catalogItemID string) (*domain.CatalogItem, error) {
	item, err := s.catalogRepo.FindCatalogItemByID(ctx, catalogItemID)
	if err != nil {
		return nil, fmt.Errorf("failed to find catalog item %s: %w", catalogItemID, err)
	}
	return item, nil
}

// GetCatalogItemsByIDs implements portssvc.CatalogReaderSvc.
func (s *catalogService) GetCatalogItemsByIDs(ctx context.Context, catalogItemIDs []string) (map[string]domain.CatalogItem, error) {
	items, err := s.catalogRepo.FindCatalogItemsByIDs(ctx, catalogItemIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch catalog items: %w", err)
	}
	return items, nil
}

// ListCatalogItems implements portssvc.CatalogReaderSvc.
func (s *catalogService) ListCatalogItems(ctx context.Context, limit int, nextToken *string) ([]dto.CatalogItemResponse, *string, error) {
	if limit <= 0 {
		limit = 20
	}
	items, next, err := s.catalogRepo.ListCatalogItems(ctx, limit, nextToken)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list catalog items: %w", err)
	}
	return dto.ToCatalogItemResponses(items), next, nil
}
