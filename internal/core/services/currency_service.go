package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/enviopago/envio_backend/internal/apperrors"
	"github.com/enviopago/envio_backend/internal/core/domain"
	portsrepo "github.com/enviopago/envio_backend/internal/core/ports/repositories"
	portssvc "github.com/enviopago/envio_backend/internal/core/ports/services"
	"github.com/enviopago/envio_backend/internal/dto"
	"github.com/enviopago/envio_backend/internal/middleware"
)

type currencyService struct {
	currencyRepo portsrepo.CurrencyRepositoryFacade
	userSvc      portssvc.UserReaderSvc
}

// NewCurrencyService creates a new currency service.
func NewCurrencyService(currencyRepo portsrepo.CurrencyRepositoryFacade, userSvc portssvc.UserReaderSvc) portssvc.CurrencySvcFacade {
	return &currencyService{currencyRepo: currencyRepo, userSvc: userSvc}
}

var _ portssvc.CurrencySvcFacade = (*currencyService)(nil)

// CreateCurrency implements portssvc.CurrencySvcFacade.
func (s *currencyService) CreateCurrency(ctx context.Context, req dto.CreateCurrencyRequest, creatorUserID string) (*domain.Currency, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	actor, err := s.userSvc.GetUserByID(ctx, creatorUserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown actor", apperrors.ErrForbidden)
		}
		return nil, fmt.Errorf("failed to load actor %s: %w", creatorUserID, err)
	}
	if actor.Role != domain.RoleAdmin {
		return nil, fmt.Errorf("%w: admin role required", apperrors.ErrForbidden)
	}

	now := time.Now().UTC()
	currency := domain.Currency{
		CurrencyCode: strings.ToUpper(req.CurrencyCode),
		Symbol:       req.Symbol,
		Name:         req.Name,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     creatorUserID,
			LastUpdatedAt: now,
			LastUpdatedBy: creatorUserID,
		},
	}

	if err := s.currencyRepo.SaveCurrency(ctx, currency); err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) {
			return nil, fmt.Errorf("%w: currency %s already registered", apperrors.ErrDuplicate, currency.CurrencyCode)
		}
		logger.Error("Failed to save currency", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to save currency: %w", err)
	}

	logger.Info("Currency created", slog.String("currency_code", currency.CurrencyCode))
	return &currency, nil
}

// GetCurrencyByCode implements portssvc.CurrencySvcFacade.
func (s *currencyService) GetCurrencyByCode(ctx context.Context, currencyCode string) (*domain.Currency, error) {
	currency, err := s.currencyRepo.FindCurrencyByCode(ctx, strings.ToUpper(currencyCode))
	if err != nil {
		return nil, fmt.Errorf("failed to find currency %s: %w", currencyCode, err)
	}
	return currency, nil
}

// ListCurrencies implements portssvc.CurrencySvcFacade.
func (s *currencyService) ListCurrencies(ctx context.Context) ([]domain.Currency, error) {
	currencies, err := s.currencyRepo.ListCurrencies(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list currencies: %w", err)
	}
	return currencies, nil
}
