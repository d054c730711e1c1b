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
)

var ErrSameCurrencyPair = errors.New("from and to currency must differ")

type exchangeRateService struct {
	rateRepo     portsrepo.ExchangeRateRepositoryFacade
	currencyRepo portsrepo.CurrencyRepositoryFacade
	userSvc      portssvc.UserReaderSvc
}

// NewExchangeRateService creates a new exchange rate service.
func NewExchangeRateService(rateRepo portsrepo.ExchangeRateRepositoryFacade, currencyRepo portsrepo.CurrencyRepositoryFacade, userSvc portssvc.UserReaderSvc) portssvc.ExchangeRateSvcFacade {
	return &exchangeRateService{
		rateRepo:     rateRepo,
		currencyRepo: currencyRepo,
		userSvc:      userSvc,
	}
}

var _ portssvc.ExchangeRateSvcFacade = (*exchangeRateService)(nil)

// CreateExchangeRate implements portssvc.ExchangeRateSvcFacade.
func (s *exchangeRateService) CreateExchangeRate(ctx context.Context, req dto.CreateExchangeRateRequest, creatorUserID string) (*domain.ExchangeRate, error) {
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

	from := strings.ToUpper(req.FromCurrencyCode)
	to := strings.ToUpper(req.ToCurrencyCode)
	if from == to {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrValidation, ErrSameCurrencyPair)
	}
	if req.Rate.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: rate must be positive", apperrors.ErrValidation)
	}
	for _, code := range []string{from, to} {
		if _, err := s.currencyRepo.FindCurrencyByCode(ctx, code); err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return nil, fmt.Errorf("%w: currency %s is not registered", apperrors.ErrValidation, code)
			}
			return nil, fmt.Errorf("failed to verify currency %s: %w", code, err)
		}
	}

	now := time.Now().UTC()
	rate := domain.ExchangeRate{
		ExchangeRateID:   uuid.NewString(),
		FromCurrencyCode: from,
		ToCurrencyCode:   to,
		Rate:             req.Rate,
		DateEffective:    req.DateEffective,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     creatorUserID,
			LastUpdatedAt: now,
			LastUpdatedBy: creatorUserID,
		},
	}

	if err := s.rateRepo.SaveExchangeRate(ctx, rate); err != nil {
		logger.Error("Failed to save exchange rate", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to save exchange rate: %w", err)
	}

	logger.Info("Exchange rate created",
		slog.String("exchange_rate_id", rate.ExchangeRateID),
		slog.String("pair", from+"/"+to))
	return &rate, nil
}

// GetExchangeRateByID implements portssvc.ExchangeRateSvcFacade.
func (s *exchangeRateService) GetExchangeRateByID(ctx context.Context, exchangeRateID string) (*domain.ExchangeRate, error) {
	rate, err := s.rateRepo.FindExchangeRateByID(ctx, exchangeRateID)
	if err != nil {
		return nil, fmt.Errorf("failed to find exchange rate %s: %w", exchangeRateID, err)
	}
	return rate, nil
}

// ResolveRate implements portssvc.RateResolverSvc. The identity pair resolves
// to a synthetic rate of 1 so same-currency transactions need no stored rate.
func (s *exchangeRateService) ResolveRate(ctx context.Context, fromCurrencyCode, toCurrencyCode string) (*domain.ExchangeRate, error) {
	from := strings.ToUpper(fromCurrencyCode)
	to := strings.ToUpper(toCurrencyCode)
	if from == to {
		return &domain.ExchangeRate{
			FromCurrencyCode: from,
			ToCurrencyCode:   to,
			Rate:             decimal.NewFromInt(1),
			DateEffective:    time.Now().UTC(),
		}, nil
	}
	rate, err := s.rateRepo.FindLatestRate(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve rate %s -> %s: %w", from, to, err)
	}
	return rate, nil
}
