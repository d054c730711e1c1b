package services

import (
	"context"
	"fmt"
	"log/slog"

	portssvc "github.com/enviopago/envio_backend/internal/core/ports/services"
	"github.com/enviopago/envio_backend/internal/dto"
	"github.com/enviopago/envio_backend/internal/middleware"
	"github.com/enviopago/envio_backend/internal/platform/config"
	"github.com/enviopago/envio_backend/internal/utils"
)

type tokenService struct {
	userSvc portssvc.UserAuthenticatorSvc
	cfg     *config.Config
}

// NewTokenService creates a new token service.
func NewTokenService(userSvc portssvc.UserAuthenticatorSvc, cfg *config.Config) portssvc.TokenSvcFacade {
	return &tokenService{userSvc: userSvc, cfg: cfg}
}

var _ portssvc.TokenSvcFacade = (*tokenService)(nil)

// Login implements portssvc.TokenSvcFacade.
func (s *tokenService) Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	user, err := s.userSvc.AuthenticateUser(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	token, err := utils.GenerateJWT(user.UserID, s.cfg.JWTSecret, s.cfg.JWTExpiryDuration, s.cfg.JWTIssuer)
	if err != nil {
		logger.Error("Failed to sign JWT", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	logger.Info("User logged in", slog.String("user_id", user.UserID))
	return &dto.LoginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.cfg.JWTExpiryDuration.Seconds()),
		User:        dto.ToUserResponse(user),
	}, nil
}
