package services

import (
	"context"

	"github.com/enviopago/envio_backend/internal/dto"
)

// TokenSvcFacade issues access tokens for authenticated users.
type TokenSvcFacade interface {
	// Login verifies credentials and returns a signed JWT with the user.
	Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error)
}
