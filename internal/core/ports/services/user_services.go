package services

import (
	"context"

	"github.com/enviopago/envio_backend/internal/core/domain"
	"github.com/enviopago/envio_backend/internal/dto"
)

// UserReaderSvc defines read operations for users.
type UserReaderSvc interface {
	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, userID string) (*domain.User, error)

	// ListUsers retrieves a page of users.
	ListUsers(ctx context.Context, limit int, offset int) ([]domain.User, error)
}

// UserWriterSvc defines write operations for users.
type UserWriterSvc interface {
	// CreateUser registers a new user with a bcrypt-hashed password.
	CreateUser(ctx context.Context, req dto.CreateUserRequest, creatorUserID string) (*domain.User, error)

	// UpdateUser updates mutable user details.
	UpdateUser(ctx context.Context, userID string, req dto.UpdateUserRequest, requestingUserID string) (*domain.User, error)

	// DeleteUser soft-deletes a user.
	DeleteUser(ctx context.Context, userID string, requestingUserID string) error
}

// UserAuthenticatorSvc verifies credentials for the login surface.
type UserAuthenticatorSvc interface {
	// AuthenticateUser checks email and password, returning the user on
	// success.
	AuthenticateUser(ctx context.Context, email string, password string) (*domain.User, error)
}

// UserSvcFacade combines all user service interfaces.
type UserSvcFacade interface {
	UserReaderSvc
	UserWriterSvc
	UserAuthenticatorSvc
}
