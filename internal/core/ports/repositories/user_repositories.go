package repositories

import (
	"context"

	"github.com/enviopago/envio_backend/internal/core/domain"
)

// UserRepositoryFacade defines persistence operations for users.
type UserRepositoryFacade interface {
	// SaveUser persists a new user.
	SaveUser(ctx context.Context, user domain.User) error

	// FindUserByID retrieves a user by ID, excluding soft-deleted users.
	FindUserByID(ctx context.Context, userID string) (*domain.User, error)

	// FindUserByEmail retrieves a user by email, excluding soft-deleted users.
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)

	// ListUsers retrieves a page of users.
	ListUsers(ctx context.Context, limit int, offset int) ([]domain.User, error)

	// UpdateUser persists changes to an existing user.
	UpdateUser(ctx context.Context, user domain.User) error

	// DeleteUser marks a user as deleted (soft delete).
	DeleteUser(ctx context.Context, userID string, deletedBy string) error
}
