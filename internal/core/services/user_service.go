package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/enviopago/envio_backend/internal/apperrors"
	"github.com/enviopago/envio_backend/internal/core/domain"
	portsrepo "github.com/enviopago/envio_backend/internal/core/ports/repositories"
	portssvc "github.com/enviopago/envio_backend/internal/core/ports/services"
	"github.com/enviopago/envio_backend/internal/dto"
	"github.com/enviopago/envio_backend/internal/middleware"
	"github.com/enviopago/envio_backend/internal/utils"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

type userService struct {
	userRepo portsrepo.UserRepositoryFacade
}

// NewUserService creates a new user service.
func NewUserService(userRepo portsrepo.UserRepositoryFacade) portssvc.UserSvcFacade {
	return &userService{userRepo: userRepo}
}

var _ portssvc.UserSvcFacade = (*userService)(nil)

// CreateUser implements portssvc.UserWriterSvc. A non-CUSTOMER role may only
// be granted by an admin; self-registration always yields CUSTOMER.
func (s *userService) CreateUser(ctx context.Context, req dto.CreateUserRequest, creatorUserID string) (*domain.User, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	role := domain.RoleCustomer
	if req.Role != nil && *req.Role != domain.RoleCustomer {
		if creatorUserID == "" {
			return nil, fmt.Errorf("%w: only admins may grant the %s role", apperrors.ErrForbidden, *req.Role)
		}
		creator, err := s.userRepo.FindUserByID(ctx, creatorUserID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return nil, fmt.Errorf("%w: unknown actor", apperrors.ErrForbidden)
			}
			return nil, fmt.Errorf("failed to load actor %s: %w", creatorUserID, err)
		}
		if creator.Role != domain.RoleAdmin {
			return nil, fmt.Errorf("%w: only admins may grant the %s role", apperrors.ErrForbidden, *req.Role)
		}
		role = *req.Role
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if existing, err := s.userRepo.FindUserByEmail(ctx, email); err == nil && existing != nil {
		return nil, fmt.Errorf("%w: email already registered", apperrors.ErrDuplicate)
	} else if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("failed to check email uniqueness: %w", err)
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		logger.Error("Failed to hash password", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to hash password: %w", apperrors.ErrInternal)
	}

	now := time.Now().UTC()
	user := domain.User{
		UserID:       uuid.NewString(),
		Name:         req.Name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     creatorUserID,
			LastUpdatedAt: now,
			LastUpdatedBy: creatorUserID,
		},
	}
	if user.CreatedBy == "" {
		user.CreatedBy = user.UserID
		user.LastUpdatedBy = user.UserID
	}

	if err := s.userRepo.SaveUser(ctx, user); err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) {
			return nil, fmt.Errorf("%w: email already registered", apperrors.ErrDuplicate)
		}
		logger.Error("Failed to save user", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to save user: %w", err)
	}

	logger.Info("User created", slog.String("user_id", user.UserID), slog.String("role", string(user.Role)))
	return &user, nil
}

// GetUserByID implements portssvc.UserReaderSvc.
func (s *userService) GetUserByID(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.userRepo.FindUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user %s: %w", userID, err)
	}
	return user, nil
}

// ListUsers implements portssvc.UserReaderSvc.
func (s *userService) ListUsers(ctx context.Context, limit int, offset int) ([]domain.User, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	users, err := s.userRepo.ListUsers(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// UpdateUser implements portssvc.UserWriterSvc. Users may update themselves;
// admins may update anyone.
func (s *userService) UpdateUser(ctx context.Context, userID string, req dto.UpdateUserRequest, requestingUserID string) (*domain.User, error) {
	if userID != requestingUserID {
		requester, err := s.userRepo.FindUserByID(ctx, requestingUserID)
		if err != nil {
			return nil, fmt.Errorf("failed to load actor %s: %w", requestingUserID, err)
		}
		if requester.Role != domain.RoleAdmin {
			return nil, fmt.Errorf("%w: cannot update another user", apperrors.ErrForbidden)
		}
	}

	user, err := s.userRepo.FindUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user %s: %w", userID, err)
	}

	if req.Name != nil && *req.Name != "" {
		user.Name = *req.Name
	}
	user.LastUpdatedAt = time.Now().UTC()
	user.LastUpdatedBy = requestingUserID

	if err := s.userRepo.UpdateUser(ctx, *user); err != nil {
		return nil, fmt.Errorf("failed to update user %s: %w", userID, err)
	}
	return user, nil
}

// DeleteUser implements portssvc.UserWriterSvc.
func (s *userService) DeleteUser(ctx context.Context, userID string, requestingUserID string) error {
	if userID != requestingUserID {
		requester, err := s.userRepo.FindUserByID(ctx, requestingUserID)
		if err != nil {
			return fmt.Errorf("failed to load actor %s: %w", requestingUserID, err)
		}
		if requester.Role != domain.RoleAdmin {
			return fmt.Errorf("%w: cannot delete another user", apperrors.ErrForbidden)
		}
	}
	if err := s.userRepo.DeleteUser(ctx, userID, requestingUserID); err != nil {
		return fmt.Errorf("failed to delete user %s: %w", userID, err)
	}
	return nil
}

// AuthenticateUser implements portssvc.UserAuthenticatorSvc. Lookup failures
// and password mismatches are indistinguishable to the caller.
func (s *userService) AuthenticateUser(ctx context.Context, email string, password string) (*domain.User, error) {
	user, err := s.userRepo.FindUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if !utils.CheckPasswordHash(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}
