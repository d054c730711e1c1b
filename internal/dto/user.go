package dto

import (
	"time"

	"github.com/enviopago/envio_backend/internal/core/domain"
)

// CreateUserRequest registers a new user. Role defaults to CUSTOMER when
// omitted; only admins may set another role.
type CreateUserRequest struct {
	Name     string           `json:"name" binding:"required"`
	Email    string           `json:"email" binding:"required,email"`
	Password string           `json:"password" binding:"required,min=8"`
	Role     *domain.UserRole `json:"role" binding:"omitempty,oneof=CUSTOMER MANAGER ADMIN"`
}

// UpdateUserRequest updates mutable user details.
type UpdateUserRequest struct {
	Name *string `json:"name"`
}

// LoginRequest authenticates a user with email and password.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// UserResponse is the returned shape of a user; the password hash never
// leaves the service layer.
type UserResponse struct {
	UserID    string          `json:"userID"`
	Name      string          `json:"name"`
	Email     string          `json:"email"`
	Role      domain.UserRole `json:"role"`
	CreatedAt time.Time       `json:"createdAt"`
}

// ToUserResponse converts a domain.User to its response DTO.
func ToUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		UserID:    u.UserID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

// ToUserResponses converts a slice of users.
func ToUserResponses(users []domain.User) []UserResponse {
	out := make([]UserResponse, len(users))
	for i := range users {
		out[i] = ToUserResponse(&users[i])
	}
	return out
}
