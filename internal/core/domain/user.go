package domain

import "time"

// UserRole is the global role a user holds.
type UserRole string

const (
	// RoleCustomer may create transactions, submit proofs and cancel their own
	// early-stage transactions.
	RoleCustomer UserRole = "CUSTOMER"
	// RoleManager holds a capability subset of admin: validate and reject only.
	RoleManager UserRole = "MANAGER"
	// RoleAdmin may perform every administrative transition.
	RoleAdmin UserRole = "ADMIN"
)

// User represents a user of the application in the domain.
type User struct {
	UserID       string   `json:"userID"` // Primary Key (UUID)
	Name         string   `json:"name"`
	Email        string   `json:"email"`
	PasswordHash string   `json:"-"`
	Role         UserRole `json:"role"`
	AuditFields
	DeletedAt *time.Time `json:"deletedAt,omitempty"` // Used for soft delete
}
