package apperrors

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrForbidden indicates that the actor is not allowed to perform the operation.
var ErrForbidden = errors.New("operation not permitted")

// ErrConflict indicates that the operation conflicts with the current state of the resource.
var ErrConflict = errors.New("conflict with current state")

// ErrInternal indicates an unexpected internal failure.
var ErrInternal = errors.New("internal error")

// ErrInsufficientStock indicates that available inventory cannot cover a reservation.
var ErrInsufficientStock = errors.New("insufficient stock")

// ErrInvalidAmount indicates a base amount outside the configured bounds.
var ErrInvalidAmount = errors.New("amount outside configured bounds")

// ErrIllegalTransition indicates a status change absent from the transition graph,
// or one that lost a concurrent race on the same transaction.
var ErrIllegalTransition = errors.New("illegal status transition")

// ErrNumberGenerationExhausted indicates the bounded retry loop for claiming a
// reference number ran out of attempts.
var ErrNumberGenerationExhausted = errors.New("reference number generation exhausted")

// AppError wraps an underlying error with an HTTP-ish status code and message.
type AppError struct {
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new AppError.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// NewNotFoundError creates an AppError that unwraps to ErrNotFound.
func NewNotFoundError(message string) *AppError {
	return &AppError{Code: 404, Message: message, Err: ErrNotFound}
}
