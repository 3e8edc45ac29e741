package models

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Error codes carried by AppError. The HTTP status for each code is fixed in statusForCode.
const (
	CodeValidation       = "VALIDATION_ERROR"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeTokenMissing     = "TOKEN_MISSING"
	CodeTokenInvalid     = "TOKEN_INVALID"
	CodeTokenRevoked     = "TOKEN_REVOKED"
	CodeIdentityNotFound = "IDENTITY_NOT_FOUND"
	CodeNotFound         = "NOT_FOUND"
	CodeInternal         = "INTERNAL_ERROR"
)

// AppError represents a custom application error
type AppError struct {
	Code    string
	Message string
	Errors  []string
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

// Is matches any AppError carrying the same code, so wrapped sentinels compare equal.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Token and identity failures. These are shared values: wrap them, never mutate them.
var (
	ErrTokenMissing     = &AppError{Code: CodeTokenMissing, Message: "Unauthorized request"}
	ErrTokenInvalid     = &AppError{Code: CodeTokenInvalid, Message: "Invalid token"}
	ErrTokenRevoked     = &AppError{Code: CodeTokenRevoked, Message: "Refresh token is expired or used"}
	ErrIdentityNotFound = &AppError{Code: CodeIdentityNotFound, Message: "Invalid token"}
)

// Predefined error constructors
func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s %v not found", resource, id),
	}
}

func NewValidationError(message string, details ...string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
		Errors:  details,
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    CodeUnauthorized,
		Message: message,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: "Internal server error",
		Err:     err,
	}
}

// StatusFor returns the HTTP status an error should be reported with.
func StatusFor(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return statusForCode(appErr.Code)
	}
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code
	}
	return fiber.StatusInternalServerError
}

func statusForCode(code string) int {
	switch code {
	case CodeValidation:
		return fiber.StatusBadRequest
	case CodeUnauthorized, CodeTokenMissing, CodeTokenInvalid, CodeTokenRevoked, CodeIdentityNotFound:
		return fiber.StatusUnauthorized
	case CodeNotFound:
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}

// RespondWithError writes the failure envelope. Internal causes are never exposed to clients.
func RespondWithError(c *fiber.Ctx, err error) error {
	status := StatusFor(err)
	response := ErrorResponse{
		Success: false,
		Errors:  []string{},
	}

	var appErr *AppError
	var fiberErr *fiber.Error
	switch {
	case errors.As(err, &appErr):
		response.Message = appErr.Message
		response.Code = appErr.Code
		if len(appErr.Errors) > 0 {
			response.Errors = appErr.Errors
		}
		if status == fiber.StatusInternalServerError {
			response.Message = "Internal server error"
			response.Code = CodeInternal
		}
	case errors.As(err, &fiberErr):
		response.Message = fiberErr.Message
	default:
		response.Message = "Internal server error"
		response.Code = CodeInternal
	}

	return c.Status(status).JSON(response)
}
