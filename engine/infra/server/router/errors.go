package router

import (
	"errors"
	"fmt"
	"net/http"
)

// Stable machine-readable error codes clients can branch on.
const (
	ErrInvalidCredentialCode      = "INVALID_CREDENTIAL"
	ErrCredentialExpiredCode      = "CREDENTIAL_EXPIRED"
	ErrCredentialDisabledCode     = "CREDENTIAL_DISABLED"
	ErrInsufficientPermissionCode = "INSUFFICIENT_PERMISSION"
	ErrTenantIsolationCode        = "TENANT_ISOLATION_VIOLATION"
	ErrTenantRequiredCode         = "TENANT_REQUIRED"
	ErrIPNotAllowedCode           = "IP_NOT_ALLOWED"
	ErrRateLimitCode              = "RATE_LIMIT_EXCEEDED"
	ErrBadRequestCode             = "BAD_REQUEST"
	ErrNotFoundCode               = "NOT_FOUND"
	ErrInternalCode               = "INTERNAL_ERROR"
)

// RequestError represents a terminal pipeline decision surfaced to the client.
type RequestError struct {
	StatusCode int
	Code       string
	Reason     string
	Err        error
}

func (e *RequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Reason)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// NewRequestError creates a new RequestError.
func NewRequestError(statusCode int, code, reason string, err error) *RequestError {
	return &RequestError{StatusCode: statusCode, Code: code, Reason: reason, Err: err}
}

// IsRequestError checks if the given error is a RequestError.
func IsRequestError(err error) bool {
	var reqErr *RequestError
	return errors.As(err, &reqErr)
}

// statusForCode returns the HTTP status for a pipeline error code.
func statusForCode(code string) int {
	switch code {
	case ErrInvalidCredentialCode, ErrCredentialExpiredCode, ErrCredentialDisabledCode:
		return http.StatusUnauthorized
	case ErrInsufficientPermissionCode, ErrTenantIsolationCode, ErrTenantRequiredCode, ErrIPNotAllowedCode:
		return http.StatusForbidden
	case ErrRateLimitCode:
		return http.StatusTooManyRequests
	case ErrBadRequestCode:
		return http.StatusBadRequest
	case ErrNotFoundCode:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
