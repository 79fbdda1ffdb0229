package app

import (
	"errors"
	"fmt"
	"net/http"

	"workhub/api/internal/lifecycle"
	"workhub/api/internal/store"
)

type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

func notFound(what string) *DomainError {
	return domainError(http.StatusNotFound, "NOT_FOUND", what+" not found", nil)
}

func forbidden(message string) *DomainError {
	return domainError(http.StatusForbidden, "FORBIDDEN", message, nil)
}

// validationError names the offending field in Details so clients can highlight it.
func validationError(field, message string) *DomainError {
	return domainError(http.StatusBadRequest, "VALIDATION_ERROR", message, map[string]any{"field": field})
}

func unauthenticated() *DomainError {
	return domainError(http.StatusUnauthorized, "UNAUTHENTICATED", "a UserId header is required", nil)
}

func unavailable(code, message string) *DomainError {
	return domainError(http.StatusServiceUnavailable, code, message, nil)
}

// translate turns store and lifecycle sentinels into domain errors for the entity
// named by what. Unknown errors pass through and become 500s.
func translate(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound), errors.Is(err, lifecycle.ErrRemoved):
		return notFound(what)
	case errors.Is(err, store.ErrConflict):
		return domainError(http.StatusConflict, "CONFLICT", what+" already exists", nil)
	case errors.Is(err, lifecycle.ErrInvalidTransition):
		return domainError(http.StatusConflict, "CONFLICT", "invalid status transition for "+what, nil)
	default:
		return err
	}
}
