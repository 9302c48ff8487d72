package app

import (
	"fmt"
	"net/http"
)

// Error codes returned in the "code" field of error responses.
const (
	CodeNotFound          = "NOT_FOUND"
	CodeValidation        = "VALIDATION_ERROR"
	CodeInvalidContent    = "INVALID_CONTENT"
	CodeExportUnavailable = "EXPORT_UNAVAILABLE"
	CodeServerError       = "SERVER_ERROR"
)

// DomainError is an error with a client-facing status, code and message.
type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
	cause   error
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

func errUnknownSide(side string) *DomainError {
	return domainError(http.StatusNotFound, CodeNotFound, "Unknown template side", map[string]any{"side": side})
}

func errContentRequired() *DomainError {
	return domainError(http.StatusUnprocessableEntity, CodeValidation, "content is required", nil)
}

// errInvalidContent keeps the decode error for logs; clients only see the message.
func errInvalidContent(cause error) *DomainError {
	err := domainError(http.StatusUnprocessableEntity, CodeInvalidContent, "content is not a valid document", nil)
	err.cause = cause
	return err
}
