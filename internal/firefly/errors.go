package firefly

import (
	"fmt"
	"net/http"
)

// APIError is a non-2xx response from the ledger API.
type APIError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("ledger api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("ledger api: status %d: %s", e.StatusCode, e.Message)
}

// Code returns a short machine-readable error class for log summaries.
func (e *APIError) Code() string {
	switch {
	case e.StatusCode == http.StatusUnauthorized:
		return "LEDGER_UNAUTHORIZED"
	case e.StatusCode == http.StatusNotFound:
		return "LEDGER_NOT_FOUND"
	case e.StatusCode == http.StatusUnprocessableEntity:
		return "LEDGER_VALIDATION"
	case e.StatusCode >= 500:
		return "LEDGER_SERVER"
	default:
		return "LEDGER_API"
	}
}

// Transient reports whether the call may succeed on retry.
func (e *APIError) Transient() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}
