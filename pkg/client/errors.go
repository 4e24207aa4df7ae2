package client

import (
	"errors"
	"fmt"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during retry.
	ErrContextCancelled = errors.New("context cancelled")

	// ErrNotLoggedIn is returned by endpoints that require a session token
	// when none is configured.
	ErrNotLoggedIn = errors.New("no session token configured")
)

// ErrorClass represents a classification of request failures.
type ErrorClass string

const (
	// ErrorClassNetwork represents transport failures: timeout, connection
	// refused, DNS. Retryable.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassProtocol represents non-2xx statuses and malformed response
	// bodies. 5xx is retryable, 4xx is not.
	ErrorClassProtocol ErrorClass = "protocol"

	// ErrorClassBusiness represents an explicit denial from the remote
	// (envelope decoded fine, action rejected). Never retryable.
	ErrorClassBusiness ErrorClass = "business"
)

// APIError carries the failure class alongside the transport detail, so
// callers can classify outcomes without re-parsing messages.
type APIError struct {
	Class      ErrorClass
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("forum %s error (status %d): %s: %v",
			e.Class, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("forum %s error (status %d): %s",
		e.Class, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// shouldRetry determines if an error should be retried based on its class
// and, for protocol errors, its status code.
func shouldRetry(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		// Unclassified transport error.
		return true
	}
	switch apiErr.Class {
	case ErrorClassNetwork:
		return true
	case ErrorClassProtocol:
		// 4xx wastes attempts, 5xx may recover.
		return apiErr.StatusCode >= 500
	default:
		return false
	}
}
