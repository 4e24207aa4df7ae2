package client

import (
	"errors"
	"fmt"
	"testing"
)

func TestAPIError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *APIError
		want string
	}{
		{
			name: "without wrapped error",
			err: &APIError{
				Class:      ErrorClassProtocol,
				StatusCode: 502,
				Message:    "502 Bad Gateway",
			},
			want: "forum protocol error (status 502): 502 Bad Gateway",
		},
		{
			name: "with wrapped error",
			err: &APIError{
				Class:   ErrorClassNetwork,
				Message: "request failed",
				Err:     errors.New("dial tcp: connection refused"),
			},
			want: "forum network error (status 0): request failed: dial tcp: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAPIError_Unwrap(t *testing.T) {
	inner := errors.New("inner")
	err := &APIError{Class: ErrorClassNetwork, Err: inner}

	if !errors.Is(err, inner) {
		t.Error("errors.Is should find the wrapped error")
	}

	wrapped := fmt.Errorf("context: %w", err)
	var apiErr *APIError
	if !errors.As(wrapped, &apiErr) {
		t.Error("errors.As should find *APIError through wrapping")
	}
}

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "network error",
			err:  &APIError{Class: ErrorClassNetwork},
			want: true,
		},
		{
			name: "server protocol error",
			err:  &APIError{Class: ErrorClassProtocol, StatusCode: 503},
			want: true,
		},
		{
			name: "client protocol error",
			err:  &APIError{Class: ErrorClassProtocol, StatusCode: 404},
			want: false,
		},
		{
			name: "business rejection",
			err:  &APIError{Class: ErrorClassBusiness},
			want: false,
		},
		{
			name: "unclassified error",
			err:  errors.New("plain"),
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shouldRetry(tt.err); got != tt.want {
				t.Errorf("shouldRetry() = %v, want %v", got, tt.want)
			}
		})
	}
}
