package client

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDefaultRetryConfig(t *testing.T) {
	config := DefaultRetryConfig()

	if config.MaxAttempts != 1 {
		t.Errorf("MaxAttempts = %d, want 1 (no transport retries by default)", config.MaxAttempts)
	}
}

func TestAggressiveRetryConfig(t *testing.T) {
	config := AggressiveRetryConfig()

	if config.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", config.MaxAttempts)
	}
	if config.BackoffMultiplier != 2.0 {
		t.Errorf("BackoffMultiplier = %v, want 2.0", config.BackoffMultiplier)
	}
}

func TestRetryWithBackoff_SucceedsAfterTransientFailure(t *testing.T) {
	attempts := 0
	err := retryWithBackoff(context.Background(), RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        5 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}, func() error {
		attempts++
		if attempts < 3 {
			return &APIError{Class: ErrorClassNetwork, Message: "transient"}
		}
		return nil
	})

	if err != nil {
		t.Fatalf("retryWithBackoff() error = %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRetryWithBackoff_NonRetryableReturnsImmediately(t *testing.T) {
	attempts := 0
	businessErr := &APIError{Class: ErrorClassBusiness, Message: "rejected"}

	err := retryWithBackoff(context.Background(), RetryConfig{
		MaxAttempts:       5,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        time.Millisecond,
		BackoffMultiplier: 1.0,
	}, func() error {
		attempts++
		return businessErr
	})

	if !errors.Is(err, businessErr) {
		t.Errorf("error = %v, want the business error unwrapped", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 (no retry on business errors)", attempts)
	}
}

func TestRetryWithBackoff_Exhaustion(t *testing.T) {
	attempts := 0
	err := retryWithBackoff(context.Background(), RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        time.Millisecond,
		BackoffMultiplier: 1.0,
	}, func() error {
		attempts++
		return &APIError{Class: ErrorClassNetwork, Message: "still down"}
	})

	if !errors.Is(err, ErrRetryExhausted) {
		t.Errorf("error = %v, want ErrRetryExhausted", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRetryWithBackoff_SingleAttemptReturnsOriginalError(t *testing.T) {
	original := &APIError{Class: ErrorClassNetwork, Message: "down"}

	err := retryWithBackoff(context.Background(), DefaultRetryConfig(), func() error {
		return original
	})

	// With one attempt the error passes through without exhaustion wrapping.
	if !errors.Is(err, original) {
		t.Errorf("error = %v, want the original error", err)
	}
	if errors.Is(err, ErrRetryExhausted) {
		t.Error("single-attempt failure should not wrap ErrRetryExhausted")
	}
}

func TestRetryWithBackoff_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	done := make(chan error, 1)
	go func() {
		done <- retryWithBackoff(ctx, RetryConfig{
			MaxAttempts:       3,
			InitialBackoff:    10 * time.Second,
			MaxBackoff:        10 * time.Second,
			BackoffMultiplier: 1.0,
		}, func() error {
			attempts++
			return &APIError{Class: ErrorClassNetwork}
		})
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, ErrContextCancelled) {
			t.Errorf("error = %v, want ErrContextCancelled", err)
		}
		if attempts != 1 {
			t.Errorf("attempts = %d, want 1", attempts)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("retryWithBackoff did not honor context cancellation")
	}
}
