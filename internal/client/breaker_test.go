package client

import (
	"fmt"
	"testing"
	"time"

	"resumeinsight/internal/config"
	"resumeinsight/internal/errors"
)

func TestCountsAsSuccess(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"no error", nil, true},
		{"auth", errors.NewAuthError(errors.ErrCodeAuthFailed, "denied", nil), true},
		{"validation", errors.NewValidationError(errors.ErrCodeInvalidRequest, "bad", nil), true},
		{"protocol", errors.NewProtocolError(errors.ErrCodeInvalidResponse, "garbled", nil), true},
		{"cancelled", errors.NewNetworkError(errors.ErrCodeRequestCancelled, "cancelled", nil), true},
		{"transport", errors.NewNetworkError(errors.ErrCodeTransportFailure, "refused", nil), false},
		{"server", errors.NewServerError(errors.ErrCodeServerError, "boom", nil), false},
		{"plain error", fmt.Errorf("unexpected"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := countsAsSuccess(tt.err); got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestCircuitBreakerDisabled(t *testing.T) {
	var cb *CircuitBreaker = NewCircuitBreaker("disabled", config.CircuitBreakerConfig{Enabled: false}, nil)
	if cb != nil {
		t.Fatal("Expected nil breaker when disabled")
	}

	resp, err := cb.Execute(func() (*response, error) { return &response{status: 200}, nil })
	if err != nil || resp.status != 200 {
		t.Errorf("Expected direct execution, got %v %v", resp, err)
	}
	if !cb.IsHealthy() {
		t.Error("Expected nil breaker to be healthy")
	}
	if stats := cb.GetStats(); stats["enabled"] != false {
		t.Errorf("Expected enabled=false, got %v", stats["enabled"])
	}
}

func TestCircuitBreakerIgnoresAuthFailures(t *testing.T) {
	cb := NewCircuitBreaker("backend-test", config.CircuitBreakerConfig{
		Enabled:          true,
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          time.Minute,
		MinRequests:      2,
		FailureThreshold: 0.5,
	}, nil)

	for i := 0; i < 5; i++ {
		_, _ = cb.Execute(func() (*response, error) {
			return nil, errors.NewAuthError(errors.ErrCodeAuthFailed, "denied", nil)
		})
	}

	stats := cb.GetStats()
	if stats["name"] != "backend-test" {
		t.Errorf("Expected name 'backend-test', got %v", stats["name"])
	}
	if stats["state"] != "closed" {
		t.Errorf("Expected breaker to stay closed, got %v", stats["state"])
	}
}
