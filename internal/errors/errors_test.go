package errors

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"testing"
)

func TestAppErrorError(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		expected string
	}{
		{
			name:     "without cause",
			err:      NewAuthError(ErrCodeAuthFailed, "invalid API key", nil),
			expected: "AUTH_FAILED: invalid API key",
		},
		{
			name:     "with cause",
			err:      NewNetworkError(ErrCodeTransportFailure, "request failed", fmt.Errorf("connection refused")),
			expected: "TRANSPORT_FAILURE: request failed (caused by: connection refused)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Expected '%s', got '%s'", tt.expected, got)
			}
		})
	}
}

func TestIsTypeThroughWrapping(t *testing.T) {
	base := NewServerError(ErrCodeServerError, "boom", nil)
	wrapped := fmt.Errorf("analyze failed: %w", base)

	if !IsType(wrapped, ErrorTypeServer) {
		t.Error("Expected wrapped error to be recognised as server error")
	}
	if IsType(wrapped, ErrorTypeAuth) {
		t.Error("Expected wrapped error not to be recognised as auth error")
	}
	if IsType(fmt.Errorf("plain"), ErrorTypeServer) {
		t.Error("Expected plain error not to match any type")
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		contains string
	}{
		{"nil", nil, ""},
		{"server message passes through", NewServerError(ErrCodeServerError, "Failed to analyze resume", nil), "Failed to analyze resume"},
		{"validation message passes through", NewValidationError(ErrCodeInvalidRequest, "No file provided", nil), "No file provided"},
		{"auth", NewAuthError(ErrCodeAuthFailed, "401", nil), "API key"},
		{"network", NewNetworkError(ErrCodeTransportFailure, "dial tcp", nil), "Could not reach"},
		{"cancelled", NewNetworkError(ErrCodeRequestCancelled, "ctx", nil), "cancelled"},
		{"protocol", NewProtocolError(ErrCodeInvalidResponse, "bad json", nil), "unreadable"},
		{"unknown", fmt.Errorf("oops"), "Something went wrong"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := UserMessage(tt.err)
			if tt.contains == "" && got != "" {
				t.Errorf("Expected empty message, got '%s'", got)
			}
			if !strings.Contains(got, tt.contains) {
				t.Errorf("Expected message containing '%s', got '%s'", tt.contains, got)
			}
		})
	}
}

func TestLogErrorIncludesContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, slog.LevelDebug)

	err := NewServerError(ErrCodeServerError, "upstream failed", nil).
		WithContext("stream_fallback_reason", "watchdog")
	logger.LogError(fmt.Errorf("wrapped: %w", err), "Analysis failed", "request_id", "abc")

	var entry map[string]any
	if jsonErr := json.Unmarshal(buf.Bytes(), &entry); jsonErr != nil {
		t.Fatalf("Expected JSON log line, got error: %v", jsonErr)
	}

	expected := map[string]any{
		"msg":                    "Analysis failed",
		"error_type":             "server",
		"error_code":             ErrCodeServerError,
		"stream_fallback_reason": "watchdog",
		"request_id":             "abc",
	}
	for key, value := range expected {
		if entry[key] != value {
			t.Errorf("Expected %s=%v, got %v", key, value, entry[key])
		}
	}
}

func TestNewLogLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		if _, err := New(level); err != nil {
			t.Errorf("Expected level %s to be valid, got %v", level, err)
		}
	}
	if _, err := New("verbose"); err == nil {
		t.Error("Expected invalid level to fail")
	}
}
