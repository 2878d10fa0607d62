// Package client talks to the résumé analysis backend.
//
// Analyze consumes the backend's progress stream and falls back to the
// synchronous endpoint exactly once when the stream stalls, fails to open,
// or ends without a terminal event. Every call settles exactly once.
package client

import (
	"fmt"
	"net/http"

	"resumeinsight/internal/config"
	"resumeinsight/internal/errors"
	"resumeinsight/internal/observability"

	oteltrace "go.opentelemetry.io/otel/trace"
)

// Options holds the optional collaborators of a Client
type Options struct {
	Logger        *errors.Logger
	Observability *observability.ObservabilityManager
	// HTTPClient replaces the instrumented default client. It must not set a
	// Timeout since streaming responses stay open for minutes.
	HTTPClient *http.Client
	Version    string
}

// Client is safe for concurrent use
type Client struct {
	cfg       config.APIConfig
	http      *http.Client
	logger    *errors.Logger
	metrics   *observability.Metrics
	tracer    oteltrace.Tracer
	userAgent string

	analyzeBreaker *CircuitBreaker
	chatBreaker    *CircuitBreaker
}

// New creates a Client for the API described by cfg
func New(cfg config.APIConfig, opts Options) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "invalid API configuration", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = errors.Discard()
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Transport: opts.Observability.HTTPTransport(nil)}
	}
	version := opts.Version
	if version == "" {
		version = "dev"
	}

	return &Client{
		cfg:            cfg,
		http:           httpClient,
		logger:         logger.With("component", "client"),
		metrics:        opts.Observability.GetMetrics(),
		tracer:         opts.Observability.Tracer("resumeinsight/client"),
		userAgent:      fmt.Sprintf("resumeinsight/%s", version),
		analyzeBreaker: NewCircuitBreaker("backend-analyze", cfg.CircuitBreaker, logger),
		chatBreaker:    NewCircuitBreaker("backend-chat", cfg.CircuitBreaker, logger),
	}, nil
}

// BreakerStats reports the state of every circuit breaker
func (c *Client) BreakerStats() map[string]any {
	return map[string]any{
		"analyze": c.analyzeBreaker.GetStats(),
		"chat":    c.chatBreaker.GetStats(),
	}
}

// IsHealthy reports whether no circuit breaker is open
func (c *Client) IsHealthy() bool {
	return c.analyzeBreaker.IsHealthy() && c.chatBreaker.IsHealthy()
}
