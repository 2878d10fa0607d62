package client

import (
	stderrors "errors"

	"resumeinsight/internal/config"
	"resumeinsight/internal/errors"

	"github.com/sony/gobreaker/v2"
)

// CircuitBreaker guards one group of backend calls.
// A nil *CircuitBreaker executes calls directly.
type CircuitBreaker struct {
	cb *gobreaker.CircuitBreaker[*response]
}

// NewCircuitBreaker returns nil when the breaker is disabled
func NewCircuitBreaker(name string, cfg config.CircuitBreakerConfig, logger *errors.Logger) *CircuitBreaker {
	if !cfg.Enabled {
		return nil
	}
	if logger == nil {
		logger = errors.Discard()
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= cfg.MinRequests &&
				failureRatio >= cfg.FailureThreshold
		},
		IsSuccessful: countsAsSuccess,
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("Circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
				"max_requests", cfg.MaxRequests,
				"failure_threshold", cfg.FailureThreshold)
		},
	}

	return &CircuitBreaker{cb: gobreaker.NewCircuitBreaker[*response](settings)}
}

// countsAsSuccess keeps caller mistakes and cancellations out of the failure ratio.
// Only server and network failures trip the breaker.
func countsAsSuccess(err error) bool {
	if err == nil {
		return true
	}
	appErr, ok := errors.AsAppError(err)
	if !ok {
		return false
	}
	switch appErr.Type {
	case errors.ErrorTypeAuth, errors.ErrorTypeValidation, errors.ErrorTypeProtocol:
		return true
	case errors.ErrorTypeNetwork:
		return appErr.Code == errors.ErrCodeRequestCancelled
	}
	return false
}

// Execute runs fn with circuit breaker protection
func (cb *CircuitBreaker) Execute(fn func() (*response, error)) (*response, error) {
	if cb == nil || cb.cb == nil {
		return fn()
	}
	resp, err := cb.cb.Execute(fn)
	if stderrors.Is(err, gobreaker.ErrOpenState) || stderrors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, errors.NewServerError(errors.ErrCodeServiceUnavailable,
			"analysis service temporarily unavailable", err).
			WithContext("breaker", cb.cb.Name())
	}
	return resp, err
}

// GetStats returns circuit breaker statistics
func (cb *CircuitBreaker) GetStats() map[string]any {
	if cb == nil || cb.cb == nil {
		return map[string]any{
			"enabled": false,
		}
	}

	return map[string]any{
		"name":    cb.cb.Name(),
		"state":   cb.cb.State().String(),
		"counts":  cb.cb.Counts(),
		"enabled": true,
	}
}

// IsHealthy returns true if the circuit breaker is not open
func (cb *CircuitBreaker) IsHealthy() bool {
	if cb == nil || cb.cb == nil {
		return true
	}
	return cb.cb.State() != gobreaker.StateOpen
}
