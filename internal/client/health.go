package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"resumeinsight/internal/errors"
	"resumeinsight/internal/types"

	"go.opentelemetry.io/otel/codes"
)

// Health queries the backend health endpoint.
// It bypasses the circuit breaker so warm-up polling always sees the real state.
func (c *Client) Health(ctx context.Context) (*types.HealthStatus, error) {
	ctx, span := c.tracer.Start(ctx, "client.health")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, c.cfg.HealthTimeout)
	defer cancel()

	resp, err := c.send(ctx, http.MethodGet, c.cfg.HealthPath, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "health check failed")
		return nil, err
	}

	var status types.HealthStatus
	if err := json.Unmarshal(resp.body, &status); err != nil {
		return nil, errors.NewProtocolError(errors.ErrCodeInvalidResponse, "health response could not be decoded", err)
	}
	return &status, nil
}

// WaitingFunc is told about every failed readiness probe
type WaitingFunc func(attempt int, err error)

// WaitUntilReady polls Health until it succeeds or the warm-up window closes.
// Auth failures end the wait immediately since retrying cannot fix them.
func (c *Client) WaitUntilReady(ctx context.Context, onWaiting WaitingFunc) (*types.HealthStatus, error) {
	if c.cfg.WarmupTimeout <= 0 {
		return c.Health(ctx)
	}

	waitCtx, cancel := context.WithTimeout(ctx, c.cfg.WarmupTimeout)
	defer cancel()

	ticker := time.NewTicker(c.cfg.WarmupInterval)
	defer ticker.Stop()

	for attempt := 1; ; attempt++ {
		status, err := c.Health(waitCtx)
		if err == nil {
			if attempt > 1 {
				c.logger.Info("Analysis service is ready", "attempts", attempt)
			}
			return status, nil
		}
		if errors.IsType(err, errors.ErrorTypeAuth) {
			return nil, err
		}
		if onWaiting != nil {
			onWaiting(attempt, err)
		}
		c.logger.Debug("Analysis service not ready", "attempt", attempt, "error", err.Error())

		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return nil, cancelledError(ctx.Err())
			}
			return nil, errors.NewServerError(errors.ErrCodeServiceUnavailable,
				fmt.Sprintf("analysis service did not become ready within %s", c.cfg.WarmupTimeout), err).
				WithContext("attempts", attempt)
		case <-ticker.C:
		}
	}
}
