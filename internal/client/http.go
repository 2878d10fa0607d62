package client

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"resumeinsight/internal/errors"
	"resumeinsight/internal/types"

	"github.com/google/uuid"
)

const (
	contentTypeJSON        = "application/json"
	contentTypeEventStream = "text/event-stream"

	maxResponseSize = 32 << 20
	maxErrorBody    = 64 << 10
)

// response is a fully read, successful backend reply
type response struct {
	status int
	body   []byte
}

// newRequest builds an authenticated backend request
func (c *Client) newRequest(ctx context.Context, method, path string, body []byte, accept string) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return nil, errors.NewInternalError(errors.ErrCodeInvalidRequest, "failed to build backend request", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", contentTypeJSON)
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())
	c.setAuth(req)

	return req, nil
}

func (c *Client) setAuth(req *http.Request) {
	if c.cfg.APIKey == "" {
		return
	}
	if c.cfg.AuthScheme == "bearer" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
		return
	}
	req.Header.Set(c.cfg.AuthHeader, c.cfg.APIKey)
}

// open sends the request and returns the response with its body unread
func (c *Client) open(ctx context.Context, method, path string, body []byte, accept string) (*http.Response, error) {
	req, err := c.newRequest(ctx, method, path, body, accept)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, transportError(err).WithContext("path", path)
	}
	return resp, nil
}

// send performs a request and reads the whole body. Non-2xx replies become AppErrors.
func (c *Client) send(ctx context.Context, method, path string, body []byte) (*response, error) {
	resp, err := c.open(ctx, method, path, body, contentTypeJSON)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if !isSuccess(resp.StatusCode) {
		return nil, statusError(resp).WithContext("path", path)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, transportError(err).WithContext("path", path)
	}
	return &response{status: resp.StatusCode, body: data}, nil
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

// transportError classifies a failure to complete an HTTP exchange
func transportError(err error) *errors.AppError {
	switch {
	case stderrors.Is(err, context.Canceled):
		return errors.NewNetworkError(errors.ErrCodeRequestCancelled, "request was cancelled", err)
	case stderrors.Is(err, context.DeadlineExceeded):
		return errors.NewNetworkError(errors.ErrCodeNetworkTimeout, "analysis service did not respond in time", err)
	default:
		return errors.NewNetworkError(errors.ErrCodeTransportFailure, "could not reach the analysis service", err)
	}
}

// statusError maps a non-2xx response onto the error taxonomy, using the
// backend's {error, message} body for the message when present.
func statusError(resp *http.Response) *errors.AppError {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	text := errorText(raw)

	var appErr *errors.AppError
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		appErr = errors.NewAuthError(errors.ErrCodeAuthFailed, orDefault(text, "the analysis service rejected the API key"), nil)
	case resp.StatusCode == http.StatusBadRequest:
		appErr = errors.NewValidationError(errors.ErrCodeInvalidRequest, orDefault(text, "the analysis service rejected the request"), nil)
	case resp.StatusCode == http.StatusServiceUnavailable:
		appErr = errors.NewServerError(errors.ErrCodeServiceUnavailable, orDefault(text, "analysis service unavailable"), nil)
	default:
		appErr = errors.NewServerError(errors.ErrCodeServerError,
			orDefault(text, fmt.Sprintf("analysis service returned status %d", resp.StatusCode)), nil)
	}
	return appErr.WithContext("status", resp.StatusCode)
}

// errorText extracts a display message from an error body, JSON or plain
func errorText(raw []byte) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return ""
	}
	var body types.ErrorBody
	if err := json.Unmarshal(trimmed, &body); err == nil {
		return body.Text()
	}
	if bytes.HasPrefix(trimmed, []byte("<")) {
		return ""
	}
	return strings.TrimSpace(string(trimmed))
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
