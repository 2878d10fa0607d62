package client

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"resumeinsight/internal/errors"
	"resumeinsight/internal/eventstream"
	"resumeinsight/internal/types"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// TokenFunc receives chat tokens as they stream in
type TokenFunc func(token string)

// Chat asks a follow-up question about an analysis and waits for the full reply.
// A session ID is generated when the request has none.
func (c *Client) Chat(ctx context.Context, req types.ChatRequest) (*types.ChatResponse, error) {
	req, body, err := prepareChat(req)
	if err != nil {
		return nil, err
	}

	ctx, span := c.tracer.Start(ctx, "client.chat", oteltrace.WithAttributes(
		attribute.String("chat.session_id", req.SessionID),
		attribute.Bool("chat.stream", false),
	))
	defer span.End()

	reply, err := c.chatSync(ctx, req.SessionID, body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "chat failed")
		return nil, err
	}
	return reply, nil
}

func (c *Client) chatSync(ctx context.Context, sessionID string, body []byte) (*types.ChatResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	resp, err := c.chatBreaker.Execute(func() (*response, error) {
		return c.send(ctx, http.MethodPost, c.cfg.ChatPath, body)
	})
	if err != nil {
		return nil, err
	}

	var reply types.ChatResponse
	if err := json.Unmarshal(resp.body, &reply); err != nil {
		return nil, errors.NewProtocolError(errors.ErrCodeInvalidResponse, "chat response could not be decoded", err)
	}
	reply.SessionID = sessionID
	return &reply, nil
}

// ChatStream streams the reply token by token. If the stream cannot be
// opened it falls back once to Chat.
func (c *Client) ChatStream(ctx context.Context, req types.ChatRequest, onToken TokenFunc) (*types.ChatResponse, error) {
	req, body, err := prepareChat(req)
	if err != nil {
		return nil, err
	}

	ctx, span := c.tracer.Start(ctx, "client.chat", oteltrace.WithAttributes(
		attribute.String("chat.session_id", req.SessionID),
		attribute.Bool("chat.stream", true),
	))
	defer span.End()

	streamCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	resp, err := c.open(streamCtx, http.MethodPost, c.cfg.ChatStreamPath, body, contentTypeEventStream)
	if err == nil && !isSuccess(resp.StatusCode) {
		err = statusError(resp)
		_ = resp.Body.Close()
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, cancelledError(ctx.Err())
		}
		c.logger.Warn("Chat stream unavailable, falling back to synchronous chat", "error", err.Error())
		span.SetAttributes(attribute.Bool("chat.fallback", true))
		reply, err := c.chatSync(ctx, req.SessionID, body)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "chat failed")
			return nil, err
		}
		if onToken != nil {
			onToken(reply.Response)
		}
		return reply, nil
	}
	defer func() { _ = resp.Body.Close() }()

	var (
		text    strings.Builder
		done    bool
		failure error
	)
	decoder := eventstream.NewDecoder()
	readErr := decoder.Stream(resp.Body, func(msg eventstream.Message) bool {
		var chunk types.ChatChunk
		if err := json.Unmarshal([]byte(msg.Data), &chunk); err != nil {
			c.metrics.RecordMalformedEvent(ctx, "chat")
			c.logger.Warn("Skipping malformed chat chunk", "error", err.Error())
			return true
		}
		switch {
		case chunk.Error != "":
			failure = errors.NewServerError(errors.ErrCodeServerError, chunk.Error, nil).
				WithContext("session_id", req.SessionID)
			return false
		case chunk.Done:
			done = true
			return false
		}
		if chunk.Token != "" {
			text.WriteString(chunk.Token)
			if onToken != nil {
				onToken(chunk.Token)
			}
		}
		return true
	})

	switch {
	case failure != nil:
		err = failure
	case done:
		return &types.ChatResponse{Response: text.String(), SessionID: req.SessionID}, nil
	case readErr != nil:
		err = transportError(readErr)
	default:
		err = errors.NewProtocolError(errors.ErrCodeStreamIncomplete, "chat stream ended before completion", nil).
			WithContext("received_chars", text.Len())
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, "chat stream failed")
	return nil, err
}

// prepareChat validates req, fills in a session ID, and encodes the body
func prepareChat(req types.ChatRequest) (types.ChatRequest, []byte, error) {
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		return req, nil, errors.NewValidationError(errors.ErrCodeInvalidRequest, "chat message is required", nil)
	}
	if req.Analysis == nil {
		return req, nil, errors.NewValidationError(errors.ErrCodeInvalidRequest, "chat requires an analysis result", nil)
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	body, err := json.Marshal(req)
	if err != nil {
		return req, nil, errors.NewInternalError(errors.ErrCodeInvalidRequest, "failed to encode chat request", err)
	}
	return req, body, nil
}
