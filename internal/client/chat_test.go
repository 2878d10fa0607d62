package client

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"resumeinsight/internal/errors"
	"resumeinsight/internal/types"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatRequest() types.ChatRequest {
	result := sampleResult(80)
	return types.ChatRequest{Message: "How can I improve my ATS score?", Analysis: &result}
}

func TestChat(t *testing.T) {
	received := make(chan types.ChatRequest, 1)
	b := newBackend(t, map[string]http.HandlerFunc{
		"/api/chat": func(w http.ResponseWriter, r *http.Request) {
			var req types.ChatRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			received <- req
			writeJSON(http.StatusOK, map[string]string{"response": "Use standard headings."})(w, r)
		},
	})
	c := newTestClient(t, b.URL, nil)

	reply, err := c.Chat(context.Background(), chatRequest())
	require.NoError(t, err)
	assert.Equal(t, "Use standard headings.", reply.Response)

	req := <-received
	_, err = uuid.Parse(req.SessionID)
	assert.NoError(t, err, "a session ID should be generated")
	assert.Equal(t, req.SessionID, reply.SessionID)
	assert.Equal(t, 80, req.Analysis.OverallScore)
}

func TestChatValidation(t *testing.T) {
	c := newTestClient(t, "http://127.0.0.1:1", nil)

	_, err := c.Chat(context.Background(), types.ChatRequest{Message: "  "})
	requireAppError(t, err, errors.ErrorTypeValidation, errors.ErrCodeInvalidRequest)

	_, err = c.Chat(context.Background(), types.ChatRequest{Message: "hello"})
	requireAppError(t, err, errors.ErrorTypeValidation, errors.ErrCodeInvalidRequest)
}

func TestChatStream(t *testing.T) {
	b := newBackend(t, map[string]http.HandlerFunc{
		"/api/chat/stream": func(w http.ResponseWriter, r *http.Request) {
			startStream(w)
			for _, token := range []string{"Add ", "a ", "summary."} {
				writeEvent(w, "", types.ChatChunk{Token: token})
			}
			writeEvent(w, "", types.ChatChunk{Done: true})
		},
	})
	c := newTestClient(t, b.URL, nil)

	req := chatRequest()
	req.SessionID = "session-1"
	var tokens []string
	reply, err := c.ChatStream(context.Background(), req, func(token string) {
		tokens = append(tokens, token)
	})
	require.NoError(t, err)
	assert.Equal(t, "Add a summary.", reply.Response)
	assert.Equal(t, "session-1", reply.SessionID)
	assert.Equal(t, []string{"Add ", "a ", "summary."}, tokens)
}

func TestChatStreamFallsBackWhenUnavailable(t *testing.T) {
	b := newBackend(t, map[string]http.HandlerFunc{
		"/api/chat/stream": writeJSON(http.StatusNotFound, types.ErrorBody{Error: "Not found"}),
		"/api/chat":        writeJSON(http.StatusOK, map[string]string{"response": "Synchronous answer"}),
	})
	c := newTestClient(t, b.URL, nil)

	var tokens []string
	reply, err := c.ChatStream(context.Background(), chatRequest(), func(token string) {
		tokens = append(tokens, token)
	})
	require.NoError(t, err)
	assert.Equal(t, "Synchronous answer", reply.Response)
	assert.Equal(t, []string{"Synchronous answer"}, tokens)
	assert.Equal(t, 1, b.count("/api/chat"))
}

func TestChatStreamFailures(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		expectedType errors.ErrorType
		expectedCode string
	}{
		{
			name:         "error chunk",
			body:         "data: {\"token\":\"Hi\"}\n\ndata: {\"error\":\"model overloaded\"}\n\n",
			expectedType: errors.ErrorTypeServer,
			expectedCode: errors.ErrCodeServerError,
		},
		{
			name:         "ends without done",
			body:         "data: {\"token\":\"Hi\"}\n\ndata: not-json\n\n",
			expectedType: errors.ErrorTypeProtocol,
			expectedCode: errors.ErrCodeStreamIncomplete,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBackend(t, map[string]http.HandlerFunc{
				"/api/chat/stream": func(w http.ResponseWriter, r *http.Request) {
					startStream(w)
					_, _ = w.Write([]byte(tt.body))
				},
			})
			c := newTestClient(t, b.URL, nil)

			_, err := c.ChatStream(context.Background(), chatRequest(), nil)
			appErr := requireAppError(t, err, tt.expectedType, tt.expectedCode)
			assert.False(t, strings.Contains(appErr.Message, "Hi"))
			assert.Equal(t, 0, b.count("/api/chat"), "a stream that opened must not fall back")
		})
	}
}
