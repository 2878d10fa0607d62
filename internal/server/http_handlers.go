package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"

	"resumeinsight/internal/document"
	resumeErrors "resumeinsight/internal/errors"
	"resumeinsight/internal/eventstream"
	"resumeinsight/internal/types"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// analyzeHandler accepts a multipart upload and forwards it to the backend.
// Callers asking for text/event-stream get progress relayed as it arrives.
func (s *Server) analyzeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErrorResponse(w, "Method not allowed", "use POST", http.StatusMethodNotAllowed)
		return
	}

	ctx, span := s.Observability.Tracer("resumeinsight/gateway").Start(r.Context(), "api.analyze")
	defer span.End()
	metrics := s.Observability.GetMetrics()

	doc, jobDescription, err := s.readUpload(r)
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.String("error.type", "validation"))
		if appErr, ok := resumeErrors.AsAppError(err); ok {
			metrics.RecordDocumentRejected(ctx, appErr.Code)
		}
		writeAppError(w, err)
		return
	}

	span.SetAttributes(
		attribute.String("document.name", doc.Name),
		attribute.Int64("document.size", doc.Size()),
		attribute.Int("document.pages", doc.Pages),
		attribute.Bool("request.has_job_description", jobDescription != ""),
	)
	logger := s.Logger.With("file", doc.Name, "pages", doc.Pages)

	if wantsEventStream(r) {
		s.relayAnalysis(ctx, w, doc.Request(jobDescription), span, logger)
		return
	}

	result, err := s.Backend.Analyze(ctx, doc.Request(jobDescription), nil)
	if err != nil {
		span.RecordError(err)
		logger.LogError(err, "Gateway analysis failed")
		writeAppError(w, err)
		return
	}

	span.SetAttributes(attribute.Bool("success", true), attribute.Int("result.overall_score", result.OverallScore))
	writeJSON(w, http.StatusOK, result)
}

// relayAnalysis streams progress events and a final result or error event
func (s *Server) relayAnalysis(ctx context.Context, w http.ResponseWriter, req types.AnalysisRequest, span trace.Span, logger *resumeErrors.Logger) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeErrorResponse(w, "Streaming unsupported", "response writer cannot flush", http.StatusInternalServerError)
		return
	}

	eventstream.SetHeaders(w)
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	var mu sync.Mutex
	send := func(event string, payload any) {
		mu.Lock()
		defer mu.Unlock()
		// WriteEvent flushes each event
		if err := eventstream.WriteEvent(w, event, payload); err != nil {
			logger.Debug("Failed to relay event", "event", event, "error", err)
		}
	}

	result, err := s.Backend.Analyze(ctx, req, func(event types.ProgressEvent) {
		send(eventstream.EventProgress, event)
	})
	if err != nil {
		span.RecordError(err)
		logger.LogError(err, "Gateway analysis failed")
		send(eventstream.EventError, errorBody(err))
		return
	}

	span.SetAttributes(attribute.Bool("success", true), attribute.Int("result.overall_score", result.OverallScore))
	send(eventstream.EventResult, result)
}

// readUpload parses the multipart form into a validated document
func (s *Server) readUpload(r *http.Request) (*document.Document, string, error) {
	if err := r.ParseMultipartForm(multipartOverhead); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return nil, "", resumeErrors.NewValidationError(resumeErrors.ErrCodeFileTooLarge,
				"upload exceeds the size limit", err).WithContext("limit", maxBytesErr.Limit)
		}
		return nil, "", resumeErrors.NewValidationError(resumeErrors.ErrCodeInvalidRequest,
			"request must be multipart/form-data with a 'file' field", err)
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, "", resumeErrors.NewValidationError(resumeErrors.ErrCodeInvalidRequest,
			"missing 'file' field", err)
	}
	defer func() { _ = file.Close() }()

	doc, err := document.FromUpload(header.Filename, file, s.MaxFileSize)
	if err != nil {
		return nil, "", err
	}
	return doc, strings.TrimSpace(r.FormValue("job_description")), nil
}

// chatHandler forwards a follow-up question about an analysis
func (s *Server) chatHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErrorResponse(w, "Method not allowed", "use POST", http.StatusMethodNotAllowed)
		return
	}

	ctx, span := s.Observability.Tracer("resumeinsight/gateway").Start(r.Context(), "api.chat")
	defer span.End()

	var req types.ChatRequest
	if err := parseJSONRequest(r, &req); err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.String("error.type", "validation"))
		writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}

	reply, err := s.Backend.Chat(ctx, req)
	if err != nil {
		span.RecordError(err)
		s.Logger.LogError(err, "Gateway chat failed")
		writeAppError(w, err)
		return
	}

	span.SetAttributes(attribute.Bool("success", true), attribute.Int("response.length", len(reply.Response)))
	writeJSON(w, http.StatusOK, reply)
}

func wantsEventStream(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/event-stream")
}

// statusForError maps client errors onto gateway responses
func statusForError(err error) int {
	appErr, ok := resumeErrors.AsAppError(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch appErr.Type {
	case resumeErrors.ErrorTypeValidation, resumeErrors.ErrorTypeIO:
		return http.StatusBadRequest
	case resumeErrors.ErrorTypeAuth, resumeErrors.ErrorTypeServer, resumeErrors.ErrorTypeProtocol:
		return http.StatusBadGateway
	case resumeErrors.ErrorTypeNetwork:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func errorBody(err error) ErrorResponse {
	code := "INTERNAL_ERROR"
	if appErr, ok := resumeErrors.AsAppError(err); ok {
		code = appErr.Code
	}
	return ErrorResponse{Error: code, Message: resumeErrors.UserMessage(err)}
}

func writeAppError(w http.ResponseWriter, err error) {
	body := errorBody(err)
	writeErrorResponse(w, body.Error, body.Message, statusForError(err))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
