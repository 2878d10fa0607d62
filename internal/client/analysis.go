package client

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"sync"
	"time"

	"resumeinsight/internal/errors"
	"resumeinsight/internal/eventstream"
	"resumeinsight/internal/types"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// ProgressFunc receives progress events in stream order. It is never called
// after Analyze has settled.
type ProgressFunc func(types.ProgressEvent)

// Reasons the stream path gave up, attached to errors as stream_fallback_reason
const (
	ReasonWatchdog       = "watchdog_timeout"
	ReasonDeadline       = "stream_deadline"
	ReasonTransport      = "transport_error"
	ReasonStatus         = "bad_status"
	ReasonReadError      = "read_error"
	ReasonBufferOverflow = "buffer_overflow"
	ReasonStreamEnded    = "stream_ended"
)

const (
	pathStream   = "stream"
	pathFallback = "fallback"
)

// Analyze sends req to the streaming endpoint, reporting progress through
// onProgress, and falls back to the synchronous endpoint at most once.
// It returns exactly one outcome.
func (c *Client) Analyze(ctx context.Context, req types.AnalysisRequest, onProgress ProgressFunc) (*types.AnalysisResult, error) {
	if req.Size() == 0 {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest, "résumé file is empty", nil)
	}

	body, err := json.Marshal(req.Payload())
	if err != nil {
		return nil, errors.NewInternalError(errors.ErrCodeInvalidRequest, "failed to encode analysis request", err)
	}

	ctx, span := c.tracer.Start(ctx, "client.analyze", oteltrace.WithAttributes(
		attribute.Int("document.size", req.Size()),
		attribute.Bool("document.has_job_description", req.HasJobDescription()),
	))
	defer span.End()

	start := time.Now()
	run := newAnalysisRun(c, ctx, body, onProgress)
	run.start()
	result, path, err := run.wait()
	duration := time.Since(start)

	c.metrics.RecordAnalysis(ctx, path, duration, err)
	span.SetAttributes(attribute.String("analysis.path", path))

	if err != nil {
		if appErr, ok := errors.AsAppError(err); ok {
			c.metrics.RecordAnalysisError(ctx, string(appErr.Type))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, errors.UserMessage(err))
		c.logger.LogError(err, "Analysis failed",
			"file", req.FileName(),
			"path", path,
			"duration_ms", duration.Milliseconds())
		return nil, err
	}

	c.logger.Info("Analysis completed",
		"file", req.FileName(),
		"path", path,
		"overall_score", result.OverallScore,
		"duration_ms", duration.Milliseconds())
	return result, nil
}

// analysisRun is the per-call state of one Analyze call
type analysisRun struct {
	client     *Client
	ctx        context.Context
	body       []byte
	onProgress ProgressFunc

	streamCtx      context.Context
	cancelStream   context.CancelFunc
	fallbackCtx    context.Context
	cancelFallback context.CancelFunc
	fallbackOnce   sync.Once

	// mu guards everything below and serializes progress callbacks
	mu              sync.Mutex
	settled         bool
	fallbackStarted bool
	watchdog        *time.Timer
	deadline        *time.Timer
	done            chan struct{}
	result          *types.AnalysisResult
	err             error
	path            string
}

func newAnalysisRun(c *Client, ctx context.Context, body []byte, onProgress ProgressFunc) *analysisRun {
	r := &analysisRun{
		client:     c,
		ctx:        ctx,
		body:       body,
		onProgress: onProgress,
		done:       make(chan struct{}),
		path:       pathStream,
	}
	r.streamCtx, r.cancelStream = context.WithCancel(ctx)
	r.fallbackCtx, r.cancelFallback = context.WithCancel(ctx)
	return r
}

func (r *analysisRun) start() {
	r.mu.Lock()
	r.watchdog = time.AfterFunc(r.client.cfg.WatchdogTimeout, func() {
		r.triggerFallback(ReasonWatchdog, nil)
	})
	r.deadline = time.AfterFunc(r.client.cfg.StreamDeadline, func() {
		r.triggerFallback(ReasonDeadline, nil)
	})
	r.mu.Unlock()

	go r.consumeStream()
}

// wait blocks until the run settles or the caller gives up
func (r *analysisRun) wait() (*types.AnalysisResult, string, error) {
	select {
	case <-r.done:
	case <-r.ctx.Done():
		r.mu.Lock()
		r.settleLocked(nil, cancelledError(r.ctx.Err()), r.path)
		r.mu.Unlock()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.result, r.path, r.err
}

// settleLocked records the first outcome and tears the run down. Later calls are ignored.
func (r *analysisRun) settleLocked(result *types.AnalysisResult, err error, path string) {
	if r.settled {
		return
	}
	r.settled = true
	r.result = result
	r.err = err
	r.path = path

	r.watchdog.Stop()
	r.deadline.Stop()
	r.cancelStream()
	r.cancelFallback()
	close(r.done)
}

func (r *analysisRun) consumeStream() {
	c := r.client
	resp, err := c.open(r.streamCtx, http.MethodPost, c.cfg.StreamPath, r.body, contentTypeEventStream)
	if err != nil {
		r.triggerFallback(ReasonTransport, err)
		return
	}
	defer func() { _ = resp.Body.Close() }()

	if !isSuccess(resp.StatusCode) {
		r.triggerFallback(ReasonStatus, statusError(resp))
		return
	}

	decoder := eventstream.NewDecoder()
	err = decoder.Stream(resp.Body, r.handleMessage)
	if r.finished() {
		return
	}

	switch {
	case stderrors.Is(err, eventstream.ErrBufferOverflow):
		r.triggerFallback(ReasonBufferOverflow, err)
	case err != nil:
		r.triggerFallback(ReasonReadError, err)
	default:
		r.triggerFallback(ReasonStreamEnded, nil)
	}
}

// finished reports whether the stream path no longer owns the outcome
func (r *analysisRun) finished() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.settled || r.fallbackStarted
}

// handleMessage dispatches one decoded stream message and reports whether
// reading should continue.
func (r *analysisRun) handleMessage(msg eventstream.Message) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.settled || r.fallbackStarted {
		return false
	}

	c := r.client
	c.metrics.RecordStreamEvent(r.ctx, msg.Event)

	switch msg.Event {
	case eventstream.EventProgress:
		var event types.ProgressEvent
		err := decodeEvent(msg, &event)
		if err == nil {
			err = event.Validate()
		}
		if err != nil {
			r.malformed(msg, err)
			return true
		}
		r.watchdog.Reset(c.cfg.WatchdogTimeout)
		if r.onProgress != nil {
			r.onProgress(event)
		}
		return true

	case eventstream.EventResult:
		var result types.AnalysisResult
		err := decodeEvent(msg, &result)
		if err == nil {
			err = result.Validate()
		}
		if err != nil {
			r.malformed(msg, err)
			return true
		}
		r.settleLocked(&result, nil, pathStream)
		return false

	case eventstream.EventError:
		var body types.ErrorBody
		if err := decodeEvent(msg, &body); err != nil {
			r.malformed(msg, err)
			return true
		}
		r.settleLocked(nil, errors.NewServerError(errors.ErrCodeServerError,
			orDefault(body.Text(), "analysis failed"), nil).
			WithContext("source", "stream_error_event"), pathStream)
		return false

	default:
		r.watchdog.Reset(c.cfg.WatchdogTimeout)
		c.logger.Debug("Ignoring unknown stream event", "event", msg.Event)
		return true
	}
}

func decodeEvent(msg eventstream.Message, target any) error {
	return json.Unmarshal([]byte(msg.Data), target)
}

func (r *analysisRun) malformed(msg eventstream.Message, err error) {
	r.client.metrics.RecordMalformedEvent(r.ctx, msg.Event)
	r.client.logger.Warn("Skipping malformed stream event",
		"event", msg.Event,
		"error", err.Error(),
		"data_length", len(msg.Data))
}

// triggerFallback abandons the stream and starts the synchronous request.
// Only the first call has any effect.
func (r *analysisRun) triggerFallback(reason string, cause error) {
	r.fallbackOnce.Do(func() {
		r.mu.Lock()
		if r.settled {
			r.mu.Unlock()
			return
		}
		if err := r.ctx.Err(); err != nil {
			r.settleLocked(nil, cancelledError(err), r.path)
			r.mu.Unlock()
			return
		}
		r.fallbackStarted = true
		r.path = pathFallback
		r.watchdog.Stop()
		r.deadline.Stop()
		r.mu.Unlock()

		r.cancelStream()

		logArgs := []any{"reason", reason}
		if cause != nil {
			logArgs = append(logArgs, "cause", cause.Error())
		}
		r.client.logger.Warn("Progress stream abandoned, falling back to synchronous analysis", logArgs...)
		r.client.metrics.RecordFallback(r.ctx, reason)

		go r.runFallback(reason)
	})
}

func (r *analysisRun) runFallback(reason string) {
	ctx, span := r.client.tracer.Start(r.fallbackCtx, "client.fallback",
		oteltrace.WithAttributes(attribute.String("fallback.reason", reason)))
	defer span.End()

	result, err := r.client.analyzeSync(ctx, r.body)
	if err != nil {
		if callerErr := r.ctx.Err(); callerErr != nil {
			err = cancelledError(callerErr)
		} else if appErr, ok := errors.AsAppError(err); ok {
			err = appErr.WithContext("stream_fallback_reason", reason)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "fallback failed")
	}

	r.mu.Lock()
	r.settleLocked(result, err, pathFallback)
	r.mu.Unlock()
}

// analyzeSync posts body to the synchronous endpoint
func (c *Client) analyzeSync(ctx context.Context, body []byte) (*types.AnalysisResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	resp, err := c.analyzeBreaker.Execute(func() (*response, error) {
		return c.send(ctx, http.MethodPost, c.cfg.SyncPath, body)
	})
	if err != nil {
		return nil, err
	}

	var result types.AnalysisResult
	if err := json.Unmarshal(resp.body, &result); err != nil {
		return nil, errors.NewProtocolError(errors.ErrCodeInvalidResponse, "analysis response could not be decoded", err)
	}
	if err := result.Validate(); err != nil {
		return nil, errors.NewProtocolError(errors.ErrCodeInvalidResponse, "analysis response is out of range", err)
	}
	return &result, nil
}

func cancelledError(cause error) *errors.AppError {
	return errors.NewNetworkError(errors.ErrCodeRequestCancelled, "analysis was cancelled", cause)
}
