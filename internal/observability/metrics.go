package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the custom instruments for resumeinsight.
// All record methods are safe to call on a nil *Metrics.
type Metrics struct {
	// Analysis metrics
	AnalysisDuration metric.Float64Histogram
	AnalysisRequests metric.Int64Counter
	AnalysisErrors   metric.Int64Counter

	// Stream metrics
	StreamFallbacks metric.Int64Counter
	StreamEvents    metric.Int64Counter
	MalformedEvents metric.Int64Counter

	// Gateway metrics
	RateLimitHits     metric.Int64Counter
	DocumentsRejected metric.Int64Counter
}

// NewMetrics creates every instrument on meter
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.AnalysisDuration, err = meter.Float64Histogram(
		"resumeinsight_analysis_duration_seconds",
		metric.WithDescription("Time from request start until the analysis settled"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create analysis duration metric: %w", err)
	}

	counters := []struct {
		target      *metric.Int64Counter
		name        string
		description string
	}{
		{&m.AnalysisRequests, "resumeinsight_analysis_requests_total", "Total number of analysis requests"},
		{&m.AnalysisErrors, "resumeinsight_analysis_errors_total", "Total number of failed analyses"},
		{&m.StreamFallbacks, "resumeinsight_stream_fallbacks_total", "Total number of fallbacks to the synchronous endpoint"},
		{&m.StreamEvents, "resumeinsight_stream_events_total", "Total number of stream events received"},
		{&m.MalformedEvents, "resumeinsight_stream_malformed_events_total", "Total number of stream events that failed to decode"},
		{&m.RateLimitHits, "resumeinsight_rate_limit_hits_total", "Total number of rate limit hits"},
		{&m.DocumentsRejected, "resumeinsight_documents_rejected_total", "Total number of documents rejected before upload"},
	}
	for _, c := range counters {
		*c.target, err = meter.Int64Counter(c.name, metric.WithDescription(c.description))
		if err != nil {
			return nil, fmt.Errorf("failed to create %s metric: %w", c.name, err)
		}
	}

	return m, nil
}

// RecordAnalysis records a settled analysis. path is "stream" or "fallback".
func (m *Metrics) RecordAnalysis(ctx context.Context, path string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("path", path),
		attribute.Bool("success", err == nil),
	}
	m.AnalysisDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	m.AnalysisRequests.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordAnalysisError records a failed analysis by error type
func (m *Metrics) RecordAnalysisError(ctx context.Context, errorType string) {
	if m == nil {
		return
	}
	m.AnalysisErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("error_type", errorType)))
}

// RecordFallback records a switch to the synchronous endpoint
func (m *Metrics) RecordFallback(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.StreamFallbacks.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// RecordStreamEvent records a parsed stream event
func (m *Metrics) RecordStreamEvent(ctx context.Context, event string) {
	if m == nil {
		return
	}
	m.StreamEvents.Add(ctx, 1, metric.WithAttributes(attribute.String("event", event)))
}

// RecordMalformedEvent records a stream event whose payload could not be decoded
func (m *Metrics) RecordMalformedEvent(ctx context.Context, event string) {
	if m == nil {
		return
	}
	m.MalformedEvents.Add(ctx, 1, metric.WithAttributes(attribute.String("event", event)))
}

// RecordRateLimitHit records a rejected gateway request
func (m *Metrics) RecordRateLimitHit(ctx context.Context, keyType string) {
	if m == nil {
		return
	}
	m.RateLimitHits.Add(ctx, 1, metric.WithAttributes(attribute.String("key_type", keyType)))
}

// RecordDocumentRejected records a document that failed pre-flight validation
func (m *Metrics) RecordDocumentRejected(ctx context.Context, code string) {
	if m == nil {
		return
	}
	m.DocumentsRejected.Add(ctx, 1, metric.WithAttributes(attribute.String("code", code)))
}
