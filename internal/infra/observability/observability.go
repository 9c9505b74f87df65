// Package observability carries the client-side telemetry of voucherdesk:
// in-memory action spans and Prometheus metrics for backend calls, dropped
// stale responses, batch outcomes and notifications.
package observability

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ═══════════════════════════════════════════════════════════════════════════
// Action Spans
// ═══════════════════════════════════════════════════════════════════════════

// SpanKind classifies a span.
type SpanKind int

const (
	SpanInternal SpanKind = iota
	SpanServer
	SpanClient
)

// Span represents a unit of work within a distributed trace.
type Span struct {
	TraceID   string            `json:"trace_id"`
	SpanID    string            `json:"span_id"`
	ParentID  string            `json:"parent_id,omitempty"`
	Operation string            `json:"operation"`
	Kind      SpanKind          `json:"kind"`
	StartTime time.Time         `json:"start_time"`
	EndTime   time.Time         `json:"end_time,omitempty"`
	Duration  time.Duration     `json:"duration,omitempty"`
	Status    SpanStatus        `json:"status"`
	Attrs     map[string]string `json:"attrs,omitempty"`
}

// SpanStatus indicates success/failure.
type SpanStatus int

const (
	SpanOK SpanStatus = iota
	SpanError
)

// ─── Tracer ─────────────────────────────────────────────────────────────────

// Tracer keeps the most recent action spans in memory so the dashboard can
// show what the operator did and how long each backend round trip took.
type Tracer struct {
	mu       sync.Mutex
	spans    []Span
	maxSpans int
	enabled  bool
}

// TracerConfig configures the tracer.
type TracerConfig struct {
	Enabled  bool
	MaxSpans int // ring buffer size (default 500)
}

// DefaultTracerConfig returns production defaults.
func DefaultTracerConfig() TracerConfig {
	return TracerConfig{
		Enabled:  true,
		MaxSpans: 500,
	}
}

// NewTracer creates a new tracer.
func NewTracer(cfg TracerConfig) *Tracer {
	return &Tracer{
		spans:    make([]Span, 0, cfg.MaxSpans),
		maxSpans: cfg.MaxSpans,
		enabled:  cfg.Enabled,
	}
}

// StartSpan begins a new span with the given operation name.
// Returns the span (caller must call EndSpan when done).
func (t *Tracer) StartSpan(ctx context.Context, operation string, attrs map[string]string) *Span {
	if !t.enabled {
		return &Span{Operation: operation}
	}

	span := &Span{
		TraceID:   traceIDFromContext(ctx),
		SpanID:    generateID(),
		ParentID:  spanIDFromContext(ctx),
		Operation: operation,
		Kind:      SpanInternal,
		StartTime: time.Now(),
		Status:    SpanOK,
		Attrs:     attrs,
	}

	return span
}

// SetAttr records an attribute on the span.
func (s *Span) SetAttr(key, value string) {
	if s.Attrs == nil {
		s.Attrs = make(map[string]string)
	}
	s.Attrs[key] = value
}

// EndSpan completes a span and records it.
func (t *Tracer) EndSpan(span *Span, err error) {
	if !t.enabled || span == nil {
		return
	}

	span.EndTime = time.Now()
	span.Duration = span.EndTime.Sub(span.StartTime)
	if err != nil {
		span.Status = SpanError
		span.SetAttr("error", err.Error())
	}

	ActionSpans.WithLabelValues(span.Operation, spanOutcome(span.Status)).Inc()

	t.mu.Lock()
	defer t.mu.Unlock()

	// Ring buffer: overwrite oldest if at capacity
	if len(t.spans) >= t.maxSpans {
		t.spans = t.spans[1:]
	}
	t.spans = append(t.spans, *span)
}

// Spans returns a copy of the recent spans.
func (t *Tracer) Spans(limit int) []Span {
	t.mu.Lock()
	defer t.mu.Unlock()

	if limit <= 0 || limit > len(t.spans) {
		limit = len(t.spans)
	}

	// Return most recent spans
	start := len(t.spans) - limit
	out := make([]Span, limit)
	copy(out, t.spans[start:])
	return out
}

// SpanCount returns the number of recorded spans.
func (t *Tracer) SpanCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.spans)
}

// Reset clears all recorded spans.
func (t *Tracer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.spans = t.spans[:0]
}

// ─── Context Helpers ────────────────────────────────────────────────────────

type contextKey string

const (
	traceIDKey contextKey = "voucherdesk-trace-id"
	spanIDKey  contextKey = "voucherdesk-span-id"
)

// WithTraceID returns a context with the given trace ID.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// WithSpanID returns a context with the given span ID.
func WithSpanID(ctx context.Context, spanID string) context.Context {
	return context.WithValue(ctx, spanIDKey, spanID)
}

func traceIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(traceIDKey).(string); ok {
		return v
	}
	return generateID()
}

func spanIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(spanIDKey).(string); ok {
		return v
	}
	return ""
}

func generateID() string {
	return uuid.NewString()
}

func spanOutcome(s SpanStatus) string {
	if s == SpanError {
		return "error"
	}
	return "ok"
}

// ═══════════════════════════════════════════════════════════════════════════
// Prometheus Metrics
// ═══════════════════════════════════════════════════════════════════════════

// ─── Transport ──────────────────────────────────────────────────────────────

// TransportRequests counts backend calls by method and HTTP status code
// ("0" when no response was received).
var TransportRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "voucherdesk",
	Subsystem: "transport",
	Name:      "requests_total",
	Help:      "Total backend requests by method and status code.",
}, []string{"method", "code"})

// TransportLatency tracks backend round-trip latency.
var TransportLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "voucherdesk",
	Subsystem: "transport",
	Name:      "latency_seconds",
	Help:      "Backend round-trip latency in seconds.",
	Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
}, []string{"method"})

// ─── List State ─────────────────────────────────────────────────────────────

// StaleResponsesDropped counts responses discarded because a newer request
// for the same list was issued after them.
var StaleResponsesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "voucherdesk",
	Subsystem: "list",
	Name:      "stale_responses_dropped_total",
	Help:      "Responses dropped because a newer request superseded them.",
}, []string{"list"})

// ListReloads counts applied list reloads by tab.
var ListReloads = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "voucherdesk",
	Subsystem: "list",
	Name:      "reloads_total",
	Help:      "Voucher list reloads applied to the view, by tab.",
}, []string{"tab"})

// ─── Actions ────────────────────────────────────────────────────────────────

// ActionSpans counts finished action spans by operation and outcome.
var ActionSpans = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "voucherdesk",
	Subsystem: "actions",
	Name:      "total",
	Help:      "Voucher actions by operation and outcome.",
}, []string{"operation", "outcome"})

// BatchSteps counts individual steps of batch operations such as bulk
// create, by operation and outcome.
var BatchSteps = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "voucherdesk",
	Subsystem: "actions",
	Name:      "batch_steps_total",
	Help:      "Individual steps of batch operations, by operation and outcome.",
}, []string{"operation", "outcome"})

// ─── Projection ─────────────────────────────────────────────────────────────

// Notifications counts notifications shown to the operator by kind.
var Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "voucherdesk",
	Subsystem: "ui",
	Name:      "notifications_total",
	Help:      "Notifications shown to the operator, by kind.",
}, []string{"kind"})
