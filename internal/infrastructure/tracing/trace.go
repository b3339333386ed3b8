package tracing

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/webdesk/internal/shared/id"
)

// Propagation headers
const (
	HeaderTraceID = "X-Trace-ID"
	HeaderSpanID  = "X-Span-ID"
)

const spanBuffer = 1000

// SpanContext identifies a span within a trace
type SpanContext struct {
	TraceID string
	SpanID  string
}

// Valid reports whether the context carries a trace id
func (sc SpanContext) Valid() bool {
	return sc.TraceID != ""
}

type contextKey struct{}

// ContextWith returns ctx carrying sc
func ContextWith(ctx context.Context, sc SpanContext) context.Context {
	return context.WithValue(ctx, contextKey{}, sc)
}

// FromContext returns the span context carried by ctx, if any
func FromContext(ctx context.Context) (SpanContext, bool) {
	sc, ok := ctx.Value(contextKey{}).(SpanContext)
	return sc, ok && sc.Valid()
}

// TraceID returns the trace id carried by ctx, or ""
func TraceID(ctx context.Context) string {
	sc, _ := FromContext(ctx)
	return sc.TraceID
}

// Extract reads a span context from propagation headers
func Extract(h http.Header) SpanContext {
	return SpanContext{
		TraceID: h.Get(HeaderTraceID),
		SpanID:  h.Get(HeaderSpanID),
	}
}

// Inject writes the span context carried by ctx into h. It does nothing
// when ctx is not traced.
func Inject(ctx context.Context, h http.Header) {
	sc, ok := FromContext(ctx)
	if !ok {
		return
	}
	h.Set(HeaderTraceID, sc.TraceID)
	if sc.SpanID != "" {
		h.Set(HeaderSpanID, sc.SpanID)
	}
}

// LoggerFor returns logger annotated with the trace id carried by ctx
func LoggerFor(ctx context.Context, logger *zap.Logger) *zap.Logger {
	if traceID := TraceID(ctx); traceID != "" {
		return logger.With(zap.String("trace_id", traceID))
	}
	return logger
}

// Span is one timed operation. It is owned by a single goroutine until End.
// Methods on a nil *Span do nothing.
type Span struct {
	SpanContext
	ParentID string
	Name     string

	tracer *Tracer
	start  time.Time
	dur    time.Duration
	status int
	err    error
	attrs  []zap.Field
	ended  bool
}

// SetAttributes attaches fields to the span's log line
func (s *Span) SetAttributes(fields ...zap.Field) {
	if s == nil {
		return
	}
	s.attrs = append(s.attrs, fields...)
}

// SetStatus records a status code, HTTP or HTTP-like
func (s *Span) SetStatus(code int) {
	if s == nil {
		return
	}
	s.status = code
}

// RecordError marks the span as failed
func (s *Span) RecordError(err error) {
	if s != nil && err != nil {
		s.err = err
	}
}

// End stops the clock and hands the span to the collector. Later calls are
// ignored.
func (s *Span) End() {
	if s == nil || s.ended {
		return
	}
	s.ended = true
	s.dur = time.Since(s.start)
	s.tracer.submit(s)
}

// Tracer hands out spans and logs them from a collector goroutine
type Tracer struct {
	service string
	logger  *zap.Logger
	spans   chan *Span
	done    chan struct{}
	once    sync.Once

	mu     sync.RWMutex
	closed bool // Protected by mu
}

// New creates a tracer and starts its collector
func New(service string, logger *zap.Logger) *Tracer {
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &Tracer{
		service: service,
		logger:  logger,
		spans:   make(chan *Span, spanBuffer),
		done:    make(chan struct{}),
	}
	go t.collect()
	return t
}

// Start begins a span. It joins the trace carried by ctx, or starts a new
// one, and returns ctx carrying the new span.
func (t *Tracer) Start(ctx context.Context, name string) (context.Context, *Span) {
	parent, _ := FromContext(ctx)

	traceID := parent.TraceID
	if traceID == "" {
		traceID = id.NewTraceID().String()
	}

	span := &Span{
		SpanContext: SpanContext{TraceID: traceID, SpanID: id.Default().GenerateString()},
		ParentID:    parent.SpanID,
		Name:        name,
		tracer:      t,
		start:       time.Now(),
	}
	return ContextWith(ctx, span.SpanContext), span
}

// Close logs the spans already submitted and stops the collector. Spans
// ended afterwards are dropped.
func (t *Tracer) Close() {
	t.once.Do(func() {
		t.mu.Lock()
		t.closed = true
		close(t.spans)
		t.mu.Unlock()
		<-t.done
	})
}

func (t *Tracer) submit(span *Span) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return
	}

	select {
	case t.spans <- span:
	default:
		t.logger.Warn("span buffer full, dropping span",
			zap.String("trace_id", span.TraceID),
			zap.String("operation", span.Name),
		)
	}
}

func (t *Tracer) collect() {
	defer close(t.done)
	for span := range t.spans {
		t.log(span)
	}
}

func (t *Tracer) log(span *Span) {
	fields := make([]zap.Field, 0, 7+len(span.attrs))
	fields = append(fields,
		zap.String("service", t.service),
		zap.String("trace_id", span.TraceID),
		zap.String("span_id", span.SpanID),
		zap.String("operation", span.Name),
		zap.Duration("duration", span.dur),
	)
	if span.ParentID != "" {
		fields = append(fields, zap.String("parent_id", span.ParentID))
	}
	if span.status != 0 {
		fields = append(fields, zap.Int("status", span.status))
	}
	fields = append(fields, span.attrs...)

	switch {
	case span.err != nil:
		t.logger.Error("span completed with error", append(fields, zap.Error(span.err))...)
	case span.status >= http.StatusInternalServerError:
		t.logger.Warn("span completed", fields...)
	default:
		t.logger.Info("span completed", fields...)
	}
}
