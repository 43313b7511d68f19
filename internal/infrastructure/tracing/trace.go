package tracing

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/fedfs/internal/shared/id"
)

// Header names used for propagation
const (
	RequestIDHeader = "X-Request-ID"
	SpanIDHeader    = "X-Span-ID"
)

// Span is a single traced operation
type Span struct {
	RequestID  id.RequestID
	SpanID     string
	ParentID   string
	Name       string
	Service    string
	StartTime  time.Time
	Duration   time.Duration
	Tags       map[string]string
	Err        error
	StatusCode int
}

// Finish marks the span complete
func (s *Span) Finish() {
	s.Duration = time.Since(s.StartTime)
}

func (s *Span) SetTag(key, value string) {
	s.Tags[key] = value
}

func (s *Span) SetError(err error) {
	s.Err = err
}

// Tracer logs finished spans through a buffered collector
type Tracer struct {
	service string
	logger  *zap.Logger
	spans   chan *Span
	done    chan struct{}
}

// New creates a tracer and starts its collector.
func New(service string, logger *zap.Logger) *Tracer {
	t := &Tracer{
		service: service,
		logger:  logger,
		spans:   make(chan *Span, 1000),
		done:    make(chan struct{}),
	}
	go t.collect()
	return t
}

// StartSpan starts a span under the request carried by ctx, minting a request id if absent.
func (t *Tracer) StartSpan(ctx context.Context, name string) (*Span, context.Context) {
	requestID := RequestID(ctx)
	if requestID == "" {
		requestID = id.NewRequestID()
	}

	span := &Span{
		RequestID: requestID,
		SpanID:    id.NewRequestID().String(),
		ParentID:  spanID(ctx),
		Name:      name,
		Service:   t.service,
		StartTime: time.Now(),
		Tags:      make(map[string]string),
	}

	ctx = WithRequestID(ctx, requestID)
	ctx = context.WithValue(ctx, spanIDKey, span.SpanID)
	return span, ctx
}

// Submit hands a finished span to the collector, dropping it when the buffer is full.
func (t *Tracer) Submit(span *Span) {
	select {
	case t.spans <- span:
	default:
		t.logger.Warn("span buffer full, dropping span",
			zap.String("request_id", span.RequestID.String()),
			zap.String("span_id", span.SpanID),
		)
	}
}

// Close stops the collector after draining buffered spans.
func (t *Tracer) Close() {
	close(t.spans)
	<-t.done
}

func (t *Tracer) collect() {
	defer close(t.done)
	for span := range t.spans {
		fields := []zap.Field{
			zap.String("request_id", span.RequestID.String()),
			zap.String("span_id", span.SpanID),
			zap.String("operation", span.Name),
			zap.Duration("duration", span.Duration),
			zap.Int("status", span.StatusCode),
		}
		if span.ParentID != "" {
			fields = append(fields, zap.String("parent_id", span.ParentID))
		}
		for k, v := range span.Tags {
			fields = append(fields, zap.String(k, v))
		}
		if span.Err != nil {
			t.logger.Warn("span completed with error", append(fields, zap.Error(span.Err))...)
			continue
		}
		t.logger.Debug("span completed", fields...)
	}
}

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	spanIDKey    contextKey = "span_id"
)

// WithRequestID returns ctx carrying requestID
func WithRequestID(ctx context.Context, requestID id.RequestID) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestID returns the request id carried by ctx, or ""
func RequestID(ctx context.Context) id.RequestID {
	if v, ok := ctx.Value(requestIDKey).(id.RequestID); ok {
		return v
	}
	return ""
}

func spanID(ctx context.Context) string {
	if v, ok := ctx.Value(spanIDKey).(string); ok {
		return v
	}
	return ""
}

// Inject writes the propagation headers for ctx, minting a request id if needed.
// It returns the request id sent.
func Inject(ctx context.Context, header http.Header) id.RequestID {
	requestID := RequestID(ctx)
	if requestID == "" {
		requestID = id.NewRequestID()
	}
	header.Set(RequestIDHeader, requestID.String())
	if s := spanID(ctx); s != "" {
		header.Set(SpanIDHeader, s)
	}
	return requestID
}
