package observability

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	// LogFieldRequestID is the field name for request ID.
	LogFieldRequestID = "request_id"
	// LogFieldMentionID is the field name for the platform mention id.
	LogFieldMentionID = "mention_id"
	// LogFieldAgent is the field name for the agent handle.
	LogFieldAgent = "agent"
	// LogFieldTickID is the field name for the ingestion tick id.
	LogFieldTickID = "tick_id"
	// LogFieldDuration is the field name for duration in milliseconds.
	LogFieldDuration = "duration_ms"
	// LogFieldErrorCode is the field name for error code.
	LogFieldErrorCode = "error_code"
	// LogFieldOutcome is the field name for the classifier outcome.
	LogFieldOutcome = "outcome"
)

// RequestContext carries the identity of one mention's handling for
// structured logging.
type RequestContext struct {
	RequestID string
	MentionID string
	Agent     string
	StartTime time.Time
	Logger    *slog.Logger
}

// NewRequestContext creates a new request context with a generated request ID.
func NewRequestContext(logger *slog.Logger, agent, mentionID string) *RequestContext {
	if logger == nil {
		logger = slog.Default()
	}
	return &RequestContext{
		RequestID: uuid.New().String(),
		MentionID: mentionID,
		Agent:     agent,
		StartTime: time.Now(),
		Logger:    logger,
	}
}

// With returns a copy whose logger carries the additional attributes.
func (r *RequestContext) With(attrs ...slog.Attr) *RequestContext {
	args := make([]any, 0, len(attrs))
	for _, attr := range attrs {
		args = append(args, attr)
	}
	clone := *r
	clone.Logger = r.Logger.With(args...)
	return &clone
}

func (r *RequestContext) Info(msg string, attrs ...slog.Attr) {
	r.log(slog.LevelInfo, msg, attrs)
}

func (r *RequestContext) Debug(msg string, attrs ...slog.Attr) {
	r.log(slog.LevelDebug, msg, attrs)
}

func (r *RequestContext) Warn(msg string, attrs ...slog.Attr) {
	r.log(slog.LevelWarn, msg, attrs)
}

// Error logs msg with err and its pipeline error code.
func (r *RequestContext) Error(msg string, err error, code string, attrs ...slog.Attr) {
	extra := []slog.Attr{slog.String(LogFieldErrorCode, code)}
	if err != nil {
		extra = append(extra, slog.String("error", err.Error()))
	}
	r.log(slog.LevelError, msg, append(attrs, extra...))
}

// Duration returns the elapsed time since the request started.
func (r *RequestContext) Duration() time.Duration {
	return time.Since(r.StartTime)
}

func (r *RequestContext) log(level slog.Level, msg string, attrs []slog.Attr) {
	combined := make([]slog.Attr, 0, len(attrs)+3)
	combined = append(combined,
		slog.String(LogFieldRequestID, r.RequestID),
		slog.String(LogFieldMentionID, r.MentionID),
		slog.String(LogFieldAgent, r.Agent),
	)
	combined = append(combined, attrs...)
	r.Logger.LogAttrs(context.Background(), level, msg, combined...)
}

type ctxKey struct{}

// WithRequestContext adds the request context to the context.
func WithRequestContext(ctx context.Context, reqCtx *RequestContext) context.Context {
	return context.WithValue(ctx, ctxKey{}, reqCtx)
}

// FromContext extracts the request context from the context.
func FromContext(ctx context.Context) (*RequestContext, bool) {
	reqCtx, ok := ctx.Value(ctxKey{}).(*RequestContext)
	return reqCtx, ok
}

// Logger returns the request context stored in ctx, or an anonymous one
// logging to the default logger.
func Logger(ctx context.Context) *RequestContext {
	if reqCtx, ok := FromContext(ctx); ok {
		return reqCtx
	}
	return &RequestContext{StartTime: time.Now(), Logger: slog.Default()}
}
