package logging

import (
	"context"
	"regexp"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const maxRequestIDLen = 128

var requestIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

type (
	requestIDKey struct{}
	checkKey     struct{}
)

// ContextFields returns the correlation fields carried by ctx: trace_id and
// span_id from the active span, request.id from the HTTP layer and check
// from the validation pipeline.
func ContextFields(ctx context.Context) []zap.Field {
	if ctx == nil {
		return nil
	}
	var fields []zap.Field
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			zap.Stringer("trace_id", sc.TraceID()),
			zap.Stringer("span_id", sc.SpanID()),
		)
	}
	if id := RequestIDFromContext(ctx); id != "" {
		fields = append(fields, zap.String("request.id", id))
	}
	if name := CheckFromContext(ctx); name != "" {
		fields = append(fields, zap.String("check", name))
	}
	return fields
}

// WithRequestID tags ctx with a request ID. Malformed IDs are dropped.
func WithRequestID(ctx context.Context, id string) context.Context {
	if !ValidRequestID(id) {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request ID, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// ValidRequestID reports whether id is safe to use as a log correlation key.
func ValidRequestID(id string) bool {
	return id != "" && len(id) <= maxRequestIDLen && requestIDPattern.MatchString(id)
}

// WithCheck tags ctx with the name of the validation check running under it.
func WithCheck(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, checkKey{}, name)
}

// CheckFromContext returns the check name, or "".
func CheckFromContext(ctx context.Context) string {
	name, _ := ctx.Value(checkKey{}).(string)
	return name
}
