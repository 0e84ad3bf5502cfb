package logging

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ContextFields extracts correlation data from context.
func ContextFields(ctx context.Context) []zap.Field {
	if ctx == nil {
		return nil
	}
	fields := make([]zap.Field, 0, 4)

	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		sc := span.SpanContext()
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}
	if requestID := RequestIDFromContext(ctx); requestID != "" {
		fields = append(fields, zap.String("request.id", requestID))
	}
	if entityType := EntityTypeFromContext(ctx); entityType != "" {
		fields = append(fields, zap.String("entity.type", entityType))
	}
	return fields
}

type requestCtxKey struct{}
type entityTypeCtxKey struct{}
type loggerCtxKey struct{}

// RequestIDFromContext extracts request ID from context.
func RequestIDFromContext(ctx context.Context) string {
	if r, ok := ctx.Value(requestCtxKey{}).(string); ok {
		return r
	}
	return ""
}

// WithRequestID adds request ID to context. Empty IDs are ignored.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestCtxKey{}, requestID)
}

// EntityTypeFromContext extracts the entity type being retrieved or indexed.
func EntityTypeFromContext(ctx context.Context) string {
	if r, ok := ctx.Value(entityTypeCtxKey{}).(string); ok {
		return r
	}
	return ""
}

// WithEntityType adds the entity type to context. Empty values are ignored.
func WithEntityType(ctx context.Context, entityType string) context.Context {
	if entityType == "" {
		return ctx
	}
	return context.WithValue(ctx, entityTypeCtxKey{}, entityType)
}

// WithLogger stores logger in context.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey{}, logger)
}

// FromContext retrieves logger from context, or a nop logger.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerCtxKey{}).(*Logger); ok && l != nil {
		return l
	}
	return NewNop()
}
