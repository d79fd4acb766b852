package logger

import (
	"context"

	"go.uber.org/zap"
)

// Standard field names for consistent structured logging across taxa.
// Use these constants instead of raw strings to ensure consistency.
const (
	// Identity and context
	FieldRequestID = "request_id"
	FieldComponent = "component"

	// Operations
	FieldMethod     = "method"
	FieldOperation  = "operation"
	FieldDurationMS = "duration_ms"

	// Errors
	FieldError     = "error"
	FieldErrorKind = "error_kind"

	// Counts
	FieldCount      = "count"
	FieldTotalCount = "total_count"

	// Network
	FieldAddress = "address"
	FieldPort    = "port"

	// Taxonomy
	FieldNamespace = "ns"
	FieldTaxonID   = "taxon_id"
	FieldObjRef    = "obj_ref"
	FieldBackend   = "backend"
	FieldPath      = "path"
)

type contextKey string

const requestIDKey contextKey = "logger_request_id"

// WithRequestID adds a request ID to the context for logging
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext returns the request ID stored by WithRequestID, if any
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// FromContext returns base enriched with the request ID carried by ctx.
func FromContext(ctx context.Context, base *zap.SugaredLogger) *zap.SugaredLogger {
	if id := RequestIDFromContext(ctx); id != "" {
		return base.With(FieldRequestID, id)
	}
	return base
}

// ComponentLogger returns a named logger for a specific component.
// This is the preferred way to get a logger for dependency injection.
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}
