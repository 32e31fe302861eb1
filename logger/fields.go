package logger

import (
	"context"

	"go.uber.org/zap"
)

// Field names shared by every longrun log line.
const (
	FieldJobID     = "job_id"
	FieldJobName   = "job_name"
	FieldRequestID = "request_id"

	FieldComponent = "component"
	FieldService   = "service"
	FieldBackend   = "backend"

	FieldOperation = "operation"
	FieldMethod    = "method"
	FieldPath      = "path"

	FieldStartTime = "start"
	FieldEndTime   = "end"
	FieldDuration  = "duration_s"

	FieldError = "error"

	FieldCount = "count"

	FieldStatus         = "status"
	FieldRecordedStatus = "recorded_status"

	FieldAddress = "address"

	FieldSymbol = "symbol" // longrun symbol (꩜, ✿, ❀, ⊔)
)

type contextKey string

const (
	jobIDKey     contextKey = "logger_job_id"
	requestIDKey contextKey = "logger_request_id"
	componentKey contextKey = "logger_component"
)

// WithJobID tags log lines derived from ctx with a job identity.
func WithJobID(ctx context.Context, jobID string) context.Context {
	return context.WithValue(ctx, jobIDKey, jobID)
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

func WithComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, componentKey, component)
}

// FieldsFromContext returns the key-value pairs set by the With* helpers.
func FieldsFromContext(ctx context.Context) []interface{} {
	var fields []interface{}

	if jobID, ok := ctx.Value(jobIDKey).(string); ok && jobID != "" {
		fields = append(fields, FieldJobID, jobID)
	}
	if requestID, ok := ctx.Value(requestIDKey).(string); ok && requestID != "" {
		fields = append(fields, FieldRequestID, requestID)
	}
	if component, ok := ctx.Value(componentKey).(string); ok && component != "" {
		fields = append(fields, FieldComponent, component)
	}

	return fields
}

// FromContext returns base with the fields carried by ctx.
func FromContext(ctx context.Context, base *zap.SugaredLogger) *zap.SugaredLogger {
	fields := FieldsFromContext(ctx)
	if len(fields) == 0 {
		return base
	}
	return base.With(fields...)
}

// ComponentLogger names the global logger for one component, e.g.
//
//	registry.NewAdapter(backend, kinds, longrun.ServiceName, logger.ComponentLogger("registry"))
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}
