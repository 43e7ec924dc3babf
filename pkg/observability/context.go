package observability

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type ctxKey int

const (
	correlationIDKey ctxKey = iota
	workOrderIDKey
)

// WithSaga returns a context carrying the saga identifiers of the message being handled.
func WithSaga(ctx context.Context, correlationID, workOrderID string) context.Context {
	ctx = context.WithValue(ctx, correlationIDKey, correlationID)
	return context.WithValue(ctx, workOrderIDKey, workOrderID)
}

func CorrelationID(ctx context.Context) string {
	v, _ := ctx.Value(correlationIDKey).(string)
	return v
}

func WorkOrderID(ctx context.Context) string {
	v, _ := ctx.Value(workOrderIDKey).(string)
	return v
}

// Logger decorates base with the saga identifiers and trace id found in ctx.
func Logger(ctx context.Context, base *zap.Logger) *zap.Logger {
	fields := make([]zap.Field, 0, 3)
	if id := CorrelationID(ctx); id != "" {
		fields = append(fields, zap.String("correlation_id", id))
	}
	if id := WorkOrderID(ctx); id != "" {
		fields = append(fields, zap.String("work_order_id", id))
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		fields = append(fields, zap.String("trace_id", sc.TraceID().String()))
	}
	return base.With(fields...)
}
