package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/shrek82/jdao/core"
)

type traceKey struct{}

// WithTraceField adds a field, such as a request id or client address, to the
// log records of every statement executed with the returned context.
func WithTraceField(ctx context.Context, name string, value any) context.Context {
	prev, _ := ctx.Value(traceKey{}).(map[string]any)
	fields := make(map[string]any, len(prev)+1)
	for k, v := range prev {
		fields[k] = v
	}
	fields[name] = value
	return context.WithValue(ctx, traceKey{}, fields)
}

// TraceFields returns the fields added with WithTraceField.
func TraceFields(ctx context.Context) map[string]any {
	fields, _ := ctx.Value(traceKey{}).(map[string]any)
	return fields
}

// TracingMiddleware attaches the context's trace fields and a per-call id to
// the statement log.
type TracingMiddleware struct{}

func NewTracing() *TracingMiddleware {
	return &TracingMiddleware{}
}

func (m *TracingMiddleware) Name() string {
	return "Tracing"
}

func (m *TracingMiddleware) Init(db *core.DB) error {
	return nil
}

func (m *TracingMiddleware) Shutdown() error {
	return nil
}

func (m *TracingMiddleware) Process(ctx context.Context, call *core.Call, next core.Handler) (*core.Result, error) {
	fields := map[string]any{"call_id": uuid.NewString()}
	for k, v := range TraceFields(ctx) {
		fields[k] = v
	}
	call.WithFields(fields)
	return next(ctx, call)
}
