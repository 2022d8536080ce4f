package llm

import "context"

// TraceContext identifies the run and stage an LLM call belongs to.
type TraceContext struct {
	RunID string
	Stage string
}

type traceContextKey struct{}

// WithTraceContext adds trace information to a context.
func WithTraceContext(ctx context.Context, tc TraceContext) context.Context {
	return context.WithValue(ctx, traceContextKey{}, tc)
}

// GetTraceContext extracts trace information from a context.
func GetTraceContext(ctx context.Context) TraceContext {
	if tc, ok := ctx.Value(traceContextKey{}).(TraceContext); ok {
		return tc
	}
	return TraceContext{}
}

// WithStage returns ctx with its trace stage replaced.
func WithStage(ctx context.Context, stage string) context.Context {
	tc := GetTraceContext(ctx)
	tc.Stage = stage
	return WithTraceContext(ctx, tc)
}
