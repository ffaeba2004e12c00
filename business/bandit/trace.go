package bandit

import "context"

type traceKey struct{}

// WithTraceID tags ctx so decision, ingest and aggregation logs from one
// request or cron run can be joined.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceKey{}, traceID)
}

// TraceIDFromContext returns "" for untagged contexts.
func TraceIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(traceKey{}).(string)
	return id
}
