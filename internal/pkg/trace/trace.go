// Package trace carries the per-request trace id through context.Context.
package trace

import "context"

type ctxKey struct{}

const HeaderName = "X-Trace-Id"

func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func FromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}
