package ai

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
)

// Tool is an invokable tool. A return-direct tool's output is handed back to
// the caller without another model round.
type Tool struct {
	tool.InvokableTool
	ReturnDirect bool
}

// NewTool infers the parameter schema from the input type T.
func NewTool[T, D any](name, desc string, fn func(ctx context.Context, input T) (D, error), returnDirect bool) (Tool, error) {
	t, err := utils.InferTool(name, desc, fn)
	if err != nil {
		return Tool{}, fmt.Errorf("infer tool %s failed: %w", name, err)
	}
	return Tool{InvokableTool: t, ReturnDirect: returnDirect}, nil
}

type toolContextKey struct{}

// WithToolContext attaches request-scoped values for tools, such as the user id.
func WithToolContext(ctx context.Context, values map[string]any) context.Context {
	if len(values) == 0 {
		return ctx
	}
	return context.WithValue(ctx, toolContextKey{}, values)
}

func ToolContextFrom(ctx context.Context) map[string]any {
	values, _ := ctx.Value(toolContextKey{}).(map[string]any)
	return values
}

// ToolContextString reads one tool context value as a string.
func ToolContextString(ctx context.Context, key string) string {
	v, ok := ToolContextFrom(ctx)[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
