package logs

import (
	"context"

	"github.com/oklog/ulid/v2"
)

// NewSpan opens a child of the span in ctx. Span ids sort by creation time.
type NewSpan func(ctx context.Context, name string) (context.Context, Span)

func (Module) NewSpan(
	logger Logger,
) NewSpan {
	return func(ctx context.Context, name string) (context.Context, Span) {
		var parent Span
		if v := ctx.Value(SpanKey); v != nil {
			parent = v.(Span)
		}

		span := Span(ulid.Make().String())
		ctx = context.WithValue(ctx, SpanKey, span)

		args := []any{"name", name}
		if parent != "" {
			args = append(args, "parent", parent)
		}
		logger.InfoContext(ctx, "new span", args...)

		return ctx, span
	}
}
