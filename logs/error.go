package logs

import (
	"context"
	"fmt"
)

// WrapSpan tags err with the span in ctx so a failure can be found in the logs.
func WrapSpan(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	v := ctx.Value(SpanKey)
	if v == nil {
		return err
	}
	return fmt.Errorf("%w (span %s)", err, v.(Span))
}
