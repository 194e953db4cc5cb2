package debugs

import (
	"context"
	"io"
	"maps"
	"os"
	"slices"

	"github.com/reusee/trials/logs"
	"go.starlark.net/repl"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Tap opens a starlark prompt with globals bound, returning when input ends.
type Tap func(ctx context.Context, what string, globals map[string]any)

// TapInput is where the prompt reads from.
type TapInput io.Reader

func (Module) TapInput() TapInput {
	return os.Stdin
}

func (Module) Tap(
	logger logs.Logger,
	input TapInput,
) Tap {
	return func(ctx context.Context, what string, globals map[string]any) {
		logger.InfoContext(ctx, "tap: "+what,
			"globals", slices.Sorted(maps.Keys(globals)),
		)
		defer func() {
			logger.InfoContext(ctx, "tap end: "+what)
		}()

		mappings := make(starlark.StringDict)
		for name, value := range globals {
			mappings[name] = toStarlarkValue(value)
		}

		thread := &starlark.Thread{
			Name: "tap",
			Print: func(_ *starlark.Thread, msg string) {
				logger.InfoContext(ctx, "tap print", "message", msg)
			},
		}
		if f, ok := input.(*os.File); ok && f == os.Stdin {
			repl.REPLOptions(&syntax.FileOptions{
				Set:             true,
				While:           true,
				TopLevelControl: true,
			}, thread, mappings)
			return
		}
		// non-terminal input runs as one program
		src, err := io.ReadAll(input)
		if err != nil {
			logger.WarnContext(ctx, "tap input", "error", err)
			return
		}
		if _, err := starlark.ExecFileOptions(&syntax.FileOptions{
			Set:             true,
			While:           true,
			TopLevelControl: true,
			GlobalReassign:  true,
		}, thread, what, src, mappings); err != nil {
			logger.WarnContext(ctx, "tap program", "error", err)
		}
	}
}
