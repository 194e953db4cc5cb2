package logs

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/reusee/dscope"
)

func TestHandler(t *testing.T) {
	buf := new(bytes.Buffer)
	dscope.New(new(Module)).Fork(
		func() Writer {
			return buf
		},
	).Call(func(
		logger Logger,
	) {
		ctx := context.WithValue(context.Background(), SpanKey, Span("s1"))
		logger.InfoContext(ctx, "block start", "block", "practice")
		out := buf.String()
		if !strings.Contains(out, "block=practice") {
			t.Fatalf("got %v", out)
		}
		if !strings.Contains(out, "logs.span=s1") {
			t.Fatalf("got %v", out)
		}
	})
}

func TestToJournalKey(t *testing.T) {
	if got := toJournalKey("logs.span"); got != "LOGS_SPAN" {
		t.Fatalf("got %v", got)
	}
}
