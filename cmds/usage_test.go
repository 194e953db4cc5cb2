package cmds

import (
	"bytes"
	"strings"
	"testing"
)

func TestUsage(t *testing.T) {
	executor := NewExecutor()
	executor.Define("foo", Sub(map[string]*Command{
		"bar": Func(func() {
		}).Desc("BAR"),
		"baz": Sub(map[string]*Command{
			"qux": Func(func(n int) {}).Desc("QUX"),
		}).Desc("BAZ"),
	}).Desc("FOO"))

	buf := new(bytes.Buffer)
	executor.WriteUsage(buf)
	out := buf.String()
	for _, want := range []string{
		"foo\tFOO",
		"  bar\tBAR",
		"    qux <int>\tQUX",
		"-h (help, -help, --help)",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("got %v", out)
		}
	}
}
