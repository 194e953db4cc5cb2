package interps

import (
	"strings"
	"testing"

	"github.com/reusee/trials/signals"
)

func TestEvaluate(t *testing.T) {
	interp := NewStarlark(nil)
	for _, c := range []struct {
		expr string
		vars map[string]signals.Value
		want signals.Value
	}{
		{"self + 1", map[string]signals.Value{"self": signals.Int(41)}, signals.Int(42)},
		{"x * 0.5", map[string]signals.Value{"x": signals.Int(3)}, signals.Float(1.5)},
		{"rt > 0.2", map[string]signals.Value{"rt": signals.Float(0.3)}, signals.Bool(true)},
		{"key + '!'", map[string]signals.Value{"key": signals.Text("a")}, signals.Text("a!")},
		{"self == None", map[string]signals.Value{"self": signals.Null()}, signals.Bool(true)},
		{"math.sqrt(16)", nil, signals.Float(4)},
		{"None", nil, signals.Null()},
	} {
		got, err := interp.Evaluate(c.expr, c.vars)
		if err != nil {
			t.Fatalf("%s: %v", c.expr, err)
		}
		if !got.Equal(c.want) {
			t.Fatalf("%s: got %v", c.expr, got)
		}
	}
}

func TestEvaluateErrors(t *testing.T) {
	interp := NewStarlark(nil)
	if _, err := interp.Evaluate("undefined_name", nil); err == nil {
		t.Fatal("should error")
	}
	if _, err := interp.Evaluate("[1, 2]", nil); err == nil || !strings.Contains(err.Error(), "unsupported result type") {
		t.Fatalf("got %v", err)
	}
}

func TestExecute(t *testing.T) {
	var logged []string
	interp := NewStarlark(func(s string) {
		logged = append(logged, s)
	})
	globals, err := interp.Execute("init", `
def double(n):
    return n * 2
count = double(base)
label = "trial-%d" % count
log(label)
`, map[string]signals.Value{
		"base": signals.Int(3),
	})
	if err != nil {
		t.Fatal(err)
	}
	if !globals["count"].Equal(signals.Int(6)) {
		t.Fatalf("got %v", globals)
	}
	if !globals["label"].Equal(signals.Text("trial-6")) {
		t.Fatalf("got %v", globals)
	}
	if _, ok := globals["double"]; ok {
		t.Fatal()
	}
	if len(logged) != 1 || logged[0] != "trial-6" {
		t.Fatalf("got %v", logged)
	}
}

func TestStepLimit(t *testing.T) {
	interp := NewStarlark(nil)
	_, err := interp.Execute("loop", `
n = 0
while True:
    n += 1
`, nil)
	if err == nil {
		t.Fatal("should error")
	}
}

func TestInterpreters(t *testing.T) {
	interps := Interpreters{
		DefaultName: NewStarlark(nil),
	}
	if _, err := interps.Get(""); err != nil {
		t.Fatal(err)
	}
	if _, err := interps.Get("lua"); err == nil {
		t.Fatal("should error")
	}
}
