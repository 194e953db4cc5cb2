package debugs

import (
	"errors"
	"testing"
	"time"

	"github.com/reusee/trials/signals"
	"go.starlark.net/starlark"
)

type sample struct {
	Block   string
	Ticks   uint64
	Elapsed time.Duration
	Err     error
	Values  signals.Snapshot
	hidden  int
}

func dict(pairs ...starlark.Value) *starlark.Dict {
	d := starlark.NewDict(len(pairs) / 2)
	for i := 0; i < len(pairs); i += 2 {
		_ = d.SetKey(pairs[i], pairs[i+1])
	}
	return d
}

func TestToStarlarkValue(t *testing.T) {
	s := &sample{
		Block:   "practice",
		Ticks:   60,
		Elapsed: 1500 * time.Millisecond,
		Values: signals.Snapshot{
			1: signals.Int(42),
		},
		hidden: 1,
	}
	want := dict(
		starlark.String("Block"), starlark.String("practice"),
		starlark.String("Ticks"), starlark.MakeUint64(60),
		starlark.String("Elapsed"), starlark.Float(1.5),
		starlark.String("Err"), starlark.None,
		starlark.String("Values"), dict(starlark.MakeUint64(1), starlark.MakeInt64(42)),
	)

	for _, c := range []struct {
		name string
		in   any
		want starlark.Value
	}{
		{"nil", nil, starlark.None},
		{"bool", true, starlark.True},
		{"string", "a", starlark.String("a")},
		{"int", int32(-3), starlark.MakeInt64(-3)},
		{"uint", uint16(3), starlark.MakeUint64(3)},
		{"float", 2.5, starlark.Float(2.5)},
		{"bytes", []byte("ab"), starlark.Bytes("ab")},
		{"signal int", signals.Int(3), starlark.MakeInt64(3)},
		{"signal text", signals.Text("x"), starlark.String("x")},
		{"signal null", signals.Null(), starlark.None},
		{"duration", 250 * time.Millisecond, starlark.Float(0.25)},
		{"error", errors.New("boom"), starlark.String("boom")},
		{"list", []string{"a", "b"}, starlark.NewList([]starlark.Value{starlark.String("a"), starlark.String("b")})},
		{"struct pointer", s, want},
		{"results", []*sample{s}, starlark.NewList([]starlark.Value{want})},
		{"nil pointer", (*sample)(nil), starlark.None},
	} {
		t.Run(c.name, func(t *testing.T) {
			got := toStarlarkValue(c.in)
			ok, err := starlark.Equal(got, c.want)
			if err != nil {
				t.Fatal(err)
			}
			if !ok {
				t.Fatalf("got %v", got)
			}
		})
	}

	defer func() {
		if p := recover(); p == nil {
			t.Fatal("should panic")
		}
	}()
	toStarlarkValue(make(chan int))
}
