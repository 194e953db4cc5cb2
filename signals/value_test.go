package signals

import (
	"encoding/json"
	"testing"
)

func TestTruthy(t *testing.T) {
	for _, c := range []struct {
		value Value
		want  bool
	}{
		{Null(), false},
		{Bool(true), true},
		{Bool(false), false},
		{Int(1), true},
		{Int(0), false},
		{Int(-3), false},
		{Float(0.5), true},
		{Float(0), false},
		{Text("yes"), false},
	} {
		if got := c.value.Truthy(); got != c.want {
			t.Fatalf("%v: got %v", c.value, got)
		}
	}
}

func TestFromAny(t *testing.T) {
	v, err := FromAny(uint8(3))
	if err != nil {
		t.Fatal(err)
	}
	if i, ok := v.AsInt(); !ok || i != 3 {
		t.Fatalf("got %v", v)
	}
	v, err = FromAny(json.Number("2.5"))
	if err != nil {
		t.Fatal(err)
	}
	if f, ok := v.AsFloat(); !ok || f != 2.5 {
		t.Fatalf("got %v", v)
	}
	if _, err := FromAny([]int{1}); err == nil {
		t.Fatal("should error")
	}
}

func TestValueJSON(t *testing.T) {
	for _, v := range []Value{Null(), Bool(true), Int(-7), Float(1.25), Text("a\nb")} {
		data, err := json.Marshal(v)
		if err != nil {
			t.Fatal(err)
		}
		var got Value
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatal(err)
		}
		if !got.Equal(v) {
			t.Fatalf("got %v, want %v", got, v)
		}
	}
}

func TestValueString(t *testing.T) {
	if s := Text("x").String(); s != `"x"` {
		t.Fatalf("got %s", s)
	}
	if s := Null().String(); s != "null" {
		t.Fatalf("got %s", s)
	}
	if s := Float(0.5).String(); s != "0.5" {
		t.Fatalf("got %s", s)
	}
}
