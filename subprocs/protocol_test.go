package subprocs

import (
	"errors"
	"testing"

	"github.com/reusee/trials/signals"
)

func TestEncodeRequest(t *testing.T) {
	req, err := EncodeRequest(map[string]signals.Value{
		"rt":    signals.Float(0.25),
		"n":     signals.Int(3),
		"label": signals.Text("a\nb"),
		"hit":   signals.Bool(true),
		"none":  signals.Null(),
	})
	if err != nil {
		t.Fatal(err)
	}
	want := "with 5\nhit true\nlabel str a\\nb\nn i64 3\nnone nil\nrt f64 0.25\ngo\n"
	if string(req) != want {
		t.Fatalf("got %q", req)
	}
	req, err = EncodeRequest(nil)
	if err != nil {
		t.Fatal(err)
	}
	if string(req) != "go\n" {
		t.Fatalf("got %q", req)
	}
}

func TestParseResponse(t *testing.T) {
	for line, want := range map[string]signals.Value{
		"nil\n":         signals.Null(),
		"true":          signals.Bool(true),
		"false":         signals.Bool(false),
		"i64 -4":        signals.Int(-4),
		"f64 1.5":       signals.Float(1.5),
		"str a\\nb\r\n": signals.Text("a\nb"),
	} {
		got, err := ParseResponse(line)
		if err != nil {
			t.Fatal(err)
		}
		if !got.Equal(want) {
			t.Fatalf("%q: got %v", line, got)
		}
	}
	if _, err := ParseResponse("end"); !errors.Is(err, ErrEnd) {
		t.Fatalf("got %v", err)
	}
	_, err := ParseResponse("err bad input")
	var respErr *ResponseError
	if !errors.As(err, &respErr) || respErr.Message != "bad input" {
		t.Fatalf("got %v", err)
	}
	if _, err := ParseResponse("i64 x"); err == nil {
		t.Fatal("should error")
	}
	if _, err := ParseResponse("what"); err == nil {
		t.Fatal("should error")
	}
}
