package actions

import (
	"errors"
	"testing"
)

func TestErrorTaxonomy(t *testing.T) {
	err := Definitionf("negative duration %v", -1)
	if !errors.Is(err, ErrDefinition) {
		t.Fatal()
	}
	if err.Error() != "definition error: negative duration -1" {
		t.Fatalf("got %v", err)
	}
	if !errors.Is(ErrRecursionDepth, ErrDefinition) {
		t.Fatal()
	}
	var wrapped error = &NodeError{
		Path: "seq/0",
		Kind: KindWait,
		Err:  err,
	}
	if !errors.Is(wrapped, ErrDefinition) {
		t.Fatal()
	}
	var nodeErr *NodeError
	if !errors.As(wrapped, &nodeErr) || nodeErr.Path != "seq/0" {
		t.Fatalf("got %v", wrapped)
	}
	if errors.Is(Resourcef("x"), ErrRuntime) {
		t.Fatal()
	}
}

func TestKindNames(t *testing.T) {
	for kind, name := range kindNames {
		got, ok := ParseKind(name)
		if !ok || got != kind {
			t.Fatalf("got %v for %s", got, name)
		}
	}
	if _, ok := ParseKind("bogus"); ok {
		t.Fatal()
	}
	if !KindSeq.IsContainer() || KindWait.IsContainer() {
		t.Fatal()
	}
}
