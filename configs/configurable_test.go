package configs

import (
	"testing"
)

type testStr string

func (testStr) ConfigPath() string {
	return "str"
}

type testMissing string

func (testMissing) ConfigPath() string {
	return "missing"
}

func TestLookup(t *testing.T) {
	loader := NewLoader([]string{"testdata/test.cue"}, testSchema+"\nmissing?: string")
	if str := Lookup[testStr](loader); str != "bar" {
		t.Fatalf("got %v", str)
	}
	if str := Lookup[testMissing](loader); str != "" {
		t.Fatalf("got %v", str)
	}
}

func TestLookupBadFile(t *testing.T) {
	loader := NewLoader([]string{"testdata/bad.cue"}, testSchema)
	defer func() {
		if p := recover(); p == nil {
			t.Fatal("should panic")
		}
	}()
	Lookup[testStr](loader)
}
