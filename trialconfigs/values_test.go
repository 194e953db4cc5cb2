package trialconfigs

import (
	"io"
	"testing"

	"github.com/reusee/dscope"
	"github.com/reusee/trials/configs"
	"github.com/reusee/trials/logs"
)

func TestValues(t *testing.T) {
	dscope.New(new(Module)).Fork(
		func() logs.Writer {
			return io.Discard
		},
		func() Env {
			return func(key string) string {
				switch key {
				case "TRIALS_SUBJECT":
					return "s01"
				case "TRIALS_PREFETCH":
					return "8"
				}
				return ""
			}
		},
		func() configs.Loader {
			return configs.NewLoader(nil, schema)
		},
	).Call(func(
		output Output,
		database Database,
		subject Subject,
		prefetch Prefetch,
		monitor MonitorAddr,
	) {
		if output != "output" {
			t.Fatalf("got %v", output)
		}
		if database != "" {
			t.Fatalf("got %v", database)
		}
		if subject != "s01" {
			t.Fatalf("got %v", subject)
		}
		if prefetch != 8 {
			t.Fatalf("got %v", prefetch)
		}
		if monitor != "" {
			t.Fatalf("got %v", monitor)
		}
	})
}

func TestSchema(t *testing.T) {
	loader := configs.NewLoader([]string{"testdata/trials.cue"}, schema)
	if output := configs.Lookup[Output](loader); output != "/data/trials" {
		t.Fatalf("got %v", output)
	}
	if prefetch := configs.Lookup[Prefetch](loader); prefetch != 2 {
		t.Fatalf("got %v", prefetch)
	}
}
