package monitors

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/reusee/dscope"
	"github.com/reusee/trials/configs"
	"github.com/reusee/trials/logs"
	"github.com/reusee/trials/modes"
	"github.com/reusee/trials/trialconfigs"
)

func testScope(mode any) dscope.Scope {
	return dscope.New(new(Module), mode).Fork(
		func() logs.Writer {
			return io.Discard
		},
		func() trialconfigs.Env {
			return func(string) string {
				return ""
			}
		},
		func() configs.Loader {
			return configs.NewLoader(nil, "")
		},
	)
}

func TestServeDevelopment(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	testScope(modes.ForTest(t)).Call(func(
		serve Serve,
	) {
		addr, err := serve(ctx, New(nil))
		if err != nil {
			t.Fatal(err)
		}
		if addr == nil {
			t.Fatal()
		}
		resp, err := http.Get("http://" + addr.String() + "/status")
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusServiceUnavailable {
			t.Fatalf("got %v", resp.StatusCode)
		}
	})
}

func TestServeDisabled(t *testing.T) {
	testScope(modes.ForProduction()).Call(func(
		serve Serve,
	) {
		addr, err := serve(context.Background(), New(nil))
		if err != nil {
			t.Fatal(err)
		}
		if addr != nil {
			t.Fatalf("got %v", addr)
		}
	})
}
