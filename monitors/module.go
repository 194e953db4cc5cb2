package monitors

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/reusee/dscope"
	"github.com/reusee/trials/logs"
	"github.com/reusee/trials/modes"
	"github.com/reusee/trials/nets"
	"github.com/reusee/trials/trialconfigs"
)

type Module struct {
	dscope.Module
	Configs trialconfigs.Module
	Nets    nets.Module
}

// Serve runs m on the configured address until ctx is done.
// Without an address it serves nothing and returns a nil addr, except in development where a local port is picked.
type Serve func(ctx context.Context, m *Monitor) (net.Addr, error)

func (Module) Serve(
	addr trialconfigs.MonitorAddr,
	mode modes.Mode,
	isLocalAddr nets.IsLocalAddr,
	logger logs.Logger,
) Serve {
	return func(ctx context.Context, m *Monitor) (net.Addr, error) {
		if addr == "" {
			if mode != modes.ModeDevelopment {
				return nil, nil
			}
			addr = "127.0.0.1:0"
		}
		if local, err := isLocalAddr(string(addr)); err != nil {
			return nil, err
		} else if !local {
			logger.Warn("monitor reachable beyond private networks", "addr", addr)
		}
		ln, err := net.Listen("tcp", string(addr))
		if err != nil {
			return nil, err
		}
		server := &http.Server{
			Handler:           m,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			<-ctx.Done()
			_ = server.Close()
		}()
		logger.Info("monitor", "addr", ln.Addr().String())
		go func() {
			if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("monitor", "error", err)
			}
		}()
		return ln.Addr(), nil
	}
}
