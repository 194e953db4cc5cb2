package medias

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/reusee/trials/syncs"
)

// Prefetch probes every source with at most parallel probes in flight.
func Prefetch(ctx context.Context, probe Probe, srcs []string, parallel int) (map[string]time.Duration, error) {
	if parallel <= 0 {
		parallel = 4
	}
	sem := syncs.NewSemaphore(parallel)
	var (
		mu        sync.Mutex
		wg        sync.WaitGroup
		errs      []error
		durations = make(map[string]time.Duration, len(srcs))
		seen      = make(map[string]bool, len(srcs))
	)
	for _, src := range srcs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if seen[src] {
			continue
		}
		seen[src] = true
		sem.Acquire()
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release()
			d, err := probe(src)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", src, err))
				return
			}
			durations[src] = d
		}()
	}
	wg.Wait()
	return durations, errors.Join(errs...)
}
