package medias

import (
	"fmt"
	"sync"
	"time"

	"github.com/reusee/trials/timings"
)

// Timed plays nothing; a stream ends once its probed duration has elapsed on the clock.
type Timed struct {
	Clock     timings.Clock
	Probe     Probe
	OnTrigger func(src string)

	mu        sync.Mutex
	durations map[string]time.Duration
}

var _ Backend = new(Timed)

func NewTimed(clock timings.Clock, probe Probe) *Timed {
	return &Timed{
		Clock:     clock,
		Probe:     probe,
		durations: make(map[string]time.Duration),
	}
}

// Preload records durations resolved ahead of time.
func (t *Timed) Preload(durations map[string]time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for src, d := range durations {
		t.durations[src] = d
	}
}

func (t *Timed) duration(src string) (time.Duration, error) {
	t.mu.Lock()
	d, ok := t.durations[src]
	t.mu.Unlock()
	if ok {
		return d, nil
	}
	if t.Probe == nil {
		return 0, fmt.Errorf("%w: %s", ErrUnavailable, src)
	}
	d, err := t.Probe(src)
	if err != nil {
		return 0, err
	}
	t.Preload(map[string]time.Duration{src: d})
	return d, nil
}

func (t *Timed) Play(src string, volume float64, trigger bool) (Handle, error) {
	d, err := t.duration(src)
	if err != nil {
		return nil, err
	}
	if trigger && t.OnTrigger != nil {
		t.OnTrigger(src)
	}
	return &timedHandle{
		clock:  t.Clock,
		end:    t.Clock.Now().Add(d),
		volume: volume,
	}, nil
}

type timedHandle struct {
	clock   timings.Clock
	end     time.Time
	volume  float64
	stopped bool
}

func (h *timedHandle) IsDone() bool {
	return h.stopped || !h.clock.Now().Before(h.end)
}

func (h *timedHandle) SetVolume(volume float64) {
	h.volume = volume
}

func (h *timedHandle) Stop() {
	h.stopped = true
}
