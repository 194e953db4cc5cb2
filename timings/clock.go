package timings

import (
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
}

type WallClock struct{}

func (WallClock) Now() time.Time {
	return time.Now()
}

// ManualClock advances only when told to.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

var _ Clock = new(ManualClock)

func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{
		now: start,
	}
}

func (m *ManualClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *ManualClock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

func (m *ManualClock) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t
}
