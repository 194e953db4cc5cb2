package timings

import (
	"context"
	"time"
)

// Pacer blocks until the next tick is due.
type Pacer interface {
	Wait(ctx context.Context) error
	Stop()
}

type tickerPacer struct {
	ticker *time.Ticker
	first  bool
}

// NewTickerPacer paces at rate ticks per second. The first Wait returns at once.
func NewTickerPacer(rate float64) Pacer {
	return &tickerPacer{
		ticker: time.NewTicker(Period(rate)),
		first:  true,
	}
}

func (t *tickerPacer) Wait(ctx context.Context) error {
	if t.first {
		t.first = false
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.ticker.C:
		return nil
	}
}

func (t *tickerPacer) Stop() {
	t.ticker.Stop()
}

// ManualPacer never blocks. Every Wait after the first advances Clock by Period.
type ManualPacer struct {
	Clock  *ManualClock
	Period time.Duration
	waited bool
}

var _ Pacer = new(ManualPacer)

func (m *ManualPacer) Wait(ctx context.Context) error {
	if m.waited {
		m.Clock.Advance(m.Period)
	}
	m.waited = true
	return ctx.Err()
}

func (m *ManualPacer) Stop() {}
