package timings

import (
	"fmt"
	"time"
)

type Policy uint8

const (
	// RespectBoundaries anchors each child to the nominal end of its predecessor.
	RespectBoundaries Policy = iota
	// RespectIntervals anchors each child to its actual start.
	RespectIntervals
)

func (p Policy) String() string {
	if p == RespectIntervals {
		return "respect_intervals"
	}
	return "respect_boundaries"
}

func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "respect_boundaries":
		return RespectBoundaries, nil
	case "respect_intervals":
		return RespectIntervals, nil
	}
	return 0, fmt.Errorf("unknown time precision %q", s)
}

// Start returns the nominal start of a child activated at actual time now,
// whose predecessor ended nominally at previous.
func (p Policy) Start(now, previous time.Time) time.Time {
	if p == RespectIntervals || previous.IsZero() || previous.After(now) {
		return now
	}
	return previous
}

// Drift is the lag of an actual start behind its nominal start.
func Drift(nominal, actual time.Time) time.Duration {
	if d := actual.Sub(nominal); d > 0 {
		return d
	}
	return 0
}
