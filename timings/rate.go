package timings

import (
	"math"
	"time"
)

const DefaultRate = 60

// Period returns the tick period of a rate in ticks per second.
func Period(rate float64) time.Duration {
	if rate <= 0 {
		rate = DefaultRate
	}
	return time.Duration(math.Round(float64(time.Second) / rate))
}
