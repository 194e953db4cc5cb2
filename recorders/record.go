package recorders

import (
	"time"

	"github.com/reusee/trials/signals"
)

// Well-known groups.
const (
	GroupMain     = "main"
	GroupSignals  = "signals"
	GroupError    = "error"
	GroupDrift    = "drift"
	GroupConflict = "conflict"
	GroupFunction = "function"
	GroupProcess  = "process"
	GroupTimer    = "timer"
	GroupEvent    = "event"
	GroupCounter  = "counter"
)

type Record struct {
	Tick   uint64        `json:"tick" yaml:"tick"`
	Time   time.Duration `json:"time" yaml:"time"`
	Group  string        `json:"group" yaml:"group"`
	Name   string        `json:"name,omitempty" yaml:"name,omitempty"`
	Signal signals.ID    `json:"signal,omitempty" yaml:"signal,omitempty"`
	Value  signals.Value `json:"value" yaml:"value"`
}

type Sink interface {
	Record(Record) error
	Flush() error
	Close() error
}

// Filter returns the records of group in order.
func Filter(records []Record, group string) []Record {
	var ret []Record
	for _, r := range records {
		if r.Group == group {
			ret = append(ret, r)
		}
	}
	return ret
}
