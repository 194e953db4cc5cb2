package tasks

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/reusee/trials/engine"
	"github.com/reusee/trials/signals"
	"gopkg.in/yaml.v3"
)

// InputSource is the participant side of a block run.
type InputSource interface {
	// Poll returns what arrived since the previous call and how many aborts were requested.
	Poll() (engine.Input, int)
}

// LineInput reads one command per line:
//
//	proceed | p | (empty line)
//	click
//	key NAME
//	set ID VALUE
//	abort
type LineInput struct {
	mu      sync.Mutex
	pending engine.Input
	aborts  int
	errs    []string
}

var _ InputSource = new(LineInput)

func NewLineInput(r io.Reader) *LineInput {
	l := new(LineInput)
	go func() {
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			l.handle(scanner.Text())
		}
	}()
	return l
}

func (l *LineInput) handle(line string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	switch cmd {
	case "", "p", "proceed":
		l.pending.Proceed = true
	case "click":
		l.pending.Clicks++
	case "key":
		l.pending.Keys = append(l.pending.Keys, arg)
	case "abort":
		l.aborts++
	case "set":
		idStr, valueStr, _ := strings.Cut(arg, " ")
		id, err := strconv.ParseUint(idStr, 10, 16)
		if err != nil {
			l.errs = append(l.errs, line)
			return
		}
		value, err := parseValue(valueStr)
		if err != nil {
			l.errs = append(l.errs, line)
			return
		}
		if l.pending.Signals == nil {
			l.pending.Signals = make(map[signals.ID]signals.Value)
		}
		l.pending.Signals[signals.ID(id)] = value
	default:
		l.errs = append(l.errs, line)
	}
}

func parseValue(s string) (signals.Value, error) {
	var x any
	if err := yaml.Unmarshal([]byte(s), &x); err != nil {
		return signals.Value{}, err
	}
	return signals.FromAny(x)
}

func (l *LineInput) Poll() (engine.Input, int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	input, aborts := l.pending, l.aborts
	l.pending = engine.Input{}
	l.aborts = 0
	return input, aborts
}

// Rejected returns the lines that were not understood.
func (l *LineInput) Rejected() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.errs...)
}

const abortWindow = 300 * time.Millisecond

// abortGuard ends a block on two aborts within abortWindow.
type abortGuard struct {
	last time.Time
}

func (a *abortGuard) hit(now time.Time, aborts int) bool {
	if aborts == 0 {
		return false
	}
	if aborts >= 2 || !a.last.IsZero() && now.Sub(a.last) <= abortWindow {
		return true
	}
	a.last = now
	return false
}
