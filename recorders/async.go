package recorders

import (
	"errors"
	"sync"
)

var ErrClosed = errors.New("sink closed")

const asyncBuffer = 4096

// Async moves serialization of records off the tick loop.
type Async struct {
	sink    Sink
	ch      chan asyncItem
	done    chan struct{}
	mu      sync.Mutex
	err     error
	closed  bool
	closeMu sync.Mutex
}

type asyncItem struct {
	record Record
	flush  chan error
}

var _ Sink = new(Async)

func NewAsync(sink Sink) *Async {
	a := &Async{
		sink: sink,
		ch:   make(chan asyncItem, asyncBuffer),
		done: make(chan struct{}),
	}
	go a.loop()
	return a
}

func (a *Async) loop() {
	defer close(a.done)
	for item := range a.ch {
		if item.flush != nil {
			item.flush <- a.sink.Flush()
			continue
		}
		if err := a.sink.Record(item.record); err != nil {
			a.mu.Lock()
			a.err = errors.Join(a.err, err)
			a.mu.Unlock()
		}
	}
}

// Record queues a record and reports errors of earlier writes.
func (a *Async) Record(record Record) error {
	a.closeMu.Lock()
	defer a.closeMu.Unlock()
	if a.closed {
		return ErrClosed
	}
	a.ch <- asyncItem{record: record}
	return a.takeErr()
}

func (a *Async) takeErr() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	err := a.err
	a.err = nil
	return err
}

// Flush waits until every queued record reached the wrapped sink.
func (a *Async) Flush() error {
	a.closeMu.Lock()
	if a.closed {
		a.closeMu.Unlock()
		return ErrClosed
	}
	reply := make(chan error, 1)
	a.ch <- asyncItem{flush: reply}
	a.closeMu.Unlock()
	return errors.Join(<-reply, a.takeErr())
}

func (a *Async) Close() error {
	a.closeMu.Lock()
	if a.closed {
		a.closeMu.Unlock()
		return nil
	}
	a.closed = true
	close(a.ch)
	a.closeMu.Unlock()
	<-a.done
	return errors.Join(a.takeErr(), a.sink.Flush(), a.sink.Close())
}
