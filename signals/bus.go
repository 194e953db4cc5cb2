package signals

import (
	"maps"
	"slices"
)

type entry struct {
	value  Value
	tick   uint64
	writer Writer
	seq    uint64

	// carried over from a previous block, not written in this one yet
	restored bool
}

// Write is one journaled bus write.
type Write struct {
	ID     ID
	Value  Value
	Writer Writer
	Tick   uint64
	Seq    uint64
}

// Conflict reports two different writers hitting one id in the same tick.
type Conflict struct {
	ID     ID
	Tick   uint64
	First  Writer
	Second Writer
}

// Bus holds the current value of every signal for one block run.
// It is not safe for concurrent use; the tick loop owns it.
type Bus struct {
	entries   map[ID]*entry
	tick      uint64
	seq       uint64
	strict    bool
	journal   []Write
	conflicts []Conflict
}

type Option func(*Bus)

func Strict(strict bool) Option {
	return func(b *Bus) {
		b.strict = strict
	}
}

func NewBus(options ...Option) *Bus {
	b := &Bus{
		entries: make(map[ID]*entry),
	}
	for _, option := range options {
		option(b)
	}
	return b
}

// Begin opens a tick, clearing the journal and the conflict list.
func (b *Bus) Begin(tick uint64) {
	b.tick = tick
	b.journal = b.journal[:0]
	b.conflicts = b.conflicts[:0]
}

func (b *Bus) Tick() uint64 {
	return b.tick
}

// Write stores value under id. Writes to None are dropped.
func (b *Bus) Write(id ID, value Value, writer Writer) {
	if id == None {
		return
	}
	b.seq++
	e, ok := b.entries[id]
	if !ok {
		e = new(entry)
		b.entries[id] = e
	} else if b.strict && !e.restored && e.tick == b.tick && e.writer != writer {
		b.conflicts = append(b.conflicts, Conflict{
			ID:     id,
			Tick:   b.tick,
			First:  e.writer,
			Second: writer,
		})
	}
	e.value = value
	e.tick = b.tick
	e.writer = writer
	e.seq = b.seq
	e.restored = false
	b.journal = append(b.journal, Write{
		ID:     id,
		Value:  value,
		Writer: writer,
		Tick:   b.tick,
		Seq:    b.seq,
	})
}

func (b *Bus) Read(id ID) (Value, bool) {
	e, ok := b.entries[id]
	if !ok {
		return Value{}, false
	}
	return e.value, true
}

// Seq returns the bus-wide sequence number of the last write to id, zero if never written.
func (b *Bus) Seq(id ID) uint64 {
	if e, ok := b.entries[id]; ok {
		return e.seq
	}
	return 0
}

// LastTick returns the tick of the last write to id.
func (b *Bus) LastTick(id ID) (uint64, bool) {
	if e, ok := b.entries[id]; ok {
		return e.tick, true
	}
	return 0, false
}

// Journal returns the writes of the current tick in write order.
func (b *Bus) Journal() []Write {
	return b.journal
}

func (b *Bus) Conflicts() []Conflict {
	return b.conflicts
}

func (b *Bus) IDs() []ID {
	return slices.Sorted(maps.Keys(b.entries))
}

type Snapshot map[ID]Value

func (b *Bus) Snapshot() Snapshot {
	ret := make(Snapshot, len(b.entries))
	for id, e := range b.entries {
		ret[id] = e.value
	}
	return ret
}

// Restore seeds the bus with carried-over values. Restored entries are attributed to External
// and never conflict with the first write of the new block.
func (b *Bus) Restore(snapshot Snapshot) {
	for _, id := range slices.Sorted(maps.Keys(snapshot)) {
		b.seq++
		b.entries[id] = &entry{
			value:  snapshot[id],
			tick:   b.tick,
			writer:   External,
			seq:      b.seq,
			restored: true,
		}
	}
}
