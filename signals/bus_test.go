package signals

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSameTickVisibility(t *testing.T) {
	bus := NewBus()
	bus.Begin(0)
	bus.Write(1, Int(1), 0)
	bus.Begin(1)
	v, ok := bus.Read(1)
	assert.True(t, ok)
	assert.Equal(t, Int(1), v)
	bus.Write(1, Int(2), 0)
	v, _ = bus.Read(1)
	assert.Equal(t, Int(2), v)
}

func TestReadIdempotent(t *testing.T) {
	bus := NewBus()
	bus.Begin(0)
	bus.Write(3, Text("a"), 1)
	a, _ := bus.Read(3)
	b, _ := bus.Read(3)
	assert.True(t, a.Equal(b))
	_, ok := bus.Read(4)
	assert.False(t, ok)
}

func TestWriteNone(t *testing.T) {
	bus := NewBus()
	bus.Begin(0)
	bus.Write(None, Int(1), 0)
	assert.Empty(t, bus.Journal())
	assert.Empty(t, bus.IDs())
}

func TestLastWriterWins(t *testing.T) {
	bus := NewBus(Strict(true))
	bus.Begin(5)
	bus.Write(1, Int(1), 2)
	bus.Write(1, Int(2), 7)
	v, _ := bus.Read(1)
	assert.Equal(t, Int(2), v)
	assert.Equal(t, []Conflict{{ID: 1, Tick: 5, First: 2, Second: 7}}, bus.Conflicts())

	// same writer twice is not a conflict
	bus.Begin(6)
	bus.Write(1, Int(3), 7)
	bus.Write(1, Int(4), 7)
	assert.Empty(t, bus.Conflicts())
}

func TestNonStrictNoConflicts(t *testing.T) {
	bus := NewBus()
	bus.Begin(0)
	bus.Write(1, Int(1), 2)
	bus.Write(1, Int(2), 3)
	assert.Empty(t, bus.Conflicts())
}

func TestJournalAndSeq(t *testing.T) {
	bus := NewBus()
	bus.Begin(0)
	assert.Equal(t, uint64(0), bus.Seq(1))
	bus.Write(1, Int(1), 0)
	bus.Write(2, Int(2), 0)
	s1 := bus.Seq(1)
	assert.Less(t, s1, bus.Seq(2))
	assert.Len(t, bus.Journal(), 2)
	bus.Begin(1)
	assert.Empty(t, bus.Journal())
	assert.Equal(t, s1, bus.Seq(1))
	tick, ok := bus.LastTick(2)
	assert.True(t, ok)
	assert.Equal(t, uint64(0), tick)
}

func TestSnapshotRestore(t *testing.T) {
	bus := NewBus()
	bus.Begin(0)
	bus.Write(1, Int(1), 0)
	bus.Write(9, Bool(true), 0)
	snapshot := bus.Snapshot()

	next := NewBus()
	next.Restore(snapshot)
	v, ok := next.Read(9)
	assert.True(t, ok)
	assert.Equal(t, Bool(true), v)
	assert.Equal(t, []ID{1, 9}, next.IDs())
	assert.NotZero(t, next.Seq(1))

	// snapshot is a copy
	bus.Write(1, Int(2), 0)
	v, _ = next.Read(1)
	assert.Equal(t, Int(1), v)
}

func TestRestoredNoConflict(t *testing.T) {
	bus := NewBus(Strict(true))
	bus.Restore(Snapshot{1: Int(0)})
	bus.Begin(0)
	bus.Write(1, Int(1), 3)
	assert.Empty(t, bus.Conflicts())
	bus.Write(1, Int(2), 4)
	assert.Equal(t, []Conflict{{ID: 1, Tick: 0, First: 3, Second: 4}}, bus.Conflicts())
}
