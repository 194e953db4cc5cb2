package recorders

import (
	"slices"
	"sync"
)

type Memory struct {
	mu      sync.Mutex
	records []Record
}

var _ Sink = new(Memory)

func NewMemory() *Memory {
	return new(Memory)
}

func (m *Memory) Record(record Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, record)
	return nil
}

func (m *Memory) Flush() error {
	return nil
}

func (m *Memory) Close() error {
	return nil
}

func (m *Memory) Records() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.records)
}

func (m *Memory) Group(group string) []Record {
	return Filter(m.Records(), group)
}
