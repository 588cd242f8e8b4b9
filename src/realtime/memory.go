package realtime

import (
	"context"
	"sync"
	"time"
)

// MemorySource is an in-process Feed. Publish delivers synchronously on the
// caller's goroutine to every matching subscriber.
type MemorySource struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]memorySub
}

type memorySub struct {
	table  string
	filter Filter
	h      Handler
}

func NewMemorySource() *MemorySource {
	return &MemorySource{subs: make(map[uint64]memorySub)}
}

func (m *MemorySource) Subscribe(_ context.Context, table string, filter Filter, h Handler) (func(), error) {
	m.mu.Lock()
	m.nextID++
	id := m.nextID
	m.subs[id] = memorySub{table: table, filter: filter, h: h}
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
		})
	}, nil
}

func (m *MemorySource) Publish(_ context.Context, ev ChangeEvent) error {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}

	m.mu.RLock()
	var targets []Handler
	for _, s := range m.subs {
		if s.table == ev.Table && s.filter.Matches(ev.Row) {
			targets = append(targets, s.h)
		}
	}
	m.mu.RUnlock()

	for _, h := range targets {
		h(ev)
	}
	return nil
}

// Subscribers returns the number of live upstream subscriptions.
func (m *MemorySource) Subscribers() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subs)
}
