package journal

import (
	"errors"
	"sync"
)

// MemJournal is an in-memory Journal for tests and journal-less runs.
type MemJournal struct {
	mu      sync.Mutex
	entries []Entry
}

// NewMemJournal returns an empty in-memory journal.
func NewMemJournal() *MemJournal { return &MemJournal{} }

func (m *MemJournal) Append(e *Entry) (string, error) {
	if e == nil {
		return "", errors.New("entry is nil")
	}
	cp := prepare(e)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, cp)
	return cp.ID, nil
}

func (m *MemJournal) List(limit int) ([]*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.entries)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]*Entry, 0, n)
	for i := len(m.entries) - 1; i >= 0 && len(out) < n; i-- {
		cp := m.entries[i]
		out = append(out, &cp)
	}
	return out, nil
}

func (m *MemJournal) Close() error { return nil }
