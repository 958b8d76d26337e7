// Package requestlog keeps a bounded ring of recent rate request outcomes.
package requestlog

import (
	"sync"

	"github.com/ndewijer/exchange-rate-oracle/internal/model"
)

// DefaultCapacity is the number of entries kept when none is configured.
const DefaultCapacity = 1_000

// Log is a fixed-capacity ring; appending to a full log drops the oldest
// entry.
type Log struct {
	mu       sync.RWMutex
	entries  []model.RequestLogEntry
	start    int
	count    int
	capacity int
}

// New creates a log holding at most capacity entries.
func New(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{entries: make([]model.RequestLogEntry, capacity), capacity: capacity}
}

// Append records an entry.
func (l *Log) Append(e model.RequestLogEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.count < l.capacity {
		l.entries[(l.start+l.count)%l.capacity] = e
		l.count++
		return
	}
	l.entries[l.start] = e
	l.start = (l.start + 1) % l.capacity
}

// Len returns the number of stored entries.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.count
}

// Capacity returns the maximum number of entries.
func (l *Log) Capacity() int {
	return l.capacity
}

// Entries returns the half-open range [offset, min(offset+limit, Len()))
// ordered oldest first.
func (l *Log) Entries(offset, limit int) []model.RequestLogEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if offset < 0 {
		offset = 0
	}
	if limit < 0 {
		limit = 0
	}
	end := min(offset+limit, l.count)
	if offset >= end {
		return []model.RequestLogEntry{}
	}
	out := make([]model.RequestLogEntry, 0, end-offset)
	for i := offset; i < end; i++ {
		out = append(out, l.entries[(l.start+i)%l.capacity])
	}
	return out
}

// Find returns the entry with the given id.
func (l *Log) Find(id string) (model.RequestLogEntry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for i := 0; i < l.count; i++ {
		if e := l.entries[(l.start+i)%l.capacity]; e.ID == id {
			return e, true
		}
	}
	return model.RequestLogEntry{}, false
}

// All returns every entry, oldest first.
func (l *Log) All() []model.RequestLogEntry {
	return l.Entries(0, l.Len())
}

// Restore replaces the contents with entries, keeping the newest ones when
// there are more than the capacity.
func (l *Log) Restore(entries []model.RequestLogEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(entries) > l.capacity {
		entries = entries[len(entries)-l.capacity:]
	}
	l.entries = make([]model.RequestLogEntry, l.capacity)
	copy(l.entries, entries)
	l.start = 0
	l.count = len(entries)
}
