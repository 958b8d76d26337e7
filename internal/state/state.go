// Package state owns the process-wide oracle state. Every mutation of the
// cache, the forex collector and the forex store happens inside one of the
// With* sections, which never span an outbound call.
package state

import (
	"sync"

	"github.com/ndewijer/exchange-rate-oracle/internal/admission"
	"github.com/ndewijer/exchange-rate-oracle/internal/cache"
	"github.com/ndewijer/exchange-rate-oracle/internal/forex"
	"github.com/ndewijer/exchange-rate-oracle/internal/requestlog"
)

// State is the aggregate shared by request handlers and the periodic task.
type State struct {
	mu        sync.Mutex
	cache     *cache.RateCache
	collector *forex.Collector
	store     *forex.Store

	// Admission and Log synchronize themselves.
	Admission *admission.Controller
	Log       *requestlog.Log
}

// New assembles a State from its parts.
func New(c *cache.RateCache, collector *forex.Collector, store *forex.Store, ctrl *admission.Controller, log *requestlog.Log) *State {
	return &State{cache: c, collector: collector, store: store, Admission: ctrl, Log: log}
}

// WithCache runs fn with exclusive access to the rate cache.
func (s *State) WithCache(fn func(*cache.RateCache)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.cache)
}

// WithCollector runs fn with exclusive access to the forex collector.
func (s *State) WithCollector(fn func(*forex.Collector)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.collector)
}

// WithStore runs fn with exclusive access to the forex store.
func (s *State) WithStore(fn func(*forex.Store)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.store)
}

// WithForex runs fn with exclusive access to both the collector and the
// store, so that ingesting and promoting a day is a single step.
func (s *State) WithForex(fn func(*forex.Collector, *forex.Store)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.collector, s.store)
}

// WithAll runs fn with exclusive access to every guarded component.
func (s *State) WithAll(fn func(*cache.RateCache, *forex.Collector, *forex.Store)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.cache, s.collector, s.store)
}
