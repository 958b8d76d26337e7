// Package cache keeps recently fetched crypto rates keyed by base symbol.
package cache

import (
	"cmp"
	"slices"
	"time"

	"github.com/ndewijer/exchange-rate-oracle/internal/model"
)

// Defaults used when a cache is built without explicit limits.
const (
	DefaultSoftMaxSize = 1_000
	DefaultHardMaxSize = 1_200
	DefaultRetention   = 60 * time.Second
)

// Entry is a cached rate together with its bookkeeping.
type Entry struct {
	Rate     model.QueriedRate `json:"rate"`
	CachedAt time.Time         `json:"cached_at"`
	Logical  uint64            `json:"logical"`
}

// RateCache holds at most one rate per (symbol, timestamp). It is not safe
// for concurrent use.
type RateCache struct {
	entries   map[string][]Entry
	size      int
	softMax   int
	hardMax   int
	retention time.Duration
	clock     uint64
}

// New creates a cache. hardMax is raised to softMax+1 when it is not larger.
func New(softMax, hardMax int, retention time.Duration) *RateCache {
	if softMax <= 0 {
		softMax = DefaultSoftMaxSize
	}
	if hardMax <= softMax {
		hardMax = softMax + 1
	}
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &RateCache{
		entries:   map[string][]Entry{},
		softMax:   softMax,
		hardMax:   hardMax,
		retention: retention,
	}
}

func (c *RateCache) expired(e Entry, now time.Time) bool {
	return !e.CachedAt.Add(c.retention).After(now)
}

func (c *RateCache) pruneSymbol(symbol string, now time.Time) {
	list := c.entries[symbol]
	kept := list[:0]
	for _, e := range list {
		if c.expired(e, now) {
			c.size--
			continue
		}
		kept = append(kept, e)
	}
	if len(kept) == 0 {
		delete(c.entries, symbol)
		return
	}
	c.entries[symbol] = kept
}

// Get returns the rate cached for symbol at timestamp, if any. A hit moves
// the entry to the front of the eviction order.
func (c *RateCache) Get(symbol string, timestamp uint64, now time.Time) (model.QueriedRate, bool) {
	c.pruneSymbol(symbol, now)
	list := c.entries[symbol]
	for i := range list {
		if list[i].Rate.Timestamp != timestamp {
			continue
		}
		if list[i].Logical != c.clock {
			c.clock++
			list[i].Logical = c.clock
		}
		return list[i].Rate.Clone(), true
	}
	return model.QueriedRate{}, false
}

// Contains reports whether an unexpired entry exists for symbol at
// timestamp. Unlike Get it does not touch the eviction order.
func (c *RateCache) Contains(symbol string, timestamp uint64, now time.Time) bool {
	for _, e := range c.entries[symbol] {
		if e.Rate.Timestamp == timestamp && !c.expired(e, now) {
			return true
		}
	}
	return false
}

// Insert caches rate under its base symbol, replacing any entry with the
// same timestamp.
func (c *RateCache) Insert(rate model.QueriedRate, now time.Time) {
	symbol := rate.BaseAsset.Symbol
	c.pruneSymbol(symbol, now)

	list := c.entries[symbol]
	list = slices.DeleteFunc(list, func(e Entry) bool {
		if e.Rate.Timestamp == rate.Timestamp {
			c.size--
			return true
		}
		return false
	})
	c.clock++
	c.entries[symbol] = append(list, Entry{Rate: rate.Clone(), CachedAt: now, Logical: c.clock})
	c.size++

	if c.size >= c.hardMax {
		c.evict(now)
	}
}

// evict removes entries until the size is at most the soft limit, expired
// entries first and then the least recently used.
func (c *RateCache) evict(now time.Time) {
	type ref struct {
		symbol  string
		ts      uint64
		expired bool
		logical uint64
	}
	refs := make([]ref, 0, c.size)
	for sym, list := range c.entries {
		for _, e := range list {
			refs = append(refs, ref{sym, e.Rate.Timestamp, c.expired(e, now), e.Logical})
		}
	}
	slices.SortFunc(refs, func(a, b ref) int {
		if a.expired != b.expired {
			if a.expired {
				return -1
			}
			return 1
		}
		return cmp.Compare(a.logical, b.logical)
	})
	for _, r := range refs {
		if c.size <= c.softMax {
			return
		}
		c.remove(r.symbol, r.ts)
	}
}

func (c *RateCache) remove(symbol string, timestamp uint64) {
	list := c.entries[symbol]
	for i := range list {
		if list[i].Rate.Timestamp == timestamp {
			list = slices.Delete(list, i, i+1)
			c.size--
			break
		}
	}
	if len(list) == 0 {
		delete(c.entries, symbol)
		return
	}
	c.entries[symbol] = list
}

// Len returns the number of cached entries.
func (c *RateCache) Len() int {
	return c.size
}

// Snapshot returns a copy of every entry.
func (c *RateCache) Snapshot() []Entry {
	out := make([]Entry, 0, c.size)
	for _, list := range c.entries {
		for _, e := range list {
			e.Rate = e.Rate.Clone()
			out = append(out, e)
		}
	}
	slices.SortFunc(out, func(a, b Entry) int { return cmp.Compare(a.Logical, b.Logical) })
	return out
}

// Restore replaces the cache contents with entries, keeping their logical
// order.
func (c *RateCache) Restore(entries []Entry) {
	c.entries = map[string][]Entry{}
	c.size = 0
	c.clock = 0
	for _, e := range entries {
		c.entries[e.Rate.BaseAsset.Symbol] = append(c.entries[e.Rate.BaseAsset.Symbol], e)
		c.size++
		c.clock = max(c.clock, e.Logical)
	}
}
