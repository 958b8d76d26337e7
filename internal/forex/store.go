package forex

import (
	"fmt"
	"maps"
	"slices"

	"github.com/ndewijer/exchange-rate-oracle/internal/apperrors"
	"github.com/ndewijer/exchange-rate-oracle/internal/model"
)

// DefaultStoreDays is the number of days retained by a Store.
const DefaultStoreDays = 7

// OutlierPercent bounds how far a contributing fiat rate may sit from the
// median before it is dropped at lookup.
const OutlierPercent uint64 = 20

// Store holds canonical X/USD rates per UTC day for a rolling window of
// days. It is not safe for concurrent use.
type Store struct {
	days   map[uint64]map[string]model.QueriedRate
	window int
}

// NewStore creates a store retaining window days (at least two).
func NewStore(window int) *Store {
	if window < 2 {
		window = 2
	}
	return &Store{days: map[uint64]map[string]model.QueriedRate{}, window: window}
}

// Put merges rates into day. A symbol is only replaced when the new rate
// was received from at least as many sources as the stored one.
func (s *Store) Put(day uint64, rates map[string]model.QueriedRate) {
	day = DayStart(day)
	current, ok := s.days[day]
	if !ok {
		current = make(map[string]model.QueriedRate, len(rates))
		s.days[day] = current
	}
	for sym, r := range rates {
		if old, exists := current[sym]; exists && r.BaseAssetNumReceivedRates < old.BaseAssetNumReceivedRates {
			continue
		}
		current[sym] = r.Clone()
	}
	s.trim()
}

func (s *Store) trim() {
	days := s.Days()
	for len(days) > s.window {
		delete(s.days, days[0])
		days = days[1:]
	}
}

// Days returns the stored days in ascending order.
func (s *Store) Days() []uint64 {
	return slices.Sorted(maps.Keys(s.days))
}

// Day returns a copy of the rates stored for day.
func (s *Store) Day(day uint64) (map[string]model.QueriedRate, bool) {
	m, ok := s.days[DayStart(day)]
	if !ok {
		return nil, false
	}
	out := make(map[string]model.QueriedRate, len(m))
	for sym, r := range m {
		out[sym] = r.Clone()
	}
	return out, true
}

func (s *Store) lookup(m map[string]model.QueriedRate, symbol string, day uint64) (model.QueriedRate, bool) {
	if r, ok := m[symbol]; ok {
		return r, true
	}
	if symbol == model.USD {
		id := model.IdentityRate(model.FiatAsset(model.USD), day)
		return id, true
	}
	return model.QueriedRate{}, false
}

// Get returns base/quote using the most recent day at or before
// dayRequested that carries both symbols. The result is stamped with
// requestTimestamp and carries the day used as its forex timestamp.
func (s *Store) Get(dayRequested, requestTimestamp uint64, base, quote string) (model.QueriedRate, error) {
	if base == quote {
		return model.IdentityRate(model.FiatAsset(base), requestTimestamp), nil
	}

	limit := DayStart(dayRequested)
	days := s.Days()
	slices.Reverse(days)

	var eligible, sawBase, sawQuote bool
	for _, day := range days {
		if day > limit {
			continue
		}
		eligible = true
		m := s.days[day]
		b, okBase := s.lookup(m, base, day)
		q, okQuote := s.lookup(m, quote, day)
		sawBase = sawBase || okBase
		sawQuote = sawQuote || okQuote
		if !okBase || !okQuote {
			continue
		}

		rate, err := b.FilterOutliers(OutlierPercent).Div(q.FilterOutliers(OutlierPercent))
		if err != nil {
			return model.QueriedRate{}, fmt.Errorf("forex %s/%s on %d: %w", base, quote, day, err)
		}
		rate.Timestamp = requestTimestamp
		forexDay := day
		rate.ForexTimestamp = &forexDay
		return rate, nil
	}

	switch {
	case !eligible:
		return model.QueriedRate{}, apperrors.ErrStoreInvalidTimestamp
	case !sawBase && !sawQuote:
		return model.QueriedRate{}, apperrors.ErrStoreAssetsNotFound
	case !sawBase:
		return model.QueriedRate{}, apperrors.ErrStoreBaseNotFound
	default:
		return model.QueriedRate{}, apperrors.ErrStoreQuoteNotFound
	}
}

// AllocatedBytes approximates the memory held by the stored rates.
func (s *Store) AllocatedBytes() int {
	const perDay, perEntry = 48, 160
	total := 0
	for _, m := range s.days {
		total += perDay
		for sym, r := range m {
			total += perEntry + len(sym) + 8*len(r.Rates)
		}
	}
	return total
}

// Snapshot returns a deep copy of every stored day.
func (s *Store) Snapshot() map[uint64]map[string]model.QueriedRate {
	out := make(map[uint64]map[string]model.QueriedRate, len(s.days))
	for day := range s.days {
		out[day], _ = s.Day(day)
	}
	return out
}

// Restore replaces the store contents.
func (s *Store) Restore(days map[uint64]map[string]model.QueriedRate) {
	s.days = map[uint64]map[string]model.QueriedRate{}
	for day, m := range days {
		s.Put(day, m)
	}
}
