package forex

import (
	"cmp"
	"math/big"
	"math/bits"
	"slices"

	"github.com/ndewijer/exchange-rate-oracle/internal/model"
	"github.com/ndewijer/exchange-rate-oracle/internal/stats"
)

// DefaultCollectorDays is the number of day buckets kept by a Collector.
const DefaultCollectorDays = 3

// SDR basket weights in units of each currency per XDR, scaled by 1e6.
var sdrWeights = []struct {
	symbol string
	weight uint64
}{
	{"EUR", 386_710},
	{"CNY", 1_017_400},
	{"JPY", 11_900_000},
	{"GBP", 85_946},
}

const (
	sdrWeightScale uint64 = 1_000_000
	// 0.58252 USD per XDR, scaled by model.RateUnit.
	sdrUSDComponent uint64 = 582_520_000
)

type dayBucket struct {
	day     uint64
	rates   map[string][]uint64
	sources map[string]struct{}
}

// Collector accumulates per-source rate maps into per-day buckets. Every
// stored value is the USD value of one unit of the symbol. It is not safe
// for concurrent use; callers serialize access through the state package.
type Collector struct {
	buckets []*dayBucket
	maxDays int
}

// NewCollector creates a collector keeping at most maxDays buckets.
func NewCollector(maxDays int) *Collector {
	if maxDays <= 0 {
		maxDays = DefaultCollectorDays
	}
	return &Collector{maxDays: maxDays}
}

func (c *Collector) bucket(day uint64) *dayBucket {
	for _, b := range c.buckets {
		if b.day == day {
			return b
		}
	}
	return nil
}

// Update ingests the rates reported by source for day. It reports whether
// the source was newly recorded; a repeated source, a map without a usable
// USD entry, or a day older than the whole window is ignored.
func (c *Collector) Update(source string, day uint64, rates Rates) bool {
	day = DayStart(day)
	b := c.bucket(day)
	if b != nil {
		if _, seen := b.sources[source]; seen {
			return false
		}
	}

	normalized, ok := normalizeToUSD(rates)
	if !ok {
		return false
	}

	if b == nil {
		if len(c.buckets) >= c.maxDays && day < c.buckets[0].day {
			return false
		}
		b = &dayBucket{day: day, rates: map[string][]uint64{}, sources: map[string]struct{}{}}
		c.buckets = append(c.buckets, b)
		c.sortAndTrim()
	}

	b.sources[source] = struct{}{}
	for sym, v := range normalized {
		b.rates[sym] = append(b.rates[sym], v)
	}
	return true
}

// normalizeToUSD divides the USD value out of every entry.
func normalizeToUSD(rates Rates) (Rates, bool) {
	usd, ok := rates[model.USD]
	if !ok || usd == 0 {
		return nil, false
	}
	out := make(Rates, len(rates))
	for sym, v := range rates {
		if v == 0 {
			continue
		}
		hi, lo := bits.Mul64(v, model.RateUnit)
		if hi >= usd {
			continue
		}
		q, _ := bits.Div64(hi, lo, usd)
		if q == 0 {
			continue
		}
		out[normalizeSymbol(sym)] = q
	}
	return out, true
}

// HasSource reports whether source already contributed to day.
func (c *Collector) HasSource(source string, day uint64) bool {
	b := c.bucket(DayStart(day))
	if b == nil {
		return false
	}
	_, ok := b.sources[source]
	return ok
}

// Days returns the collected days in ascending order.
func (c *Collector) Days() []uint64 {
	out := make([]uint64, 0, len(c.buckets))
	for _, b := range c.buckets {
		out = append(out, b.day)
	}
	return out
}

// GetRatesMap returns the canonical X/USD rate for every symbol collected
// on day, including the synthesized CXDR rate when its basket is complete.
func (c *Collector) GetRatesMap(day uint64) (map[string]model.QueriedRate, bool) {
	b := c.bucket(DayStart(day))
	if b == nil {
		return nil, false
	}
	numSources := len(b.sources)
	out := make(map[string]model.QueriedRate, len(b.rates)+1)
	for sym, list := range b.rates {
		out[sym] = model.QueriedRate{
			BaseAsset:                   model.FiatAsset(sym),
			QuoteAsset:                  model.FiatAsset(model.USD),
			Timestamp:                   b.day,
			Rates:                       stats.Sorted(list),
			BaseAssetNumQueriedSources:  numSources,
			BaseAssetNumReceivedRates:   len(list),
			QuoteAssetNumQueriedSources: numSources,
			QuoteAssetNumReceivedRates:  numSources,
		}
	}
	if cxdr, ok := computedSDR(out, b.day, numSources); ok {
		out[model.CXDR] = cxdr
	}
	return out, true
}

// computedSDR values the SDR basket in USD from the component medians. The
// deviation combines the components' deviations in quadrature.
func computedSDR(rates map[string]model.QueriedRate, day uint64, numSources int) (model.QueriedRate, bool) {
	value := sdrUSDComponent
	variance := new(big.Int)
	received := numSources
	for _, c := range sdrWeights {
		r, ok := rates[c.symbol]
		if !ok || len(r.Rates) == 0 {
			return model.QueriedRate{}, false
		}
		hi, lo := bits.Mul64(c.weight, r.Median())
		if hi >= sdrWeightScale {
			return model.QueriedRate{}, false
		}
		part, _ := bits.Div64(hi, lo, sdrWeightScale)
		value += part

		wsd := new(big.Int).Mul(new(big.Int).SetUint64(c.weight), new(big.Int).SetUint64(stats.StandardDeviation(r.Rates)))
		variance.Add(variance, wsd.Mul(wsd, wsd))

		received = min(received, r.BaseAssetNumReceivedRates)
	}
	sd := stats.ISqrt(variance)
	sd.Quo(sd, new(big.Int).SetUint64(sdrWeightScale))
	dev := sd.Uint64()

	list := []uint64{value}
	if dev > 0 && dev < value {
		list = []uint64{value - dev, value, value + dev}
	}
	return model.QueriedRate{
		BaseAsset:                   model.FiatAsset(model.CXDR),
		QuoteAsset:                  model.FiatAsset(model.USD),
		Timestamp:                   day,
		Rates:                       list,
		BaseAssetNumQueriedSources:  numSources,
		BaseAssetNumReceivedRates:   received,
		QuoteAssetNumQueriedSources: numSources,
		QuoteAssetNumReceivedRates:  numSources,
	}, true
}

// Snapshot returns a deep copy of the buckets for persistence.
func (c *Collector) Snapshot() []DaySnapshot {
	out := make([]DaySnapshot, 0, len(c.buckets))
	for _, b := range c.buckets {
		snap := DaySnapshot{Day: b.day, Rates: make(map[string][]uint64, len(b.rates))}
		for src := range b.sources {
			snap.Sources = append(snap.Sources, src)
		}
		slices.Sort(snap.Sources)
		for sym, list := range b.rates {
			snap.Rates[sym] = slices.Clone(list)
		}
		out = append(out, snap)
	}
	return out
}

// Restore replaces the collector contents with snaps.
func (c *Collector) Restore(snaps []DaySnapshot) {
	c.buckets = nil
	for _, s := range snaps {
		b := &dayBucket{day: s.Day, rates: map[string][]uint64{}, sources: map[string]struct{}{}}
		for _, src := range s.Sources {
			b.sources[src] = struct{}{}
		}
		for sym, list := range s.Rates {
			b.rates[sym] = slices.Clone(list)
		}
		c.buckets = append(c.buckets, b)
	}
	c.sortAndTrim()
}

// sortAndTrim orders buckets by day and drops the oldest beyond maxDays.
func (c *Collector) sortAndTrim() {
	slices.SortFunc(c.buckets, func(x, y *dayBucket) int { return cmp.Compare(x.day, y.day) })
	if len(c.buckets) > c.maxDays {
		c.buckets = c.buckets[len(c.buckets)-c.maxDays:]
	}
}

// DaySnapshot is the persisted form of one collector bucket.
type DaySnapshot struct {
	Day     uint64              `json:"day"`
	Sources []string            `json:"sources"`
	Rates   map[string][]uint64 `json:"rates"`
}
