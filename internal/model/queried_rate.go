package model

import (
	"fmt"
	"math/bits"
	"slices"

	"github.com/ndewijer/exchange-rate-oracle/internal/apperrors"
	"github.com/ndewijer/exchange-rate-oracle/internal/stats"
)

// QueriedRate is the internal record of a rate together with every
// per-source value that contributed to it and the per-side provenance counts.
type QueriedRate struct {
	BaseAsset                   Asset    `json:"base_asset"`
	QuoteAsset                  Asset    `json:"quote_asset"`
	Timestamp                   uint64   `json:"timestamp"`
	Rates                       []uint64 `json:"rates"`
	BaseAssetNumQueriedSources  int      `json:"base_asset_num_queried_sources"`
	BaseAssetNumReceivedRates   int      `json:"base_asset_num_received_rates"`
	QuoteAssetNumQueriedSources int      `json:"quote_asset_num_queried_sources"`
	QuoteAssetNumReceivedRates  int      `json:"quote_asset_num_received_rates"`
	ForexTimestamp              *uint64  `json:"forex_timestamp,omitempty"`
}

// IdentityRate is base/base at RateUnit with no contributing sources.
func IdentityRate(asset Asset, timestamp uint64) QueriedRate {
	return QueriedRate{
		BaseAsset:  asset,
		QuoteAsset: asset,
		Timestamp:  timestamp,
		Rates:      []uint64{RateUnit},
	}
}

// MulScaled multiplies two scaled rates and rescales the product.
// ok is false when the result does not fit in 64 bits.
func MulScaled(a, b uint64) (uint64, bool) {
	hi, lo := bits.Mul64(a, b)
	if hi >= RateUnit {
		return 0, false
	}
	q, _ := bits.Div64(hi, lo, RateUnit)
	return q, true
}

// InvertScaled maps r to RateUnit^2 / r.
func InvertScaled(r uint64) (uint64, error) {
	if r == 0 {
		return 0, apperrors.ErrZeroRate
	}
	return RateUnit * RateUnit / r, nil
}

// Mul combines A/M with M/B into A/B. Every pair of rates is multiplied,
// base provenance comes from q and quote provenance from other. A pair whose
// product does not fit in 64 bits is left out of the result, so Rates can be
// shorter than the full cross product while the provenance counts still
// describe the sources; callers treat an empty result as inconsistent.
func (q QueriedRate) Mul(other QueriedRate) QueriedRate {
	rates := make([]uint64, 0, len(q.Rates)*len(other.Rates))
	for _, a := range q.Rates {
		for _, b := range other.Rates {
			if p, ok := MulScaled(a, b); ok {
				rates = append(rates, p)
			}
		}
	}
	slices.Sort(rates)

	forexTS := q.ForexTimestamp
	if forexTS == nil {
		forexTS = other.ForexTimestamp
	}
	return QueriedRate{
		BaseAsset:                   q.BaseAsset,
		QuoteAsset:                  other.QuoteAsset,
		Timestamp:                   q.Timestamp,
		Rates:                       rates,
		BaseAssetNumQueriedSources:  q.BaseAssetNumQueriedSources,
		BaseAssetNumReceivedRates:   q.BaseAssetNumReceivedRates,
		QuoteAssetNumQueriedSources: other.QuoteAssetNumQueriedSources,
		QuoteAssetNumReceivedRates:  other.QuoteAssetNumReceivedRates,
		ForexTimestamp:              forexTS,
	}
}

// Inverted returns Q/B for a rate B/Q. Provenance counts swap sides.
func (q QueriedRate) Inverted() (QueriedRate, error) {
	rates := make([]uint64, 0, len(q.Rates))
	for _, r := range q.Rates {
		inv, err := InvertScaled(r)
		if err != nil {
			return QueriedRate{}, fmt.Errorf("invert %s/%s: %w", q.BaseAsset.Symbol, q.QuoteAsset.Symbol, err)
		}
		rates = append(rates, inv)
	}
	slices.Sort(rates)
	return QueriedRate{
		BaseAsset:                   q.QuoteAsset,
		QuoteAsset:                  q.BaseAsset,
		Timestamp:                   q.Timestamp,
		Rates:                       rates,
		BaseAssetNumQueriedSources:  q.QuoteAssetNumQueriedSources,
		BaseAssetNumReceivedRates:   q.QuoteAssetNumReceivedRates,
		QuoteAssetNumQueriedSources: q.BaseAssetNumQueriedSources,
		QuoteAssetNumReceivedRates:  q.BaseAssetNumReceivedRates,
		ForexTimestamp:              q.ForexTimestamp,
	}, nil
}

// Div combines A/M with B/M into A/B. Quote provenance is other's base
// provenance.
func (q QueriedRate) Div(other QueriedRate) (QueriedRate, error) {
	inv, err := other.Inverted()
	if err != nil {
		return QueriedRate{}, err
	}
	out := q.Mul(inv)
	if len(out.Rates) == 0 {
		return QueriedRate{}, fmt.Errorf("%s/%s: %w", q.BaseAsset.Symbol, other.BaseAsset.Symbol, apperrors.ErrEmptyRates)
	}
	return out, nil
}

// Median of the contributing rates.
func (q QueriedRate) Median() uint64 {
	return stats.Median(q.Rates)
}

// FilterOutliers drops every rate deviating from the median by more than
// percent% of the median. Provenance counts are kept as received.
func (q QueriedRate) FilterOutliers(percent uint64) QueriedRate {
	if len(q.Rates) == 0 {
		return q
	}
	m := q.Median()
	kept := make([]uint64, 0, len(q.Rates))
	for _, r := range q.Rates {
		if stats.WithinPercent(r, m, percent) {
			kept = append(kept, r)
		}
	}
	slices.Sort(kept)
	out := q
	out.Rates = kept
	return out
}

// Validate rejects rates whose median is zero.
func (q QueriedRate) Validate() error {
	if len(q.Rates) == 0 || q.Median() == 0 {
		return apperrors.ErrInvalidRate
	}
	return nil
}

// Clone returns a deep copy.
func (q QueriedRate) Clone() QueriedRate {
	out := q
	out.Rates = slices.Clone(q.Rates)
	if q.ForexTimestamp != nil {
		ts := *q.ForexTimestamp
		out.ForexTimestamp = &ts
	}
	return out
}

// ToExchangeRate converts to the public shape: the rate is the contributing
// value closest to the median, and the dispersion is the sample standard
// deviation of all contributing values.
func (q QueriedRate) ToExchangeRate() ExchangeRate {
	return ExchangeRate{
		BaseAsset:  q.BaseAsset,
		QuoteAsset: q.QuoteAsset,
		Timestamp:  q.Timestamp,
		Rate:       stats.MedianInSet(q.Rates),
		Metadata: ExchangeRateMetadata{
			Decimals:                    Decimals,
			BaseAssetNumQueriedSources:  q.BaseAssetNumQueriedSources,
			BaseAssetNumReceivedRates:   q.BaseAssetNumReceivedRates,
			QuoteAssetNumQueriedSources: q.QuoteAssetNumQueriedSources,
			QuoteAssetNumReceivedRates:  q.QuoteAssetNumReceivedRates,
			StandardDeviation:           stats.StandardDeviation(q.Rates),
			ForexTimestamp:              q.ForexTimestamp,
		},
	}
}
