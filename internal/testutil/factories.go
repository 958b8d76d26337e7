package testutil

import (
	"slices"

	"github.com/ndewijer/exchange-rate-oracle/internal/model"
)

// QueriedRateBuilder provides a fluent interface for creating test rates.
//
// Example usage:
//
//	// Crypto rate against USDT from three exchanges
//	rate := testutil.NewQueriedRate("ICP", "USDT").
//	    WithRates(3_900_000_000, 3_920_000_000, 3_940_000_000).
//	    Build()
//
//	// Fiat rate against USD
//	eur := testutil.NewQueriedRate("EUR", "USD").Fiat().WithRates(1_058_000_000).Build()
type QueriedRateBuilder struct {
	base      model.Asset
	quote     model.Asset
	timestamp uint64
	rates     []uint64
	queried   int
	received  int
	forexTS   *uint64
}

// NewQueriedRate creates a crypto builder at the default test timestamp.
func NewQueriedRate(base, quote string) *QueriedRateBuilder {
	return &QueriedRateBuilder{
		base:      model.CryptoAsset(base),
		quote:     model.CryptoAsset(quote),
		timestamp: TestTimestamp,
		rates:     []uint64{model.RateUnit},
		queried:   -1,
		received:  -1,
	}
}

// Fiat marks both assets as fiat currencies.
func (b *QueriedRateBuilder) Fiat() *QueriedRateBuilder {
	b.base.Class = model.FiatCurrency
	b.quote.Class = model.FiatCurrency
	return b
}

// WithRates sets the contributing rates.
func (b *QueriedRateBuilder) WithRates(rates ...uint64) *QueriedRateBuilder {
	b.rates = rates
	return b
}

// WithTimestamp sets a custom timestamp.
func (b *QueriedRateBuilder) WithTimestamp(ts uint64) *QueriedRateBuilder {
	b.timestamp = ts
	return b
}

// WithSources sets the queried and received counts of both sides.
func (b *QueriedRateBuilder) WithSources(queried, received int) *QueriedRateBuilder {
	b.queried = queried
	b.received = received
	return b
}

// WithForexTimestamp attaches a forex day.
func (b *QueriedRateBuilder) WithForexTimestamp(day uint64) *QueriedRateBuilder {
	b.forexTS = &day
	return b
}

// Build returns the rate. Counts default to the number of rates.
func (b *QueriedRateBuilder) Build() model.QueriedRate {
	rates := slices.Clone(b.rates)
	slices.Sort(rates)
	queried, received := b.queried, b.received
	if queried < 0 {
		queried = len(rates)
	}
	if received < 0 {
		received = len(rates)
	}
	r := model.QueriedRate{
		BaseAsset:                   b.base,
		QuoteAsset:                  b.quote,
		Timestamp:                   b.timestamp,
		Rates:                       rates,
		BaseAssetNumQueriedSources:  queried,
		BaseAssetNumReceivedRates:   received,
		QuoteAssetNumQueriedSources: queried,
		QuoteAssetNumReceivedRates:  received,
	}
	if b.forexTS != nil {
		ts := *b.forexTS
		r.ForexTimestamp = &ts
	}
	return r
}
