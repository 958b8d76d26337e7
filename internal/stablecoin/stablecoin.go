// Package stablecoin derives the USDT/USD bridge rate from several
// USD-pegged stablecoins quoted against a common asset.
package stablecoin

import (
	"slices"

	"github.com/ndewijer/exchange-rate-oracle/internal/apperrors"
	"github.com/ndewijer/exchange-rate-oracle/internal/model"
	"github.com/ndewijer/exchange-rate-oracle/internal/stats"
)

// MinRates is the number of stablecoin rates needed to pick a winner.
const MinRates = 2

// Rate takes rates S_i/Q for stablecoins S_i pegged to target and returns
// Q/target, built from the input whose median sits in the middle of all
// medians. When no median equals the median of medians exactly, the closest
// one wins, ties going to the smaller median.
func Rate(rates []model.QueriedRate, target model.Asset) (model.QueriedRate, error) {
	if len(rates) < MinRates {
		return model.QueriedRate{}, apperrors.ErrStablecoinRateTooFewRates
	}

	quote := rates[0].QuoteAsset
	medians := make([]uint64, len(rates))
	for i, r := range rates {
		if r.QuoteAsset != quote {
			return model.QueriedRate{}, apperrors.ErrStablecoinRateNotFound
		}
		if len(r.Rates) == 0 || slices.Contains(r.Rates, 0) {
			return model.QueriedRate{}, apperrors.ErrStablecoinRateZeroRate
		}
		medians[i] = r.Median()
	}

	selected := stats.MedianInSet(medians)
	idx := slices.Index(medians, selected)
	if idx < 0 {
		return model.QueriedRate{}, apperrors.ErrStablecoinRateNotFound
	}

	winner := rates[idx].Clone()
	winner.BaseAsset = target
	winner.QuoteAsset = quote

	inverted, err := winner.Inverted()
	if err != nil {
		return model.QueriedRate{}, apperrors.ErrStablecoinRateZeroRate
	}
	return inverted, nil
}
