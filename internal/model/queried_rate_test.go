package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/exchange-rate-oracle/internal/apperrors"
)

func TestMulScaled(t *testing.T) {
	tests := []struct {
		name   string
		a, b   uint64
		want   uint64
		wantOK bool
	}{
		{"unit is neutral", 4 * RateUnit, RateUnit, 4 * RateUnit, true},
		{"fractions", 2 * RateUnit, 500_000_000, RateUnit, true},
		{"truncates", 1, 1, 0, true},
		{"overflow", math.MaxUint64, 2 * RateUnit, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := MulScaled(tt.a, tt.b)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInvertScaled(t *testing.T) {
	t.Run("zero rate", func(t *testing.T) {
		_, err := InvertScaled(0)
		assert.ErrorIs(t, err, apperrors.ErrZeroRate)
	})

	t.Run("values", func(t *testing.T) {
		got, err := InvertScaled(4 * RateUnit)
		require.NoError(t, err)
		assert.Equal(t, uint64(250_000_000), got)

		got, err = InvertScaled(RateUnit)
		require.NoError(t, err)
		assert.Equal(t, RateUnit, got)
	})

	t.Run("round trip holds up to one unit", func(t *testing.T) {
		for _, r := range []uint64{1, 7, 123_456_789, 333_333_333, 999_999_999, RateUnit} {
			once, err := InvertScaled(r)
			require.NoError(t, err)
			twice, err := InvertScaled(once)
			require.NoError(t, err)
			assert.Equal(t, r, twice, "invert(invert(%d))", r)
		}
	})
}

func TestQueriedRate_Mul(t *testing.T) {
	day := uint64(1614556800)

	t.Run("cross product with provenance from each side", func(t *testing.T) {
		icpUSDT := QueriedRate{
			BaseAsset:                   CryptoAsset("ICP"),
			QuoteAsset:                  CryptoAsset(USDT),
			Timestamp:                   1614596340,
			Rates:                       []uint64{3 * RateUnit, 2 * RateUnit},
			BaseAssetNumQueriedSources:  7,
			BaseAssetNumReceivedRates:   6,
			QuoteAssetNumQueriedSources: 7,
			QuoteAssetNumReceivedRates:  6,
		}
		usdtUSD := QueriedRate{
			BaseAsset:                   CryptoAsset(USDT),
			QuoteAsset:                  FiatAsset(USD),
			Rates:                       []uint64{500_000_000},
			BaseAssetNumQueriedSources:  3,
			BaseAssetNumReceivedRates:   2,
			QuoteAssetNumQueriedSources: 5,
			QuoteAssetNumReceivedRates:  4,
			ForexTimestamp:              &day,
		}

		got := icpUSDT.Mul(usdtUSD)

		assert.Equal(t, CryptoAsset("ICP"), got.BaseAsset)
		assert.Equal(t, FiatAsset(USD), got.QuoteAsset)
		assert.Equal(t, uint64(1614596340), got.Timestamp)
		assert.Equal(t, []uint64{RateUnit, 1_500_000_000}, got.Rates)
		assert.Equal(t, 7, got.BaseAssetNumQueriedSources)
		assert.Equal(t, 6, got.BaseAssetNumReceivedRates)
		assert.Equal(t, 5, got.QuoteAssetNumQueriedSources)
		assert.Equal(t, 4, got.QuoteAssetNumReceivedRates)
		require.NotNil(t, got.ForexTimestamp)
		assert.Equal(t, day, *got.ForexTimestamp)
	})

	t.Run("overflowing products are dropped", func(t *testing.T) {
		a := QueriedRate{Rates: []uint64{RateUnit, 1 << 62}, BaseAssetNumReceivedRates: 2}
		b := QueriedRate{Rates: []uint64{40 * RateUnit}, QuoteAssetNumReceivedRates: 1}

		got := a.Mul(b)

		assert.Equal(t, []uint64{40 * RateUnit}, got.Rates)
		assert.Equal(t, 2, got.BaseAssetNumReceivedRates)
		assert.Equal(t, 1, got.QuoteAssetNumReceivedRates)
	})
}

func TestQueriedRate_Inverted(t *testing.T) {
	t.Run("swaps sides and provenance", func(t *testing.T) {
		q := QueriedRate{
			BaseAsset:                   CryptoAsset("ICP"),
			QuoteAsset:                  CryptoAsset(USDT),
			Rates:                       []uint64{2 * RateUnit, 4 * RateUnit},
			BaseAssetNumQueriedSources:  7,
			BaseAssetNumReceivedRates:   6,
			QuoteAssetNumQueriedSources: 5,
			QuoteAssetNumReceivedRates:  4,
		}

		got, err := q.Inverted()
		require.NoError(t, err)

		assert.Equal(t, CryptoAsset(USDT), got.BaseAsset)
		assert.Equal(t, CryptoAsset("ICP"), got.QuoteAsset)
		assert.Equal(t, []uint64{250_000_000, 500_000_000}, got.Rates)
		assert.Equal(t, 5, got.BaseAssetNumQueriedSources)
		assert.Equal(t, 4, got.BaseAssetNumReceivedRates)
		assert.Equal(t, 7, got.QuoteAssetNumQueriedSources)
		assert.Equal(t, 6, got.QuoteAssetNumReceivedRates)
	})

	t.Run("zero rate", func(t *testing.T) {
		_, err := QueriedRate{Rates: []uint64{RateUnit, 0}}.Inverted()
		assert.ErrorIs(t, err, apperrors.ErrZeroRate)
	})
}

func TestQueriedRate_Div(t *testing.T) {
	t.Run("quote provenance comes from the divisor's base", func(t *testing.T) {
		icp := QueriedRate{
			BaseAsset:                   CryptoAsset("ICP"),
			QuoteAsset:                  CryptoAsset(USDT),
			Rates:                       []uint64{4 * RateUnit},
			BaseAssetNumQueriedSources:  7,
			BaseAssetNumReceivedRates:   7,
			QuoteAssetNumQueriedSources: 7,
			QuoteAssetNumReceivedRates:  7,
		}
		btc := QueriedRate{
			BaseAsset:                   CryptoAsset("BTC"),
			QuoteAsset:                  CryptoAsset(USDT),
			Rates:                       []uint64{40_000 * RateUnit},
			BaseAssetNumQueriedSources:  7,
			BaseAssetNumReceivedRates:   5,
			QuoteAssetNumQueriedSources: 7,
			QuoteAssetNumReceivedRates:  5,
		}

		got, err := icp.Div(btc)
		require.NoError(t, err)

		assert.Equal(t, CryptoAsset("ICP"), got.BaseAsset)
		assert.Equal(t, CryptoAsset("BTC"), got.QuoteAsset)
		assert.Equal(t, []uint64{100_000}, got.Rates)
		assert.Equal(t, 7, got.BaseAssetNumReceivedRates)
		assert.Equal(t, 7, got.QuoteAssetNumQueriedSources)
		assert.Equal(t, 5, got.QuoteAssetNumReceivedRates)
	})

	tests := []struct {
		name    string
		a, b    QueriedRate
		wantErr error
	}{
		{"empty dividend", QueriedRate{}, QueriedRate{Rates: []uint64{RateUnit}}, apperrors.ErrEmptyRates},
		{"every product overflows", QueriedRate{Rates: []uint64{1 << 62}}, QueriedRate{Rates: []uint64{1}}, apperrors.ErrEmptyRates},
		{"zero divisor", QueriedRate{Rates: []uint64{RateUnit}}, QueriedRate{Rates: []uint64{0}}, apperrors.ErrZeroRate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.a.Div(tt.b)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestQueriedRate_FilterOutliers(t *testing.T) {
	tests := []struct {
		name  string
		rates []uint64
		want  []uint64
	}{
		{"exactly twenty percent is kept", []uint64{121, 80, 100, 120, 100}, []uint64{80, 100, 100, 120}},
		{"just over twenty percent is dropped", []uint64{79, 100, 100, 120}, []uint64{100, 100, 120}},
		{"empty", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := QueriedRate{Rates: tt.rates, BaseAssetNumReceivedRates: len(tt.rates)}

			got := q.FilterOutliers(20)

			assert.Equal(t, tt.want, got.Rates)
			assert.Equal(t, len(tt.rates), got.BaseAssetNumReceivedRates)
		})
	}
}

func TestQueriedRate_Validate(t *testing.T) {
	tests := []struct {
		name    string
		rates   []uint64
		wantErr bool
	}{
		{"no rates", nil, true},
		{"single zero", []uint64{0}, true},
		{"zero median", []uint64{0, 0, 5}, true},
		{"positive median", []uint64{0, 5}, false},
		{"single rate", []uint64{5}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := QueriedRate{Rates: tt.rates}.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, apperrors.ErrInvalidRate)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestQueriedRate_ToExchangeRate(t *testing.T) {
	q := QueriedRate{
		BaseAsset:  CryptoAsset("ICP"),
		QuoteAsset: FiatAsset("EUR"),
		Timestamp:  1614596340,
		Rates:      []uint64{1, 2, 3, 10},
	}

	got := q.ToExchangeRate()

	// median 2, mean 4, sample variance 50/3
	assert.Equal(t, uint64(2), got.Rate)
	assert.Equal(t, uint64(4), got.Metadata.StandardDeviation)
	assert.Equal(t, Decimals, got.Metadata.Decimals)
	assert.Nil(t, got.Metadata.ForexTimestamp)
}
