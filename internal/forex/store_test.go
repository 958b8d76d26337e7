package forex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/exchange-rate-oracle/internal/apperrors"
	"github.com/ndewijer/exchange-rate-oracle/internal/model"
)

func usdRate(symbol string, day uint64, received int, rates ...uint64) model.QueriedRate {
	return model.QueriedRate{
		BaseAsset:                   model.FiatAsset(symbol),
		QuoteAsset:                  model.FiatAsset(model.USD),
		Timestamp:                   day,
		Rates:                       rates,
		BaseAssetNumQueriedSources:  received,
		BaseAssetNumReceivedRates:   received,
		QuoteAssetNumQueriedSources: received,
		QuoteAssetNumReceivedRates:  received,
	}
}

func TestStorePut(t *testing.T) {
	t.Run("fewer received rates do not replace an entry", func(t *testing.T) {
		s := NewStore(DefaultStoreDays)
		s.Put(testDay, map[string]model.QueriedRate{"EUR": usdRate("EUR", testDay, 3, 1_200_000_000, 1_210_000_000, 1_220_000_000)})
		s.Put(testDay, map[string]model.QueriedRate{"EUR": usdRate("EUR", testDay, 2, 1_500_000_000, 1_500_000_000)})

		day, ok := s.Day(testDay)
		require.True(t, ok)
		assert.Equal(t, 3, day["EUR"].BaseAssetNumReceivedRates)
	})

	t.Run("equal or more received rates replace an entry", func(t *testing.T) {
		s := NewStore(DefaultStoreDays)
		s.Put(testDay, map[string]model.QueriedRate{"EUR": usdRate("EUR", testDay, 2, 1_200_000_000, 1_210_000_000)})
		s.Put(testDay, map[string]model.QueriedRate{"EUR": usdRate("EUR", testDay, 2, 1_300_000_000, 1_310_000_000)})

		day, _ := s.Day(testDay)
		assert.Equal(t, []uint64{1_300_000_000, 1_310_000_000}, day["EUR"].Rates)
	})

	t.Run("merges symbols entry-wise", func(t *testing.T) {
		s := NewStore(DefaultStoreDays)
		s.Put(testDay, map[string]model.QueriedRate{"EUR": usdRate("EUR", testDay, 1, 1_200_000_000)})
		s.Put(testDay, map[string]model.QueriedRate{"JPY": usdRate("JPY", testDay, 1, 9_000_000)})

		day, _ := s.Day(testDay)
		assert.Len(t, day, 2)
	})

	t.Run("window drops the oldest days", func(t *testing.T) {
		s := NewStore(2)
		for i := range uint64(4) {
			d := testDay + i*SecondsPerDay
			s.Put(d, map[string]model.QueriedRate{"EUR": usdRate("EUR", d, 1, 1_200_000_000)})
		}
		assert.Equal(t, []uint64{testDay + 2*SecondsPerDay, testDay + 3*SecondsPerDay}, s.Days())
	})
}

func TestStoreGet(t *testing.T) {
	const requestTS uint64 = 1614596340
	today := DayStart(requestTS)

	newStore := func() *Store {
		s := NewStore(DefaultStoreDays)
		s.Put(testDay, map[string]model.QueriedRate{
			"EUR": usdRate("EUR", testDay, 2, 1_250_000_000, 1_250_000_000),
			"JPY": usdRate("JPY", testDay, 2, 10_000_000, 10_000_000),
			"USD": usdRate("USD", testDay, 2, 1_000_000_000, 1_000_000_000),
		})
		return s
	}

	t.Run("identical symbols return the identity", func(t *testing.T) {
		r, err := newStore().Get(today, requestTS, "EUR", "EUR")
		require.NoError(t, err)
		assert.Equal(t, []uint64{model.RateUnit}, r.Rates)
		assert.Equal(t, requestTS, r.Timestamp)
		assert.Nil(t, r.ForexTimestamp)
	})

	t.Run("divides base by quote on the latest eligible day", func(t *testing.T) {
		r, err := newStore().Get(today, requestTS, "EUR", "JPY")
		require.NoError(t, err)
		assert.Equal(t, []uint64{125_000_000_000, 125_000_000_000, 125_000_000_000, 125_000_000_000}, r.Rates)
		assert.Equal(t, model.FiatAsset("EUR"), r.BaseAsset)
		assert.Equal(t, model.FiatAsset("JPY"), r.QuoteAsset)
		assert.Equal(t, requestTS, r.Timestamp)
		require.NotNil(t, r.ForexTimestamp)
		assert.Equal(t, testDay, *r.ForexTimestamp)
		assert.Equal(t, 2, r.BaseAssetNumReceivedRates)
		assert.Equal(t, 2, r.QuoteAssetNumReceivedRates)
	})

	t.Run("skips days missing either symbol", func(t *testing.T) {
		s := newStore()
		s.Put(today, map[string]model.QueriedRate{"EUR": usdRate("EUR", today, 1, 1_300_000_000)})
		r, err := s.Get(today, requestTS, "EUR", "JPY")
		require.NoError(t, err)
		assert.Equal(t, testDay, *r.ForexTimestamp)
	})

	t.Run("USD quote without stored entry uses identity", func(t *testing.T) {
		s := NewStore(DefaultStoreDays)
		s.Put(testDay, map[string]model.QueriedRate{"EUR": usdRate("EUR", testDay, 1, 1_250_000_000)})
		r, err := s.Get(today, requestTS, "EUR", model.USD)
		require.NoError(t, err)
		assert.Equal(t, []uint64{1_250_000_000}, r.Rates)
	})

	t.Run("outliers are filtered per leg", func(t *testing.T) {
		s := NewStore(DefaultStoreDays)
		s.Put(testDay, map[string]model.QueriedRate{
			"EUR": usdRate("EUR", testDay, 4, 1_000_000_000, 1_050_000_000, 1_100_000_000, 5_000_000_000),
		})
		r, err := s.Get(today, requestTS, "EUR", model.USD)
		require.NoError(t, err)
		assert.Equal(t, []uint64{1_000_000_000, 1_050_000_000, 1_100_000_000}, r.Rates)
		assert.Equal(t, 4, r.BaseAssetNumReceivedRates)
	})

	t.Run("errors", func(t *testing.T) {
		s := newStore()

		_, err := s.Get(testDay-SecondsPerDay, requestTS, "EUR", "JPY")
		assert.ErrorIs(t, err, apperrors.ErrStoreInvalidTimestamp)

		_, err = s.Get(today, requestTS, "EUR", "NOK")
		assert.ErrorIs(t, err, apperrors.ErrStoreQuoteNotFound)

		_, err = s.Get(today, requestTS, "NOK", "EUR")
		assert.ErrorIs(t, err, apperrors.ErrStoreBaseNotFound)

		_, err = s.Get(today, requestTS, "NOK", "SEK")
		assert.ErrorIs(t, err, apperrors.ErrStoreAssetsNotFound)
	})
}

func TestStoreAllocatedBytesAndSnapshot(t *testing.T) {
	s := NewStore(DefaultStoreDays)
	assert.Equal(t, 0, s.AllocatedBytes())

	s.Put(testDay, map[string]model.QueriedRate{"EUR": usdRate("EUR", testDay, 1, 1_250_000_000)})
	small := s.AllocatedBytes()
	assert.Positive(t, small)

	s.Put(testDay, map[string]model.QueriedRate{"JPY": usdRate("JPY", testDay, 1, 10_000_000)})
	assert.Greater(t, s.AllocatedBytes(), small)

	restored := NewStore(DefaultStoreDays)
	restored.Restore(s.Snapshot())
	assert.Equal(t, s.Snapshot(), restored.Snapshot())
}
