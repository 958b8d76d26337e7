package forex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/exchange-rate-oracle/internal/model"
)

func TestCollectorUpdate(t *testing.T) {
	t.Run("normalizes local currency rates to USD", func(t *testing.T) {
		c := NewCollector(3)
		ok := c.Update("ecb", testDay, Rates{"EUR": 1_000_000_000, "USD": 800_000_000, "JPY": 8_000_000})
		require.True(t, ok)

		m, found := c.GetRatesMap(testDay)
		require.True(t, found)
		assert.Equal(t, []uint64{1_250_000_000}, m["EUR"].Rates)
		assert.Equal(t, []uint64{10_000_000}, m["JPY"].Rates)
		assert.Equal(t, []uint64{1_000_000_000}, m["USD"].Rates)
	})

	t.Run("same source twice is ingested once", func(t *testing.T) {
		c := NewCollector(3)
		rates := Rates{"USD": 1_000_000_000, "EUR": 1_250_000_000}
		require.True(t, c.Update("italy", testDay, rates))
		assert.False(t, c.Update("italy", testDay, rates))

		m, _ := c.GetRatesMap(testDay)
		assert.Len(t, m["EUR"].Rates, 1)
		assert.Equal(t, 1, m["EUR"].BaseAssetNumQueriedSources)
	})

	t.Run("map without USD is rejected", func(t *testing.T) {
		c := NewCollector(3)
		assert.False(t, c.Update("turkey", testDay, Rates{"TRY": 1_000_000_000, "EUR": 8_000_000_000}))
		assert.False(t, c.HasSource("turkey", testDay))
		_, found := c.GetRatesMap(testDay)
		assert.False(t, found)
	})

	t.Run("SDR is stored as XDR", func(t *testing.T) {
		c := NewCollector(3)
		require.True(t, c.Update("bank", testDay, Rates{"USD": 1_000_000_000, "SDR": 1_400_000_000}))
		m, _ := c.GetRatesMap(testDay)
		assert.Contains(t, m, model.XDR)
		assert.NotContains(t, m, "SDR")
	})

	t.Run("timestamps within a day share a bucket", func(t *testing.T) {
		c := NewCollector(3)
		require.True(t, c.Update("a", testDay+3_600, Rates{"USD": 1_000_000_000}))
		assert.True(t, c.HasSource("a", testDay))
		assert.Equal(t, []uint64{testDay}, c.Days())
	})
}

func TestCollectorWindow(t *testing.T) {
	c := NewCollector(2)
	usd := Rates{"USD": 1_000_000_000}
	d1, d2, d3 := testDay, testDay+SecondsPerDay, testDay+2*SecondsPerDay

	require.True(t, c.Update("a", d1, usd))
	require.True(t, c.Update("a", d2, usd))
	require.True(t, c.Update("a", d3, usd))
	assert.Equal(t, []uint64{d2, d3}, c.Days())

	assert.False(t, c.Update("b", d1, usd), "day older than the window")
	assert.Equal(t, []uint64{d2, d3}, c.Days())
}

func TestCollectorGetRatesMap(t *testing.T) {
	c := NewCollector(3)
	require.True(t, c.Update("ecb", testDay, Rates{"EUR": 1_000_000_000, "USD": 800_000_000}))
	require.True(t, c.Update("italy", testDay, Rates{"USD": 1_000_000_000, "EUR": 1_300_000_000, "GBP": 1_400_000_000}))

	m, found := c.GetRatesMap(testDay)
	require.True(t, found)

	eur := m["EUR"]
	assert.Equal(t, []uint64{1_250_000_000, 1_300_000_000}, eur.Rates)
	assert.Equal(t, 2, eur.BaseAssetNumQueriedSources)
	assert.Equal(t, 2, eur.BaseAssetNumReceivedRates)
	assert.Equal(t, model.FiatAsset("EUR"), eur.BaseAsset)
	assert.Equal(t, model.FiatAsset(model.USD), eur.QuoteAsset)
	assert.Equal(t, testDay, eur.Timestamp)

	gbp := m["GBP"]
	assert.Equal(t, 2, gbp.BaseAssetNumQueriedSources)
	assert.Equal(t, 1, gbp.BaseAssetNumReceivedRates)

	_, hasCXDR := m[model.CXDR]
	assert.False(t, hasCXDR, "basket incomplete without CNY and JPY")
}

func TestCollectorComputedSDR(t *testing.T) {
	t.Run("single source has no spread", func(t *testing.T) {
		c := NewCollector(3)
		require.True(t, c.Update("a", testDay, Rates{
			"USD": 1_000_000_000, "EUR": 1_000_000_000, "CNY": 1_000_000_000, "JPY": 1_000_000_000, "GBP": 1_000_000_000,
		}))
		m, _ := c.GetRatesMap(testDay)
		cxdr, ok := m[model.CXDR]
		require.True(t, ok)
		// 0.38671 + 1.0174 + 11.9 + 0.085946 + 0.58252
		assert.Equal(t, []uint64{13_972_576_000}, cxdr.Rates)
		assert.Equal(t, 1, cxdr.BaseAssetNumReceivedRates)
	})

	t.Run("component spread propagates", func(t *testing.T) {
		c := NewCollector(3)
		require.True(t, c.Update("a", testDay, Rates{
			"USD": 1_000_000_000, "EUR": 1_000_000_000, "CNY": 1_000_000_000, "JPY": 1_000_000_000, "GBP": 1_000_000_000,
		}))
		require.True(t, c.Update("b", testDay, Rates{
			"USD": 1_000_000_000, "EUR": 1_000_000_000, "CNY": 1_000_000_000, "JPY": 1_000_000_000, "GBP": 1_000_000_000,
		}))
		require.True(t, c.Update("c", testDay, Rates{
			"USD": 1_000_000_000, "EUR": 1_100_000_000, "CNY": 1_000_000_000, "JPY": 1_000_000_000,
		}))
		m, _ := c.GetRatesMap(testDay)
		cxdr, ok := m[model.CXDR]
		require.True(t, ok)
		require.Len(t, cxdr.Rates, 3)
		// EUR values 1.0, 1.0, 1.1: median 1.0, sd 57_735_026, weighted by 0.38671
		assert.Equal(t, uint64(13_972_576_000), cxdr.Rates[1])
		assert.Equal(t, cxdr.Rates[1]-cxdr.Rates[0], cxdr.Rates[2]-cxdr.Rates[1])
		assert.Equal(t, uint64(22_326_711), cxdr.Rates[1]-cxdr.Rates[0])
		// GBP only came from two of three sources
		assert.Equal(t, 2, cxdr.BaseAssetNumReceivedRates)
		assert.Equal(t, 3, cxdr.BaseAssetNumQueriedSources)
	})
}

func TestCollectorSnapshotRestore(t *testing.T) {
	c := NewCollector(3)
	require.True(t, c.Update("ecb", testDay, Rates{"EUR": 1_000_000_000, "USD": 800_000_000}))

	restored := NewCollector(3)
	restored.Restore(c.Snapshot())

	assert.True(t, restored.HasSource("ecb", testDay))
	assert.False(t, restored.Update("ecb", testDay, Rates{"USD": 1}))
	want, _ := c.GetRatesMap(testDay)
	got, _ := restored.GetRatesMap(testDay)
	assert.Equal(t, want, got)
}
