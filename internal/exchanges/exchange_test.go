package exchanges

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/exchange-rate-oracle/internal/apperrors"
)

const testTimestamp uint64 = 1614596340

func TestBuildURL(t *testing.T) {
	tests := []struct {
		exchange Exchange
		want     string
	}{
		{Binance(), "https://api.binance.com/api/v3/klines?symbol=ICPUSDT&interval=1m&startTime=1614596340000&endTime=1614596340000"},
		{Coinbase(), "https://api.exchange.coinbase.com/products/ICP-USDT/candles?granularity=60&start=1614596340&end=1614596340"},
		{KuCoin(), "https://api.kucoin.com/api/v1/market/candles?symbol=ICP-USDT&type=1min&startAt=1614596340&endAt=1614596400"},
		{OKX(), "https://www.okx.com/api/v5/market/history-candles?instId=ICP-USDT&bar=1m&before=1614596340000&after=1614596400000"},
		{GateIO(), "https://api.gateio.ws/api/v4/spot/candlesticks?currency_pair=ICP_USDT&interval=1m&from=1614596340&to=1614596340"},
		{MEXC(), "https://www.mexc.com/open/api/v2/market/kline?symbol=ICP_USDT&interval=1m&start_time=1614596340&limit=1"},
		{Poloniex(), "https://api.poloniex.com/markets/ICP_USDT/candles?interval=MINUTE_1&startTime=1614596340000&endTime=1614596340000"},
		{CryptoCom(), "https://api.crypto.com/exchange/v1/public/get-candlestick?instrument_name=ICP_USDT&timeframe=1m&start_ts=1614596340000&end_ts=1614596400000&count=1"},
		{Bitget(), "https://api.bitget.com/api/v2/spot/market/candles?symbol=ICPUSDT&granularity=1min&startTime=1614596340000&endTime=1614596400000&limit=1"},
	}

	for _, tt := range tests {
		t.Run(tt.exchange.Name(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.exchange.BuildURL("ICP", "USDT", testTimestamp))
		})
	}
}

func TestExtractRate(t *testing.T) {
	tests := []struct {
		exchange Exchange
		body     string
		want     uint64
	}{
		{Binance(), `[[1614596340000,"41.96000000","42.07000000","41.96000000","42.06000000","771.33000000",1637161979999,"32396.87850000",448,"404.33000000","16986.46890000","0"]]`, 41_960_000_000},
		{Coinbase(), `[[1614596340,49.15,60.28,49.18,60.19,12.4941909]]`, 49_180_000_000},
		{KuCoin(), `{"code":"200000","data":[["1614596340","345.426","344.396","345.426","344.396","280.1659","96711.631538"]]}`, 345_426_000_000},
		{OKX(), `{"code":"0","msg":"","data":[["1614596340000","41.95","42.0","41.9","41.98","1","2","3","1"]]}`, 41_950_000_000},
		{GateIO(), `[["1614596340","4.2","42.41","42.51","42.3","42.4","100"]]`, 42_400_000_000},
		{MEXC(), `{"code":200,"data":[[1614596340,"46.101","46.105","46.107","46.101","28.34","1306.5"]]}`, 46_101_000_000},
		{Poloniex(), `[["46.1","46.2","46.101","46.150","3.1","0.07","0","0",0,0,"46.1",1614596340000,1614596399999]]`, 46_101_000_000},
		{CryptoCom(), `{"code":0,"result":{"instrument_name":"ICP_USDT","data":[{"t":1614596340000,"o":"44.11","h":"44.2","l":"44.0","c":"44.1","v":"1"}]}}`, 44_110_000_000},
		{Bitget(), `{"code":"00000","data":[["1614596340000","44.2","44.5","44.0","44.3","1","1","1"]]}`, 44_200_000_000},
	}

	for _, tt := range tests {
		t.Run(tt.exchange.Name(), func(t *testing.T) {
			rate, err := tt.exchange.ExtractRate([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.want, rate)
		})
	}
}

func TestExtractRateFailures(t *testing.T) {
	t.Run("empty candle list is not found", func(t *testing.T) {
		_, err := Binance().ExtractRate([]byte(`[]`))
		assert.ErrorIs(t, err, apperrors.ErrRateNotFound)
	})

	t.Run("empty data field is not found", func(t *testing.T) {
		_, err := OKX().ExtractRate([]byte(`{"code":"0","data":[]}`))
		assert.ErrorIs(t, err, apperrors.ErrRateNotFound)
	})

	t.Run("invalid json", func(t *testing.T) {
		_, err := KuCoin().ExtractRate([]byte(`<html>busy</html>`))
		assert.ErrorIs(t, err, apperrors.ErrJSONParse)
	})

	t.Run("empty body", func(t *testing.T) {
		_, err := Coinbase().ExtractRate(nil)
		assert.Error(t, err)
	})

	t.Run("zero open price is rejected", func(t *testing.T) {
		_, err := Binance().ExtractRate([]byte(`[[1614596340000,"0.0","1","1","1"]]`))
		assert.ErrorIs(t, err, apperrors.ErrZeroRate)
	})
}

func TestSupportsPair(t *testing.T) {
	ok, inverted := SupportsPair(Coinbase(), "USDC", "USDT")
	assert.True(t, ok)
	assert.True(t, inverted)

	ok, inverted = SupportsPair(Binance(), "USDC", "USDT")
	assert.True(t, ok)
	assert.False(t, inverted)

	ok, _ = SupportsPair(Binance(), "DAI", "USDT")
	assert.False(t, ok)
}

func TestByNames(t *testing.T) {
	t.Run("empty list selects all", func(t *testing.T) {
		all, err := ByNames(nil)
		require.NoError(t, err)
		assert.Len(t, all, 9)
	})

	t.Run("order is preserved and names are normalized", func(t *testing.T) {
		got, err := ByNames([]string{" OKX", "binance"})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "okx", got[0].Name())
		assert.Equal(t, "binance", got[1].Name())
	})

	t.Run("unknown name", func(t *testing.T) {
		_, err := ByNames([]string{"mtgox"})
		assert.Error(t, err)
	})
}
