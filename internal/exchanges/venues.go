package exchanges

import (
	"fmt"
	"strings"
)

const (
	usdt = "USDT"
	usdc = "USDC"
	dai  = "DAI"
)

// Binance returns 1m klines: [[openTime, "open", "high", "low", "close", ...]].
func Binance() Exchange {
	return &venue{
		name:     "binance",
		template: "https://api.binance.com/api/v3/klines?symbol={BASE}{QUOTE}&interval=1m&startTime={TIMESTAMP_MS}&endTime={TIMESTAMP_MS}",
		maxBytes: 1_000,
		ipv6:     false,
		pairs:    []StablecoinPair{{usdc, usdt}},
		path:     "0.1",
	}
}

// Coinbase returns [[time, low, high, open, close, volume]] with numeric fields.
func Coinbase() Exchange {
	return &venue{
		name:     "coinbase",
		template: "https://api.exchange.coinbase.com/products/{BASE}-{QUOTE}/candles?granularity=60&start={TIMESTAMP_S}&end={TIMESTAMP_S}",
		maxBytes: 256,
		ipv6:     false,
		pairs:    []StablecoinPair{{usdt, usdc}},
		path:     "0.3",
	}
}

// KuCoin returns {"data": [["time", "open", "close", "high", "low", ...]]}.
func KuCoin() Exchange {
	return &venue{
		name:     "kucoin",
		template: "https://api.kucoin.com/api/v1/market/candles?symbol={BASE}-{QUOTE}&type=1min&startAt={TIMESTAMP_S}&endAt={END_S}",
		maxBytes: 512,
		ipv6:     true,
		pairs:    []StablecoinPair{{usdc, usdt}, {usdt, dai}},
		path:     "data.0.1",
	}
}

// OKX returns {"data": [["ts", "o", "h", "l", "c", ...]]}.
func OKX() Exchange {
	return &venue{
		name:     "okx",
		template: "https://www.okx.com/api/v5/market/history-candles?instId={BASE}-{QUOTE}&bar=1m&before={TIMESTAMP_MS}&after={END_MS}",
		maxBytes: 512,
		ipv6:     true,
		pairs:    []StablecoinPair{{dai, usdt}, {usdc, usdt}},
		path:     "data.0.1",
	}
}

// GateIO returns [["ts", "quote volume", "close", "high", "low", "open", ...]].
func GateIO() Exchange {
	return &venue{
		name:     "gateio",
		template: "https://api.gateio.ws/api/v4/spot/candlesticks?currency_pair={BASE}_{QUOTE}&interval=1m&from={TIMESTAMP_S}&to={TIMESTAMP_S}",
		maxBytes: 512,
		ipv6:     true,
		pairs:    []StablecoinPair{{dai, usdt}, {usdc, usdt}},
		path:     "0.5",
	}
}

// MEXC returns {"data": [[ts, "open", "close", "high", "low", ...]]}.
func MEXC() Exchange {
	return &venue{
		name:     "mexc",
		template: "https://www.mexc.com/open/api/v2/market/kline?symbol={BASE}_{QUOTE}&interval=1m&start_time={TIMESTAMP_S}&limit=1",
		maxBytes: 512,
		ipv6:     true,
		pairs:    []StablecoinPair{{usdc, usdt}},
		path:     "data.0.1",
	}
}

// Poloniex returns [["low", "high", "open", "close", ...]].
func Poloniex() Exchange {
	return &venue{
		name:     "poloniex",
		template: "https://api.poloniex.com/markets/{BASE}_{QUOTE}/candles?interval=MINUTE_1&startTime={TIMESTAMP_MS}&endTime={TIMESTAMP_MS}",
		maxBytes: 1_024,
		ipv6:     true,
		pairs:    []StablecoinPair{{dai, usdt}, {usdc, usdt}},
		path:     "0.2",
	}
}

// CryptoCom returns {"result": {"data": [{"t": ms, "o": "open", ...}]}}.
func CryptoCom() Exchange {
	return &venue{
		name:     "cryptocom",
		template: "https://api.crypto.com/exchange/v1/public/get-candlestick?instrument_name={BASE}_{QUOTE}&timeframe=1m&start_ts={TIMESTAMP_MS}&end_ts={END_MS}&count=1",
		maxBytes: 1_024,
		ipv6:     true,
		pairs:    []StablecoinPair{{dai, usdt}, {usdc, usdt}},
		path:     "result.data.0.o",
	}
}

// Bitget returns {"data": [["ts", "open", "high", "low", "close", ...]]}.
func Bitget() Exchange {
	return &venue{
		name:     "bitget",
		template: "https://api.bitget.com/api/v2/spot/market/candles?symbol={BASE}{QUOTE}&granularity=1min&startTime={TIMESTAMP_MS}&endTime={END_MS}&limit=1",
		maxBytes: 512,
		ipv6:     true,
		pairs:    []StablecoinPair{{usdc, usdt}},
		path:     "data.0.1",
	}
}

// All returns every supported exchange in canonical order.
func All() []Exchange {
	return []Exchange{
		Binance(), Coinbase(), KuCoin(), OKX(), GateIO(), MEXC(), Poloniex(), CryptoCom(), Bitget(),
	}
}

// ByNames resolves a list of exchange names, preserving the order given.
// An empty list selects every exchange.
func ByNames(names []string) ([]Exchange, error) {
	all := All()
	if len(names) == 0 {
		return all, nil
	}
	index := make(map[string]Exchange, len(all))
	for _, ex := range all {
		index[ex.Name()] = ex
	}
	out := make([]Exchange, 0, len(names))
	for _, n := range names {
		ex, ok := index[strings.ToLower(strings.TrimSpace(n))]
		if !ok {
			return nil, fmt.Errorf("unknown exchange %q", n)
		}
		out = append(out, ex)
	}
	return out, nil
}
