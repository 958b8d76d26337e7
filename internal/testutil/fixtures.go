package testutil

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ndewijer/exchange-rate-oracle/internal/transport"
)

// Test clock values. TestTimestamp is minute aligned; TestDay is its UTC day.
const (
	TestTimestamp uint64 = 1614596340
	TestDay       uint64 = 1614556800
	Yesterday     uint64 = TestDay - 86400
)

// CandleBody renders a one-candle response whose open price is rate, in
// the format of the named exchange.
func CandleBody(exchange, rate string) []byte {
	var body string
	switch exchange {
	case "binance":
		body = fmt.Sprintf(`[[1614596340000,%q,"0","0","0","0",1614596399999,"0",1,"0","0","0"]]`, rate)
	case "coinbase":
		body = fmt.Sprintf(`[[1614596340,0,0,%s,0,0]]`, rate)
	case "kucoin", "mexc", "okx", "bitget":
		body = fmt.Sprintf(`{"code":"0","data":[["1614596340",%q,"0","0","0","0"]]}`, rate)
	case "gateio":
		body = fmt.Sprintf(`[["1614596340","0","0","0","0",%q]]`, rate)
	case "poloniex":
		body = fmt.Sprintf(`[["0","0",%q,"0","0"]]`, rate)
	case "cryptocom":
		body = fmt.Sprintf(`{"code":0,"result":{"data":[{"t":1614596340000,"o":%q}]}}`, rate)
	default:
		body = `[]`
	}
	return []byte(body)
}

// EmptyBody renders a candle response without candles for exchange.
func EmptyBody(exchange string) []byte {
	switch exchange {
	case "kucoin", "mexc", "okx", "bitget":
		return []byte(`{"code":"0","data":[]}`)
	case "cryptocom":
		return []byte(`{"code":0,"result":{"data":[]}}`)
	default:
		return []byte(`[]`)
	}
}

// PairResponder answers exchange requests from a table of open prices
// keyed by "BASE/QUOTE". A pair is recognized in the request URL whatever
// separator the exchange uses. Unknown pairs get an empty candle list.
func PairResponder(prices map[string]string) Responder {
	type pair struct{ compact, price string }
	pairs := make([]pair, 0, len(prices))
	for key, price := range prices {
		pairs = append(pairs, pair{compact: strings.ReplaceAll(key, "/", ""), price: price})
	}
	// Deterministic lookup order.
	sort.Slice(pairs, func(i, j int) bool {
		if len(pairs[i].compact) != len(pairs[j].compact) {
			return len(pairs[i].compact) > len(pairs[j].compact)
		}
		return pairs[i].compact < pairs[j].compact
	})

	return func(req transport.Request) ([]byte, error) {
		url := strings.NewReplacer("-", "", "_", "").Replace(req.URL)
		for _, p := range pairs {
			if strings.Contains(url, "="+p.compact+"&") || strings.Contains(url, "/"+p.compact+"/") {
				return CandleBody(req.Source, p.price), nil
			}
		}
		return EmptyBody(req.Source), nil
	}
}
