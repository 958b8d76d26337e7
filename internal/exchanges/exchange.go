// Package exchanges describes the crypto spot exchanges queried for
// minute candles. Adapters are pure: they build URLs and parse bodies, the
// transport package performs the actual request.
package exchanges

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/ndewijer/exchange-rate-oracle/internal/apperrors"
	"github.com/ndewijer/exchange-rate-oracle/internal/model"
)

// StablecoinPair is a (base, quote) market an exchange lists between two
// USD-pegged tokens.
type StablecoinPair struct {
	Base  string
	Quote string
}

// Exchange is a single crypto venue.
type Exchange interface {
	// Name is the stable identifier used in configuration, logs and metrics.
	Name() string
	// BuildURL returns the candle URL for base/quote at the minute starting at timestamp (seconds).
	BuildURL(base, quote string, timestamp uint64) string
	// MaxResponseBytes bounds the response the transport will read.
	MaxResponseBytes() int64
	// SupportsIPv6 reports whether the venue is reachable over IPv6.
	SupportsIPv6() bool
	// SupportedStablecoinPairs lists the stablecoin markets the venue carries.
	SupportedStablecoinPairs() []StablecoinPair
	// ExtractRate parses the candle body and returns the open price scaled by model.RateUnit.
	ExtractRate(body []byte) (uint64, error)
}

// venue is the table-driven Exchange implementation shared by every exchange.
//
// The URL template understands the placeholders {BASE}, {QUOTE},
// {TIMESTAMP_S}, {TIMESTAMP_MS}, {END_S} and {END_MS}; the END values are
// one minute after the timestamp.
type venue struct {
	name     string
	template string
	maxBytes int64
	ipv6     bool
	pairs    []StablecoinPair
	// path is the gjson path of the candle open value.
	path string
}

func (v *venue) Name() string { return v.name }

func (v *venue) MaxResponseBytes() int64 { return v.maxBytes }

func (v *venue) SupportsIPv6() bool { return v.ipv6 }

func (v *venue) SupportedStablecoinPairs() []StablecoinPair { return v.pairs }

func (v *venue) BuildURL(base, quote string, timestamp uint64) string {
	end := timestamp + 60
	r := strings.NewReplacer(
		"{BASE}", base,
		"{QUOTE}", quote,
		"{TIMESTAMP_S}", strconv.FormatUint(timestamp, 10),
		"{TIMESTAMP_MS}", strconv.FormatUint(timestamp*1000, 10),
		"{END_S}", strconv.FormatUint(end, 10),
		"{END_MS}", strconv.FormatUint(end*1000, 10),
	)
	return r.Replace(v.template)
}

func (v *venue) ExtractRate(body []byte) (uint64, error) {
	if !gjson.ValidBytes(body) {
		return 0, fmt.Errorf("%s: %w", v.name, apperrors.ErrJSONParse)
	}
	res := gjson.GetBytes(body, v.path)
	if !res.Exists() {
		return 0, fmt.Errorf("%s: %w", v.name, apperrors.ErrRateNotFound)
	}
	rate, err := model.ParseScaledRate(res.String())
	if err != nil {
		return 0, fmt.Errorf("%s: %w", v.name, err)
	}
	return rate, nil
}

// SupportsPair reports whether ex lists base/quote directly (inverted=false)
// or quote/base (inverted=true).
func SupportsPair(ex Exchange, base, quote string) (supported, inverted bool) {
	for _, p := range ex.SupportedStablecoinPairs() {
		switch {
		case p.Base == base && p.Quote == quote:
			return true, false
		case p.Base == quote && p.Quote == base:
			return true, true
		}
	}
	return false, false
}
