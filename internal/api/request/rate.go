package request

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ndewijer/exchange-rate-oracle/internal/model"
)

// RateQuery holds the raw query parameters of GET /api/rates.
type RateQuery struct {
	Base       string `json:"base"`
	BaseClass  string `json:"base_class"`
	Quote      string `json:"quote"`
	QuoteClass string `json:"quote_class"`
	Timestamp  *uint64
}

// ParseRateQuery extracts a rate query from query parameters.
// Class parameters default to "crypto" for the base and "fiat" for the quote.
// timestamp is optional and must be a non-negative integer number of seconds.
func ParseRateQuery(baseParam, baseClassParam, quoteParam, quoteClassParam, timestampParam string) (RateQuery, error) {
	q := RateQuery{
		Base:       baseParam,
		BaseClass:  strings.TrimSpace(baseClassParam),
		Quote:      quoteParam,
		QuoteClass: strings.TrimSpace(quoteClassParam),
	}
	if q.BaseClass == "" {
		q.BaseClass = "crypto"
	}
	if q.QuoteClass == "" {
		q.QuoteClass = "fiat"
	}

	if timestampParam != "" {
		ts, err := strconv.ParseUint(timestampParam, 10, 64)
		if err != nil {
			return RateQuery{}, fmt.Errorf("invalid timestamp: must be a non-negative integer")
		}
		q.Timestamp = &ts
	}
	return q, nil
}

// ToModel converts a validated query into the engine request. Symbols are
// passed through unchanged.
func (q RateQuery) ToModel() (model.GetExchangeRateRequest, error) {
	baseClass, err := model.ParseAssetClass(q.BaseClass)
	if err != nil {
		return model.GetExchangeRateRequest{}, err
	}
	quoteClass, err := model.ParseAssetClass(q.QuoteClass)
	if err != nil {
		return model.GetExchangeRateRequest{}, err
	}
	return model.GetExchangeRateRequest{
		BaseAsset:  model.Asset{Symbol: q.Base, Class: baseClass},
		QuoteAsset: model.Asset{Symbol: q.Quote, Class: quoteClass},
		Timestamp:  q.Timestamp,
	}, nil
}

// ParseCycles parses the X-Cycles header. An empty header means zero cycles.
func ParseCycles(header string) (uint64, error) {
	if header == "" {
		return 0, nil
	}
	cycles, err := strconv.ParseUint(strings.TrimSpace(header), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid cycles: must be a non-negative integer")
	}
	return cycles, nil
}
