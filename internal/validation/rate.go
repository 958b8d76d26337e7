package validation

import (
	"strings"

	"github.com/ndewijer/exchange-rate-oracle/internal/api/request"
	"github.com/ndewijer/exchange-rate-oracle/internal/model"
)

// ValidateRateQuery checks the shape of a rate query before it reaches the
// engine. Symbol content is not checked here; the engine reports invalid
// symbols through its own error taxonomy.
func ValidateRateQuery(q request.RateQuery) error {
	errors := make(map[string]string)

	if strings.TrimSpace(q.Base) == "" {
		errors["base"] = "base is required"
	}
	if strings.TrimSpace(q.Quote) == "" {
		errors["quote"] = "quote is required"
	}
	if _, err := model.ParseAssetClass(q.BaseClass); err != nil {
		errors["base_class"] = "base_class must be crypto or fiat"
	}
	if _, err := model.ParseAssetClass(q.QuoteClass); err != nil {
		errors["quote_class"] = "quote_class must be crypto or fiat"
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}
	return nil
}
