package model

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/exchange-rate-oracle/internal/apperrors"
)

var rateUnitDecimal = decimal.NewFromInt(int64(RateUnit))

// ParseScaledRate converts a decimal string such as "41.96" or "1,850.0"
// into a rate scaled by RateUnit, truncating extra digits. Thousands
// separators and surrounding whitespace are ignored.
func ParseScaledRate(s string) (uint64, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return 0, fmt.Errorf("parse rate %q: %w", s, err)
	}
	return scaleDecimal(d)
}

// ParseScaledRatePerUnits parses value and divides it by units, e.g. a
// quote of "0.70" for "100 JPY".
func ParseScaledRatePerUnits(value string, units int64) (uint64, error) {
	if units <= 0 {
		return 0, fmt.Errorf("invalid unit count %d", units)
	}
	cleaned := strings.ReplaceAll(strings.TrimSpace(value), ",", "")
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return 0, fmt.Errorf("parse rate %q: %w", value, err)
	}
	return scaleDecimal(d.Div(decimal.NewFromInt(units)))
}

// ScaledRateFromDecimal scales an already parsed decimal.
func ScaledRateFromDecimal(d decimal.Decimal) (uint64, error) {
	return scaleDecimal(d)
}

func scaleDecimal(d decimal.Decimal) (uint64, error) {
	scaled := d.Mul(rateUnitDecimal).Truncate(0)
	if !scaled.IsPositive() {
		return 0, apperrors.ErrZeroRate
	}
	if !scaled.BigInt().IsUint64() {
		return 0, fmt.Errorf("rate %s overflows", d.String())
	}
	return scaled.BigInt().Uint64(), nil
}
