package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/exchange-rate-oracle/internal/api/request"
)

func TestSanitizeSymbol(t *testing.T) {
	tests := map[string]string{
		"icp":     "ICP",
		"  btc  ": "BTC",
		"Eur":     "EUR",
		"1INCH":   "1INCH",
		"BTC/USD": "",
		"ÉTH":     "",
		"":        "",
		"   ":     "",
		"B T C":   "",
	}
	for in, want := range tests {
		assert.Equal(t, want, SanitizeSymbol(in), "SanitizeSymbol(%q)", in)
	}
}

func TestNormalizeTimestamp(t *testing.T) {
	now := uint64(1614596399)

	ts := uint64(1614596359)
	assert.Equal(t, uint64(1614596340), NormalizeTimestamp(&ts, now))

	aligned := uint64(1614596340)
	assert.Equal(t, aligned, NormalizeTimestamp(&aligned, now))

	// 1614596369 floors to 1614596340
	assert.Equal(t, uint64(1614596340), NormalizeTimestamp(nil, now))

	assert.Equal(t, uint64(0), NormalizeTimestamp(nil, 10))
}

func TestValidateUUID(t *testing.T) {
	assert.NoError(t, ValidateUUID("5b0d3e58-5d3c-4b1a-9b7e-0e6b7a3f9c11"))
	assert.ErrorIs(t, ValidateUUID("not-a-uuid"), ErrInvalidUUID)
}

func TestValidateRateQuery(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		err := ValidateRateQuery(request.RateQuery{Base: "ICP", BaseClass: "crypto", Quote: "EUR", QuoteClass: "fiat"})
		assert.NoError(t, err)
	})

	t.Run("collects every field", func(t *testing.T) {
		err := ValidateRateQuery(request.RateQuery{BaseClass: "stock"})
		require.Error(t, err)
		var verr *Error
		require.ErrorAs(t, err, &verr)
		assert.Len(t, verr.Fields, 4)
		assert.Contains(t, err.Error(), "base: base is required")
	})
}
