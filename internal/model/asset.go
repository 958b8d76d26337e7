package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// AssetClass distinguishes exchange-traded tokens from central-bank currencies.
type AssetClass int

const (
	// Cryptocurrency assets are priced against USDT on spot exchanges.
	Cryptocurrency AssetClass = iota + 1
	// FiatCurrency assets are priced against USD from forex publications.
	FiatCurrency
)

// String returns the wire name of the class.
func (c AssetClass) String() string {
	switch c {
	case Cryptocurrency:
		return "Cryptocurrency"
	case FiatCurrency:
		return "FiatCurrency"
	default:
		return "Unknown"
	}
}

// ParseAssetClass accepts "crypto", "cryptocurrency", "fiat" or "fiatcurrency"
// in any letter case.
func ParseAssetClass(s string) (AssetClass, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "crypto", "cryptocurrency":
		return Cryptocurrency, nil
	case "fiat", "fiatcurrency":
		return FiatCurrency, nil
	default:
		return 0, fmt.Errorf("unknown asset class %q", s)
	}
}

// MarshalJSON encodes the class by name.
func (c AssetClass) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON decodes the class from its name.
func (c *AssetClass) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseAssetClass(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Asset is a symbol together with its class.
type Asset struct {
	Symbol string     `json:"symbol"`
	Class  AssetClass `json:"class"`
}

// Well-known symbols used as pivots.
const (
	USD  = "USD"
	USDT = "USDT"
	CXDR = "CXDR"
	XDR  = "XDR"
)

// CryptoAsset builds a cryptocurrency asset.
func CryptoAsset(symbol string) Asset {
	return Asset{Symbol: symbol, Class: Cryptocurrency}
}

// FiatAsset builds a fiat asset.
func FiatAsset(symbol string) Asset {
	return Asset{Symbol: symbol, Class: FiatCurrency}
}

// String renders "SYMBOL(Class)".
func (a Asset) String() string {
	return fmt.Sprintf("%s(%s)", a.Symbol, a.Class)
}
