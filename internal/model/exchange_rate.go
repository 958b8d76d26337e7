package model

// RateUnit is the fixed-point scale applied to every internal rate.
const RateUnit uint64 = 1_000_000_000

// Decimals is the number of decimal places represented by RateUnit.
const Decimals uint32 = 9

// GetExchangeRateRequest is the public query.
// Timestamp is in seconds; nil means "about now".
type GetExchangeRateRequest struct {
	BaseAsset  Asset   `json:"base_asset"`
	QuoteAsset Asset   `json:"quote_asset"`
	Timestamp  *uint64 `json:"timestamp,omitempty"`
}

// ExchangeRateMetadata carries provenance and dispersion of a returned rate.
type ExchangeRateMetadata struct {
	Decimals                    uint32  `json:"decimals"`
	BaseAssetNumQueriedSources  int     `json:"base_asset_num_queried_sources"`
	BaseAssetNumReceivedRates   int     `json:"base_asset_num_received_rates"`
	QuoteAssetNumQueriedSources int     `json:"quote_asset_num_queried_sources"`
	QuoteAssetNumReceivedRates  int     `json:"quote_asset_num_received_rates"`
	StandardDeviation           uint64  `json:"standard_deviation"`
	ForexTimestamp              *uint64 `json:"forex_timestamp,omitempty"`
}

// ExchangeRate is the public answer to a GetExchangeRateRequest.
type ExchangeRate struct {
	BaseAsset  Asset                `json:"base_asset"`
	QuoteAsset Asset                `json:"quote_asset"`
	Timestamp  uint64               `json:"timestamp"`
	Rate       uint64               `json:"rate"`
	Metadata   ExchangeRateMetadata `json:"metadata"`
}
