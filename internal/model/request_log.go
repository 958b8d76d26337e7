package model

import "time"

// RequestLogEntry records the outcome of a single GetExchangeRate call.
type RequestLogEntry struct {
	ID             string                 `json:"id"`
	Caller         string                 `json:"caller"`
	Request        GetExchangeRateRequest `json:"request"`
	Rate           *ExchangeRate          `json:"rate,omitempty"`
	Error          string                 `json:"error,omitempty"`
	CyclesCharged  uint64                 `json:"cycles_charged"`
	OutboundNeeded int                    `json:"outbound_needed"`
	ReceivedAt     time.Time              `json:"received_at"`
	Duration       time.Duration          `json:"duration_ns"`
}

// RequestLogPage is a half-open window over the request log.
type RequestLogPage struct {
	Entries []RequestLogEntry `json:"entries"`
	Offset  int               `json:"offset"`
	Limit   int               `json:"limit"`
	Total   int               `json:"total"`
}
