package apperrors

import (
	"errors"
	"fmt"
)

// Kind enumerates the outcomes a caller of GetExchangeRate can observe.
type Kind int

const (
	KindAnonymousPrincipalNotAllowed Kind = iota + 1
	KindPending
	KindCryptoBaseAssetNotFound
	KindCryptoQuoteAssetNotFound
	KindStablecoinRateNotFound
	KindStablecoinRateTooFewRates
	KindStablecoinRateZeroRate
	KindForexInvalidTimestamp
	KindForexBaseAssetNotFound
	KindForexQuoteAssetNotFound
	KindForexAssetsNotFound
	KindRateLimited
	KindNotEnoughCycles
	KindInconsistentRatesReceived
	KindOther
)

var kindNames = map[Kind]string{
	KindAnonymousPrincipalNotAllowed: "AnonymousPrincipalNotAllowed",
	KindPending:                      "Pending",
	KindCryptoBaseAssetNotFound:      "CryptoBaseAssetNotFound",
	KindCryptoQuoteAssetNotFound:     "CryptoQuoteAssetNotFound",
	KindStablecoinRateNotFound:       "StablecoinRateNotFound",
	KindStablecoinRateTooFewRates:    "StablecoinRateTooFewRates",
	KindStablecoinRateZeroRate:       "StablecoinRateZeroRate",
	KindForexInvalidTimestamp:        "ForexInvalidTimestamp",
	KindForexBaseAssetNotFound:       "ForexBaseAssetNotFound",
	KindForexQuoteAssetNotFound:      "ForexQuoteAssetNotFound",
	KindForexAssetsNotFound:          "ForexAssetsNotFound",
	KindRateLimited:                  "RateLimited",
	KindNotEnoughCycles:              "NotEnoughCycles",
	KindInconsistentRatesReceived:    "InconsistentRatesReceived",
	KindOther:                        "Other",
}

// String returns the taxonomy name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Codes carried by KindOther errors.
const (
	CodeTimestampInFuture uint32 = 1
	CodeBaseInvalid       uint32 = 2
	CodeQuoteInvalid      uint32 = 3
	CodeInvalidRate       uint32 = 4
)

// ExchangeRateError is the tagged error returned by the rate engine.
// Code and Description are only meaningful for KindOther.
type ExchangeRateError struct {
	Kind        Kind
	Code        uint32
	Description string
}

func (e *ExchangeRateError) Error() string {
	if e.Kind == KindOther {
		return fmt.Sprintf("other(%d): %s", e.Code, e.Description)
	}
	return e.Kind.String()
}

// Is matches on kind, and on code for KindOther.
func (e *ExchangeRateError) Is(target error) bool {
	t, ok := target.(*ExchangeRateError)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return e.Kind != KindOther || t.Code == e.Code
}

func newKind(k Kind) *ExchangeRateError {
	return &ExchangeRateError{Kind: k}
}

// Other builds a KindOther error.
func Other(code uint32, description string) *ExchangeRateError {
	return &ExchangeRateError{Kind: KindOther, Code: code, Description: description}
}

// Taxonomy values. Compare with errors.Is.
var (
	ErrAnonymousPrincipalNotAllowed = newKind(KindAnonymousPrincipalNotAllowed)
	ErrPending                      = newKind(KindPending)
	ErrCryptoBaseAssetNotFound      = newKind(KindCryptoBaseAssetNotFound)
	ErrCryptoQuoteAssetNotFound     = newKind(KindCryptoQuoteAssetNotFound)
	ErrStablecoinRateNotFound       = newKind(KindStablecoinRateNotFound)
	ErrStablecoinRateTooFewRates    = newKind(KindStablecoinRateTooFewRates)
	ErrStablecoinRateZeroRate       = newKind(KindStablecoinRateZeroRate)
	ErrForexInvalidTimestamp        = newKind(KindForexInvalidTimestamp)
	ErrForexBaseAssetNotFound       = newKind(KindForexBaseAssetNotFound)
	ErrForexQuoteAssetNotFound      = newKind(KindForexQuoteAssetNotFound)
	ErrForexAssetsNotFound          = newKind(KindForexAssetsNotFound)
	ErrRateLimited                  = newKind(KindRateLimited)
	ErrNotEnoughCycles              = newKind(KindNotEnoughCycles)
	ErrInconsistentRatesReceived    = newKind(KindInconsistentRatesReceived)

	ErrTimestampInFuture  = Other(CodeTimestampInFuture, "timestamp is in the future")
	ErrBaseInvalidSymbol  = Other(CodeBaseInvalid, "base asset symbol is invalid")
	ErrQuoteInvalidSymbol = Other(CodeQuoteInvalid, "quote asset symbol is invalid")
	ErrInvalidRate        = Other(CodeInvalidRate, "computed rate is invalid")
)

// AsExchangeRateError extracts the taxonomy error from err, if any.
func AsExchangeRateError(err error) (*ExchangeRateError, bool) {
	var e *ExchangeRateError
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Rate algebra and source extraction errors. These never reach callers
// directly; the engine folds them into taxonomy values.
var (
	// ErrZeroRate indicates an attempt to ingest or invert a rate of 0.
	ErrZeroRate = errors.New("rate is zero")

	// ErrEmptyRates indicates a combination that produced no rates.
	ErrEmptyRates = errors.New("no rates left after combination")

	// ErrRateNotFound indicates a source response did not contain the requested rate.
	ErrRateNotFound = errors.New("rate not found in response")

	// ErrJSONParse indicates a source response was not the expected JSON.
	ErrJSONParse = errors.New("failed to parse JSON response")

	// ErrXMLParse indicates a source response was not the expected XML.
	ErrXMLParse = errors.New("failed to parse XML response")

	// ErrNoUSDRate indicates a forex map from which no USD rate can be derived.
	ErrNoUSDRate = errors.New("no USD rate derivable")

	// ErrResponseTooLarge indicates a source exceeded its response ceiling.
	ErrResponseTooLarge = errors.New("response exceeds size ceiling")
)

// Forex store lookups. The engine maps these to the Forex* taxonomy values
// depending on which side of the request the fiat asset sits.
var (
	ErrStoreBaseNotFound     = errors.New("forex base asset not found")
	ErrStoreQuoteNotFound    = errors.New("forex quote asset not found")
	ErrStoreAssetsNotFound   = errors.New("forex assets not found")
	ErrStoreInvalidTimestamp = errors.New("no forex data at or before timestamp")
)
