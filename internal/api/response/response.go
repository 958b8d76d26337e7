// Package response provides utilities for sending consistent HTTP responses.
// It includes helpers for JSON responses, standardized error responses and
// the mapping of exchange rate errors to HTTP statuses.
package response

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/ndewijer/exchange-rate-oracle/internal/apperrors"
)

// ErrorResponse represents a structured error response returned by the API.
// The Details field is optional and can contain additional context about the error.
type ErrorResponse struct {
	Error   string      `json:"error"`
	Details interface{} `json:"details,omitempty"`
}

// RateErrorResponse is the body returned when GetExchangeRate fails. Code and
// Description are only set for errors of kind Other.
type RateErrorResponse struct {
	Error       string `json:"error"`
	Code        uint32 `json:"code,omitempty"`
	Description string `json:"description,omitempty"`
}

// RespondJSON sends a JSON response with the given status code.
// Sets the Content-Type header to application/json and writes the status code.
// If data is nil, only the status code is sent (useful for 204 No Content).
// Logs encoding errors but does not fail the response.
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			zap.L().Warn("failed to encode JSON response", zap.Error(err))
		}
	}
}

// RespondError sends a structured error response with the given status code.
// The message should be a user-friendly error description.
// The details parameter can be an error string, additional context, or nil.
//
// Example:
//
//	response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
//	response.RespondError(w, http.StatusNotFound, "resource not found", "")
func RespondError(w http.ResponseWriter, status int, message string, details interface{}) {
	response := ErrorResponse{
		Error:   message,
		Details: details,
	}
	RespondJSON(w, status, response)
}

// RateErrorStatus maps an exchange rate error to an HTTP status.
func RateErrorStatus(err error) int {
	e, ok := apperrors.AsExchangeRateError(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case apperrors.KindAnonymousPrincipalNotAllowed:
		return http.StatusUnauthorized
	case apperrors.KindNotEnoughCycles:
		return http.StatusPaymentRequired
	case apperrors.KindRateLimited:
		return http.StatusTooManyRequests
	case apperrors.KindPending:
		return http.StatusServiceUnavailable
	case apperrors.KindCryptoBaseAssetNotFound,
		apperrors.KindCryptoQuoteAssetNotFound,
		apperrors.KindForexInvalidTimestamp,
		apperrors.KindForexBaseAssetNotFound,
		apperrors.KindForexQuoteAssetNotFound,
		apperrors.KindForexAssetsNotFound:
		return http.StatusNotFound
	case apperrors.KindStablecoinRateNotFound,
		apperrors.KindStablecoinRateTooFewRates,
		apperrors.KindStablecoinRateZeroRate,
		apperrors.KindInconsistentRatesReceived:
		return http.StatusBadGateway
	case apperrors.KindOther:
		if e.Code == apperrors.CodeInvalidRate {
			return http.StatusInternalServerError
		}
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// RespondRateError sends the body and status for an exchange rate error.
// Pending answers carry a Retry-After header.
func RespondRateError(w http.ResponseWriter, err error) {
	status := RateErrorStatus(err)
	body := RateErrorResponse{Error: apperrors.KindOther.String(), Description: err.Error()}
	if e, ok := apperrors.AsExchangeRateError(err); ok {
		body = RateErrorResponse{Error: e.Kind.String()}
		if e.Kind == apperrors.KindOther {
			body.Code = e.Code
			body.Description = e.Description
		}
		if e.Kind == apperrors.KindPending {
			w.Header().Set("Retry-After", "1")
		}
	}
	RespondJSON(w, status, body)
}
