package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/exchange-rate-oracle/internal/apperrors"
)

func TestRateErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{apperrors.ErrAnonymousPrincipalNotAllowed, http.StatusUnauthorized},
		{apperrors.ErrNotEnoughCycles, http.StatusPaymentRequired},
		{apperrors.ErrRateLimited, http.StatusTooManyRequests},
		{apperrors.ErrPending, http.StatusServiceUnavailable},
		{apperrors.ErrCryptoBaseAssetNotFound, http.StatusNotFound},
		{apperrors.ErrForexAssetsNotFound, http.StatusNotFound},
		{apperrors.ErrStablecoinRateTooFewRates, http.StatusBadGateway},
		{apperrors.ErrInconsistentRatesReceived, http.StatusBadGateway},
		{apperrors.ErrTimestampInFuture, http.StatusBadRequest},
		{apperrors.ErrBaseInvalidSymbol, http.StatusBadRequest},
		{apperrors.ErrInvalidRate, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RateErrorStatus(tt.err), "status for %v", tt.err)
	}
}

func TestRespondRateError(t *testing.T) {
	t.Run("kind only", func(t *testing.T) {
		w := httptest.NewRecorder()
		RespondRateError(w, apperrors.ErrPending)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "1", w.Header().Get("Retry-After"))
		var body RateErrorResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, RateErrorResponse{Error: "Pending"}, body)
	})

	t.Run("other carries code and description", func(t *testing.T) {
		w := httptest.NewRecorder()
		RespondRateError(w, apperrors.ErrTimestampInFuture)

		var body RateErrorResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, "Other", body.Error)
		assert.Equal(t, apperrors.CodeTimestampInFuture, body.Code)
		assert.Equal(t, "timestamp is in the future", body.Description)
	})
}
