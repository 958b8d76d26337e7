package handlers

import (
	"errors"
	"net/http"

	"github.com/ndewijer/exchange-rate-oracle/internal/admission"
	"github.com/ndewijer/exchange-rate-oracle/internal/api/middleware"
	"github.com/ndewijer/exchange-rate-oracle/internal/api/request"
	"github.com/ndewijer/exchange-rate-oracle/internal/api/response"
	"github.com/ndewijer/exchange-rate-oracle/internal/service"
	"github.com/ndewijer/exchange-rate-oracle/internal/validation"
)

// RateHandler handles HTTP requests for exchange rates.
// It serves as the HTTP layer adapter, parsing requests and delegating
// the computation to the rateService.
type RateHandler struct {
	rateService *service.RateService
}

// NewRateHandler creates a new RateHandler with the provided service dependency.
func NewRateHandler(rateService *service.RateService) *RateHandler {
	return &RateHandler{
		rateService: rateService,
	}
}

// Rate handles GET requests for a single exchange rate.
//
// Endpoint: GET /api/rates
// Query parameters:
//   - base, quote: asset symbols (required)
//   - base_class, quote_class: "crypto" or "fiat" (default crypto and fiat)
//   - timestamp: seconds since the epoch (optional, defaults to about now)
//
// Headers: X-Caller identifies the caller, X-Cycles carries the attached cycles.
// Every answer past input parsing sets X-Cycles-Charged.
//
// Response: 200 OK with model.ExchangeRate
// Error: 400 Bad Request for malformed parameters, otherwise the status
// mapped from the exchange rate error kind
func (h *RateHandler) Rate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query, err := request.ParseRateQuery(q.Get("base"), q.Get("base_class"), q.Get("quote"), q.Get("quote_class"), q.Get("timestamp"))
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid query parameters", err.Error())
		return
	}
	if err := validation.ValidateRateQuery(query); err != nil {
		var verr *validation.Error
		if errors.As(err, &verr) {
			response.RespondError(w, http.StatusBadRequest, "validation failed", verr.Fields)
			return
		}
		response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}
	req, err := query.ToModel()
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	cycles, err := request.ParseCycles(r.Header.Get(middleware.HeaderCycles))
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid cycles header", err.Error())
		return
	}
	wallet := admission.NewAttachedCycles(cycles)

	rate, err := h.rateService.GetExchangeRate(r.Context(), r.Header.Get(middleware.HeaderCaller), wallet, req)
	setCyclesCharged(w, wallet.Accepted())
	if err != nil {
		response.RespondRateError(w, err)
		return
	}
	response.RespondJSON(w, http.StatusOK, rate)
}
