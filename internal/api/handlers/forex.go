package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ndewijer/exchange-rate-oracle/internal/api/request"
	"github.com/ndewijer/exchange-rate-oracle/internal/api/response"
	"github.com/ndewijer/exchange-rate-oracle/internal/forex"
	"github.com/ndewijer/exchange-rate-oracle/internal/model"
	"github.com/ndewijer/exchange-rate-oracle/internal/service"
)

// ForexHandler handles HTTP requests for the forex store.
type ForexHandler struct {
	forexService *service.ForexService
}

// NewForexHandler creates a new ForexHandler.
func NewForexHandler(forexService *service.ForexService) *ForexHandler {
	return &ForexHandler{
		forexService: forexService,
	}
}

// ForexDayResponse lists the X/USD rates stored for one day.
type ForexDayResponse struct {
	Day   uint64                       `json:"day"`
	Rates map[string]model.QueriedRate `json:"rates"`
}

// Day handles GET requests for the stored rates of a day.
//
// Endpoint: GET /api/forex/{day}
// The day is YYYY-MM-DD or seconds since the epoch; it is floored to its UTC day.
// Response: 200 OK with ForexDayResponse
// Error: 400 Bad Request for an unparseable day, 404 Not Found when nothing is stored
func (h *ForexHandler) Day(w http.ResponseWriter, r *http.Request) {
	ts, err := request.ParseDay(chi.URLParam(r, "day"))
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid day", err.Error())
		return
	}
	day := forex.DayStart(ts)
	rates, ok := h.forexService.Day(day)
	if !ok {
		response.RespondError(w, http.StatusNotFound, "no forex rates stored for day", "")
		return
	}
	response.RespondJSON(w, http.StatusOK, ForexDayResponse{Day: day, Rates: rates})
}

// Collect handles POST requests that trigger a forex collection.
//
// Endpoint: POST /api/forex/collect
// Response: 200 OK with service.ForexRun
// Error: 409 Conflict when a collection is already running
func (h *ForexHandler) Collect(w http.ResponseWriter, r *http.Request) {
	run, err := h.forexService.Run(r.Context())
	if err != nil {
		if errors.Is(err, service.ErrForexRunInProgress) {
			response.RespondError(w, http.StatusConflict, err.Error(), "")
			return
		}
		response.RespondError(w, http.StatusInternalServerError, "forex collection failed", err.Error())
		return
	}
	response.RespondJSON(w, http.StatusOK, run)
}
