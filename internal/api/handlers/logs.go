package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ndewijer/exchange-rate-oracle/internal/api/request"
	"github.com/ndewijer/exchange-rate-oracle/internal/api/response"
	"github.com/ndewijer/exchange-rate-oracle/internal/service"
)

// LogHandler handles HTTP requests for the request log.
type LogHandler struct {
	logService *service.LogService
}

// NewLogHandler creates a new LogHandler.
func NewLogHandler(logService *service.LogService) *LogHandler {
	return &LogHandler{
		logService: logService,
	}
}

// Entries handles GET requests for a page of the request log.
//
// Endpoint: GET /api/logs
// Query parameters: offset (default 0), limit (default 50, max 500)
// Response: 200 OK with model.RequestLogPage
// Error: 400 Bad Request for invalid pagination
func (h *LogHandler) Entries(w http.ResponseWriter, r *http.Request) {
	offset, limit, err := request.ParsePagination(r.URL.Query().Get("offset"), r.URL.Query().Get("limit"))
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid pagination parameters", err.Error())
		return
	}
	response.RespondJSON(w, http.StatusOK, h.logService.GetEntries(offset, limit))
}

// Entry handles GET requests for a single log entry.
//
// Endpoint: GET /api/logs/{uuid}
// Response: 200 OK with model.RequestLogEntry
// Error: 404 Not Found when the entry is unknown or was evicted
func (h *LogHandler) Entry(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.logService.GetEntry(chi.URLParam(r, "uuid"))
	if !ok {
		response.RespondError(w, http.StatusNotFound, "log entry not found", "")
		return
	}
	response.RespondJSON(w, http.StatusOK, entry)
}
