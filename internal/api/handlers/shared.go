package handlers

import (
	"net/http"
	"strconv"

	"github.com/ndewijer/exchange-rate-oracle/internal/api/middleware"
)

// setCyclesCharged reports the cycles taken from the caller.
func setCyclesCharged(w http.ResponseWriter, charged uint64) {
	w.Header().Set(middleware.HeaderCyclesCharged, strconv.FormatUint(charged, 10))
}
