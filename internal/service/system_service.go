package service

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/ndewijer/exchange-rate-oracle/internal/cache"
	"github.com/ndewijer/exchange-rate-oracle/internal/database"
	"github.com/ndewijer/exchange-rate-oracle/internal/forex"
	"github.com/ndewijer/exchange-rate-oracle/internal/model"
	"github.com/ndewijer/exchange-rate-oracle/internal/state"
	"github.com/ndewijer/exchange-rate-oracle/internal/version"
)

// SystemService handles system-related operations
type SystemService struct {
	db    *sql.DB
	state *state.State
}

// NewSystemService creates a new SystemService
func NewSystemService(db *sql.DB, st *state.State) *SystemService {
	return &SystemService{
		db:    db,
		state: st,
	}
}

// CheckHealth checks the health of the system
func (s *SystemService) CheckHealth() error {
	return database.HealthCheck(s.db)
}

// CheckVersion reports the application version and whether the database
// schema is behind the embedded migrations.
func (s *SystemService) CheckVersion(ctx context.Context) (model.VersionInfo, error) {
	current, latest, err := database.SchemaVersion(ctx, s.db)
	if err != nil {
		return model.VersionInfo{}, err
	}
	info := model.VersionInfo{
		AppVersion: version.Version,
		DbVersion:  strconv.FormatInt(current, 10),
	}
	if current < latest {
		info.MigrationNeeded = true
		msg := fmt.Sprintf("database schema %d is behind %d; restart to migrate", current, latest)
		info.MigrationMessage = &msg
	}
	return info, nil
}

// Status is a point-in-time view of the oracle's shared state.
type Status struct {
	CacheEntries      int      `json:"cache_entries"`
	OutboundReserved  int      `json:"outbound_reserved"`
	FetchesInFlight   int      `json:"fetches_in_flight"`
	ForexDays         []uint64 `json:"forex_days"`
	ForexStoreBytes   int      `json:"forex_store_bytes"`
	CollectorDays     []uint64 `json:"collector_days"`
	RequestLogEntries int      `json:"request_log_entries"`
}

// Status samples the shared state.
func (s *SystemService) Status() Status {
	var st Status
	s.state.WithAll(func(c *cache.RateCache, col *forex.Collector, store *forex.Store) {
		st.CacheEntries = c.Len()
		st.ForexDays = store.Days()
		st.ForexStoreBytes = store.AllocatedBytes()
		st.CollectorDays = col.Days()
	})
	st.OutboundReserved = s.state.Admission.Outbound()
	st.FetchesInFlight = s.state.Admission.InFlight()
	st.RequestLogEntries = s.state.Log.Len()
	return st
}
