package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap/zaptest"

	"github.com/ndewijer/exchange-rate-oracle/internal/admission"
	"github.com/ndewijer/exchange-rate-oracle/internal/cache"
	"github.com/ndewijer/exchange-rate-oracle/internal/exchanges"
	"github.com/ndewijer/exchange-rate-oracle/internal/forex"
	"github.com/ndewijer/exchange-rate-oracle/internal/metrics"
	"github.com/ndewijer/exchange-rate-oracle/internal/model"
	"github.com/ndewijer/exchange-rate-oracle/internal/repository"
	"github.com/ndewijer/exchange-rate-oracle/internal/requestlog"
	"github.com/ndewijer/exchange-rate-oracle/internal/service"
	"github.com/ndewijer/exchange-rate-oracle/internal/state"
	"github.com/ndewijer/exchange-rate-oracle/internal/transport"
)

// Callers used across tests.
const (
	TestCaller       = "rwlgt-iiaaa-aaaaa-aaaaa-cai"
	PrivilegedCaller = "rrkah-fqaaa-aaaaa-aaaaq-cai"
)

// ScenarioExchanges is the set of exchanges the end-to-end scenarios use.
func ScenarioExchanges() []exchanges.Exchange {
	return []exchanges.Exchange{
		exchanges.Binance(), exchanges.Coinbase(), exchanges.KuCoin(), exchanges.OKX(),
		exchanges.GateIO(), exchanges.MEXC(), exchanges.Poloniex(),
	}
}

// FixedClock returns a clock stuck at unix second ts.
func FixedClock(ts uint64) func() time.Time {
	return func() time.Time { return time.Unix(int64(ts), 0).UTC() }
}

// TestNow is a point inside the TestTimestamp minute, so that a request
// without timestamp resolves to TestTimestamp.
const TestNow = TestTimestamp + 59

// NewTestState creates the shared state with default sizes and
// PrivilegedCaller on the allow list.
func NewTestState(t *testing.T) *state.State {
	t.Helper()

	return state.New(
		cache.New(cache.DefaultSoftMaxSize, cache.DefaultHardMaxSize, cache.DefaultRetention),
		forex.NewCollector(forex.DefaultCollectorDays),
		forex.NewStore(forex.DefaultStoreDays),
		admission.NewController(admission.DefaultOutboundSoftCap, []string{PrivilegedCaller}),
		requestlog.New(requestlog.DefaultCapacity),
	)
}

// NewTestRateService creates a RateService over st with the scenario
// exchanges and a clock fixed at TestNow.
func NewTestRateService(t *testing.T, st *state.State, getter transport.Getter) *service.RateService {
	t.Helper()

	return service.NewRateService(st, ScenarioExchanges(), getter, metrics.New(), zaptest.NewLogger(t)).
		WithClock(FixedClock(TestNow))
}

// NewTestForexService creates a ForexService over st with a clock fixed at
// TestNow.
func NewTestForexService(t *testing.T, st *state.State, getter transport.Getter, sources []forex.Source) *service.ForexService {
	t.Helper()

	return service.NewForexService(st, sources, getter, metrics.New(), zaptest.NewLogger(t)).
		WithClock(FixedClock(TestNow))
}

// NewTestSnapshotService creates a SnapshotService over db and st.
func NewTestSnapshotService(t *testing.T, db *sql.DB, st *state.State) *service.SnapshotService {
	t.Helper()

	return service.NewSnapshotService(
		db,
		st,
		repository.NewCacheRepository(db),
		repository.NewForexRepository(db),
		repository.NewRequestLogRepository(db),
		zaptest.NewLogger(t),
	)
}

// SeedForex stores X/USD rates for day directly, bypassing the collector.
func SeedForex(st *state.State, day uint64, rates map[string][]uint64) {
	m := make(map[string]model.QueriedRate, len(rates))
	for sym, values := range rates {
		m[sym] = NewQueriedRate(sym, model.USD).Fiat().WithRates(values...).WithTimestamp(day).Build()
	}
	st.WithStore(func(s *forex.Store) {
		s.Put(day, m)
	})
}

// Wallet returns attached cycles for one request.
func Wallet(cycles uint64) *admission.AttachedCycles {
	return admission.NewAttachedCycles(cycles)
}

// MakeID generates a UUID string for use in tests.
//
// Example usage:
//
//	id := testutil.MakeID()
//	// Returns: "550e8400-e29b-41d4-a716-446655440000"
func MakeID() string {
	return uuid.New().String()
}

// NewTestSystemService creates a SystemService over db and st.
func NewTestSystemService(t *testing.T, db *sql.DB, st *state.State) *service.SystemService {
	t.Helper()

	return service.NewSystemService(db, st)
}
