package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ndewijer/exchange-rate-oracle/internal/forex"
	"github.com/ndewijer/exchange-rate-oracle/internal/metrics"
	"github.com/ndewijer/exchange-rate-oracle/internal/model"
	"github.com/ndewijer/exchange-rate-oracle/internal/state"
	"github.com/ndewijer/exchange-rate-oracle/internal/transport"
)

// DefaultForexSchedule runs the forex collection four times a day.
const DefaultForexSchedule = "@every 6h"

// ErrForexRunInProgress is returned when a collection is already running.
var ErrForexRunInProgress = errors.New("forex collection already running")

// ForexRun summarizes one collection.
type ForexRun struct {
	Attempted int      `json:"attempted"`
	Succeeded int      `json:"succeeded"`
	Days      []uint64 `json:"days"`
}

// ForexService periodically collects central-bank rates into the forex
// store.
type ForexService struct {
	state     *state.State
	sources   []forex.Source
	transport transport.Getter
	metrics   *metrics.Metrics
	logger    *zap.Logger
	now       func() time.Time

	running atomic.Bool
	cron    *cron.Cron
	// startup tracks the collection launched by Start.
	startup sync.WaitGroup
}

// NewForexService creates a new ForexService.
func NewForexService(
	st *state.State,
	sources []forex.Source,
	getter transport.Getter,
	m *metrics.Metrics,
	logger *zap.Logger,
) *ForexService {
	return &ForexService{
		state:     st,
		sources:   sources,
		transport: getter,
		metrics:   m,
		logger:    logger.Named("forex"),
		now:       time.Now,
	}
}

// WithClock replaces the wall clock, for tests.
func (s *ForexService) WithClock(now func() time.Time) *ForexService {
	s.now = now
	return s
}

// Sources returns the configured forex sources.
func (s *ForexService) Sources() []forex.Source {
	return s.sources
}

// Running reports whether a collection is in progress.
func (s *ForexService) Running() bool {
	return s.running.Load()
}

type forexJob struct {
	source forex.Source
	day    uint64
	rates  forex.Rates
}

// Run fetches, for every source, the previous day in the source's local
// time unless the collector already holds it. Fetches run concurrently;
// their results are committed together once all have returned, and every
// day that received new data is promoted into the store.
func (s *ForexService) Run(ctx context.Context) (ForexRun, error) {
	if !s.running.CompareAndSwap(false, true) {
		return ForexRun{}, ErrForexRunInProgress
	}
	defer s.running.Store(false)

	now := uint64(max(s.now().Unix(), 0))
	var jobs []*forexJob
	s.state.WithCollector(func(c *forex.Collector) {
		for _, src := range s.sources {
			day := forex.TargetDay(now, src.UTCOffset())
			if day == 0 || c.HasSource(src.Name(), day) {
				continue
			}
			jobs = append(jobs, &forexJob{source: src, day: day})
		}
	})

	g, gctx := errgroup.WithContext(ctx)
	for _, job := range jobs {
		g.Go(func() error {
			rates, err := s.fetch(gctx, job.source, job.day)
			if s.metrics != nil {
				s.metrics.ObserveForexFetch(job.source.Name(), err == nil)
			}
			if err != nil {
				s.logger.Warn("forex source failed",
					zap.String("source", job.source.Name()),
					zap.String("day", job.source.FormatTimestamp(job.day)),
					zap.Error(err),
				)
				return nil
			}
			job.rates = rates
			return nil
		})
	}
	_ = g.Wait()

	run := ForexRun{Attempted: len(jobs)}
	s.state.WithForex(func(c *forex.Collector, st *forex.Store) {
		touched := map[uint64]struct{}{}
		for _, job := range jobs {
			if job.rates == nil {
				continue
			}
			if c.Update(job.source.Name(), job.day, job.rates) {
				run.Succeeded++
				touched[job.day] = struct{}{}
			}
		}
		for day := range touched {
			if m, ok := c.GetRatesMap(day); ok {
				st.Put(day, m)
				run.Days = append(run.Days, day)
			}
		}
	})
	slices.Sort(run.Days)

	s.logger.Info("forex collection finished",
		zap.Int("attempted", run.Attempted),
		zap.Int("succeeded", run.Succeeded),
		zap.Int("days", len(run.Days)),
	)
	return run, nil
}

func (s *ForexService) fetch(ctx context.Context, src forex.Source, day uint64) (forex.Rates, error) {
	body, err := s.transport.Get(ctx, transport.Request{
		Source:           src.Name(),
		URL:              src.BuildURL(src.OffsetTimestampForQuery(day)),
		MaxResponseBytes: src.MaxResponseBytes(),
		IPv6:             true,
	})
	if err != nil {
		return nil, err
	}
	rates, err := src.ExtractRate(body, day)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	return rates, nil
}

// Start runs a collection immediately and then on schedule until Stop.
func (s *ForexService) Start(ctx context.Context, schedule string) error {
	if schedule == "" {
		schedule = DefaultForexSchedule
	}
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() { s.runLogged(ctx) }); err != nil {
		return fmt.Errorf("invalid forex schedule %q: %w", schedule, err)
	}
	s.cron = c
	c.Start()
	s.startup.Add(1)
	go func() {
		defer s.startup.Done()
		s.runLogged(ctx)
	}()
	return nil
}

// Stop halts the schedule and waits for running collections, the one
// launched by Start included, to finish.
func (s *ForexService) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	s.startup.Wait()
}

func (s *ForexService) runLogged(ctx context.Context) {
	if _, err := s.Run(ctx); err != nil {
		s.logger.Info("forex collection skipped", zap.Error(err))
	}
}

// Day returns the stored rates of the UTC day containing ts.
func (s *ForexService) Day(ts uint64) (map[string]model.QueriedRate, bool) {
	var (
		rates map[string]model.QueriedRate
		ok    bool
	)
	s.state.WithStore(func(st *forex.Store) {
		rates, ok = st.Day(forex.DayStart(ts))
	})
	return rates, ok
}
