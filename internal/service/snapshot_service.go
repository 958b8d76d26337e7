package service

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/ndewijer/exchange-rate-oracle/internal/cache"
	"github.com/ndewijer/exchange-rate-oracle/internal/forex"
	"github.com/ndewijer/exchange-rate-oracle/internal/model"
	"github.com/ndewijer/exchange-rate-oracle/internal/repository"
	"github.com/ndewijer/exchange-rate-oracle/internal/state"
)

// SnapshotService persists the in-memory state across controlled restarts.
type SnapshotService struct {
	db        *sql.DB
	state     *state.State
	cacheRepo *repository.CacheRepository
	forexRepo *repository.ForexRepository
	logRepo   *repository.RequestLogRepository
	logger    *zap.Logger
}

// NewSnapshotService creates a new SnapshotService.
func NewSnapshotService(
	db *sql.DB,
	st *state.State,
	cacheRepo *repository.CacheRepository,
	forexRepo *repository.ForexRepository,
	logRepo *repository.RequestLogRepository,
	logger *zap.Logger,
) *SnapshotService {
	return &SnapshotService{
		db:        db,
		state:     st,
		cacheRepo: cacheRepo,
		forexRepo: forexRepo,
		logRepo:   logRepo,
		logger:    logger.Named("snapshot"),
	}
}

// SnapshotStats counts what was saved or restored.
type SnapshotStats struct {
	CacheEntries   int `json:"cache_entries"`
	StoreDays      int `json:"store_days"`
	CollectorDays  int `json:"collector_days"`
	RequestEntries int `json:"request_entries"`
}

// Save writes the cache, the collector, the store and the request log in a
// single transaction, replacing the previous snapshot.
func (s *SnapshotService) Save(ctx context.Context) (SnapshotStats, error) {
	var (
		entries []cache.Entry
		snaps   []forex.DaySnapshot
		days    map[uint64]map[string]model.QueriedRate
	)
	s.state.WithAll(func(c *cache.RateCache, col *forex.Collector, st *forex.Store) {
		entries = c.Snapshot()
		snaps = col.Snapshot()
		days = st.Snapshot()
	})
	logEntries := s.state.Log.All()

	err := repository.RunInTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.cacheRepo.WithTx(tx).ReplaceAll(ctx, entries); err != nil {
			return err
		}
		if err := s.forexRepo.WithTx(tx).ReplaceStore(ctx, days); err != nil {
			return err
		}
		if err := s.forexRepo.WithTx(tx).ReplaceCollector(ctx, snaps); err != nil {
			return err
		}
		return s.logRepo.WithTx(tx).ReplaceAll(ctx, logEntries)
	})
	if err != nil {
		return SnapshotStats{}, fmt.Errorf("failed to save snapshot: %w", err)
	}

	stats := SnapshotStats{
		CacheEntries:   len(entries),
		StoreDays:      len(days),
		CollectorDays:  len(snaps),
		RequestEntries: len(logEntries),
	}
	s.logger.Info("snapshot saved",
		zap.Int("cache_entries", stats.CacheEntries),
		zap.Int("store_days", stats.StoreDays),
		zap.Int("collector_days", stats.CollectorDays),
		zap.Int("request_entries", stats.RequestEntries),
	)
	return stats, nil
}

// Restore loads the last snapshot into the in-memory state.
func (s *SnapshotService) Restore(ctx context.Context) (SnapshotStats, error) {
	entries, err := s.cacheRepo.LoadAll(ctx)
	if err != nil {
		return SnapshotStats{}, fmt.Errorf("failed to restore cache: %w", err)
	}
	days, err := s.forexRepo.LoadStore(ctx)
	if err != nil {
		return SnapshotStats{}, fmt.Errorf("failed to restore forex store: %w", err)
	}
	snaps, err := s.forexRepo.LoadCollector(ctx)
	if err != nil {
		return SnapshotStats{}, fmt.Errorf("failed to restore forex collector: %w", err)
	}
	logEntries, err := s.logRepo.LoadAll(ctx)
	if err != nil {
		return SnapshotStats{}, fmt.Errorf("failed to restore request log: %w", err)
	}

	s.state.WithAll(func(c *cache.RateCache, col *forex.Collector, st *forex.Store) {
		c.Restore(entries)
		col.Restore(snaps)
		st.Restore(days)
	})
	s.state.Log.Restore(logEntries)

	stats := SnapshotStats{
		CacheEntries:   len(entries),
		StoreDays:      len(days),
		CollectorDays:  len(snaps),
		RequestEntries: len(logEntries),
	}
	s.logger.Info("snapshot restored",
		zap.Int("cache_entries", stats.CacheEntries),
		zap.Int("store_days", stats.StoreDays),
		zap.Int("request_entries", stats.RequestEntries),
	)
	return stats, nil
}
