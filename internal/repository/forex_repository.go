package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ndewijer/exchange-rate-oracle/internal/forex"
	"github.com/ndewijer/exchange-rate-oracle/internal/model"
)

// ForexRepository persists the forex store and the collector buckets.
type ForexRepository struct {
	db *sql.DB
	tx *sql.Tx
}

// NewForexRepository creates a new ForexRepository with the provided database connection.
func NewForexRepository(db *sql.DB) *ForexRepository {
	return &ForexRepository{db: db}
}

func (r *ForexRepository) WithTx(tx *sql.Tx) *ForexRepository {
	return &ForexRepository{
		db: r.db,
		tx: tx,
	}
}

// ReplaceStore overwrites the persisted forex store with days.
func (r *ForexRepository) ReplaceStore(ctx context.Context, days map[uint64]map[string]model.QueriedRate) error {
	q := pick(r.db, r.tx)
	if _, err := q.ExecContext(ctx, `DELETE FROM forex_rate`); err != nil {
		return fmt.Errorf("failed to clear forex_rate: %w", err)
	}

	query := `INSERT INTO forex_rate (day, symbol, payload) VALUES (?, ?, ?)`
	for day, rates := range days {
		for symbol, rate := range rates {
			payload, err := encode(rate)
			if err != nil {
				return err
			}
			if _, err := q.ExecContext(ctx, query, int64(day), symbol, payload); err != nil {
				return fmt.Errorf("failed to insert forex_rate %s on %d: %w", symbol, day, err)
			}
		}
	}
	return nil
}

// LoadStore returns the persisted forex store grouped by day.
func (r *ForexRepository) LoadStore(ctx context.Context) (map[uint64]map[string]model.QueriedRate, error) {
	rows, err := pick(r.db, r.tx).QueryContext(ctx, `SELECT day, symbol, payload FROM forex_rate ORDER BY day ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query forex_rate: %w", err)
	}
	defer rows.Close()

	days := map[uint64]map[string]model.QueriedRate{}
	for rows.Next() {
		var (
			day     int64
			symbol  string
			payload string
		)
		if err := rows.Scan(&day, &symbol, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan forex_rate: %w", err)
		}
		var rate model.QueriedRate
		if err := decode(payload, &rate); err != nil {
			return nil, err
		}
		if days[uint64(day)] == nil {
			days[uint64(day)] = map[string]model.QueriedRate{}
		}
		days[uint64(day)][symbol] = rate
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating forex_rate: %w", err)
	}
	return days, nil
}

// ReplaceCollector overwrites the persisted collector buckets.
func (r *ForexRepository) ReplaceCollector(ctx context.Context, snaps []forex.DaySnapshot) error {
	q := pick(r.db, r.tx)
	if _, err := q.ExecContext(ctx, `DELETE FROM collector_day`); err != nil {
		return fmt.Errorf("failed to clear collector_day: %w", err)
	}

	query := `INSERT INTO collector_day (day, sources, rates) VALUES (?, ?, ?)`
	for _, s := range snaps {
		sources, err := encode(s.Sources)
		if err != nil {
			return err
		}
		rates, err := encode(s.Rates)
		if err != nil {
			return err
		}
		if _, err := q.ExecContext(ctx, query, int64(s.Day), sources, rates); err != nil {
			return fmt.Errorf("failed to insert collector_day %d: %w", s.Day, err)
		}
	}
	return nil
}

// LoadCollector returns the persisted collector buckets, oldest first.
func (r *ForexRepository) LoadCollector(ctx context.Context) ([]forex.DaySnapshot, error) {
	rows, err := pick(r.db, r.tx).QueryContext(ctx, `SELECT day, sources, rates FROM collector_day ORDER BY day ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query collector_day: %w", err)
	}
	defer rows.Close()

	snaps := []forex.DaySnapshot{}
	for rows.Next() {
		var (
			day            int64
			sources, rates string
			snap           forex.DaySnapshot
		)
		if err := rows.Scan(&day, &sources, &rates); err != nil {
			return nil, fmt.Errorf("failed to scan collector_day: %w", err)
		}
		snap.Day = uint64(day)
		if err := decode(sources, &snap.Sources); err != nil {
			return nil, err
		}
		if err := decode(rates, &snap.Rates); err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating collector_day: %w", err)
	}
	return snaps, nil
}
