package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ndewijer/exchange-rate-oracle/internal/cache"
	"github.com/ndewijer/exchange-rate-oracle/internal/model"
)

// CacheRepository persists rate cache entries across restarts.
type CacheRepository struct {
	db *sql.DB
	tx *sql.Tx
}

// NewCacheRepository creates a new CacheRepository with the provided database connection.
func NewCacheRepository(db *sql.DB) *CacheRepository {
	return &CacheRepository{db: db}
}

func (r *CacheRepository) WithTx(tx *sql.Tx) *CacheRepository {
	return &CacheRepository{
		db: r.db,
		tx: tx,
	}
}

// ReplaceAll deletes every stored entry and writes entries in their place.
func (r *CacheRepository) ReplaceAll(ctx context.Context, entries []cache.Entry) error {
	q := pick(r.db, r.tx)
	if _, err := q.ExecContext(ctx, `DELETE FROM cached_rate`); err != nil {
		return fmt.Errorf("failed to clear cached_rate: %w", err)
	}

	query := `
        INSERT INTO cached_rate (symbol, timestamp, logical, cached_at, payload)
        VALUES (?, ?, ?, ?, ?)
    `
	for _, e := range entries {
		payload, err := encode(e.Rate)
		if err != nil {
			return err
		}
		_, err = q.ExecContext(ctx, query,
			e.Rate.BaseAsset.Symbol,
			int64(e.Rate.Timestamp),
			int64(e.Logical),
			e.CachedAt.UnixNano(),
			payload,
		)
		if err != nil {
			return fmt.Errorf("failed to insert cached_rate %s@%d: %w", e.Rate.BaseAsset.Symbol, e.Rate.Timestamp, err)
		}
	}
	return nil
}

// LoadAll returns every stored entry ordered by logical time.
func (r *CacheRepository) LoadAll(ctx context.Context) ([]cache.Entry, error) {
	query := `
        SELECT logical, cached_at, payload
        FROM cached_rate
        ORDER BY logical ASC
    `
	rows, err := pick(r.db, r.tx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query cached_rate: %w", err)
	}
	defer rows.Close()

	entries := []cache.Entry{}
	for rows.Next() {
		var (
			logical  int64
			cachedAt int64
			payload  string
		)
		if err := rows.Scan(&logical, &cachedAt, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan cached_rate: %w", err)
		}
		var rate model.QueriedRate
		if err := decode(payload, &rate); err != nil {
			return nil, err
		}
		entries = append(entries, cache.Entry{
			Rate:     rate,
			CachedAt: time.Unix(0, cachedAt).UTC(),
			Logical:  uint64(logical),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cached_rate: %w", err)
	}
	return entries, nil
}
