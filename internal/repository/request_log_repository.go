package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ndewijer/exchange-rate-oracle/internal/model"
)

// RequestLogRepository persists the request log ring.
type RequestLogRepository struct {
	db *sql.DB
	tx *sql.Tx
}

// NewRequestLogRepository creates a new RequestLogRepository with the provided database connection.
func NewRequestLogRepository(db *sql.DB) *RequestLogRepository {
	return &RequestLogRepository{db: db}
}

func (r *RequestLogRepository) WithTx(tx *sql.Tx) *RequestLogRepository {
	return &RequestLogRepository{
		db: r.db,
		tx: tx,
	}
}

// ReplaceAll overwrites the stored log with entries, oldest first.
func (r *RequestLogRepository) ReplaceAll(ctx context.Context, entries []model.RequestLogEntry) error {
	q := pick(r.db, r.tx)
	if _, err := q.ExecContext(ctx, `DELETE FROM request_log`); err != nil {
		return fmt.Errorf("failed to clear request_log: %w", err)
	}

	for _, e := range entries {
		payload, err := encode(e)
		if err != nil {
			return err
		}
		if _, err := q.ExecContext(ctx, `INSERT INTO request_log (id, payload) VALUES (?, ?)`, e.ID, payload); err != nil {
			return fmt.Errorf("failed to insert request_log %s: %w", e.ID, err)
		}
	}
	return nil
}

// LoadAll returns the stored log entries, oldest first.
func (r *RequestLogRepository) LoadAll(ctx context.Context) ([]model.RequestLogEntry, error) {
	rows, err := pick(r.db, r.tx).QueryContext(ctx, `SELECT payload FROM request_log ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query request_log: %w", err)
	}
	defer rows.Close()

	entries := []model.RequestLogEntry{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan request_log: %w", err)
		}
		var e model.RequestLogEntry
		if err := decode(payload, &e); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating request_log: %w", err)
	}
	return entries, nil
}
