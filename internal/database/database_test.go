package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAndMigrate(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "oracle.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	version, err := Migrate(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	// Applying again is a no-op.
	version, err = Migrate(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	for _, table := range []string{"cached_rate", "forex_rate", "collector_day", "request_log"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		require.NoError(t, err, table)
	}

	current, latest, err := SchemaVersion(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, int64(1), current)
	assert.Equal(t, current, latest)

	assert.NoError(t, HealthCheck(db))
}
