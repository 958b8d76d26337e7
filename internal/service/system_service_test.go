package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/exchange-rate-oracle/internal/testutil"
	"github.com/ndewijer/exchange-rate-oracle/internal/version"
)

func TestSystemService_CheckHealth(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := testutil.NewTestSystemService(t, db, testutil.NewTestState(t))

	assert.NoError(t, svc.CheckHealth())

	db.Close()
	assert.Error(t, svc.CheckHealth())
}

func TestSystemService_CheckVersion(t *testing.T) {
	svc := testutil.NewTestSystemService(t, testutil.SetupTestDB(t), testutil.NewTestState(t))

	info, err := svc.CheckVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, version.Version, info.AppVersion)
	assert.Equal(t, "1", info.DbVersion)
	assert.False(t, info.MigrationNeeded)
	assert.Nil(t, info.MigrationMessage)
}

func TestSystemService_Status(t *testing.T) {
	st := testutil.NewTestState(t)
	svc := testutil.NewTestSystemService(t, testutil.SetupTestDB(t), st)

	empty := svc.Status()
	assert.Zero(t, empty.CacheEntries)
	assert.Empty(t, empty.ForexDays)
	assert.Empty(t, empty.CollectorDays)
	assert.Zero(t, empty.RequestLogEntries)

	testutil.SeedForex(st, testutil.TestDay, map[string][]uint64{"EUR": {1_250_000_000}})
	status := svc.Status()
	assert.Equal(t, []uint64{testutil.TestDay}, status.ForexDays)
	assert.Positive(t, status.ForexStoreBytes)
	assert.Zero(t, status.OutboundReserved)
}
