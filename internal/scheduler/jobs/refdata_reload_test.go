package jobs

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis-allocator/internal/refdata"
	"github.com/wonny/aegis-allocator/pkg/logger"
)

type countingObserver map[string]int

func (c countingObserver) ObserveReload(result string) { c[result]++ }

func writeTables(t *testing.T, path string, notional string) {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "..", "refdata", "defaults.yaml"))
	require.NoError(t, err)
	data = bytes.Replace(data, []byte("notional: 1000000"), []byte("notional: "+notional), 1)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func TestRefDataReloadJob(t *testing.T) {
	path := filepath.Join(t.TempDir(), "refdata.yaml")
	writeTables(t, path, "1000000")

	store, err := refdata.Open(path)
	require.NoError(t, err)
	obs := countingObserver{}
	job := NewRefDataReloadJob(store, path, "@every 1m", obs, logger.NewNop())

	assert.Equal(t, "refdata_reload", job.Name())
	assert.Equal(t, "@every 1m", job.Schedule())

	// 내용 동일 → unchanged
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 1, obs[ReloadUnchanged])

	writeTables(t, path, "2500000")
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 1, obs[ReloadChanged])
	assert.Equal(t, 2500000.0, store.Current().Notional)
}

func TestRefDataReloadJob_KeepsSnapshotOnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "refdata.yaml")
	writeTables(t, path, "1000000")

	store, err := refdata.Open(path)
	require.NoError(t, err)
	before := store.Snapshot().Hash

	require.NoError(t, os.WriteFile(path, []byte("version: [broken"), 0o644))
	obs := countingObserver{}
	job := NewRefDataReloadJob(store, path, "@hourly", obs, logger.NewNop())

	assert.Error(t, job.Run(context.Background()))
	assert.Equal(t, 1, obs[ReloadError])
	assert.Equal(t, before, store.Snapshot().Hash)
}

func TestRefDataReloadJob_Canceled(t *testing.T) {
	store, err := refdata.NewDefaultStore()
	require.NoError(t, err)
	job := NewRefDataReloadJob(store, "", "@hourly", nil, logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, job.Run(ctx), context.Canceled)
}
