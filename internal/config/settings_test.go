package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsApplyWhenNothingElseSet(t *testing.T) {
	t.Setenv("MICROMEGAS_CATALOG_DSN", "postgres://localhost/lakehouse")
	s, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "local", s.ObjectStoreKind)
	require.Equal(t, time.Minute, s.SchedulerInterval)
	require.Equal(t, 2*time.Minute, s.SafetyLag)
	require.Equal(t, 24*time.Hour, s.Lookback)
	require.Equal(t, int64(1_000_000), s.MergeTargetRows)
	require.Equal(t, 4, s.Concurrency)
	require.False(t, s.EnableCPUTracing)
}

func TestLoad_MissingCatalogDSNErrors(t *testing.T) {
	_, err := Load("")
	require.Error(t, err)
}

func TestLoad_FileValueOverridesDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "micromegas.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
catalog_dsn = "postgres://localhost/lakehouse"
concurrency = 16
`), 0o644))

	s, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 16, s.Concurrency)
}

func TestLoad_EnvVarOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "micromegas.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
catalog_dsn = "postgres://localhost/lakehouse"
concurrency = 16
`), 0o644))

	t.Setenv("MICROMEGAS_CONCURRENCY", "32")
	s, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 32, s.Concurrency)
}
