package catalog

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestPool(t *testing.T) *Pool {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "panoptikon.db")

	pool, err := Open(context.Background(), path, 4, slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	require.NoError(t, Migrate(context.Background(), pool.Writer(), path, slog.Default()))

	return pool
}

func TestOpen_CreatesDatabaseAndAppliesPragmas(t *testing.T) {
	pool := openTestPool(t)

	var mode string
	require.NoError(t, pool.Reader().QueryRow("PRAGMA journal_mode").Scan(&mode))
	require.Equal(t, "wal", mode)
}

func TestPool_HealthCheck(t *testing.T) {
	pool := openTestPool(t)

	require.NoError(t, pool.HealthCheck(context.Background()))
}

func TestPool_WriterIsSoleWriter(t *testing.T) {
	pool := openTestPool(t)

	require.Equal(t, 1, pool.Writer().Stats().MaxOpenConnections)
}
