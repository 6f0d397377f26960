package catalog

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStmtRegistry_PrepareCachesStatement(t *testing.T) {
	pool := openTestPool(t)

	reg, err := NewStmtRegistry(pool.Reader(), 8, slog.Default())
	require.NoError(t, err)
	t.Cleanup(reg.Close)

	s1, err := reg.Prepare(context.Background(), "SELECT 1")
	require.NoError(t, err)

	s2, err := reg.Prepare(context.Background(), "SELECT 1")
	require.NoError(t, err)

	assert.Same(t, s1, s2)
}

func TestStmtRegistry_Query(t *testing.T) {
	pool := openTestPool(t)

	reg, err := NewStmtRegistry(pool.Reader(), 8, slog.Default())
	require.NoError(t, err)
	t.Cleanup(reg.Close)

	rows, err := reg.Query(context.Background(), "SELECT COUNT(*) FROM files")
	require.NoError(t, err)
	defer rows.Close()

	require.True(t, rows.Next())

	var count int
	require.NoError(t, rows.Scan(&count))
	assert.Equal(t, 0, count)
}

func TestStmtRegistry_EvictionClosesStatement(t *testing.T) {
	pool := openTestPool(t)

	reg, err := NewStmtRegistry(pool.Reader(), 1, slog.Default())
	require.NoError(t, err)
	t.Cleanup(reg.Close)

	_, err = reg.Prepare(context.Background(), "SELECT 1")
	require.NoError(t, err)

	_, err = reg.Prepare(context.Background(), "SELECT 2")
	require.NoError(t, err)

	assert.Equal(t, 1, reg.cache.Len())
}
