package coreapi

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panoptikon-app/panoptikon/internal/catalog"
	"github.com/panoptikon-app/panoptikon/internal/config"
	"github.com/panoptikon-app/panoptikon/internal/indexer"
	"github.com/panoptikon-app/panoptikon/internal/runtime"
)

func newTestPipeline(t *testing.T) (*indexer.Pipeline, *runtime.EventBus) {
	t.Helper()

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("hello"), 0o644))

	dbPath := filepath.Join(t.TempDir(), "panoptikon.db")
	pool, err := catalog.Open(context.Background(), dbPath, 4, slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	require.NoError(t, catalog.Migrate(context.Background(), pool.Writer(), dbPath, slog.Default()))

	store := catalog.NewStore(pool)
	suffix := catalog.NewSuffixIndex()
	bus := runtime.NewEventBusSized(nil, 64, 2)
	t.Cleanup(bus.Close)

	cfg := config.IndexerConfig{
		Roots:     []string{root},
		Threads:   1,
		BatchSize: 10,
	}

	pipeline := indexer.NewPipeline(store, suffix, bus, cfg, config.CloudConfig{}, nil, slog.Default())

	return pipeline, bus
}

func TestIndexerService_StartRunsToCompletionAndReportsStatus(t *testing.T) {
	pipeline, bus := newTestPipeline(t)

	svc := NewIndexerService(pipeline, bus, nil)
	t.Cleanup(svc.Close)

	svc.Start(context.Background())

	require.Eventually(t, func() bool {
		return !svc.Status().Running
	}, 2*time.Second, 10*time.Millisecond)

	status := svc.Status()
	assert.Equal(t, int64(1), status.Added)
	assert.Empty(t, status.Err)
}

func TestIndexerService_SecondStartWhileRunningIsNoop(t *testing.T) {
	pipeline, bus := newTestPipeline(t)

	svc := NewIndexerService(pipeline, bus, nil)
	t.Cleanup(svc.Close)

	svc.Start(context.Background())
	svc.Start(context.Background()) // must not spawn a second concurrent run

	require.Eventually(t, func() bool {
		return !svc.Status().Running
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, int64(1), svc.Status().Added)
}

func TestIndexerService_DegradedRunBlocksStartUntilResume(t *testing.T) {
	pipeline, bus := newTestPipeline(t)

	svc := NewIndexerService(pipeline, bus, nil)
	t.Cleanup(svc.Close)

	svc.onFinished(context.Background(), indexer.TopicRunFinished, indexer.Result{Degraded: true})
	assert.True(t, svc.Status().Degraded)

	svc.Start(context.Background())
	assert.False(t, svc.Status().Running, "Start must no-op while Degraded")

	svc.Resume(context.Background())

	require.Eventually(t, func() bool {
		return !svc.Status().Running
	}, 2*time.Second, 10*time.Millisecond)

	assert.False(t, svc.Status().Degraded, "Resume clears Degraded before restarting")
}

func TestIndexerService_StopCancelsInFlightRun(t *testing.T) {
	pipeline, bus := newTestPipeline(t)

	svc := NewIndexerService(pipeline, bus, nil)
	t.Cleanup(svc.Close)

	svc.Start(context.Background())
	svc.Stop()

	assert.False(t, svc.Status().Running)
}
