package indexer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panoptikon-app/panoptikon/internal/config"
)

func TestPipeline_RunIndexesATree(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root)

	store, suffix := testStore(t)

	p := NewPipeline(store, suffix, nil, config.IndexerConfig{
		Roots:     []string{root},
		Threads:   2,
		BatchSize: 10,
	}, config.CloudConfig{}, nil, nil)

	result, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, result.Canceled)
	assert.Equal(t, int64(3), result.Added) // a.txt, sub/, sub/b.txt

	got, err := store.GetByPath(context.Background(), filepath.Join(root, "a.txt"))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(1), got.Size)
}

func TestPipeline_SecondRunReconcilesDeletions(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root)

	store, suffix := testStore(t)
	cfg := config.IndexerConfig{Roots: []string{root}, Threads: 1, BatchSize: 10}

	p := NewPipeline(store, suffix, nil, cfg, config.CloudConfig{}, nil, nil)
	_, err := p.Run(context.Background())
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(root, "a.txt")))

	result, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Deleted)

	got, err := store.GetByPath(context.Background(), filepath.Join(root, "a.txt"))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPipeline_ResumesUnfinishedRunWithoutDeletionPass(t *testing.T) {
	store, suffix := testStore(t)

	runID, err := store.BeginIndexRun(context.Background(), 1)
	require.NoError(t, err)

	root := t.TempDir()
	writeTree(t, root)

	p := NewPipeline(store, suffix, nil, config.IndexerConfig{Roots: []string{root}, Threads: 1, BatchSize: 10}, config.CloudConfig{}, nil, nil)
	result, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, runID, result.RunID, "should resume the prior unfinished run rather than starting a new one")
}
