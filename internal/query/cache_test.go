package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panoptikon-app/panoptikon/internal/indexer"
	"github.com/panoptikon-app/panoptikon/internal/runtime"
)

func TestCache_SearchReusesResultSetOnRepeatQuery(t *testing.T) {
	store, suffix := testStore(t)
	ctx := context.Background()

	seedFile(t, store, suffix, mkRecord("/root/a.txt", "a.txt", 10))

	pl, err := NewPlanner(suffix, 0)
	require.NoError(t, err)

	cache, err := NewCache(store, pl, nil, 0, nil)
	require.NoError(t, err)
	t.Cleanup(cache.Close)

	first, err := cache.Search(ctx, "a.txt", nil)
	require.NoError(t, err)

	second, err := cache.Search(ctx, "a.txt", nil)
	require.NoError(t, err)

	assert.Same(t, first, second)
}

func TestCache_InvalidatesOnIntersectingMutation(t *testing.T) {
	store, suffix := testStore(t)
	ctx := context.Background()

	seedFile(t, store, suffix, mkRecord("/root/a.txt", "a.txt", 10))

	pl, err := NewPlanner(suffix, 0)
	require.NoError(t, err)

	bus := runtime.NewEventBusSized(nil, 16, 1)
	t.Cleanup(bus.Close)

	cache, err := NewCache(store, pl, bus, 0, nil)
	require.NoError(t, err)
	t.Cleanup(cache.Close)

	first, err := cache.Search(ctx, "path:/root", nil)
	require.NoError(t, err)

	bus.Publish(ctx, indexer.TopicCatalogMutated, indexer.CatalogMutated{PathScope: []string{"/root/a.txt"}})

	second, err := cache.Search(ctx, "path:/root", nil)
	require.NoError(t, err)

	assert.NotSame(t, first, second)
}

func TestCache_LeavesNonIntersectingQueryCached(t *testing.T) {
	store, suffix := testStore(t)
	ctx := context.Background()

	seedFile(t, store, suffix, mkRecord("/root/a.txt", "a.txt", 10))
	seedFile(t, store, suffix, mkRecord("/other/b.txt", "b.txt", 10))

	pl, err := NewPlanner(suffix, 0)
	require.NoError(t, err)

	bus := runtime.NewEventBusSized(nil, 16, 1)
	t.Cleanup(bus.Close)

	cache, err := NewCache(store, pl, bus, 0, nil)
	require.NoError(t, err)
	t.Cleanup(cache.Close)

	first, err := cache.Search(ctx, "path:/other", nil)
	require.NoError(t, err)

	bus.Publish(ctx, indexer.TopicCatalogMutated, indexer.CatalogMutated{PathScope: []string{"/root/a.txt"}})

	second, err := cache.Search(ctx, "path:/other", nil)
	require.NoError(t, err)

	assert.Same(t, first, second)
}
