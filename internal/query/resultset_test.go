package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panoptikon-app/panoptikon/internal/catalog"
)

func mkRecord(path, name string, size int64) catalog.FileRecord {
	return catalog.FileRecord{
		Path:          path,
		Name:          name,
		Extension:     "txt",
		Size:          size,
		HasSize:       true,
		ModifiedAt:    1,
		CreatedAt:     1,
		CloudProvider: catalog.CloudProviderNone,
		CloudStatus:   catalog.CloudStatusLocal,
	}
}

func TestResultSet_GetPagePagesInSortOrder(t *testing.T) {
	store, suffix := testStore(t)
	ctx := context.Background()

	seedFile(t, store, suffix, mkRecord("/root/b.txt", "b.txt", 100))
	seedFile(t, store, suffix, mkRecord("/root/a.txt", "a.txt", 200))
	seedFile(t, store, suffix, mkRecord("/root/c.txt", "c.txt", 300))

	pl, err := NewPlanner(suffix, 0)
	require.NoError(t, err)

	plan, err := pl.Plan("*.txt")
	require.NoError(t, err)

	rs, err := NewResultSet(ctx, store, plan, []SortKey{{Field: SortByName}})
	require.NoError(t, err)
	defer rs.Close()

	total, err := rs.Total(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	page, err := rs.GetPage(ctx, 0, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "a.txt", page[0].Name)
	assert.Equal(t, "b.txt", page[1].Name)

	page2, err := rs.GetPage(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, page2, 1)
	assert.Equal(t, "c.txt", page2[0].Name)
}

func TestResultSet_NewResultSetAssignsDistinctIDs(t *testing.T) {
	store, suffix := testStore(t)
	ctx := context.Background()

	seedFile(t, store, suffix, mkRecord("/root/a.txt", "a.txt", 100))

	pl, err := NewPlanner(suffix, 0)
	require.NoError(t, err)

	plan, err := pl.Plan("a.txt")
	require.NoError(t, err)

	rs1, err := NewResultSet(ctx, store, plan, nil)
	require.NoError(t, err)
	defer rs1.Close()

	rs2, err := NewResultSet(ctx, store, plan, nil)
	require.NoError(t, err)
	defer rs2.Close()

	assert.NotEmpty(t, rs1.ID)
	assert.NotEmpty(t, rs2.ID)
	assert.NotEqual(t, rs1.ID, rs2.ID)
}

func TestResultSet_GetPageCachesRepeatRequest(t *testing.T) {
	store, suffix := testStore(t)
	ctx := context.Background()

	seedFile(t, store, suffix, mkRecord("/root/a.txt", "a.txt", 100))

	pl, err := NewPlanner(suffix, 0)
	require.NoError(t, err)

	plan, err := pl.Plan("a.txt")
	require.NoError(t, err)

	rs, err := NewResultSet(ctx, store, plan, nil)
	require.NoError(t, err)
	defer rs.Close()

	first, err := rs.GetPage(ctx, 0, 10)
	require.NoError(t, err)

	second, err := rs.GetPage(ctx, 0, 10)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestResultSet_SizeRangeFiltersRows(t *testing.T) {
	store, suffix := testStore(t)
	ctx := context.Background()

	seedFile(t, store, suffix, mkRecord("/root/small.txt", "small.txt", 10))
	seedFile(t, store, suffix, mkRecord("/root/big.txt", "big.txt", 10_000_000))

	pl, err := NewPlanner(suffix, 0)
	require.NoError(t, err)

	plan, err := pl.Plan("size:>1MB")
	require.NoError(t, err)

	rs, err := NewResultSet(ctx, store, plan, nil)
	require.NoError(t, err)
	defer rs.Close()

	total, err := rs.Total(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	page, err := rs.GetPage(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "big.txt", page[0].Name)
}
