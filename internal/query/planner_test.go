package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panoptikon-app/panoptikon/internal/catalog"
)

func TestPlanner_LiteralUsesSuffixIndexWhenAvailable(t *testing.T) {
	suffix := catalog.NewSuffixIndex()
	suffix.Upsert(1, "reportdraft")

	pl, err := NewPlanner(suffix, 0)
	require.NoError(t, err)

	plan, err := pl.Plan("draft")
	require.NoError(t, err)
	assert.Contains(t, plan.Where, "id IN")
	assert.Len(t, plan.Args, 1)
	assert.Equal(t, int64(1), plan.Args[0])
}

func TestPlanner_LiteralFallsBackToLikeWithoutSuffixIndex(t *testing.T) {
	pl, err := NewPlanner(nil, 0)
	require.NoError(t, err)

	plan, err := pl.Plan("draft")
	require.NoError(t, err)
	assert.Contains(t, plan.Where, "LIKE")
}

func TestPlanner_AnchoredLiteralAlwaysUsesLike(t *testing.T) {
	suffix := catalog.NewSuffixIndex()
	suffix.Upsert(1, "draft")

	pl, err := NewPlanner(suffix, 0)
	require.NoError(t, err)

	plan, err := pl.Plan("^draft$")
	require.NoError(t, err)
	assert.Contains(t, plan.Where, "LIKE")
}

func TestPlanner_PathFieldBypassesSuffixIndex(t *testing.T) {
	suffix := catalog.NewSuffixIndex()
	suffix.Upsert(1, "report.pdf")

	pl, err := NewPlanner(suffix, 0)
	require.NoError(t, err)

	// The suffix index covers basenames only, so a path substring must
	// compile to a LIKE on the path column, not an id set.
	plan, err := pl.Plan("path:/Users/alice")
	require.NoError(t, err)
	assert.Contains(t, plan.Where, "path")
	assert.Contains(t, plan.Where, "LIKE")
	assert.NotContains(t, plan.Where, "id IN")

	assert.True(t, plan.Predicate(catalog.FileRecord{Path: "/users/alice/report.pdf", Name: "report.pdf"}))
	assert.False(t, plan.Predicate(catalog.FileRecord{Path: "/users/bob/report.pdf", Name: "report.pdf"}))
}

func TestPlanner_PredicateMatchesWildcard(t *testing.T) {
	pl, err := NewPlanner(nil, 0)
	require.NoError(t, err)

	plan, err := pl.Plan("rep*t")
	require.NoError(t, err)

	assert.True(t, plan.Predicate(catalog.FileRecord{Name: "report.pdf"}))
	assert.False(t, plan.Predicate(catalog.FileRecord{Name: "draft.pdf"}))
}

func TestPlanner_ExtensionField(t *testing.T) {
	pl, err := NewPlanner(nil, 0)
	require.NoError(t, err)

	plan, err := pl.Plan("ext:PDF")
	require.NoError(t, err)
	assert.True(t, plan.Predicate(catalog.FileRecord{Extension: "pdf"}))
	assert.False(t, plan.Predicate(catalog.FileRecord{Extension: "txt"}))
}

func TestPlanner_SizeRange(t *testing.T) {
	pl, err := NewPlanner(nil, 0)
	require.NoError(t, err)

	plan, err := pl.Plan("size:>1000")
	require.NoError(t, err)
	assert.True(t, plan.Predicate(catalog.FileRecord{Size: 2000}))
	assert.False(t, plan.Predicate(catalog.FileRecord{Size: 500}))
}

func TestPlanner_CloudProviderFilter(t *testing.T) {
	pl, err := NewPlanner(nil, 0)
	require.NoError(t, err)

	plan, err := pl.Plan("cloud:dropbox")
	require.NoError(t, err)
	assert.True(t, plan.Predicate(catalog.FileRecord{CloudProvider: catalog.CloudProviderDropbox}))
	assert.False(t, plan.Predicate(catalog.FileRecord{CloudProvider: catalog.CloudProviderICloud}))
}

func TestPlanner_CloudStatusFilterMapsOnlineToken(t *testing.T) {
	pl, err := NewPlanner(nil, 0)
	require.NoError(t, err)

	// "status:online" is the user-facing spelling of the stored
	// online_only enum value.
	plan, err := pl.Plan("status:online")
	require.NoError(t, err)
	assert.Equal(t, []any{string(catalog.CloudStatusOnlineOnly)}, plan.Args)
	assert.True(t, plan.Predicate(catalog.FileRecord{CloudStatus: catalog.CloudStatusOnlineOnly}))
	assert.False(t, plan.Predicate(catalog.FileRecord{CloudStatus: catalog.CloudStatusLocal}))

	plan, err = pl.Plan("status:local")
	require.NoError(t, err)
	assert.True(t, plan.Predicate(catalog.FileRecord{CloudStatus: catalog.CloudStatusLocal}))
}

func TestPlanner_AndOrNot(t *testing.T) {
	pl, err := NewPlanner(nil, 0)
	require.NoError(t, err)

	plan, err := pl.Plan("report AND NOT draft")
	require.NoError(t, err)

	assert.True(t, plan.Predicate(catalog.FileRecord{Name: "report.pdf"}))
	assert.False(t, plan.Predicate(catalog.FileRecord{Name: "report-draft.pdf"}))
}

func TestPlanner_CachesRepeatQueries(t *testing.T) {
	pl, err := NewPlanner(nil, 0)
	require.NoError(t, err)

	p1, err := pl.Plan("report")
	require.NoError(t, err)

	p2, err := pl.Plan(" report ")
	require.NoError(t, err)

	assert.Equal(t, p1.Where, p2.Where)
}

func TestPlanner_VolatilePlansAreNotCached(t *testing.T) {
	suffix := catalog.NewSuffixIndex()
	pl, err := NewPlanner(suffix, 0)
	require.NoError(t, err)

	plan, err := pl.Plan("ghost")
	require.NoError(t, err)
	assert.Equal(t, "0", plan.Where)

	suffix.Upsert(1, "ghost")

	plan2, err := pl.Plan("ghost")
	require.NoError(t, err)
	assert.Contains(t, plan2.Where, "id IN")
}
