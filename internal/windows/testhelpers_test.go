package windows

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/panoptikon-app/panoptikon/internal/catalog"
	"github.com/panoptikon-app/panoptikon/internal/query"
	"github.com/panoptikon-app/panoptikon/internal/testutil"
)

// testResultSet opens a fresh migrated catalog with one seeded row and
// returns a bound ResultSet, built on the shared fixture every package's
// tests use.
func testResultSet(t *testing.T, queryText string) *query.ResultSet {
	t.Helper()

	store, suffix := testutil.OpenCatalog(t)
	testutil.SeedFile(t, store, suffix, catalog.FileRecord{
		Path: "/root/a.txt", Name: "a.txt", Extension: "txt", Size: 10, HasSize: true,
		CloudProvider: catalog.CloudProviderNone, CloudStatus: catalog.CloudStatusLocal,
	})

	pl, err := query.NewPlanner(suffix, 0)
	require.NoError(t, err)

	plan, err := pl.Plan(queryText)
	require.NoError(t, err)

	rs, err := query.NewResultSet(context.Background(), store, plan, nil)
	require.NoError(t, err)

	return rs
}

// stubFileOps records CommitDrag calls for assertions.
type stubFileOps struct {
	calls []stubDragCall
	err   error
}

type stubDragCall struct {
	paths  []string
	source WindowID
	target WindowID
}

func (s *stubFileOps) CommitDrag(_ context.Context, paths []string, source, target WindowID) error {
	s.calls = append(s.calls, stubDragCall{paths: paths, source: source, target: target})

	return s.err
}
