package perror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_ErrorString_WithOpID(t *testing.T) {
	err := New(CategoryCatalogDegraded, "catalog.writer", "run-42", "write failed", errors.New("disk full"))

	msg := err.Error()
	assert.Contains(t, msg, "catalog.writer")
	assert.Contains(t, msg, "run-42")
	assert.Contains(t, msg, "Catalog.Degraded")
	assert.Contains(t, msg, "disk full")
}

func TestError_ErrorString_WithoutOpID(t *testing.T) {
	err := New(CategoryQueryParse, "query.parse", "", "unexpected token", nil)

	msg := err.Error()
	assert.Contains(t, msg, "query.parse")
	assert.Contains(t, msg, "Query.Parse")
	assert.NotContains(t, msg, "[]")
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := New(CategoryIO, "pathfs.stat", "", "stat failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestError_WrappedInFmtErrorf(t *testing.T) {
	inner := New(CategoryCatalogFatal, "catalog.pool", "", "integrity check failed", nil)
	wrapped := fmt.Errorf("opening catalog: %w", inner)

	got, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, CategoryCatalogFatal, got.Category)
}

func TestAs_NonTaxonomyError(t *testing.T) {
	_, ok := As(errors.New("plain error"))
	assert.False(t, ok)
}

func TestCategoryOf(t *testing.T) {
	err := New(CategoryMigrationLocked, "catalog.migrate", "", "locked", nil)

	cat, ok := CategoryOf(err)
	require.True(t, ok)
	assert.Equal(t, CategoryMigrationLocked, cat)

	_, ok = CategoryOf(errors.New("not tagged"))
	assert.False(t, ok)
}

func TestCategory_Recoverable(t *testing.T) {
	recoverable := []Category{CategoryCatalogTransient, CategoryIndexSkip, CategoryIndexPartial}
	for _, c := range recoverable {
		assert.True(t, c.Recoverable(), c.String())
	}

	notRecoverable := []Category{CategoryCatalogFatal, CategoryIndexAbort, CategoryQueryTimeout}
	for _, c := range notRecoverable {
		assert.False(t, c.Recoverable(), c.String())
	}
}

func TestCategory_Fatal(t *testing.T) {
	assert.True(t, CategoryCatalogFatal.Fatal())
	assert.True(t, CategoryIndexAbort.Fatal())
	assert.False(t, CategoryIO.Fatal())
	assert.False(t, CategoryQueryCanceled.Fatal())
}

func TestCategory_String_AllCategoriesCovered(t *testing.T) {
	categories := []Category{
		CategoryIO, CategoryCatalogTransient, CategoryCatalogDegraded, CategoryCatalogFatal,
		CategoryIndexSkip, CategoryIndexPartial, CategoryIndexAbort,
		CategoryQueryParse, CategoryQueryPlan, CategoryQueryTimeout, CategoryQueryCanceled,
		CategoryConfigInvalid, CategoryConfigMissing,
		CategoryMigrationVerifyFailed, CategoryMigrationLocked,
		CategoryPermissionDenied, CategoryPermissionBookmarkStale,
		CategoryWindowInvalidTransition,
	}

	for _, c := range categories {
		assert.NotEqual(t, "Unknown", c.String())
	}
}
