// Package perror implements the categorized error taxonomy shared by every
// Panoptikon component: one typed error wraps a category, an operation id
// for correlation, and a cause chain, mirroring the sentinel-plus-struct
// pattern the catalog's upstream graph client used for HTTP classification.
package perror

import (
	"errors"
	"fmt"
)

// Category identifies the taxonomy bucket an error belongs to. Categories
// determine propagation behavior (internal/runtime dispatches on these)
// and the CLI exit code (ExitCode in exitcode.go maps Category -> exit code).
type Category int

const (
	// CategoryIO covers filesystem/syscall failures outside the catalog
	// (stat, open, enumerate failures surfaced by internal/pathfs).
	CategoryIO Category = iota

	// CategoryCatalogTransient is a retryable catalog write/read failure
	// (lock contention, busy timeout).
	CategoryCatalogTransient
	// CategoryCatalogDegraded means persistent write failures after
	// retry exhaustion; pauses the indexer, query engine stays live.
	CategoryCatalogDegraded
	// CategoryCatalogFatal means corruption detected by an integrity
	// check; triggers a guided rebuild.
	CategoryCatalogFatal

	// CategoryIndexSkip marks one path skipped (permission, transient
	// I/O); the batch continues.
	CategoryIndexSkip
	// CategoryIndexPartial means a batch completed with some paths
	// skipped; surfaced as exit code 6.
	CategoryIndexPartial
	// CategoryIndexAbort means the indexer pipeline cannot continue and
	// is shutting down in an orderly fashion.
	CategoryIndexAbort

	// CategoryQueryParse is a structured parse failure in the search
	// language, with a token offset.
	CategoryQueryParse
	// CategoryQueryPlan is a planner failure (e.g. unsupported filter
	// combination).
	CategoryQueryPlan
	// CategoryQueryTimeout means the soft execution timeout elapsed;
	// partial results may still be available.
	CategoryQueryTimeout
	// CategoryQueryCanceled means the caller's cancellation token fired.
	CategoryQueryCanceled

	// CategoryConfigInvalid means a config value failed validation.
	CategoryConfigInvalid
	// CategoryConfigMissing means a required config file/value is absent.
	CategoryConfigMissing

	// CategoryMigrationVerifyFailed means the post-migration verification
	// query did not return success; the migrator restores from backup.
	CategoryMigrationVerifyFailed
	// CategoryMigrationLocked is raised by catalog.Migrate when the
	// pre-migration backup copy cannot be created. There is no
	// cross-process migration lock behind it.
	CategoryMigrationLocked

	// CategoryPermissionDenied means the OS denied an operation.
	CategoryPermissionDenied
	// CategoryPermissionBookmarkStale means a sandboxed security-scoped
	// bookmark could no longer be resolved.
	CategoryPermissionBookmarkStale

	// CategoryWindowInvalidTransition means a drag-arbitration caller
	// requested a state transition the pure state machine does not allow
	// from its current phase (e.g. Commit without a pending drop).
	CategoryWindowInvalidTransition
)

// String renders the category's taxonomy name, e.g. "Catalog.Degraded".
func (c Category) String() string {
	switch c {
	case CategoryIO:
		return "Io"
	case CategoryCatalogTransient:
		return "Catalog.Transient"
	case CategoryCatalogDegraded:
		return "Catalog.Degraded"
	case CategoryCatalogFatal:
		return "Catalog.Fatal"
	case CategoryIndexSkip:
		return "Index.Skip"
	case CategoryIndexPartial:
		return "Index.Partial"
	case CategoryIndexAbort:
		return "Index.Abort"
	case CategoryQueryParse:
		return "Query.Parse"
	case CategoryQueryPlan:
		return "Query.Plan"
	case CategoryQueryTimeout:
		return "Query.Timeout"
	case CategoryQueryCanceled:
		return "Query.Canceled"
	case CategoryConfigInvalid:
		return "Config.Invalid"
	case CategoryConfigMissing:
		return "Config.Missing"
	case CategoryMigrationVerifyFailed:
		return "Migration.VerifyFailed"
	case CategoryMigrationLocked:
		return "Migration.Locked"
	case CategoryPermissionDenied:
		return "Permission.Denied"
	case CategoryPermissionBookmarkStale:
		return "Permission.BookmarkStale"
	case CategoryWindowInvalidTransition:
		return "Window.InvalidTransition"
	default:
		return "Unknown"
	}
}

// Recoverable reports whether this category is handled by local recovery
// (retry, continue-with-warning), as opposed to triggering a pause
// (Degraded) or orderly shutdown (Fatal/Abort).
func (c Category) Recoverable() bool {
	switch c {
	case CategoryCatalogTransient, CategoryIndexSkip, CategoryIndexPartial:
		return true
	default:
		return false
	}
}

// Fatal reports whether this category triggers orderly shutdown after a
// final flush.
func (c Category) Fatal() bool {
	switch c {
	case CategoryCatalogFatal, CategoryIndexAbort:
		return true
	default:
		return false
	}
}

// Error is the taxonomy's concrete error type: a category, an operation id
// correlating the indexer batch or query that produced it, a human message,
// and an optional cause for errors.Unwrap/errors.Is chains.
type Error struct {
	Category  Category
	Operation string // e.g. "indexer.writer", "query.parse"
	OpID      string // correlates an IndexRun id or query id
	Message   string
	Cause     error
}

func (e *Error) Error() string {
	if e.OpID != "" {
		return fmt.Sprintf("%s[%s] %s: %s", e.Operation, e.OpID, e.Category, e.causeString())
	}

	return fmt.Sprintf("%s: %s: %s", e.Operation, e.Category, e.causeString())
}

func (e *Error) causeString() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}

	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New constructs an Error. Operation identifies the component/stage
// (dotted, e.g. "catalog.writer"); opID correlates a run/query id and may
// be empty.
func New(category Category, operation, opID, message string, cause error) *Error {
	return &Error{
		Category:  category,
		Operation: operation,
		OpID:      opID,
		Message:   message,
		Cause:     cause,
	}
}

// As retrieves the first *Error in err's chain, mirroring errors.As but
// avoiding a target-pointer allocation at every call site.
func As(err error) (*Error, bool) {
	var perr *Error
	if errors.As(err, &perr) {
		return perr, true
	}

	return nil, false
}

// CategoryOf returns the Category of the first *Error in err's chain, and
// false if err does not wrap a taxonomy error.
func CategoryOf(err error) (Category, bool) {
	perr, ok := As(err)
	if !ok {
		return 0, false
	}

	return perr.Category, true
}
