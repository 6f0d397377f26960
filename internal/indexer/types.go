// Package indexer implements the crawl -> extract -> classify -> write ->
// rollup pipeline that populates and keeps current the catalog store.
package indexer

import (
	"time"

	"github.com/panoptikon-app/panoptikon/internal/catalog"
)

// ScanItem is one path the crawler yielded, before metadata extraction.
type ScanItem struct {
	Path        string
	Depth       int
	IsDirHint   bool // crawler's own fs.DirEntry.IsDir(), used before Stat
	ParentPath  string
	SeenInBatch int64 // batch sequence number, for checkpointing
}

// ExtractedItem is a ScanItem enriched with stat-equivalent metadata, or
// marked Inaccessible if the stat call failed (a permission error is
// non-fatal: the path is marked inaccessible and the batch continues).
type ExtractedItem struct {
	ScanItem
	Size          int64
	ModifiedAt    int64
	CreatedAt     int64
	IsDirectory   bool
	Fingerprint   catalog.Fingerprint
	Inaccessible  bool
	InaccessibleWhy string
}

// ClassifiedItem adds cloud-provider classification to an ExtractedItem.
type ClassifiedItem struct {
	ExtractedItem
	CloudProvider catalog.CloudProvider
	CloudStatus   catalog.CloudStatus
}

// Progress reports crawl/extract progress, published on the event bus
// under TopicProgress so the CLI and any future UI can render it.
type Progress struct {
	RunID     int64
	Scanned   int64
	Estimate  int64
	Added     int64
	Modified  int64
	Deleted   int64
	Skipped   int64
	Phase     string // "crawl", "extract", "write", "rollup"
}

// Result summarizes one completed (or canceled) IndexRun.
type Result struct {
	RunID     int64
	Started   time.Time
	Finished  time.Time
	Added     int64
	Modified  int64
	Deleted   int64
	Skipped   int64
	Canceled  bool
	Degraded  bool // writer hit persistent catalog failures; indexer should pause
	Inaccessible []string
	InaccessibleCause error // multierr.Combine of every inaccessible path's stat error
}

// Topic names this package publishes on the shared event bus.
const (
	TopicProgress     = "indexer.progress"
	TopicRunFinished   = "indexer.run_finished"
	TopicCatalogMutated = "indexer.catalog_mutated"
)

// CatalogMutated is published once per writer-batch commit so the query
// engine's result cache (internal/query) can invalidate entries whose
// path scope overlaps.
type CatalogMutated struct {
	RunID      int64
	PathScope  []string
}
