// Package fsevents turns raw filesystem notifications into coalesced,
// backpressure-safe batches of dirty paths for the indexer to re-stat.
// It wraps fsnotify behind an interface so tests can inject a mock watcher,
// the same shape as internal/sync/observer_local.go's FsWatcher pair, and
// falls back to periodic polling when a watch cannot be established.
package fsevents

import (
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeKind classifies a coalesced filesystem event.
type ChangeKind int

const (
	ChangeUnknown ChangeKind = iota
	ChangeCreate
	ChangeWrite
	ChangeRemove
	ChangeRename
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeCreate:
		return "create"
	case ChangeWrite:
		return "write"
	case ChangeRemove:
		return "remove"
	case ChangeRename:
		return "rename"
	default:
		return "unknown"
	}
}

// fromFsnotify maps a raw fsnotify.Op to the coarser ChangeKind the
// coalescer groups on. Chmod-only events are filtered out before this is
// called (mode changes are never indexed).
func fromFsnotify(op fsnotify.Op) ChangeKind {
	switch {
	case op.Has(fsnotify.Create):
		return ChangeCreate
	case op.Has(fsnotify.Write):
		return ChangeWrite
	case op.Has(fsnotify.Remove):
		return ChangeRemove
	case op.Has(fsnotify.Rename):
		return ChangeRename
	default:
		return ChangeUnknown
	}
}

// DirtyPath is one coalesced path with its most recent change kind.
// Last-writer-wins: if a path is touched twice within the coalescing
// window, only the latest kind survives (a Create followed by a Write
// collapses to Write; the indexer re-stats regardless of kind).
type DirtyPath struct {
	Path    string
	Kind    ChangeKind
	Seen    time.Time
	IsDir   bool
	Watched bool // true if this path arrived via native watch, false if via poll
}

// Batch is one coalesced flush: every path that changed since the last
// batch, sorted by path for deterministic downstream processing.
type Batch struct {
	Paths []DirtyPath
}

// RescanRequired is published on the event bus when shadow verification's
// sampled walk of the root hits an entry that fails to stat, or the walk
// itself fails —
// signals the indexer to run a full crawl instead of trusting the event
// stream alone.
type RescanRequired struct {
	Root   string
	Reason string
}
