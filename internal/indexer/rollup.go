package indexer

import (
	"context"
	"log/slog"

	"github.com/panoptikon-app/panoptikon/internal/catalog"
)

// Rollup recomputes folder_size for directories marked stale, working off
// a dirty-set queue fed by the writer's batch commits rather than a
// periodic full-tree sweep, whose cost is proportional to catalog size
// regardless of how little changed. Duplicate dirty marks collapse into
// one queue entry.
type Rollup struct {
	store  *catalog.Store
	logger *slog.Logger

	dirty map[int64]struct{} // parent ids awaiting recomputation, insertion order lost by design
	order []int64
}

// NewRollup creates a Rollup bound to store.
func NewRollup(store *catalog.Store, logger *slog.Logger) *Rollup {
	if logger == nil {
		logger = slog.Default()
	}

	return &Rollup{
		store:  store,
		logger: logger,
		dirty:  make(map[int64]struct{}),
	}
}

// MarkDirty enqueues parentID (and, transitively, its own ancestors once
// Flush walks up) for recomputation. Safe to call repeatedly for the same
// id; duplicates coalesce.
func (r *Rollup) MarkDirty(parentID int64) {
	if parentID == 0 {
		return
	}

	if _, ok := r.dirty[parentID]; !ok {
		r.dirty[parentID] = struct{}{}
		r.order = append(r.order, parentID)
	}
}

// MarkDirtyFromBatch enqueues every distinct parent referenced by records,
// called by the Writer right after each batch commits.
func (r *Rollup) MarkDirtyFromBatch(records []catalog.FileRecord) {
	for _, rec := range records {
		if rec.HasParent {
			r.MarkDirty(rec.ParentID)
		}
	}
}

// Flush recomputes folder_size for every queued directory and its
// ancestors, bottom-up, then clears the queue. Ancestors are re-enqueued
// as each directory's own parent is touched, so one Flush call settles an
// entire affected subtree chain up to its root.
func (r *Rollup) Flush(ctx context.Context) error {
	for len(r.order) > 0 {
		id := r.order[0]
		r.order = r.order[1:]
		delete(r.dirty, id)

		size, err := r.recompute(ctx, id)
		if err != nil {
			return err
		}

		if err := r.store.SetFolderSize(ctx, id, size); err != nil {
			return err
		}

		parent, err := r.parentOf(ctx, id)
		if err != nil {
			return err
		}

		if parent != 0 {
			r.MarkDirty(parent)
		}
	}

	return nil
}

// recompute sums the sizes of id's immediate children: files contribute
// their own size, subdirectories contribute their own (already computed,
// or zero if still stale) folder_size.
func (r *Rollup) recompute(ctx context.Context, id int64) (int64, error) {
	children, err := r.store.ListChildren(ctx, id)
	if err != nil {
		return 0, err
	}

	var total int64

	for _, child := range children {
		if child.IsDirectory {
			total += child.FolderSize
		} else {
			total += child.Size
		}
	}

	return total, nil
}

// parentOf looks up id's own parent_id by re-reading the directory's
// record, since the dirty queue only carries ids, not full records.
func (r *Rollup) parentOf(ctx context.Context, id int64) (int64, error) {
	rec, err := r.store.GetByID(ctx, id)
	if err != nil || rec == nil {
		return 0, err
	}

	if rec.HasParent {
		return rec.ParentID, nil
	}

	return 0, nil
}
