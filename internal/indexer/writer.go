package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"go.uber.org/multierr"

	"github.com/panoptikon-app/panoptikon/internal/catalog"
	"github.com/panoptikon-app/panoptikon/internal/pathfs"
	"github.com/panoptikon-app/panoptikon/internal/runtime"
)

// defaultBatchSize is the upsert batch size: rows per transaction.
const defaultBatchSize = 500

// Writer upserts classified items in batches, using fingerprint to
// detect moves (update path+parent instead of delete+insert), and
// maintains an in-process path -> id cache so a child's
// parent_id can be resolved without a round trip once its parent has been
// written earlier in the same run (the crawler's BFS order guarantees a
// parent arrives before its children).
type Writer struct {
	store       *catalog.Store
	suffixIndex *catalog.SuffixIndex
	rollup      *Rollup
	batchSize   int
	logger      *slog.Logger
	bus         *runtime.EventBus

	mu      sync.Mutex
	idCache map[string]int64 // normalized path -> file id
	roots   map[string]bool  // normalized root paths: treated as parent_id = null
}

// NewWriter creates a Writer. roots lists the configured crawl roots so
// their immediate children are written with parent_id = null (invariant
// 3.2.2: "is a declared root"). rollup receives every batch's touched
// parent ids and flushes folder_size recomputation after each commit.
func NewWriter(store *catalog.Store, suffixIndex *catalog.SuffixIndex, rollup *Rollup, batchSize int, roots []string, bus *runtime.EventBus, logger *slog.Logger) *Writer {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	if logger == nil {
		logger = slog.Default()
	}

	rootSet := make(map[string]bool, len(roots))
	for _, r := range roots {
		rootSet[pathfs.Normalize(r)] = true
	}

	return &Writer{
		store:       store,
		suffixIndex: suffixIndex,
		rollup:      rollup,
		batchSize:   batchSize,
		logger:      logger,
		bus:         bus,
		idCache:     make(map[string]int64),
		roots:       rootSet,
	}
}

// Run drains in, upserting batches of batchSize (or whatever remains when
// in closes), and checkpoints runID after every batch commit. Returns the
// total added/modified/skipped counts, every inaccessible path, and a
// multierr-combined cause covering all of them for the caller to attach to
// a single Index.Partial error instead of raising one per path. Added vs
// modified is approximated by whether the path is already in this writer's
// id cache (written earlier by this writer), since a precise pre-image comparison would require a
// read-before-write on every batch.
func (w *Writer) Run(ctx context.Context, in <-chan ClassifiedItem, runID int64) (added, modified, skipped int64, inaccessible []string, inaccessibleCause error, err error) {
	batch := make([]ClassifiedItem, 0, w.batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}

		a, m, flushErr := w.flushBatch(ctx, runID, batch)
		added += a
		modified += m

		batch = batch[:0]

		return flushErr
	}

	for {
		select {
		case <-ctx.Done():
			_ = flush()
			return added, modified, skipped, inaccessible, inaccessibleCause, ctx.Err()

		case item, ok := <-in:
			if !ok {
				if flushErr := flush(); flushErr != nil {
					return added, modified, skipped, inaccessible, inaccessibleCause, flushErr
				}

				return added, modified, skipped, inaccessible, inaccessibleCause, nil
			}

			if item.Inaccessible {
				skipped++
				inaccessible = append(inaccessible, item.Path)
				inaccessibleCause = multierr.Append(inaccessibleCause, fmt.Errorf("%s: %s", item.Path, item.InaccessibleWhy))
				w.logger.Warn("writer: skipping inaccessible path", "path", item.Path, "reason", item.InaccessibleWhy)

				continue
			}

			batch = append(batch, item)

			if len(batch) >= w.batchSize {
				if flushErr := flush(); flushErr != nil {
					return added, modified, skipped, inaccessible, inaccessibleCause, flushErr
				}
			}
		}
	}
}

// flushBatch upserts one batch in a single transaction (via
// Store.UpsertBatch), resolving each item's parent_id from the id cache
// or the declared-roots set, then checkpoints the run.
func (w *Writer) flushBatch(ctx context.Context, runID int64, batch []ClassifiedItem) (added, modified int64, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	records := make([]catalog.FileRecord, 0, len(batch))
	scope := make([]string, 0, len(batch))

	for _, item := range batch {
		rec := catalog.FileRecord{
			Path:          item.Path,
			Name:          filepath.Base(item.Path),
			Extension:     extensionOf(item.Path),
			Size:          item.Size,
			HasSize:       !item.IsDirectory,
			CreatedAt:     item.CreatedAt,
			ModifiedAt:    item.ModifiedAt,
			IsDirectory:   item.IsDirectory,
			CloudProvider: item.CloudProvider,
			CloudStatus:   item.CloudStatus,
			Fingerprint:   item.Fingerprint,
			Stale:         item.IsDirectory, // directories start stale until rollup computes folder_size
		}

		if moved, fpErr := w.store.GetByFingerprint(ctx, item.Fingerprint); fpErr == nil && moved != nil && moved.Path != item.Path {
			if renErr := w.store.Rename(ctx, moved.ID, item.Path, rec.Name); renErr != nil {
				return 0, 0, renErr
			}
		}

		if parentID, ok := w.resolveParent(item.ParentPath); ok {
			rec.ParentID = parentID
			rec.HasParent = true
		}

		records = append(records, rec)
		scope = append(scope, item.Path)

		if _, existed := w.idCache[pathfs.Normalize(item.Path)]; existed {
			modified++
		} else {
			added++
		}
	}

	if err := w.store.UpsertBatch(ctx, records); err != nil {
		return 0, 0, err
	}

	if err := w.refreshIDCache(ctx, records); err != nil {
		return 0, 0, err
	}

	// A child whose parent was written earlier in this same batch can only
	// be resolved now that the parent's id is cached.
	var fixups []catalog.FileRecord

	for i := range records {
		if parentID, ok := w.resolveParent(batch[i].ParentPath); ok && !records[i].HasParent {
			records[i].ParentID, records[i].HasParent = parentID, true
			fixups = append(fixups, records[i])
		}
	}

	if len(fixups) > 0 {
		if err := w.store.UpsertBatch(ctx, fixups); err != nil {
			return 0, 0, err
		}
	}

	for _, rec := range records {
		if id, ok := w.idCache[pathfs.Normalize(rec.Path)]; ok {
			w.suffixIndex.Upsert(id, pathfs.Normalize(rec.Name))
		}
	}

	if ckErr := w.store.CheckpointIndexRun(ctx, runID, scope[len(scope)-1], added, modified, 0); ckErr != nil {
		return added, modified, ckErr
	}

	if w.rollup != nil {
		w.rollup.MarkDirtyFromBatch(records)

		if err := w.rollup.Flush(ctx); err != nil {
			return added, modified, err
		}
	}

	if w.bus != nil {
		w.bus.Publish(ctx, TopicCatalogMutated, CatalogMutated{RunID: runID, PathScope: scope})
	}

	return added, modified, nil
}

// resolveParent looks up parentPath in the id cache, returning ok=false
// (parent_id = null) when parentPath is a declared root.
func (w *Writer) resolveParent(parentPath string) (int64, bool) {
	norm := pathfs.Normalize(parentPath)
	if w.roots[norm] {
		return 0, false
	}

	id, ok := w.idCache[norm]

	return id, ok
}

// refreshIDCache re-reads each written record's id from the store (the
// writer handle doesn't surface LastInsertId for a multi-row upsert) and
// populates the in-process cache so subsequent batches can resolve these
// paths as parents.
func (w *Writer) refreshIDCache(ctx context.Context, records []catalog.FileRecord) error {
	for _, rec := range records {
		stored, err := w.store.GetByPath(ctx, rec.Path)
		if err != nil {
			return err
		}

		if stored != nil {
			w.idCache[pathfs.Normalize(rec.Path)] = stored.ID
		}
	}

	return nil
}
