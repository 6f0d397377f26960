package indexer

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/panoptikon-app/panoptikon/internal/catalog"
	"github.com/panoptikon-app/panoptikon/internal/config"
	"github.com/panoptikon-app/panoptikon/internal/pathfs"
	"github.com/panoptikon-app/panoptikon/internal/perror"
	"github.com/panoptikon-app/panoptikon/internal/runtime"
)

// defaultShutdownGrace bounds how long a canceled pipeline run waits for
// in-flight stages to drain before returning.
const defaultShutdownGrace = 2 * time.Second

// Pipeline wires crawler -> extractor -> classifier -> writer (with
// rollup) into one indexing run, publishing progress on the shared event
// bus and checkpointing its IndexRun after every batch. An unfinished run
// record is reused by the next Run, which still crawls every root.
type Pipeline struct {
	store       *catalog.Store
	suffixIndex *catalog.SuffixIndex
	bus         *runtime.EventBus
	logger      *slog.Logger
	cfg         config.IndexerConfig
	cloud       config.CloudConfig
	provider    pathfs.Provider
}

// NewPipeline creates a Pipeline bound to store, an event bus, and the
// resolved indexer and cloud config sections.
func NewPipeline(store *catalog.Store, suffixIndex *catalog.SuffixIndex, bus *runtime.EventBus, cfg config.IndexerConfig, cloud config.CloudConfig, provider pathfs.Provider, logger *slog.Logger) *Pipeline {
	if provider == nil {
		provider = pathfs.NewOSProvider()
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Pipeline{
		store:       store,
		suffixIndex: suffixIndex,
		bus:         bus,
		logger:      logger,
		cfg:         cfg,
		cloud:       cloud,
		provider:    provider,
	}
}

// Run executes one full indexing pass: reuses the most recent unfinished
// run record if one exists, otherwise begins a new one, then crawls every
// configured root from the start (a reused record's cursor is not used to
// skip ahead), extracts and classifies each entry,
// writes batches (rolling up folder sizes as it goes), reconciles
// deletions (skipped when a record was reused), and finishes the run. Run
// respects ctx cancellation, allowing in-flight stages up to
// defaultShutdownGrace to drain before it returns an error wrapping
// ctx.Err().
func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	started := time.Now()

	runID, resuming, err := p.beginOrResumeRun(ctx, started)
	if err != nil {
		return Result{}, err
	}

	rules := p.buildRules()

	crawler := NewCrawler(CrawlOptions{
		Roots:          p.cfg.Roots,
		Rules:          rules,
		MaxDepth:       p.cfg.MaxDepth,
		FollowSymlinks: p.cfg.FollowSymlinks,
		Provider:       p.provider,
		Logger:         p.logger,
	})

	extractor := NewExtractor(p.provider, p.cfg.Threads, p.logger)
	classifier := NewClassifier(p.cloud)
	rollup := NewRollup(p.store, p.logger)
	writer := NewWriter(p.store, p.suffixIndex, rollup, p.cfg.BatchSize, p.cfg.Roots, p.bus, p.logger)
	pacer := NewPacer(p.cfg.ThrottleFiles)

	scanCh := make(chan ScanItem, p.queueCapacity())
	extractedCh := make(chan ExtractedItem, p.queueCapacity())
	classifiedCh := make(chan ClassifiedItem, p.queueCapacity())

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// group's derived context is canceled the instant any stage returns a
	// non-nil error, so a crawler failure stops the extractor/classifier
	// goroutines (which both select on ctx.Done in their own Run loops)
	// and the inline writer.Run below promptly instead of draining every
	// channel to completion first.
	group, groupCtx := errgroup.WithContext(runCtx)

	group.Go(func() error {
		return crawler.Walk(groupCtx, scanCh, p.reportProgress(runID, "crawl"))
	})
	group.Go(func() error {
		extractor.Run(groupCtx, scanCh, extractedCh, pacer)
		return nil
	})
	group.Go(func() error {
		classifier.Run(groupCtx, extractedCh, classifiedCh)
		return nil
	})

	added, modified, skipped, inaccessiblePaths, inaccessibleCause, writeErr := writer.Run(groupCtx, classifiedCh, runID)

	canceled := false

	groupDone := make(chan error, 1)
	go func() { groupDone <- group.Wait() }()

	select {
	case groupErr := <-groupDone:
		if groupErr != nil {
			if ctx.Err() != nil {
				canceled = true
			} else if writeErr == nil {
				writeErr = groupErr
			}
		}
	case <-time.After(defaultShutdownGrace):
		p.logger.Warn("pipeline: stages did not stop within grace period", "grace", defaultShutdownGrace)
	}

	deleted := int64(0)

	if writeErr == nil && !canceled {
		deleted, err = p.reconcileDeletions(ctx, resuming)
		if err != nil {
			writeErr = err
		}
	}

	finished := time.Now()

	if finErr := p.store.FinishIndexRun(ctx, runID, finished.UTC().UnixNano()); finErr != nil && writeErr == nil {
		writeErr = finErr
	}

	degradedCategory, _ := perror.CategoryOf(writeErr)

	result := Result{
		RunID:             runID,
		Started:           started,
		Finished:          finished,
		Added:             added,
		Modified:          modified,
		Deleted:           deleted,
		Skipped:           skipped,
		Canceled:          canceled,
		Degraded:          degradedCategory == perror.CategoryCatalogDegraded,
		Inaccessible:      inaccessiblePaths,
		InaccessibleCause: inaccessibleCause,
	}

	if p.bus != nil {
		p.bus.Publish(ctx, TopicRunFinished, result)
	}

	if canceled {
		return result, ctx.Err()
	}

	return result, writeErr
}

// beginOrResumeRun loads the most recent unfinished run or starts a
// fresh one.
func (p *Pipeline) beginOrResumeRun(ctx context.Context, started time.Time) (runID int64, resuming bool, err error) {
	prior, err := p.store.LoadResumableRun(ctx)
	if err != nil {
		return 0, false, err
	}

	if prior != nil {
		p.logger.Info("pipeline: resuming unfinished index run", "run_id", prior.ID, "cursor", prior.Cursor)
		return prior.ID, true, nil
	}

	runID, err = p.store.BeginIndexRun(ctx, started.UTC().UnixNano())

	return runID, false, err
}

// buildRules compiles the configured exclude patterns into a rule set.
// Roots are implicitly included; every configured exclude pattern becomes
// an exclusion rule.
func (p *Pipeline) buildRules() *pathfs.CompiledRules {
	rules := make([]pathfs.Rule, 0, len(p.cfg.Exclude))
	for _, pattern := range p.cfg.Exclude {
		rules = append(rules, pathfs.Rule{Pattern: pattern, Exclude: true})
	}

	return pathfs.Compile(rules)
}

func (p *Pipeline) queueCapacity() int {
	if p.cfg.QueueCapacity > 0 {
		return p.cfg.QueueCapacity
	}

	return 1024
}

// reportProgress returns a crawler progress callback that publishes a
// Progress event on the shared bus, throttled implicitly by the
// crawler's own per-directory call cadence.
func (p *Pipeline) reportProgress(runID int64, phase string) func(scanned int64) {
	return func(scanned int64) {
		if p.bus == nil {
			return
		}

		p.bus.Publish(context.Background(), TopicProgress, Progress{
			RunID:   runID,
			Scanned: scanned,
			Phase:   phase,
		})
	}
}

// reconcileDeletions removes catalog records under the configured roots
// that are no longer reachable on disk, driven off a fresh stat of each
// known record rather than a diff against the just-completed crawl. It is
// skipped when the run reused an unfinished run record (resuming); the
// crawler does not read the stored cursor, so such a run still crawls
// every root from the start.
func (p *Pipeline) reconcileDeletions(ctx context.Context, resuming bool) (int64, error) {
	if resuming {
		p.logger.Info("pipeline: skipping deletion reconciliation on a resumed run")
		return 0, nil
	}

	roots := make(map[string]bool, len(p.cfg.Roots))

	for _, root := range p.cfg.Roots {
		abs, err := pathfs.Canonicalize(root)
		if err != nil {
			continue
		}

		roots[abs] = true
	}

	topLevel, err := p.store.ListRootChildren(ctx)
	if err != nil {
		return 0, err
	}

	var deleted int64

	for _, rec := range topLevel {
		if !roots[filepath.Dir(rec.Path)] {
			continue
		}

		n, err := p.pruneIfMissing(ctx, rec)
		deleted += n

		if err != nil {
			return deleted, err
		}
	}

	return deleted, nil
}

// pruneIfMissing removes rec (and, if it is a directory, every descendant)
// when it can no longer be stat'd; otherwise it recurses into present
// directories to check their children. Returns the count removed.
func (p *Pipeline) pruneIfMissing(ctx context.Context, rec catalog.FileRecord) (int64, error) {
	if _, err := p.provider.Stat(rec.Path); err != nil {
		return p.deleteSubtree(ctx, rec)
	}

	if !rec.IsDirectory {
		return 0, nil
	}

	children, err := p.store.ListChildren(ctx, rec.ID)
	if err != nil {
		return 0, err
	}

	var removed int64

	for _, child := range children {
		n, err := p.pruneIfMissing(ctx, child)
		removed += n

		if err != nil {
			return removed, err
		}
	}

	return removed, nil
}

// deleteSubtree removes rec and, recursively, every catalog descendant of
// rec, since a vanished directory's children can no longer be stat'd
// individually either.
func (p *Pipeline) deleteSubtree(ctx context.Context, rec catalog.FileRecord) (int64, error) {
	var removed int64

	if rec.IsDirectory {
		children, err := p.store.ListChildren(ctx, rec.ID)
		if err != nil {
			return removed, err
		}

		for _, child := range children {
			n, err := p.deleteSubtree(ctx, child)
			removed += n

			if err != nil {
				return removed, err
			}
		}
	}

	if err := p.store.Delete(ctx, rec.Path); err != nil {
		return removed, err
	}

	if p.suffixIndex != nil {
		p.suffixIndex.Remove(rec.ID)
	}

	return removed + 1, nil
}
