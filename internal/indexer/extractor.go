package indexer

import (
	"context"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/panoptikon-app/panoptikon/internal/catalog"
	"github.com/panoptikon-app/panoptikon/internal/pathfs"
)

// defaultExtractorWorkers bounds the stat pool when the config leaves
// the worker count unset.
const defaultExtractorWorkers = 4

// Extractor batches stat-equivalent calls over a worker pool, tagging
// paths it cannot stat as inaccessible rather than failing the batch: a
// flat pool of goroutines pulling from one input channel, fanning results
// into one output channel.
type Extractor struct {
	provider pathfs.Provider
	workers  int
	logger   *slog.Logger
}

// NewExtractor creates an Extractor. workers <= 0 falls back to
// min(GOMAXPROCS, defaultExtractorWorkers).
func NewExtractor(provider pathfs.Provider, workers int, logger *slog.Logger) *Extractor {
	if provider == nil {
		provider = pathfs.NewOSProvider()
	}

	if workers <= 0 {
		workers = min(runtime.GOMAXPROCS(0), defaultExtractorWorkers)
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Extractor{provider: provider, workers: workers, logger: logger}
}

// Run reads ScanItems from in, stats each on the worker pool, and sends
// ExtractedItems to out. Run closes out when in is drained or ctx is
// canceled. Order is not preserved across the pool; downstream stages
// (classifier, writer) are order-independent.
func (e *Extractor) Run(ctx context.Context, in <-chan ScanItem, out chan<- ExtractedItem, pacer *Pacer) {
	defer close(out)

	var wg sync.WaitGroup

	for range e.workers {
		wg.Add(1)

		go func() {
			defer wg.Done()
			e.worker(ctx, in, out, pacer)
		}()
	}

	wg.Wait()
}

func (e *Extractor) worker(ctx context.Context, in <-chan ScanItem, out chan<- ExtractedItem, pacer *Pacer) {
	for {
		select {
		case <-ctx.Done():
			return
		case item, ok := <-in:
			if !ok {
				return
			}

			if pacer != nil {
				pacer.Wait()
			}

			extracted := e.extract(item)

			select {
			case out <- extracted:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (e *Extractor) extract(item ScanItem) ExtractedItem {
	info, err := e.provider.Stat(item.Path)
	if err != nil {
		e.logger.Warn("extractor: stat failed, marking inaccessible", "path", item.Path, "error", err)

		return ExtractedItem{
			ScanItem:        item,
			Inaccessible:    true,
			InaccessibleWhy: err.Error(),
		}
	}

	key := fingerprintOf(info)

	return ExtractedItem{
		ScanItem:    item,
		Size:        info.Size(),
		ModifiedAt:  info.ModTime().UTC().UnixNano(),
		CreatedAt:   info.ModTime().UTC().UnixNano(),
		IsDirectory: info.IsDir(),
		Fingerprint: catalog.Fingerprint{Inode: key.inode, Device: key.device},
	}
}

// extensionOf returns the lowercase extension of name, without the dot,
// or "" when there is none, the same convention the catalog schema
// stores.
func extensionOf(name string) string {
	ext := filepath.Ext(name)
	if ext == "" {
		return ""
	}

	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
