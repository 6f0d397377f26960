package fsevents

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/panoptikon-app/panoptikon/internal/runtime"
)

// Defaults for Source, overridable via Options.
const (
	defaultBatchChannelSize = 64
	defaultFlushInterval    = 200 * time.Millisecond
	defaultShadowInterval   = 5 * time.Minute
	defaultShadowSample     = 25
)

// TopicRescanRequired is the event bus topic Source publishes RescanRequired on.
const TopicRescanRequired = "fsevents.rescan_required"

// Options configures a Source. Zero values fall back to package defaults.
type Options struct {
	CoalesceWindow  time.Duration
	FlushInterval   time.Duration
	PollInterval    time.Duration
	BatchChanSize   int
	ShadowInterval  time.Duration
	ShadowSampleMax int
	Logger          *slog.Logger
	Bus             *runtime.EventBus
}

// Source watches one root directory, coalesces raw events into batches,
// falls back to polling when a native watch cannot be established, and
// periodically runs a sampled shadow check of the root's listing:
// recursive watch registration, a select loop over events/errors/ticks,
// and an exponential backoff on watcher errors (the same watcher is kept;
// it is not re-created).
type Source struct {
	root      string
	watcher   Watcher
	coalescer *Coalescer
	poller    *poller
	logger    *slog.Logger
	bus       *runtime.EventBus

	flushInterval   time.Duration
	shadowInterval  time.Duration
	shadowSampleMax int
	batchChanSize   int

	droppedBatches int64
	usingPoll      bool

	watcherFactory func() (Watcher, error)
}

// NewSource creates a Source rooted at root. The watch/poll loop does not
// start until Run is called.
func NewSource(root string, opts Options) *Source {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	coalesceWindow := opts.CoalesceWindow
	if coalesceWindow <= 0 {
		coalesceWindow = defaultCoalesceWindow
	}

	flushInterval := opts.FlushInterval
	if flushInterval <= 0 {
		flushInterval = defaultFlushInterval
	}

	shadowInterval := opts.ShadowInterval
	if shadowInterval <= 0 {
		shadowInterval = defaultShadowInterval
	}

	shadowSample := opts.ShadowSampleMax
	if shadowSample <= 0 {
		shadowSample = defaultShadowSample
	}

	batchChanSize := opts.BatchChanSize
	if batchChanSize <= 0 {
		batchChanSize = defaultBatchChannelSize
	}

	return &Source{
		root:            root,
		coalescer:       NewCoalescer(coalesceWindow, logger),
		poller:          newPoller(root, opts.PollInterval, logger),
		logger:          logger,
		bus:             opts.Bus,
		flushInterval:   flushInterval,
		shadowInterval:  shadowInterval,
		shadowSampleMax: shadowSample,
		batchChanSize:   batchChanSize,
		watcherFactory:  newFsnotifyWatcher,
	}
}

// Run starts watching root and sends coalesced batches to out until ctx
// is canceled. out is closed when Run returns. If a native watch cannot
// be established at all (not even the root), Run falls back to polling
// only, logging the reason rather than failing outright — a watched
// Panoptikon should still degrade to eventual consistency on a denied or
// unsupported mount rather than refuse to index it.
func (s *Source) Run(ctx context.Context, out chan<- Batch) error {
	defer close(out)

	flushCh := make(chan Batch, s.batchChanSize)
	go s.coalescer.Run(ctx, s.flushInterval, flushCh)

	watcher, err := s.watcherFactory()
	if err != nil {
		s.logger.Warn("native watcher unavailable, falling back to polling",
			"root", s.root, "error", err)

		s.usingPoll = true
		go s.poller.run(ctx, s.coalescer)
	} else {
		s.watcher = watcher
		defer watcher.Close()

		if addErr := s.addWatchesRecursive(watcher); addErr != nil {
			s.logger.Warn("recursive watch setup incomplete, supplementing with polling",
				"root", s.root, "error", addErr)

			s.usingPoll = true
			go s.poller.run(ctx, s.coalescer)
		}

		go s.watchLoop(ctx, watcher)
	}

	go s.shadowVerifyLoop(ctx)

	return s.forwardWithBackpressure(ctx, flushCh, out)
}

// forwardWithBackpressure relays batches from in to out. When out is full
// (the consumer is behind), the batch is merged into the coalescer instead
// of being dropped, so the next flush carries every path forward — the
// coalescer's last-writer-wins semantics give this for free.
func (s *Source) forwardWithBackpressure(ctx context.Context, in <-chan Batch, out chan<- Batch) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case batch, ok := <-in:
			if !ok {
				return nil
			}

			select {
			case out <- batch:
			default:
				s.droppedBatches++
				s.coalescer.AddAll(batch.Paths)

				s.logger.Warn("output channel full, merging batch back into coalescer",
					"paths", len(batch.Paths), "total_merges", s.droppedBatches)
			}
		}
	}
}

// addWatchesRecursive walks root and adds a watch on every directory,
// mirroring observer_local.go's addWatchesRecursive. A failed Add is
// logged and the walk continues; the first such error is returned so Run
// supplements the native watch with polling.
func (s *Source) addWatchesRecursive(watcher Watcher) error {
	var firstAddErr error

	walkErr := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			s.logger.Warn("walk error during watch setup", "path", path, "error", walkErr)
			return nil
		}

		if !d.IsDir() {
			return nil
		}

		if addErr := watcher.Add(path); addErr != nil {
			s.logger.Warn("failed to add watch", "path", path, "error", addErr)

			if firstAddErr == nil {
				firstAddErr = addErr
			}
		}

		return nil
	})
	if walkErr != nil {
		return walkErr
	}

	return firstAddErr
}

// watchLoop is the select loop over watcher events/errors, adapted from
// observer_local_handlers.go's watchLoop with the sync-specific baseline
// lookups stripped out: this layer only needs to know a path is dirty,
// not what changed about it.
func (s *Source) watchLoop(ctx context.Context, watcher Watcher) {
	backoff := watchErrInitBackoff

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-watcher.Events():
			if !ok {
				return
			}

			s.handleEvent(watcher, ev)
			backoff = watchErrInitBackoff

		case watchErr, ok := <-watcher.Errors():
			if !ok {
				return
			}

			s.logger.Warn("filesystem watcher error", "error", watchErr, "backoff", backoff)

			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return
			}

			if !rootExists(s.root) {
				s.logger.Error("watch root no longer exists, stopping native watch", "root", s.root)
				return
			}

			backoff *= 2
			if backoff > watchErrMaxBackoff {
				backoff = watchErrMaxBackoff
			}
		}
	}
}

const (
	watchErrInitBackoff = 1 * time.Second
	watchErrMaxBackoff  = 30 * time.Second
)

// handleEvent converts one fsnotify.Event into a DirtyPath and adds a
// watch on newly created directories.
func (s *Source) handleEvent(watcher Watcher, ev fsnotify.Event) {
	if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return
	}

	kind := fromFsnotify(ev.Op)
	isDir := false

	if kind == ChangeCreate {
		if info, err := os.Stat(ev.Name); err == nil {
			isDir = info.IsDir()

			if isDir {
				if addErr := watcher.Add(ev.Name); addErr != nil {
					s.logger.Warn("failed to add watch on new directory", "path", ev.Name, "error", addErr)
				}
			}
		}
	}

	s.coalescer.Add(DirtyPath{Path: ev.Name, Kind: kind, Seen: time.Now(), IsDir: isDir, Watched: true})
}

// shadowVerifyLoop runs shadowVerifyOnce every shadowInterval, publishing
// RescanRequired when a sample fails. The sampled listing is only stat-ed;
// it is not compared with the coalescer's pending set or with the
// catalog, so an event the watcher missed for a path that still exists is
// not detected.
func (s *Source) shadowVerifyLoop(ctx context.Context) {
	if s.bus == nil {
		return
	}

	ticker := time.NewTicker(s.shadowInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.shadowVerifyOnce(ctx)
		}
	}
}

// shadowVerifyOnce samples up to shadowSampleMax entries under root and
// stats each one; a failed stat or walk error is treated as evidence the watch stream
// has drifted rather than proof of a specific missed event, so the
// response is a full RescanRequired rather than a targeted repair.
func (s *Source) shadowVerifyOnce(ctx context.Context) {
	count := 0
	mismatch := false

	walkErr := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if err != nil {
			return nil
		}

		if count >= s.shadowSampleMax {
			return filepath.SkipAll
		}

		count++

		if _, statErr := os.Stat(path); statErr != nil {
			mismatch = true
		}

		return nil
	})

	if walkErr != nil && walkErr != filepath.SkipAll && ctx.Err() == nil {
		mismatch = true
	}

	if mismatch && ctx.Err() == nil {
		s.bus.Publish(ctx, TopicRescanRequired, RescanRequired{
			Root:   s.root,
			Reason: "shadow verification sample diverged from live filesystem state",
		})
	}
}
