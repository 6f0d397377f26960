package fsevents

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// defaultCoalesceWindow is how long a dirty path waits for more events
// before it is included in a flush.
const defaultCoalesceWindow = 200 * time.Millisecond

// Coalescer groups raw per-path events into path-keyed last-writer-wins
// state, flushing a sorted Batch once a path was first marked dirty at
// least the coalesce window ago. Later events for a pending path replace
// its entry but keep its first-seen time, so the window is fixed rather
// than reset on every event,
// since the indexer wants a steady flush cadence under sustained write
// storms rather than being pushed back indefinitely by a busy directory.
type Coalescer struct {
	mu      sync.Mutex
	pending map[string]*DirtyPath
	window  time.Duration
	logger  *slog.Logger
}

// NewCoalescer creates a Coalescer with the given window (defaultCoalesceWindow
// if zero or negative).
func NewCoalescer(window time.Duration, logger *slog.Logger) *Coalescer {
	if window <= 0 {
		window = defaultCoalesceWindow
	}

	return &Coalescer{
		pending: make(map[string]*DirtyPath),
		window:  window,
		logger:  logger,
	}
}

// Add records one dirty path, overwriting any prior entry for the same
// path (last-writer-wins) while keeping that entry's Seen time.
func (c *Coalescer) Add(dp DirtyPath) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if prev, ok := c.pending[dp.Path]; ok {
		dp.Seen = prev.Seen
	}

	c.pending[dp.Path] = &dp
}

// AddAll records a batch of dirty paths under a single lock acquisition,
// mirroring Buffer.AddAll's rationale: avoids per-event lock overhead
// when a polling sweep or directory scan produces many paths at once.
func (c *Coalescer) AddAll(paths []DirtyPath) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range paths {
		dp := paths[i]
		if prev, ok := c.pending[dp.Path]; ok {
			dp.Seen = prev.Seen
		}

		c.pending[dp.Path] = &dp
	}
}

// FlushReady returns every path first marked dirty at least the coalesce
// window ago, removing them from the pending set. Paths still within
// their window stay pending for the next call.
func (c *Coalescer) FlushReady(now time.Time) Batch {
	c.mu.Lock()
	defer c.mu.Unlock()

	var ready []DirtyPath

	for path, dp := range c.pending {
		if now.Sub(dp.Seen) >= c.window {
			ready = append(ready, *dp)
			delete(c.pending, path)
		}
	}

	sort.Slice(ready, func(i, j int) bool { return ready[i].Path < ready[j].Path })

	return Batch{Paths: ready}
}

// FlushAll returns and clears every pending path regardless of how long
// it has been dirty, used when shutting down or when the caller needs a
// final drain.
func (c *Coalescer) FlushAll() Batch {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.pending) == 0 {
		return Batch{}
	}

	result := make([]DirtyPath, 0, len(c.pending))
	for _, dp := range c.pending {
		result = append(result, *dp)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Path < result[j].Path })

	c.pending = make(map[string]*DirtyPath)

	return Batch{Paths: result}
}

// Len returns the number of distinct paths currently pending.
func (c *Coalescer) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.pending)
}

// Run drives periodic FlushReady calls on tickInterval, sending non-empty
// batches to out until ctx is canceled. A final FlushAll drains any
// remaining paths before out is closed.
func (c *Coalescer) Run(ctx context.Context, tickInterval time.Duration, out chan<- Batch) {
	defer close(out)

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if batch := c.FlushAll(); len(batch.Paths) > 0 {
				select {
				case out <- batch:
				default:
					if c.logger != nil {
						c.logger.Warn("final coalescer drain discarded: output channel full",
							"paths", len(batch.Paths))
					}
				}
			}

			return

		case now := <-ticker.C:
			if batch := c.FlushReady(now); len(batch.Paths) > 0 {
				select {
				case out <- batch:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}
