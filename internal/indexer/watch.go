package indexer

import (
	"context"
	"sync"

	"github.com/panoptikon-app/panoptikon/internal/fsevents"
)

// Watch runs one full pass immediately, then re-runs Run every time a
// coalesced batch of filesystem changes arrives for any configured root,
// until ctx is canceled. Several batches arriving close together collapse
// into a single re-run (drainPending), since a Run pass already
// re-reconciles the whole tree and there is nothing to gain from queuing
// up repeat passes. This is the CLI's stand-in for the full per-event
// incremental-write path a UI-embedded indexer would eventually want:
// coarser, but it reuses Run's existing run bookkeeping and
// deletion-reconciliation logic instead of duplicating it at file
// granularity.
func (p *Pipeline) Watch(ctx context.Context) error {
	if _, err := p.Run(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		p.logger.Warn("pipeline: initial watch pass reported an error", "error", err)
	}

	batches := make(chan fsevents.Batch, len(p.cfg.Roots)+1)

	var wg sync.WaitGroup

	for _, root := range p.cfg.Roots {
		root := root

		src := fsevents.NewSource(root, fsevents.Options{Logger: p.logger, Bus: p.bus})

		wg.Add(1)

		go func() {
			defer wg.Done()

			if err := src.Run(ctx, batches); err != nil && ctx.Err() == nil {
				p.logger.Error("pipeline: watch source stopped", "root", root, "error", err)
			}
		}()
	}

	go func() {
		wg.Wait()
		close(batches)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-batches:
			if !ok {
				return nil
			}

			drainPending(batches)

			if _, err := p.Run(ctx); err != nil && ctx.Err() == nil {
				p.logger.Warn("pipeline: watch re-run reported an error", "error", err)
			}
		}
	}
}

// drainPending discards every batch already queued, so a burst of
// filesystem activity triggers one re-run instead of one per batch.
func drainPending(batches <-chan fsevents.Batch) {
	for {
		select {
		case _, ok := <-batches:
			if !ok {
				return
			}
		default:
			return
		}
	}
}
