package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/panoptikon-app/panoptikon/internal/config"
	"github.com/panoptikon-app/panoptikon/internal/indexer"
	"github.com/panoptikon-app/panoptikon/internal/perror"
	"github.com/panoptikon-app/panoptikon/internal/runtime"
)

// newIndexCmd crawls the configured roots (plus any given as arguments)
// into the catalog, either as a one-shot run or continuously with
// --watch.
func newIndexCmd() *cobra.Command {
	var watch, reload bool

	cmd := &cobra.Command{
		Use:   "index [paths...]",
		Short: "Crawl configured roots (plus any given here) into the catalog",
		Long: `Runs one indexing pass: crawl, extract metadata, classify cloud status,
and write batches into the catalog, rolling up folder sizes as it goes.
Positional paths are added to the configured [indexer] roots for this run.
With --watch, the indexer keeps running and re-indexes whenever a
filesystem-event batch arrives for a configured root, until interrupted.
With --reload, sends SIGHUP to an already-running "index --watch" process
so it re-reads its config file, instead of starting a new run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if reload {
				return runIndexReload()
			}

			return runIndex(cmd, args, watch)
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "keep running and re-index on filesystem changes")
	cmd.Flags().BoolVar(&reload, "reload", false, "signal a running \"index --watch\" to reload its config, then exit")

	return cmd
}

// runIndexReload signals the "index --watch" process tracked by the
// standard PID file to reload its on-disk config (signal.go's sighupChannel
// on the receiving end), without starting a competing run itself.
func runIndexReload() error {
	pidPath := filepath.Join(config.DefaultStateDir(), "index-watch.pid")

	return sendSIGHUP(pidPath)
}

func runIndex(cmd *cobra.Command, args []string, watch bool) error {
	cc := mustCLIContext(cmd.Context())

	cfgCopy := *cc.Cfg
	cfgCopy.Indexer.Roots = append(append([]string{}, cc.Cfg.Indexer.Roots...), args...)

	if len(cfgCopy.Indexer.Roots) == 0 {
		return perror.New(perror.CategoryConfigMissing, "cli.index", "", "no roots configured: pass paths or set [indexer].roots", nil)
	}

	ctx := shutdownContext(cmd.Context(), cc.Logger)

	pool, store, suffix, err := openCatalog(ctx, cc)
	if err != nil {
		return err
	}
	defer pool.Close()

	bus := runtime.NewEventBus(cc.Logger)
	defer bus.Close()

	pipeline := indexer.NewPipeline(store, suffix, bus, cfgCopy.Indexer, cfgCopy.Cloud, nil, cc.Logger)

	if watch {
		return runIndexWatch(ctx, cc, pipeline, cfgCopy, bus)
	}

	result, err := pipeline.Run(ctx)
	reportIndexResult(cc, result)

	if err != nil {
		return err
	}

	if len(result.Inaccessible) > 0 {
		return perror.New(perror.CategoryIndexPartial, "cli.index",
			fmt.Sprintf("%d", result.RunID),
			fmt.Sprintf("%d paths were inaccessible during this run", len(result.Inaccessible)), result.InaccessibleCause)
	}

	return nil
}

// runIndexWatch runs the pipeline's continuous filesystem-event-triggered
// mode, guarded by a PID file so only one watcher runs against a given
// data directory at a time. SIGHUP reloads and re-validates
// the on-disk config and publishes the diff as a config.ConfigChanged
// event on the bus; the running pipeline's own crawl
// parameters still take effect starting from the next watch restart,
// since Pipeline bakes its config in at construction.
func runIndexWatch(ctx context.Context, cc *CLIContext, pipeline *indexer.Pipeline, cfg config.Config, bus *runtime.EventBus) error {
	pidPath := filepath.Join(config.DefaultStateDir(), "index-watch.pid")

	cleanup, err := writePIDFile(pidPath)
	if err != nil {
		return perror.New(perror.CategoryIO, "cli.index.watch", "", err.Error(), err)
	}
	defer cleanup()

	holder := config.NewHolder(&cfg, cc.CfgPath)
	sighup := sighupChannel()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-sighup:
				reloaded, loadErr := config.Load(holder.Path(), cc.Logger)
				if loadErr != nil {
					cc.Logger.Warn("index --watch: config reload failed", "error", loadErr)

					continue
				}

				previous := holder.Update(reloaded)

				if bus != nil {
					bus.Publish(ctx, config.TopicConfigChanged, config.ConfigChanged{Old: previous, New: reloaded})
				}

				cc.Logger.Info("index --watch: config reloaded; new crawl parameters apply on next restart")
			}
		}
	}()

	statusf("watching %d root(s) for changes (pid %d)\n", len(cfg.Indexer.Roots), os.Getpid())

	return pipeline.Watch(ctx)
}

func reportIndexResult(cc *CLIContext, result indexer.Result) {
	cc.Statusf("indexed: +%d ~%d -%d (skipped %d)\n", result.Added, result.Modified, result.Deleted, result.Skipped)

	if result.Degraded {
		cc.Statusf("catalog writes are degraded after repeated failures; indexing is paused until `panoptikon doctor` passes\n")
	}
}
