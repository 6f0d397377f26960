package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/panoptikon-app/panoptikon/internal/indexer"
	"github.com/panoptikon-app/panoptikon/internal/perror"
	"github.com/panoptikon-app/panoptikon/internal/runtime"
)

// newRebuildCmd discards the catalog database file and recrawls every
// configured root from scratch, the recovery path `doctor` points to when
// the integrity check fails.
func newRebuildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild",
		Short: "Discard the catalog and recrawl all configured roots from scratch",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRebuild(cmd)
		},
	}
}

func runRebuild(cmd *cobra.Command) error {
	cc := mustCLIContext(cmd.Context())

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if len(cc.Cfg.Indexer.Roots) == 0 {
		return perror.New(perror.CategoryConfigMissing, "cli.rebuild", "", "no roots configured: set [indexer].roots or pass --root", nil)
	}

	if err := removeCatalogFiles(cc.DBPath); err != nil {
		return perror.New(perror.CategoryIO, "cli.rebuild", "", "removing existing catalog files", err)
	}

	pool, store, suffix, err := openCatalog(ctx, cc)
	if err != nil {
		return err
	}
	defer pool.Close()

	bus := runtime.NewEventBus(cc.Logger)
	defer bus.Close()

	pipeline := indexer.NewPipeline(store, suffix, bus, cc.Cfg.Indexer, cc.Cfg.Cloud, nil, cc.Logger)

	result, err := pipeline.Run(shutdownContext(ctx, cc.Logger))
	reportIndexResult(cc, result)

	return err
}

// removeCatalogFiles deletes the SQLite main file and its WAL/SHM
// sidecars, ignoring a missing file (there is nothing to discard on a
// first-ever rebuild).
func removeCatalogFiles(path string) error {
	for _, suffix := range []string{"", "-wal", "-shm"} {
		if err := os.Remove(path + suffix); err != nil && !os.IsNotExist(err) {
			return err
		}
	}

	return nil
}
