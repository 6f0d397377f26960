package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/panoptikon-app/panoptikon/internal/catalog"
)

// newMigrateCmd applies any pending schema migrations to the catalog
// database, backing it up first and verifying the result — catalog.Migrate
// already implements the whole backup/verify/restore sequence, so this
// command is a thin wiring layer over it.
func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending catalog schema migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrate(cmd)
		},
	}
}

func runMigrate(cmd *cobra.Command) error {
	cc := mustCLIContext(cmd.Context())

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	const readerPoolSize = 4

	pool, err := catalog.Open(ctx, cc.DBPath, readerPoolSize, cc.Logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := catalog.Migrate(ctx, pool.Writer(), cc.DBPath, cc.Logger); err != nil {
		return err
	}

	cc.Statusf("catalog at %s is up to date\n", cc.DBPath)

	return nil
}
