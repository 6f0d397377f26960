package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/panoptikon-app/panoptikon/internal/catalog"
	"github.com/panoptikon-app/panoptikon/internal/config"
	"github.com/panoptikon-app/panoptikon/internal/perror"
)

// version is overridden at build time with -ldflags.
var version = "dev"

// Persistent flag variables bound in newRootCmd and read by loadConfig.
// Package-level since cobra's PersistentPreRunE has no other clean way
// to see whether a flag was explicitly passed (cmd.Flags().Changed)
// without closing over these.
var (
	flagConfigPath string
	flagDBPath     string
	flagRoots      []string
	flagExclude    []string
	flagThreads    int
	flagThrottle   int
	flagFormat     string
	flagVerbose    bool
	flagDebug      bool
	flagQuiet      bool
)

// CLIContext carries the fully resolved configuration and logger every
// subcommand needs, stashed on the cobra command's context by
// PersistentPreRunE so subcommands never re-resolve it themselves.
type CLIContext struct {
	Cfg     *config.Config
	CfgPath string
	DBPath  string
	Logger  *slog.Logger
}

type cliContextKey struct{}

// cliContextFrom extracts the *CLIContext stashed by loadConfig, or nil if
// none is present (e.g. a unit test invoking a RunE directly).
func cliContextFrom(ctx context.Context) *CLIContext {
	cc, _ := ctx.Value(cliContextKey{}).(*CLIContext)

	return cc
}

// mustCLIContext extracts the *CLIContext, panicking if absent. Every
// subcommand's RunE runs after PersistentPreRunE has populated it, so a
// missing context means a test called RunE without going through Execute.
func mustCLIContext(ctx context.Context) *CLIContext {
	cc := cliContextFrom(ctx)
	if cc == nil {
		panic("main: CLIContext missing from command context")
	}

	return cc
}

// newRootCmd builds the panoptikon CLI: index/search/status/config/
// migrate/rebuild/doctor, wired over a shared catalog database resolved
// from --db/--config/env/defaults per internal/config.Resolve.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "panoptikon",
		Short: "Local filename search over an indexed catalog",
		Long: `Panoptikon indexes filesystem metadata into a local SQLite catalog and
answers filename search queries with sub-200ms latency, keeping the
catalog current with a background filesystem-event watcher.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return loadConfig(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path (default: platform config dir)")
	cmd.PersistentFlags().StringVar(&flagDBPath, "db", "", "catalog database path (default: platform data dir)")
	cmd.PersistentFlags().StringArrayVar(&flagRoots, "root", nil, "crawl root, repeatable (adds to [indexer].roots)")
	cmd.PersistentFlags().StringArrayVar(&flagExclude, "exclude", nil, "exclude glob, repeatable (replaces [indexer].exclude)")
	cmd.PersistentFlags().IntVar(&flagThreads, "threads", 0, "extractor worker pool size (0 = use config value)")
	cmd.PersistentFlags().IntVar(&flagThrottle, "throttle", 0, "crawl pacing target in files/sec (0 = uncapped)")
	cmd.PersistentFlags().StringVar(&flagFormat, "format", "", "output format: table or json (default: auto-detect)")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "info-level logging")
	cmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "debug-level logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress stderr status output")

	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newRebuildCmd())
	cmd.AddCommand(newDoctorCmd())

	return cmd
}

// loadConfig resolves the layered configuration (defaults -> file -> env ->
// CLI flags) and stashes the result as a *CLIContext on cmd's context, the
// single place every subcommand's view of config/db path/logger comes
// from.
func loadConfig(cmd *cobra.Command) error {
	bootstrapLogger := buildLogger(config.DefaultConfig())

	env := config.ReadEnvOverrides()

	cli := config.CLIOverrides{
		ConfigPath: flagConfigPath,
		DBPath:     flagDBPath,
		Roots:      flagRoots,
		Exclude:    flagExclude,
		Format:     flagFormat,
		Verbose:    flagVerbose,
		Quiet:      flagQuiet,
	}

	if cmd.Flags().Changed("threads") {
		t := flagThreads
		cli.Threads = &t
	}

	if cmd.Flags().Changed("throttle") {
		th := flagThrottle
		cli.Throttle = &th
	}

	cfg, dbPath, err := config.Resolve(env, cli, bootstrapLogger)
	if err != nil {
		return perror.New(perror.CategoryConfigInvalid, "cli.loadConfig", "", "resolving configuration", err)
	}

	cfgPath := config.ResolveConfigPath(env, cli, bootstrapLogger)
	logger := buildLogger(cfg)

	cc := &CLIContext{Cfg: cfg, CfgPath: cfgPath, DBPath: dbPath, Logger: logger}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cmd.SetContext(context.WithValue(ctx, cliContextKey{}, cc))

	return nil
}

// buildLogger builds the shared structured logger, honoring --debug >
// --verbose > [logging].log_level, in that order, and writing to
// [logging].log_file when set (falling back to stderr).
func buildLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelWarn

	if cfg != nil {
		switch cfg.Logging.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "info":
			level = slog.LevelInfo
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}

	if flagVerbose {
		level = slog.LevelInfo
	}

	if flagDebug {
		level = slog.LevelDebug
	}

	var w io.Writer = os.Stderr

	if cfg != nil && cfg.Logging.LogFile != "" {
		if f, err := os.OpenFile(cfg.Logging.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644); err == nil {
			w = f
		}
	}

	opts := &slog.HandlerOptions{Level: level}

	if cfg != nil && cfg.Logging.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}

	return slog.New(slog.NewTextHandler(w, opts))
}

// openCatalog opens (migrating if needed) the catalog database at
// cc.DBPath and rebuilds an in-memory suffix index from its current
// contents — every CLI invocation is a fresh process with no surviving
// in-memory state, so the suffix index (which has no on-disk
// representation) is rebuilt on every command that needs one.
func openCatalog(ctx context.Context, cc *CLIContext) (*catalog.Pool, *catalog.Store, *catalog.SuffixIndex, error) {
	const readerPoolSize = 4

	pool, err := catalog.Open(ctx, cc.DBPath, readerPoolSize, cc.Logger)
	if err != nil {
		return nil, nil, nil, err
	}

	if err := catalog.Migrate(ctx, pool.Writer(), cc.DBPath, cc.Logger); err != nil {
		pool.Close()

		return nil, nil, nil, err
	}

	store := catalog.NewStore(pool)
	suffix := catalog.NewSuffixIndex()

	if err := catalog.RebuildSuffixIndex(ctx, store, suffix); err != nil {
		pool.Close()

		return nil, nil, nil, err
	}

	return pool, store, suffix, nil
}

// exitOnError prints err (if non-nil) and exits with its mapped category
// code from internal/perror.ExitCode's category table.
func exitOnError(err error) {
	if err == nil {
		return
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(perror.ExitCode(err))
}
