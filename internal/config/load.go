package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/BurntSushi/toml"
)

// CLIOverrides carries config-shaped values parsed from persistent CLI
// flags. Pointer fields distinguish "flag not passed" (nil) from "flag
// passed with the zero value".
type CLIOverrides struct {
	ConfigPath string
	DBPath     string
	Roots      []string
	Exclude    []string
	Threads    *int
	Throttle   *int
	Format     string
	Verbose    bool
	Quiet      bool
}

// Load reads and parses a TOML config file into a Config seeded with
// defaults, validates it, and returns the result. Unknown keys are
// rejected so typos in the config file fail loudly instead of being
// silently ignored.
func Load(path string, logger *slog.Logger) (*Config, error) {
	logger.Debug("loading config file", "path", path)

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}

		return nil, fmt.Errorf("parsing config file %s: unknown keys: %v", path, keys)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	logger.Debug("config file parsed successfully", "path", path)

	return cfg, nil
}

// LoadOrDefault reads a TOML config file if it exists, otherwise returns a
// Config populated with all default values. This supports the zero-config
// first-run experience: Panoptikon runs without requiring a config file.
func LoadOrDefault(path string, logger *slog.Logger) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		logger.Debug("config file not found, using defaults", "path", path)

		return DefaultConfig(), nil
	}

	return Load(path, logger)
}

// ResolveConfigPath determines the config file path using the three-layer
// priority: CLI flag > environment variable > platform default.
func ResolveConfigPath(env EnvOverrides, cli CLIOverrides, logger *slog.Logger) string {
	cfgPath := DefaultConfigPath()
	source := "default"

	if env.ConfigPath != "" {
		cfgPath = env.ConfigPath
		source = "env"
	}

	if cli.ConfigPath != "" {
		cfgPath = cli.ConfigPath
		source = "cli"
	}

	logger.Debug("config path resolved", "path", cfgPath, "source", source)

	return cfgPath
}

// ResolveDBPath determines the catalog database path using the same
// three-layer priority as ResolveConfigPath.
func ResolveDBPath(env EnvOverrides, cli CLIOverrides, logger *slog.Logger) string {
	dbPath := DefaultDBPath()
	source := "default"

	if env.DBPath != "" {
		dbPath = env.DBPath
		source = "env"
	}

	if cli.DBPath != "" {
		dbPath = cli.DBPath
		source = "cli"
	}

	logger.Debug("db path resolved", "path", dbPath, "source", source)

	return dbPath
}

// Resolve applies the full four-layer override chain (defaults -> config
// file -> environment -> CLI flags) and returns the fully resolved Config
// together with the catalog database path. It is the single entry point
// PersistentPreRunE should call.
func Resolve(env EnvOverrides, cli CLIOverrides, logger *slog.Logger) (*Config, string, error) {
	cfgPath := ResolveConfigPath(env, cli, logger)

	cfg, err := LoadOrDefault(cfgPath, logger)
	if err != nil {
		return nil, "", fmt.Errorf("loading config: %w", err)
	}

	applyCLIOverrides(cfg, cli)

	if err := Validate(cfg); err != nil {
		return nil, "", fmt.Errorf("config validation: %w", err)
	}

	dbPath := ResolveDBPath(env, cli, logger)

	return cfg, dbPath, nil
}

// applyCLIOverrides mutates cfg in place with any CLI flags the user
// passed explicitly. Unset fields (nil pointers, empty strings/slices)
// leave the loaded value untouched.
func applyCLIOverrides(cfg *Config, cli CLIOverrides) {
	if len(cli.Roots) > 0 {
		cfg.Indexer.Roots = cli.Roots
	}

	if len(cli.Exclude) > 0 {
		cfg.Indexer.Exclude = cli.Exclude
	}

	if cli.Threads != nil {
		cfg.Indexer.Threads = *cli.Threads
	}

	if cli.Throttle != nil {
		cfg.Indexer.ThrottleFiles = *cli.Throttle
	}

	if cli.Format != "" {
		cfg.UI.Format = cli.Format
	}

	if cli.Quiet {
		cfg.UI.Quiet = true
	}

	if cli.Verbose {
		cfg.Logging.LogLevel = "debug"
	}
}
