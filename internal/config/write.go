package config

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
)

// configFilePermissions is the standard permission mode for config files.
// Owner read/write, group and others read-only.
const configFilePermissions = 0o644

// configDirPermissions is the standard permission mode for config directories.
const configDirPermissions = 0o755

// configTemplate is the default config file content written by
// WriteDefaultConfig. Every
// section is present with its compiled-in default so a fresh file is a
// complete, readable starting point.
const configTemplate = `# panoptikon configuration

[indexer]
roots = []
exclude = []
threads = %d
throttle_files_per_sec = %d
max_depth = %d
follow_symlinks = %t
poll_interval = %q
coalesce_window = %q
batch_size = %d
shutdown_grace = %q
queue_capacity = %d
shadow_scan_interval = %q

[search]
default_sort = %q
default_order = %q
result_cache_size = %d
query_timeout = %q
page_size = %d

[ui]
format = %q
quiet = %t

[cloud]
detect_icloud = %t
detect_dropbox = %t
detect_gdrive = %t
detect_onedrive = %t
detect_box = %t

[logging]
log_level = %q
log_file = %q
log_format = %q
`

// WriteDefaultConfig writes a fully-populated config file reflecting
// DefaultConfig(), used by tests that need a concrete file on disk.
// `panoptikon config set` does not use it: Set encodes the whole config
// with the TOML encoder.
func WriteDefaultConfig(path string) error {
	d := DefaultConfig()

	content := fmt.Sprintf(configTemplate,
		d.Indexer.Threads, d.Indexer.ThrottleFiles, d.Indexer.MaxDepth, d.Indexer.FollowSymlinks,
		d.Indexer.PollInterval, d.Indexer.CoalesceWindow, d.Indexer.BatchSize, d.Indexer.ShutdownGrace,
		d.Indexer.QueueCapacity, d.Indexer.ShadowScanEvery,
		d.Search.DefaultSort, d.Search.DefaultOrder, d.Search.ResultCacheSize, d.Search.QueryTimeout,
		d.Search.PageSize,
		d.UI.Format, d.UI.Quiet,
		d.Cloud.DetectICloud, d.Cloud.DetectDropbox, d.Cloud.DetectGDrive, d.Cloud.DetectOneDrive,
		d.Cloud.DetectBox,
		d.Logging.LogLevel, d.Logging.LogFile, d.Logging.LogFormat,
	)

	return atomicWriteFile(path, []byte(content))
}

// fieldSetter assigns a string value (already validated for shape) onto
// the given Config's field.
type fieldSetter func(cfg *Config, value string) error

// fieldGetter reads the current string representation of a field.
type fieldGetter func(cfg *Config) string

type keyAccessor struct {
	get fieldGetter
	set fieldSetter
}

// settableKeys maps dotted config keys (as used by `config get`/`config
// set`) to typed accessors. Reflection is avoided in favor of one entry
// per key.
var settableKeys = map[string]keyAccessor{
	"indexer.threads": {
		get: func(c *Config) string { return strconv.Itoa(c.Indexer.Threads) },
		set: setIntField(func(c *Config, v int) { c.Indexer.Threads = v }),
	},
	"indexer.throttle_files_per_sec": {
		get: func(c *Config) string { return strconv.Itoa(c.Indexer.ThrottleFiles) },
		set: setIntField(func(c *Config, v int) { c.Indexer.ThrottleFiles = v }),
	},
	"indexer.max_depth": {
		get: func(c *Config) string { return strconv.Itoa(c.Indexer.MaxDepth) },
		set: setIntField(func(c *Config, v int) { c.Indexer.MaxDepth = v }),
	},
	"indexer.follow_symlinks": {
		get: func(c *Config) string { return strconv.FormatBool(c.Indexer.FollowSymlinks) },
		set: setBoolField(func(c *Config, v bool) { c.Indexer.FollowSymlinks = v }),
	},
	"indexer.poll_interval": {
		get: func(c *Config) string { return c.Indexer.PollInterval },
		set: setStringField(func(c *Config, v string) { c.Indexer.PollInterval = v }),
	},
	"indexer.coalesce_window": {
		get: func(c *Config) string { return c.Indexer.CoalesceWindow },
		set: setStringField(func(c *Config, v string) { c.Indexer.CoalesceWindow = v }),
	},
	"indexer.batch_size": {
		get: func(c *Config) string { return strconv.Itoa(c.Indexer.BatchSize) },
		set: setIntField(func(c *Config, v int) { c.Indexer.BatchSize = v }),
	},
	"indexer.shutdown_grace": {
		get: func(c *Config) string { return c.Indexer.ShutdownGrace },
		set: setStringField(func(c *Config, v string) { c.Indexer.ShutdownGrace = v }),
	},
	"indexer.queue_capacity": {
		get: func(c *Config) string { return strconv.Itoa(c.Indexer.QueueCapacity) },
		set: setIntField(func(c *Config, v int) { c.Indexer.QueueCapacity = v }),
	},
	"indexer.shadow_scan_interval": {
		get: func(c *Config) string { return c.Indexer.ShadowScanEvery },
		set: setStringField(func(c *Config, v string) { c.Indexer.ShadowScanEvery = v }),
	},
	"search.default_sort": {
		get: func(c *Config) string { return c.Search.DefaultSort },
		set: setStringField(func(c *Config, v string) { c.Search.DefaultSort = v }),
	},
	"search.default_order": {
		get: func(c *Config) string { return c.Search.DefaultOrder },
		set: setStringField(func(c *Config, v string) { c.Search.DefaultOrder = v }),
	},
	"search.result_cache_size": {
		get: func(c *Config) string { return strconv.Itoa(c.Search.ResultCacheSize) },
		set: setIntField(func(c *Config, v int) { c.Search.ResultCacheSize = v }),
	},
	"search.query_timeout": {
		get: func(c *Config) string { return c.Search.QueryTimeout },
		set: setStringField(func(c *Config, v string) { c.Search.QueryTimeout = v }),
	},
	"search.page_size": {
		get: func(c *Config) string { return strconv.Itoa(c.Search.PageSize) },
		set: setIntField(func(c *Config, v int) { c.Search.PageSize = v }),
	},
	"ui.format": {
		get: func(c *Config) string { return c.UI.Format },
		set: setStringField(func(c *Config, v string) { c.UI.Format = v }),
	},
	"ui.quiet": {
		get: func(c *Config) string { return strconv.FormatBool(c.UI.Quiet) },
		set: setBoolField(func(c *Config, v bool) { c.UI.Quiet = v }),
	},
	"cloud.detect_icloud": {
		get: func(c *Config) string { return strconv.FormatBool(c.Cloud.DetectICloud) },
		set: setBoolField(func(c *Config, v bool) { c.Cloud.DetectICloud = v }),
	},
	"cloud.detect_dropbox": {
		get: func(c *Config) string { return strconv.FormatBool(c.Cloud.DetectDropbox) },
		set: setBoolField(func(c *Config, v bool) { c.Cloud.DetectDropbox = v }),
	},
	"cloud.detect_gdrive": {
		get: func(c *Config) string { return strconv.FormatBool(c.Cloud.DetectGDrive) },
		set: setBoolField(func(c *Config, v bool) { c.Cloud.DetectGDrive = v }),
	},
	"cloud.detect_onedrive": {
		get: func(c *Config) string { return strconv.FormatBool(c.Cloud.DetectOneDrive) },
		set: setBoolField(func(c *Config, v bool) { c.Cloud.DetectOneDrive = v }),
	},
	"cloud.detect_box": {
		get: func(c *Config) string { return strconv.FormatBool(c.Cloud.DetectBox) },
		set: setBoolField(func(c *Config, v bool) { c.Cloud.DetectBox = v }),
	},
	"logging.log_level": {
		get: func(c *Config) string { return c.Logging.LogLevel },
		set: setStringField(func(c *Config, v string) { c.Logging.LogLevel = v }),
	},
	"logging.log_file": {
		get: func(c *Config) string { return c.Logging.LogFile },
		set: setStringField(func(c *Config, v string) { c.Logging.LogFile = v }),
	},
	"logging.log_format": {
		get: func(c *Config) string { return c.Logging.LogFormat },
		set: setStringField(func(c *Config, v string) { c.Logging.LogFormat = v }),
	},
}

func setStringField(assign func(*Config, string)) fieldSetter {
	return func(cfg *Config, value string) error {
		assign(cfg, value)

		return nil
	}
}

func setBoolField(assign func(*Config, bool)) fieldSetter {
	return func(cfg *Config, value string) error {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid bool %q: %w", value, err)
		}

		assign(cfg, b)

		return nil
	}
}

func setIntField(assign func(*Config, int)) fieldSetter {
	return func(cfg *Config, value string) error {
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer %q: %w", value, err)
		}

		assign(cfg, n)

		return nil
	}
}

// Get returns the string representation of a single dotted config key
// (e.g. "indexer.threads"), for `panoptikon config get <key>`.
func Get(cfg *Config, key string) (string, error) {
	accessor, ok := settableKeys[key]
	if !ok {
		return "", fmt.Errorf("unknown config key %q", key)
	}

	return accessor.get(cfg), nil
}

// Set loads the config file at path (or defaults if absent), applies a
// single dotted key/value change, validates the result, and writes it
// back atomically. Used by `panoptikon config set <key> <value>`.
func Set(path, key, value string, logger *slog.Logger) (*Config, error) {
	accessor, ok := settableKeys[key]
	if !ok {
		return nil, fmt.Errorf("unknown config key %q", key)
	}

	cfg, err := LoadOrDefault(path, logger)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if err := accessor.set(cfg, value); err != nil {
		return nil, fmt.Errorf("setting %s: %w", key, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed after setting %s: %w", key, err)
	}

	if err := writeConfigFile(path, cfg); err != nil {
		return nil, fmt.Errorf("writing config: %w", err)
	}

	return cfg, nil
}

// writeConfigFile serializes cfg as TOML and writes it atomically.
func writeConfigFile(path string, cfg *Config) error {
	var buf bytes.Buffer

	enc := toml.NewEncoder(&buf)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	return atomicWriteFile(path, buf.Bytes())
}

// atomicWriteFile writes data to a temporary file in the same directory as
// path, then renames it to the target path. This prevents partial writes
// from corrupting the config file on crash. Parent directories are created
// as needed.
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, configDirPermissions); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	f, err := os.CreateTemp(dir, ".config-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	tempPath := f.Name()

	succeeded := false
	defer func() {
		if !succeeded {
			os.Remove(tempPath)
		}
	}()

	if _, err := f.Write(data); err != nil {
		f.Close()

		return fmt.Errorf("writing temp file: %w", err)
	}

	// Flush data to disk before rename. Without fsync, a power loss after
	// rename could leave the file empty (rename is metadata-only on POSIX).
	if err := f.Sync(); err != nil {
		f.Close()

		return fmt.Errorf("syncing temp file: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Chmod(tempPath, configFilePermissions); err != nil {
		return fmt.Errorf("setting file permissions: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}

	succeeded = true

	return nil
}
