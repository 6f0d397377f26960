package config

import (
	"errors"
	"fmt"
	"time"
)

// Validation range constants.
const (
	minThreads        = 1
	maxThreads         = 64
	minQueueCapacity   = 1
	minBatchSize       = 1
	minResultCacheSize = 1
	minPageSize        = 1
	maxPageSize        = 10_000
)

// Validate checks all configuration values and returns all errors found.
// It accumulates every error rather than stopping at the first, so users
// see a complete report and can fix all issues in one pass.
func Validate(cfg *Config) error {
	var errs []error

	errs = append(errs, validateIndexer(&cfg.Indexer)...)
	errs = append(errs, validateSearch(&cfg.Search)...)
	errs = append(errs, validateUI(&cfg.UI)...)
	errs = append(errs, validateLogging(&cfg.Logging)...)

	return errors.Join(errs...)
}

func validateIndexer(c *IndexerConfig) []error {
	var errs []error

	for _, root := range c.Roots {
		if root == "" {
			errs = append(errs, errors.New("indexer.roots: entries must not be empty"))
		}
	}

	if c.Threads < minThreads || c.Threads > maxThreads {
		errs = append(errs, fmt.Errorf("indexer.threads: must be between %d and %d, got %d",
			minThreads, maxThreads, c.Threads))
	}

	if c.ThrottleFiles < 0 {
		errs = append(errs, fmt.Errorf("indexer.throttle_files_per_sec: must be >= 0, got %d", c.ThrottleFiles))
	}

	if c.MaxDepth < 0 {
		errs = append(errs, fmt.Errorf("indexer.max_depth: must be >= 0, got %d", c.MaxDepth))
	}

	if c.BatchSize < minBatchSize {
		errs = append(errs, fmt.Errorf("indexer.batch_size: must be >= %d, got %d", minBatchSize, c.BatchSize))
	}

	if c.QueueCapacity < minQueueCapacity {
		errs = append(errs, fmt.Errorf("indexer.queue_capacity: must be >= %d, got %d",
			minQueueCapacity, c.QueueCapacity))
	}

	errs = append(errs, validateDurationNonNeg("indexer.poll_interval", c.PollInterval)...)
	errs = append(errs, validateDurationNonNeg("indexer.coalesce_window", c.CoalesceWindow)...)
	errs = append(errs, validateDurationNonNeg("indexer.shutdown_grace", c.ShutdownGrace)...)
	errs = append(errs, validateDurationNonNeg("indexer.shadow_scan_interval", c.ShadowScanEvery)...)

	return errs
}

var validSortFields = map[string]bool{
	"name":     true,
	"path":     true,
	"size":     true,
	"modified": true,
	"kind":     true,
}

var validOrders = map[string]bool{
	"asc":  true,
	"desc": true,
}

func validateSearch(c *SearchConfig) []error {
	var errs []error

	if !validSortFields[c.DefaultSort] {
		errs = append(errs, fmt.Errorf(
			"search.default_sort: must be one of name, path, size, modified, kind; got %q", c.DefaultSort))
	}

	if !validOrders[c.DefaultOrder] {
		errs = append(errs, fmt.Errorf("search.default_order: must be asc or desc, got %q", c.DefaultOrder))
	}

	if c.ResultCacheSize < minResultCacheSize {
		errs = append(errs, fmt.Errorf("search.result_cache_size: must be >= %d, got %d",
			minResultCacheSize, c.ResultCacheSize))
	}

	if c.PageSize < minPageSize || c.PageSize > maxPageSize {
		errs = append(errs, fmt.Errorf("search.page_size: must be between %d and %d, got %d",
			minPageSize, maxPageSize, c.PageSize))
	}

	errs = append(errs, validateDurationNonNeg("search.query_timeout", c.QueryTimeout)...)

	return errs
}

var validUIFormats = map[string]bool{
	"table": true,
	"json":  true,
}

func validateUI(c *UIConfig) []error {
	if !validUIFormats[c.Format] {
		return []error{fmt.Errorf("ui.format: must be table or json, got %q", c.Format)}
	}

	return nil
}

func validateDurationNonNeg(field, value string) []error {
	if value == "" {
		return []error{fmt.Errorf("%s: must not be empty", field)}
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		return []error{fmt.Errorf("%s: invalid duration %q: %w", field, value, err)}
	}

	if d < 0 {
		return []error{fmt.Errorf("%s: must be >= 0, got %s", field, d)}
	}

	return nil
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validLogFormats = map[string]bool{
	"text": true,
	"json": true,
}

func validateLogging(l *LoggingConfig) []error {
	var errs []error

	if !validLogLevels[l.LogLevel] {
		errs = append(errs, fmt.Errorf("logging.log_level: must be one of debug, info, warn, error; got %q",
			l.LogLevel))
	}

	if !validLogFormats[l.LogFormat] {
		errs = append(errs, fmt.Errorf("logging.log_format: must be text or json, got %q", l.LogFormat))
	}

	return errs
}
