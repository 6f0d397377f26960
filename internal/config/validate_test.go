package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_DefaultConfigIsValid(t *testing.T) {
	assert.NoError(t, Validate(DefaultConfig()))
}

func TestValidate_IndexerThreadsOutOfRange(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Indexer.Threads = 0
	require.Error(t, Validate(cfg))

	cfg.Indexer.Threads = 65
	require.Error(t, Validate(cfg))
}

func TestValidate_IndexerNegativeThrottle(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Indexer.ThrottleFiles = -1
	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttle_files_per_sec")
}

func TestValidate_IndexerEmptyRootRejected(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Indexer.Roots = []string{"/valid", ""}
	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "roots")
}

func TestValidate_IndexerBadDurations(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"poll_interval", func(c *Config) { c.Indexer.PollInterval = "not-a-duration" }},
		{"coalesce_window", func(c *Config) { c.Indexer.CoalesceWindow = "" }},
		{"shutdown_grace", func(c *Config) { c.Indexer.ShutdownGrace = "5" }},
		{"shadow_scan_interval", func(c *Config) { c.Indexer.ShadowScanEvery = "abc" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, Validate(cfg))
		})
	}
}

func TestValidate_IndexerBatchAndQueueMinimums(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Indexer.BatchSize = 0
	require.Error(t, Validate(cfg))

	cfg = DefaultConfig()
	cfg.Indexer.QueueCapacity = 0
	require.Error(t, Validate(cfg))
}

func TestValidate_SearchDefaultSort(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Search.DefaultSort = "bogus"
	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "default_sort")
}

func TestValidate_SearchDefaultOrder(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Search.DefaultOrder = "sideways"
	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "default_order")
}

func TestValidate_SearchPageSizeRange(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Search.PageSize = 0
	require.Error(t, Validate(cfg))

	cfg = DefaultConfig()
	cfg.Search.PageSize = 10_001
	require.Error(t, Validate(cfg))
}

func TestValidate_SearchResultCacheSize(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Search.ResultCacheSize = 0
	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "result_cache_size")
}

func TestValidate_SearchQueryTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Search.QueryTimeout = "never"
	assert.Error(t, Validate(cfg))
}

func TestValidate_UIFormat(t *testing.T) {
	cfg := DefaultConfig()
	cfg.UI.Format = "xml"
	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ui.format")
}

func TestValidate_LoggingLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.LogLevel = "verbose"
	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log_level")
}

func TestValidate_LoggingFormat(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.LogFormat = "yaml"
	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log_format")
}

func TestValidate_AccumulatesAllErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Indexer.Threads = 0
	cfg.Search.DefaultSort = "bogus"
	cfg.UI.Format = "xml"
	cfg.Logging.LogLevel = "verbose"

	err := Validate(cfg)
	require.Error(t, err)

	msg := err.Error()
	assert.Contains(t, msg, "threads")
	assert.Contains(t, msg, "default_sort")
	assert.Contains(t, msg, "ui.format")
	assert.Contains(t, msg, "log_level")
}
