package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_AllFieldsPopulated(t *testing.T) {
	cfg := DefaultConfig()
	require.NotNil(t, cfg)

	// Indexer defaults
	assert.Empty(t, cfg.Indexer.Roots)
	assert.Empty(t, cfg.Indexer.Exclude)
	assert.Equal(t, 4, cfg.Indexer.Threads)
	assert.Equal(t, 0, cfg.Indexer.ThrottleFiles)
	assert.Equal(t, 0, cfg.Indexer.MaxDepth)
	assert.True(t, cfg.Indexer.FollowSymlinks)
	assert.Equal(t, "30s", cfg.Indexer.PollInterval)
	assert.Equal(t, "200ms", cfg.Indexer.CoalesceWindow)
	assert.Equal(t, 500, cfg.Indexer.BatchSize)
	assert.Equal(t, "2s", cfg.Indexer.ShutdownGrace)
	assert.Equal(t, 64, cfg.Indexer.QueueCapacity)
	assert.Equal(t, "5m", cfg.Indexer.ShadowScanEvery)

	// Search defaults
	assert.Equal(t, "name", cfg.Search.DefaultSort)
	assert.Equal(t, "asc", cfg.Search.DefaultOrder)
	assert.Equal(t, 256, cfg.Search.ResultCacheSize)
	assert.Equal(t, "500ms", cfg.Search.QueryTimeout)
	assert.Equal(t, 200, cfg.Search.PageSize)

	// UI defaults
	assert.Equal(t, "table", cfg.UI.Format)
	assert.False(t, cfg.UI.Quiet)

	// Cloud defaults
	assert.True(t, cfg.Cloud.DetectICloud)
	assert.True(t, cfg.Cloud.DetectDropbox)
	assert.True(t, cfg.Cloud.DetectGDrive)
	assert.True(t, cfg.Cloud.DetectOneDrive)
	assert.True(t, cfg.Cloud.DetectBox)

	// Logging defaults
	assert.Equal(t, "warn", cfg.Logging.LogLevel)
	assert.Equal(t, "", cfg.Logging.LogFile)
	assert.Equal(t, "text", cfg.Logging.LogFormat)
}

func TestDefaultConfig_PassesValidation(t *testing.T) {
	cfg := DefaultConfig()
	err := Validate(cfg)
	assert.NoError(t, err)
}

func TestDefaultConfig_ReturnsFreshInstanceEachCall(t *testing.T) {
	cfg1 := DefaultConfig()
	cfg2 := DefaultConfig()

	cfg1.Indexer.Threads = 99

	assert.Equal(t, 4, cfg2.Indexer.Threads, "mutating one default must not affect another")
}
