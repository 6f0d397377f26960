package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panoptikon-app/panoptikon/internal/config"
	"github.com/panoptikon-app/panoptikon/internal/indexer"
	"github.com/panoptikon-app/panoptikon/internal/runtime"
)

func TestNewIndexCmd_Structure(t *testing.T) {
	cmd := newIndexCmd()
	assert.Equal(t, "index [paths...]", cmd.Use)
	assert.NotNil(t, cmd.RunE)
	assert.NotNil(t, cmd.Flags().Lookup("watch"))
	assert.NotNil(t, cmd.Flags().Lookup("reload"))
}

func TestRunIndexReload_NoRunningWatcherReturnsError(t *testing.T) {
	err := runIndexReload()
	require.Error(t, err)
}

func TestRunIndex_NoRootsReturnsConfigMissing(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "panoptikon.db")

	cfg := config.DefaultConfig()
	cfg.Indexer.Roots = nil

	cc := &CLIContext{Cfg: cfg, DBPath: dbPath}

	cmd := newIndexCmd()
	cmd.SetContext(context.WithValue(context.Background(), cliContextKey{}, cc))

	err := runIndex(cmd, nil, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no roots configured")
}

func TestRunIndexWatch_SighupPublishesConfigChanged(t *testing.T) {
	// Not parallel: sends a real SIGHUP to the process, same caveat as
	// TestSighupChannel_DeliversSignal in signal_test.go.

	dataDir := t.TempDir()
	sourceDir := t.TempDir()
	require.NoError(t, writeTestFile(filepath.Join(sourceDir, "a.txt"), "hello"))

	dbPath := filepath.Join(dataDir, "panoptikon.db")
	cfgPath := filepath.Join(dataDir, "panoptikon.toml")

	require.NoError(t, os.WriteFile(cfgPath, []byte(fmt.Sprintf("[indexer]\nroots = [%q]\n", sourceDir)), 0o644))

	cfg, err := config.Load(cfgPath, slog.Default())
	require.NoError(t, err)

	cc := &CLIContext{Cfg: cfg, CfgPath: cfgPath, DBPath: dbPath, Logger: slog.Default()}

	pool, store, suffix, err := openCatalog(context.Background(), cc)
	require.NoError(t, err)
	defer pool.Close()

	bus := runtime.NewEventBus(cc.Logger)
	defer bus.Close()

	pipeline := indexer.NewPipeline(store, suffix, bus, cfg.Indexer, cfg.Cloud, nil, cc.Logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	published := make(chan config.ConfigChanged, 1)
	bus.Subscribe(config.TopicConfigChanged, runtime.PriorityNormal, func(_ context.Context, _ string, ev runtime.Event) {
		if changed, ok := ev.(config.ConfigChanged); ok {
			published <- changed
		}
	})

	done := make(chan error, 1)
	go func() { done <- runIndexWatch(ctx, cc, pipeline, *cfg, bus) }()

	// Give the watch goroutine time to register its SIGHUP handler before
	// signaling, same as TestSighupChannel_DeliversSignal does.
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGHUP))

	select {
	case changed := <-published:
		assert.NotNil(t, changed.Old)
		assert.NotNil(t, changed.New)
	case <-time.After(2 * time.Second):
		t.Fatal("ConfigChanged not published within 2 seconds of SIGHUP")
	}

	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("runIndexWatch did not stop after context cancel")
	}
}

func TestRunIndex_IndexesOneRoot(t *testing.T) {
	dataDir := t.TempDir()
	sourceDir := t.TempDir()

	require.NoError(t, writeTestFile(filepath.Join(sourceDir, "a.txt"), "hello"))

	dbPath := filepath.Join(dataDir, "panoptikon.db")

	cfg := config.DefaultConfig()

	cc := &CLIContext{Cfg: cfg, DBPath: dbPath, Logger: slog.Default()}

	cmd := newIndexCmd()
	cmd.SetContext(context.WithValue(context.Background(), cliContextKey{}, cc))

	require.NoError(t, runIndex(cmd, []string{sourceDir}, false))
}
