package main

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panoptikon-app/panoptikon/internal/config"
)

func TestNewRebuildCmd_Structure(t *testing.T) {
	cmd := newRebuildCmd()
	assert.Equal(t, "rebuild", cmd.Name())
	assert.NotNil(t, cmd.RunE)
}

func TestRunRebuild_NoRootsReturnsConfigMissing(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "panoptikon.db")

	cfg := config.DefaultConfig()
	cfg.Indexer.Roots = nil

	cc := &CLIContext{Cfg: cfg, DBPath: dbPath, Logger: slog.Default()}

	cmd := newRebuildCmd()
	cmd.SetContext(context.WithValue(context.Background(), cliContextKey{}, cc))

	err := runRebuild(cmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no roots configured")
}

func TestRunRebuild_RecrawlsFromScratch(t *testing.T) {
	dataDir := t.TempDir()
	sourceDir := t.TempDir()

	require.NoError(t, writeTestFile(filepath.Join(sourceDir, "a.txt"), "hello"))

	dbPath := filepath.Join(dataDir, "panoptikon.db")

	cfg := config.DefaultConfig()
	cfg.Indexer.Roots = []string{sourceDir}

	cc := &CLIContext{Cfg: cfg, DBPath: dbPath, Logger: slog.Default()}

	cmd := newRebuildCmd()
	cmd.SetContext(context.WithValue(context.Background(), cliContextKey{}, cc))

	require.NoError(t, runRebuild(cmd))
}

func TestRemoveCatalogFiles_MissingFileIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, removeCatalogFiles(filepath.Join(dir, "does-not-exist.db")))
}
