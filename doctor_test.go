package main

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panoptikon-app/panoptikon/internal/config"
)

func TestNewDoctorCmd_Structure(t *testing.T) {
	cmd := newDoctorCmd()
	assert.Equal(t, "doctor", cmd.Name())
	assert.NotNil(t, cmd.RunE)
}

func TestRunDoctor_HealthyCatalogNoRoots(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "panoptikon.db")

	cc := &CLIContext{
		Cfg:    config.DefaultConfig(),
		DBPath: dbPath,
		Logger: slog.Default(),
	}

	cmd := newDoctorCmd()
	cmd.SetContext(context.WithValue(context.Background(), cliContextKey{}, cc))

	var buf bytes.Buffer
	cmd.SetOut(&buf)

	require.NoError(t, cmd.RunE(cmd, nil))
	assert.Contains(t, buf.String(), "catalog integrity")
}

func TestRunDoctor_MissingRootReportsNotOK(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "panoptikon.db")

	cfg := config.DefaultConfig()
	cfg.Indexer.Roots = []string{filepath.Join(dir, "does-not-exist")}

	cc := &CLIContext{Cfg: cfg, DBPath: dbPath, Logger: slog.Default()}

	cmd := newDoctorCmd()
	cmd.SetContext(context.WithValue(context.Background(), cliContextKey{}, cc))

	var buf bytes.Buffer
	cmd.SetOut(&buf)

	require.NoError(t, cmd.RunE(cmd, nil))
	assert.Contains(t, buf.String(), "false")
}
