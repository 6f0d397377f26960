package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReadEnvOverrides_AllSet(t *testing.T) {
	t.Setenv("PANOPTIKON_CONFIG", "/custom/config.toml")
	t.Setenv("PANOPTIKON_DB", "/custom/panoptikon.db")

	overrides := ReadEnvOverrides()
	assert.Equal(t, "/custom/config.toml", overrides.ConfigPath)
	assert.Equal(t, "/custom/panoptikon.db", overrides.DBPath)
}

func TestReadEnvOverrides_NoneSet(t *testing.T) {
	t.Setenv("PANOPTIKON_CONFIG", "")
	t.Setenv("PANOPTIKON_DB", "")

	overrides := ReadEnvOverrides()
	assert.Empty(t, overrides.ConfigPath)
	assert.Empty(t, overrides.DBPath)
}

func TestReadEnvOverrides_PartiallySet(t *testing.T) {
	t.Setenv("PANOPTIKON_CONFIG", "")
	t.Setenv("PANOPTIKON_DB", "/data/panoptikon.db")

	overrides := ReadEnvOverrides()
	assert.Empty(t, overrides.ConfigPath)
	assert.Equal(t, "/data/panoptikon.db", overrides.DBPath)
}

func TestEnvVarConstants(t *testing.T) {
	assert.Equal(t, "PANOPTIKON_CONFIG", EnvConfig)
	assert.Equal(t, "PANOPTIKON_DB", EnvDB)
}
