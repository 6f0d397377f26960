package config

import "os"

// Environment variable names for overrides.
const (
	EnvDB     = "PANOPTIKON_DB"
	EnvConfig = "PANOPTIKON_CONFIG"
)

// EnvOverrides holds values derived from environment variables.
// These are resolved by ReadEnvOverrides and applied by Resolve.
type EnvOverrides struct {
	DBPath     string // PANOPTIKON_DB: override catalog database path
	ConfigPath string // PANOPTIKON_CONFIG: override config file path
}

// ReadEnvOverrides reads environment variables and returns any overrides found.
// This does not modify the Config; callers apply the relevant fields.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		DBPath:     os.Getenv(EnvDB),
		ConfigPath: os.Getenv(EnvConfig),
	}
}
