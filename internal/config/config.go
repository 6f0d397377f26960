// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for panoptikon.
package config

// Config is the top-level configuration structure, decoded from a TOML file
// and layered with compiled-in defaults, environment overrides, and CLI
// flags (see Resolve). Sections: [indexer], [search], [ui], [cloud].
type Config struct {
	Indexer IndexerConfig `toml:"indexer"`
	Search  SearchConfig  `toml:"search"`
	UI      UIConfig      `toml:"ui"`
	Cloud   CloudConfig   `toml:"cloud"`
	Logging LoggingConfig `toml:"logging"`
}

// IndexerConfig controls crawl roots, filtering, pacing, and the event
// subsystem that keeps the catalog current.
type IndexerConfig struct {
	Roots           []string `toml:"roots"`
	Exclude         []string `toml:"exclude"`
	Threads         int      `toml:"threads"`
	ThrottleFiles   int      `toml:"throttle_files_per_sec"` // 0 = uncapped
	MaxDepth        int      `toml:"max_depth"`              // 0 = unbounded
	FollowSymlinks  bool     `toml:"follow_symlinks"`
	PollInterval    string   `toml:"poll_interval"`
	CoalesceWindow  string   `toml:"coalesce_window"`
	BatchSize       int      `toml:"batch_size"`
	ShutdownGrace   string   `toml:"shutdown_grace"`
	QueueCapacity   int      `toml:"queue_capacity"`
	ShadowScanEvery string   `toml:"shadow_scan_interval"`
}

// SearchConfig controls query execution defaults and the result cache.
type SearchConfig struct {
	DefaultSort     string `toml:"default_sort"`
	DefaultOrder    string `toml:"default_order"`
	ResultCacheSize int    `toml:"result_cache_size"`
	QueryTimeout    string `toml:"query_timeout"`
	PageSize        int    `toml:"page_size"`
}

// UIConfig controls CLI/collaborator-facing presentation defaults.
type UIConfig struct {
	Format string `toml:"format"` // "table" or "json"
	Quiet  bool   `toml:"quiet"`
}

// CloudConfig toggles which cloud-provider heuristics the classifier runs.
type CloudConfig struct {
	DetectICloud   bool `toml:"detect_icloud"`
	DetectDropbox  bool `toml:"detect_dropbox"`
	DetectGDrive   bool `toml:"detect_gdrive"`
	DetectOneDrive bool `toml:"detect_onedrive"`
	DetectBox      bool `toml:"detect_box"`
}

// LoggingConfig controls log output behavior.
type LoggingConfig struct {
	LogLevel  string `toml:"log_level"`
	LogFile   string `toml:"log_file"`
	LogFormat string `toml:"log_format"`
}
