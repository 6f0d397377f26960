package config

// TopicConfigChanged is the event bus topic a running "index --watch"
// process publishes to once it has reloaded and re-validated its on-disk
// config file. The payload is a ConfigChanged carrying the old and new
// snapshots.
const TopicConfigChanged = "config.changed"

// ConfigChanged is the event published on TopicConfigChanged. It carries
// both the replaced snapshot and the one that replaced it rather than a
// precomputed field-by-field diff, so a subscriber can compare whichever
// fields it cares about (the indexer cares about [indexer], the query
// engine about [search], and so on) without this package needing to know
// every consumer's notion of "changed".
type ConfigChanged struct {
	Old *Config
	New *Config
}
