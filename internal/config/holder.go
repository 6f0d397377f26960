package config

import "sync"

// Holder provides thread-safe, copy-on-write access to a *Config and an
// immutable config file path. Readers observe an immutable snapshot;
// Update installs a new snapshot atomically so every consumer reload
// happens in exactly one place.
type Holder struct {
	mu   sync.RWMutex
	cfg  *Config
	path string // immutable after construction
}

// NewHolder creates a Holder with the initial config and config file path.
func NewHolder(cfg *Config, path string) *Holder {
	return &Holder{
		cfg:  cfg,
		path: path,
	}
}

// Config returns the current config snapshot. Thread-safe (read lock).
func (h *Holder) Config() *Config {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.cfg
}

// Path returns the config file path. Thread-safe without locking because
// the path is immutable after construction.
func (h *Holder) Path() string {
	return h.path
}

// Update replaces the config and returns the previous snapshot, so the
// caller can compute and publish a ConfigChanged diff on the event bus
// (internal/runtime.EventBus) without this package depending on it.
func (h *Holder) Update(cfg *Config) *Config {
	h.mu.Lock()
	defer h.mu.Unlock()

	prev := h.cfg
	h.cfg = cfg

	return prev
}
