// Package config loads undotree settings from a TOML file with
// environment variable overrides.
//
// Sources are applied in order: built-in defaults, then the TOML
// file, then UNDOTREE_-prefixed environment variables. A missing
// config file is not an error.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Environment variable overrides.
const (
	envUndoDir      = "UNDOTREE_UNDO_DIR"
	envMaxRevisions = "UNDOTREE_MAX_REVISIONS"
	envWatch        = "UNDOTREE_WATCH"
	envDebounce     = "UNDOTREE_WATCH_DEBOUNCE_MS"
)

// Config holds the persistence layer settings.
type Config struct {
	// UndoDir is where undo files are written. Defaults to
	// $XDG_STATE_HOME/undotree (or ~/.local/state/undotree).
	UndoDir string `toml:"undo_dir"`

	// MaxRevisions caps how many revisions a history may hold before
	// saves refuse to grow the file further. Zero means unlimited.
	MaxRevisions int `toml:"max_revisions"`

	// Watch enables watching the document for external modification,
	// flagging the session stale before a save can clobber anything.
	Watch bool `toml:"watch"`

	// WatchDebounceMS coalesces bursts of file events.
	WatchDebounceMS int `toml:"watch_debounce_ms"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		UndoDir:         defaultUndoDir(),
		MaxRevisions:    0,
		Watch:           true,
		WatchDebounceMS: 100,
	}
}

// Load reads path, applies it over the defaults, then applies
// environment overrides. A missing file yields defaults plus
// environment, not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// No file; defaults and environment apply.
	case err != nil:
		return cfg, fmt.Errorf("reading config file %s: %w", path, err)
	default:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv overrides fields from UNDOTREE_ environment variables.
// Unparseable values are ignored rather than fatal.
func (c *Config) applyEnv() {
	if v, ok := os.LookupEnv(envUndoDir); ok && v != "" {
		c.UndoDir = v
	}
	if v, ok := os.LookupEnv(envMaxRevisions); ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxRevisions = n
		}
	}
	if v, ok := os.LookupEnv(envWatch); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Watch = b
		}
	}
	if v, ok := os.LookupEnv(envDebounce); ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.WatchDebounceMS = n
		}
	}
}

// Validate checks field ranges.
func (c *Config) Validate() error {
	if c.UndoDir == "" {
		return fmt.Errorf("config: undo_dir must not be empty")
	}
	if c.MaxRevisions < 0 {
		return fmt.Errorf("config: max_revisions must be >= 0, got %d", c.MaxRevisions)
	}
	if c.WatchDebounceMS < 0 {
		return fmt.Errorf("config: watch_debounce_ms must be >= 0, got %d", c.WatchDebounceMS)
	}
	return nil
}

// WatchDebounce returns the debounce interval as a duration.
func (c *Config) WatchDebounce() time.Duration {
	return time.Duration(c.WatchDebounceMS) * time.Millisecond
}

// defaultUndoDir resolves the state directory following XDG
// conventions.
func defaultUndoDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "undotree")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "undotree"
	}
	return filepath.Join(home, ".local", "state", "undotree")
}
