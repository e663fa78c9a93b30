package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds the top-level tasky configuration.
type Config struct {
	Hooks HooksConfig `toml:"hooks"`
	Log   LogConfig   `toml:"log"`
}

// HooksConfig controls project automation hooks.
type HooksConfig struct {
	// Enabled turns project hooks on or off globally.
	// Defaults to true when not set in config.
	Enabled *bool `toml:"enabled,omitempty"`
	// KillGrace is how long a timed-out hook gets after SIGTERM before SIGKILL.
	KillGrace string `toml:"kill_grace,omitempty"`
	// Audit records every hook step in the local database.
	Audit *bool `toml:"audit,omitempty"`
}

// DefaultKillGrace is used when kill_grace is unset or invalid.
const DefaultKillGrace = 500 * time.Millisecond

// IsEnabled treats nil (missing from config) as true.
func (h HooksConfig) IsEnabled() bool {
	if h.Enabled == nil {
		return true
	}
	return *h.Enabled
}

// AuditEnabled treats nil (missing from config) as true.
func (h HooksConfig) AuditEnabled() bool {
	if h.Audit == nil {
		return true
	}
	return *h.Audit
}

// Grace returns the parsed kill grace period.
func (h HooksConfig) Grace() time.Duration {
	if h.KillGrace == "" {
		return DefaultKillGrace
	}
	d, err := time.ParseDuration(h.KillGrace)
	if err != nil || d < 0 {
		return DefaultKillGrace
	}
	return d
}

// LogConfig controls diagnostic logging on stderr.
type LogConfig struct {
	Level string `toml:"level,omitempty"` // debug, info, warn, error
}

// Paths returns standard XDG-compliant paths.
type Paths struct {
	ConfigDir  string
	DataDir    string
	StateDir   string
	ConfigFile string
	DBFile     string
}

// GetPaths returns the resolved paths, respecting XDG env vars.
func GetPaths() Paths {
	home, _ := os.UserHomeDir()

	configDir := envOr("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	dataDir := envOr("XDG_DATA_HOME", filepath.Join(home, ".local", "share"))
	stateDir := envOr("XDG_STATE_HOME", filepath.Join(home, ".local", "state"))

	taskyConfig := filepath.Join(configDir, "tasky")
	taskyData := filepath.Join(dataDir, "tasky")

	return Paths{
		ConfigDir:  taskyConfig,
		DataDir:    taskyData,
		StateDir:   filepath.Join(stateDir, "tasky"),
		ConfigFile: filepath.Join(taskyConfig, "config.toml"),
		DBFile:     filepath.Join(taskyData, "tasky.db"),
	}
}

// EnsureDirs creates all required directories.
func (p Paths) EnsureDirs() error {
	dirs := []string{p.ConfigDir, p.DataDir, p.StateDir}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return err
		}
	}
	return nil
}

// Load reads config from disk, returning defaults if not found.
func Load() (*Config, error) {
	paths := GetPaths()
	cfg := defaultConfig()

	data, err := os.ReadFile(paths.ConfigFile)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", paths.ConfigFile, err)
	}
	return cfg, nil
}

// Save writes config to disk.
func Save(cfg *Config) error {
	paths := GetPaths()
	if err := paths.EnsureDirs(); err != nil {
		return err
	}

	f, err := os.Create(paths.ConfigFile)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

// BoolPtr returns a pointer to a bool value.
func BoolPtr(v bool) *bool {
	return &v
}

func defaultConfig() *Config {
	return &Config{
		Hooks: HooksConfig{
			Enabled:   BoolPtr(true),
			KillGrace: DefaultKillGrace.String(),
			Audit:     BoolPtr(true),
		},
		Log: LogConfig{
			Level: "warn",
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
