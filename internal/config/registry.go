package config

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// KeyType represents the data type of a config key.
type KeyType string

const (
	KeyTypeString   KeyType = "string"
	KeyTypeBool     KeyType = "bool"
	KeyTypeDuration KeyType = "duration"
)

// KeyEntry describes a known, settable config key.
type KeyEntry struct {
	// Type is the value's data type.
	Type KeyType
	// Desc is a human-readable description shown in `tasky config list`.
	Desc string
	// DefaultStr is the string representation of the default value.
	DefaultStr string

	get   func(*Config) string
	set   func(cfg *Config, value string) error
	unset func(cfg *Config)
}

// Get returns the current value of the key as a string.
func (e *KeyEntry) Get(cfg *Config) string { return e.get(cfg) }

// Set validates and sets the value, returning a descriptive error on type mismatch.
func (e *KeyEntry) Set(cfg *Config, value string) error { return e.set(cfg, value) }

// Unset resets the key to its schema default.
func (e *KeyEntry) Unset(cfg *Config) { e.unset(cfg) }

// SchemaKeys is the authoritative registry of all settable config keys.
// Keys use dot-notation matching the TOML section structure.
var SchemaKeys = map[string]*KeyEntry{
	"hooks.enabled": {
		Type:       KeyTypeBool,
		Desc:       "Run project hooks for task and project events",
		DefaultStr: "true",
		get:        func(cfg *Config) string { return fmt.Sprintf("%t", cfg.Hooks.IsEnabled()) },
		set: func(cfg *Config, v string) error {
			b, err := ParseBoolValue(v)
			if err != nil {
				return fmt.Errorf("invalid value %q for hooks.enabled: %w", v, err)
			}
			cfg.Hooks.Enabled = BoolPtr(b)
			return nil
		},
		unset: func(cfg *Config) { cfg.Hooks.Enabled = BoolPtr(true) },
	},
	"hooks.audit": {
		Type:       KeyTypeBool,
		Desc:       "Record hook runs in the local database",
		DefaultStr: "true",
		get:        func(cfg *Config) string { return fmt.Sprintf("%t", cfg.Hooks.AuditEnabled()) },
		set: func(cfg *Config, v string) error {
			b, err := ParseBoolValue(v)
			if err != nil {
				return fmt.Errorf("invalid value %q for hooks.audit: %w", v, err)
			}
			cfg.Hooks.Audit = BoolPtr(b)
			return nil
		},
		unset: func(cfg *Config) { cfg.Hooks.Audit = BoolPtr(true) },
	},
	"hooks.kill_grace": {
		Type:       KeyTypeDuration,
		Desc:       "Grace period between SIGTERM and SIGKILL for timed-out hooks",
		DefaultStr: DefaultKillGrace.String(),
		get:        func(cfg *Config) string { return cfg.Hooks.Grace().String() },
		set: func(cfg *Config, v string) error {
			d, err := time.ParseDuration(strings.TrimSpace(v))
			if err != nil || d < 0 {
				return fmt.Errorf("invalid value %q for hooks.kill_grace: expected a duration like 500ms", v)
			}
			cfg.Hooks.KillGrace = d.String()
			return nil
		},
		unset: func(cfg *Config) { cfg.Hooks.KillGrace = DefaultKillGrace.String() },
	},
	"log.level": {
		Type:       KeyTypeString,
		Desc:       "Diagnostic log level (debug, info, warn, error)",
		DefaultStr: "warn",
		get:        func(cfg *Config) string { return cfg.Log.Level },
		set: func(cfg *Config, v string) error {
			switch strings.ToLower(strings.TrimSpace(v)) {
			case "debug", "info", "warn", "error":
				cfg.Log.Level = strings.ToLower(strings.TrimSpace(v))
				return nil
			}
			return fmt.Errorf("invalid value %q for log.level: use debug, info, warn or error", v)
		},
		unset: func(cfg *Config) { cfg.Log.Level = "warn" },
	},
}

// ValidKeyNames returns the sorted list of all known config key names.
func ValidKeyNames() []string {
	names := make([]string, 0, len(SchemaKeys))
	for k := range SchemaKeys {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// LookupKey returns the KeyEntry for a known config key.
func LookupKey(key string) (*KeyEntry, bool) {
	entry, ok := SchemaKeys[key]
	return entry, ok
}

// ParseBoolValue accepts common boolean string representations.
// Valid truthy values: true, 1, yes, on.
// Valid falsy values: false, 0, no, off.
func ParseBoolValue(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "on":
		return true, nil
	case "false", "0", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("not a boolean: %q (use one of: true/false, 1/0, yes/no, on/off)", s)
	}
}
