package cmd

import (
	"strings"
	"testing"

	"github.com/rnwolfe/tasky/internal/config"
)

func TestConfigSetGetUnset(t *testing.T) {
	configTestEnv(t)

	captureStdout(t, func() {
		if err := runConfigSet(nil, []string{"hooks.kill_grace", "2s"}); err != nil {
			t.Fatalf("set: %v", err)
		}
	})

	cfg, err := config.Load()
	if err != nil {
		t.Fatal(err)
	}
	if got := cfg.Hooks.Grace().String(); got != "2s" {
		t.Errorf("kill grace = %s, want 2s", got)
	}

	out := captureStdout(t, func() {
		if err := runConfigGet(nil, []string{"hooks.kill_grace"}); err != nil {
			t.Fatalf("get: %v", err)
		}
	})
	if strings.TrimSpace(out) != "2s" {
		t.Errorf("get output = %q", out)
	}

	captureStdout(t, func() {
		if err := runConfigUnset(nil, []string{"hooks.kill_grace"}); err != nil {
			t.Fatalf("unset: %v", err)
		}
	})
	cfg, err = config.Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Hooks.Grace() != config.DefaultKillGrace {
		t.Errorf("kill grace after unset = %s", cfg.Hooks.Grace())
	}
}

func TestConfigRejectsBadInput(t *testing.T) {
	configTestEnv(t)

	tests := []struct {
		name string
		args []string
	}{
		{"unknown key", []string{"hooks.nope", "1"}},
		{"bad bool", []string{"hooks.enabled", "maybe"}},
		{"bad duration", []string{"hooks.kill_grace", "soon"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := runConfigSet(nil, tt.args); err == nil {
				t.Errorf("set %v should fail", tt.args)
			}
		})
	}

	if err := runConfigGet(nil, []string{"nope"}); err == nil || !strings.Contains(err.Error(), "valid keys") {
		t.Errorf("get unknown key error = %v", err)
	}
}

func TestKeyHelpListsEveryKey(t *testing.T) {
	help := keyHelp()
	for _, name := range config.ValidKeyNames() {
		if !strings.Contains(help, name) {
			t.Errorf("keyHelp missing %s", name)
		}
	}
}
