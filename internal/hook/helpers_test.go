package hook

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// newProject creates an empty project root with a hooks directory.
func newProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	if err := os.MkdirAll(HooksDir(root), 0o755); err != nil {
		t.Fatal(err)
	}
	return root
}

// writeManifest writes hook.json for root from a raw JSON string.
func writeManifest(t *testing.T, root, body string) string {
	t.Helper()
	path := ManifestPath(root)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// testHook is the manifest entry shape used to build fixtures.
type testHook struct {
	ID              string   `json:"id"`
	Event           string   `json:"event"`
	Command         []string `json:"command"`
	Timeout         float64  `json:"timeout,omitempty"`
	ContinueOnError bool     `json:"continue_on_error,omitempty"`
}

// writeHooks writes a version 1 manifest holding hooks.
func writeHooks(t *testing.T, root string, hooks ...testHook) string {
	t.Helper()
	data, err := json.Marshal(map[string]any{"version": 1, "hooks": hooks})
	if err != nil {
		t.Fatal(err)
	}
	return writeManifest(t, root, string(data))
}

// writeScript writes an executable shell script into the hooks directory.
func writeScript(t *testing.T, root, name, body string) {
	t.Helper()
	path := filepath.Join(HooksDir(root), name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatal(err)
	}
}

// sh wraps a shell snippet as a hook command.
func sh(script string) []string {
	return []string{"/bin/sh", "-c", script}
}

func mustPayload(t *testing.T, s string) Payload {
	t.Helper()
	p, err := ParsePayload([]byte(s))
	if err != nil {
		t.Fatalf("ParsePayload(%q): %v", s, err)
	}
	return p
}
