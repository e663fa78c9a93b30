package hook

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"
)

// validHookID enforces kebab-case for scaffolded hook ids, which double as
// script file names.
var validHookID = regexp.MustCompile(`^[a-z][a-z0-9]*(-[a-z0-9]+)*$`)

// ErrManifestExists is returned by InitManifest when hook.json already exists.
var ErrManifestExists = errors.New("hook manifest already exists")

// InitManifest creates .tasky/hooks/hook.json for projectRoot with one hook
// for event backed by a starter shell script named <id>.sh. It returns the
// manifest and script paths.
func InitManifest(projectRoot string, event Event, id string) (string, string, error) {
	if !event.Valid() {
		return "", "", fmt.Errorf("%w: %q", ErrUnknownEvent, event)
	}
	if !validHookID.MatchString(id) {
		return "", "", fmt.Errorf("hook id %q must be kebab-case (lowercase letters, digits, and hyphens)", id)
	}

	dir := HooksDir(projectRoot)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("creating hooks dir: %w", err)
	}

	manifestPath := filepath.Join(dir, ManifestName)
	if _, err := os.Stat(manifestPath); err == nil {
		return "", "", fmt.Errorf("%w: %s", ErrManifestExists, manifestPath)
	}

	scriptName := id + ".sh"
	scriptPath := filepath.Join(dir, scriptName)
	if _, err := os.Stat(scriptPath); err == nil {
		return "", "", fmt.Errorf("hook script already exists: %s", scriptPath)
	}

	if err := os.WriteFile(scriptPath, []byte(starterScript(event, id)), 0o755); err != nil {
		return "", "", fmt.Errorf("writing hook script: %w", err)
	}

	m := &Manifest{
		Version: ManifestVersion,
		Hooks: []Definition{{
			ID:      id,
			Event:   event,
			Command: []string{"./" + scriptName},
			Timeout: DefaultTimeout,
		}},
	}
	data, err := encodeManifest(m)
	if err != nil {
		return "", "", err
	}
	if err := os.WriteFile(manifestPath, data, 0o644); err != nil {
		return "", "", fmt.Errorf("writing manifest: %w", err)
	}
	return manifestPath, scriptPath, nil
}

func starterScript(event Event, id string) string {
	return fmt.Sprintf(`#!/bin/sh
# tasky hook %q for %s
# Created: %s
#
# The event payload arrives as one JSON object on stdin.
# Print a JSON object on stdout to replace the payload for the next hook,
# or print nothing to leave it unchanged. Exit non-zero to fail the hook.
#
# Available environment:
#   $%s $%s $%s $%s

PAYLOAD=$(cat)

# echo "hook $%s fired for $%s" >&2

printf '%%s\n' "$PAYLOAD"
`, id, event, time.Now().Format("2006-01-02"),
		EnvEvent, EnvHookID, EnvProjectRoot, EnvHooksDir,
		EnvHookID, EnvEvent)
}

// SamplePayload builds a representative payload for event, used to dry-run hooks.
func SamplePayload(event Event, projectRoot string) Payload {
	fields := map[string]any{
		"event":        string(event),
		"project_path": projectRoot,
	}
	switch event {
	case TaskPreAdd, TaskPostAdd:
		fields["name"] = "Sample task"
		fields["details"] = ""
		fields["parent_id"] = nil
	case TaskPreImport, TaskPostImport:
		fields["tasks"] = []any{map[string]any{"name": "Imported task", "details": ""}}
	case ProjectPostInit, ProjectPostForget:
		fields["name"] = filepath.Base(projectRoot)
	default:
		fields["task_id"] = 1
		fields["name"] = "Sample task"
	}
	p, err := NewPayload(fields)
	if err != nil {
		return Payload{}
	}
	return p
}

// TestHook dry-runs the hook with the given id from the project's manifest
// using a sample payload. The manifest is read directly, bypassing any cache.
func TestHook(ctx context.Context, inv Invoker, projectRoot, id string) (*Result, Payload, error) {
	root := normalizeRoot(projectRoot)
	m, err := LoadManifest(ManifestPath(root))
	if err != nil {
		return nil, Payload{}, err
	}
	def, ok := m.Lookup(id)
	if !ok {
		return nil, Payload{}, fmt.Errorf("no hook with id %q in %s", id, m.Path)
	}
	input := SamplePayload(def.Event, root)
	res, err := inv.Invoke(ctx, def, input, EnvFor(root))
	return res, input, err
}
