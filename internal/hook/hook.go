// Package hook runs project automation hooks for tasky.
//
// A project opts in by placing a manifest at .tasky/hooks/hook.json. Each hook
// registers an external command for one lifecycle event. When the event fires,
// matching hooks run sequentially in manifest order: the current payload is
// written to the hook's stdin as JSON, and a JSON object printed on stdout
// replaces the payload for the next hook. Hooks that print nothing are inert.
//
// The pipeline is a no-op when a project has no manifest.
package hook

import (
	"fmt"
	"path/filepath"
	"time"
)

// Layout of the per-project automation directory.
const (
	ProjectDirName = ".tasky"
	HooksDirName   = "hooks"
	ManifestName   = "hook.json"
)

// ManifestVersion is the only supported manifest schema version.
const ManifestVersion = 1

// DefaultTimeout applies to hooks whose manifest entry omits "timeout".
const DefaultTimeout = 5 * time.Second

// Environment variables exported to every hook process.
const (
	EnvEvent       = "TASKY_HOOK_EVENT"
	EnvHookID      = "TASKY_HOOK_ID"
	EnvProjectRoot = "TASKY_PROJECT_ROOT"
	EnvHooksDir    = "TASKY_HOOKS_DIR"
)

// Event identifies a point in the task or project lifecycle.
type Event string

const (
	TaskPreAdd        Event = "task.pre_add"
	TaskPostAdd       Event = "task.post_add"
	TaskPreRemove     Event = "task.pre_remove"
	TaskPostRemove    Event = "task.post_remove"
	TaskPreImport     Event = "task.pre_import"
	TaskPostImport    Event = "task.post_import"
	TaskPreComplete   Event = "task.pre_complete"
	TaskPostComplete  Event = "task.post_complete"
	TaskPreReopen     Event = "task.pre_reopen"
	TaskPostReopen    Event = "task.post_reopen"
	TaskPreUpdate     Event = "task.pre_update"
	TaskPostUpdate    Event = "task.post_update"
	ProjectPostInit   Event = "project.post_init"
	ProjectPostForget Event = "project.post_forget"
)

// AllEvents lists every event name in lifecycle order.
var AllEvents = []Event{
	TaskPreAdd, TaskPostAdd,
	TaskPreRemove, TaskPostRemove,
	TaskPreImport, TaskPostImport,
	TaskPreComplete, TaskPostComplete,
	TaskPreReopen, TaskPostReopen,
	TaskPreUpdate, TaskPostUpdate,
	ProjectPostInit, ProjectPostForget,
}

var knownEvents = func() map[Event]bool {
	m := make(map[Event]bool, len(AllEvents))
	for _, e := range AllEvents {
		m[e] = true
	}
	return m
}()

// Valid reports whether e is one of the known event names.
func (e Event) Valid() bool {
	return knownEvents[e]
}

// ParseEvent converts a string to a known Event.
func ParseEvent(s string) (Event, error) {
	e := Event(s)
	if !e.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownEvent, s)
	}
	return e, nil
}

// Definition is one hook registered in a manifest. It is immutable once parsed.
type Definition struct {
	ID              string
	Event           Event
	Command         []string
	Timeout         time.Duration
	ContinueOnError bool
}

// Manifest is the parsed automation configuration for one project.
type Manifest struct {
	// Path is the file the manifest was read from.
	Path    string
	Version int
	// Hooks are kept in file order, which is also execution order.
	Hooks []Definition
}

// ForEvent returns the hooks registered for event, preserving manifest order.
func (m *Manifest) ForEvent(event Event) []Definition {
	if m == nil {
		return nil
	}
	return filterHooks(m.Hooks, event)
}

// Lookup returns the hook with the given id.
func (m *Manifest) Lookup(id string) (Definition, bool) {
	if m == nil {
		return Definition{}, false
	}
	for _, d := range m.Hooks {
		if d.ID == id {
			return d, true
		}
	}
	return Definition{}, false
}

// Env locates the project a hook runs for.
type Env struct {
	ProjectRoot string
	HooksDir    string
}

// HooksDir returns the hooks directory for a project root.
func HooksDir(projectRoot string) string {
	return filepath.Join(projectRoot, ProjectDirName, HooksDirName)
}

// ManifestPath returns the manifest location for a project root.
func ManifestPath(projectRoot string) string {
	return filepath.Join(HooksDir(projectRoot), ManifestName)
}

// EnvFor builds the Env for a project root.
func EnvFor(projectRoot string) Env {
	return Env{ProjectRoot: projectRoot, HooksDir: HooksDir(projectRoot)}
}

func filterHooks(hooks []Definition, event Event) []Definition {
	var matched []Definition
	for _, h := range hooks {
		if h.Event == event {
			matched = append(matched, h)
		}
	}
	return matched
}
