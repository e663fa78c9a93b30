package proj

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rnwolfe/tasky/internal/hook"
	"github.com/rnwolfe/tasky/internal/log"
	"github.com/rnwolfe/tasky/internal/store"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	db, err := store.OpenPath(filepath.Join(t.TempDir(), "tasky.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(db.Conn())
}

type firedEvent struct {
	root    string
	event   hook.Event
	payload map[string]any
}

type fakeRunner struct {
	fired []firedEvent
	err   error
}

func (f *fakeRunner) Run(_ context.Context, root string, event hook.Event, p hook.Payload) (hook.Payload, error) {
	m, _ := p.Map()
	f.fired = append(f.fired, firedEvent{root: root, event: event, payload: m})
	return p, f.err
}

func TestAddAndList(t *testing.T) {
	s := setupStore(t)

	dir := t.TempDir()
	p, err := s.Add(dir)
	if err != nil {
		t.Fatalf("Add() error: %v", err)
	}
	if p.Name == "" || p.Path == "" {
		t.Fatalf("expected name/path to be populated, got %#v", p)
	}

	got, err := s.List()
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 project, got %d", len(got))
	}
	if got[0].CreatedAt.IsZero() {
		t.Error("CreatedAt should round-trip")
	}
}

func TestAddDuplicate(t *testing.T) {
	s := setupStore(t)
	dir := t.TempDir()
	if _, err := s.Add(dir); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if _, err := s.Add(dir); !errors.Is(err, ErrProjectExists) {
		t.Fatalf("expected ErrProjectExists, got %v", err)
	}
}

func TestAddRejectsFile(t *testing.T) {
	s := setupStore(t)
	f := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(f, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Add(f); err == nil {
		t.Fatal("expected error for a file path")
	}
}

func TestGetByNameOrPath(t *testing.T) {
	s := setupStore(t)
	dir := t.TempDir()
	p, _ := s.Add(dir)

	byName, err := s.Get(p.Name)
	if err != nil || byName.Path != p.Path {
		t.Fatalf("Get(name) = %v, %v", byName, err)
	}
	byPath, err := s.Get(dir)
	if err != nil || byPath.Name != p.Name {
		t.Fatalf("Get(path) = %v, %v", byPath, err)
	}
	if _, err := s.Get("missing"); err == nil {
		t.Error("expected not found")
	}
}

func TestInitCreatesDirAndFiresHook(t *testing.T) {
	s := setupStore(t)
	r := &fakeRunner{}
	dir := t.TempDir()

	p, err := s.Init(context.Background(), r, dir)
	if err != nil {
		t.Fatalf("Init error: %v", err)
	}
	if info, err := os.Stat(filepath.Join(dir, ".tasky")); err != nil || !info.IsDir() {
		t.Fatalf(".tasky not created: %v", err)
	}
	if len(r.fired) != 1 || r.fired[0].event != hook.ProjectPostInit || r.fired[0].root != p.Path {
		t.Fatalf("fired = %+v", r.fired)
	}
	if r.fired[0].payload["name"] != p.Name || r.fired[0].payload["project_path"] != p.Path {
		t.Errorf("payload = %v", r.fired[0].payload)
	}

	if _, err := s.Init(context.Background(), r, dir); !errors.Is(err, ErrProjectExists) {
		t.Errorf("second init: %v", err)
	}
	if len(r.fired) != 1 {
		t.Error("failed init should not fire hooks")
	}
}

func TestInitReportsHookFailure(t *testing.T) {
	s := setupStore(t)
	r := &fakeRunner{err: errors.New("boom")}

	p, err := s.Init(context.Background(), r, t.TempDir())
	if err == nil || !strings.Contains(err.Error(), "project.post_init") {
		t.Fatalf("expected hook error, got %v", err)
	}
	if p == nil {
		t.Fatal("project should still be registered")
	}
	if _, err := s.Get(p.Name); err != nil {
		t.Errorf("project missing after hook failure: %v", err)
	}
}

func TestForget(t *testing.T) {
	s := setupStore(t)
	r := &fakeRunner{}
	dir := t.TempDir()
	p, _ := s.Init(context.Background(), nil, dir)

	r.err = errors.New("hook failed")
	forgotten, err := s.Forget(context.Background(), r, p.Name)
	if err == nil {
		t.Error("hook error should be reported")
	}
	if forgotten == nil || forgotten.Path != p.Path {
		t.Fatalf("Forget = %+v", forgotten)
	}
	if len(r.fired) != 1 || r.fired[0].event != hook.ProjectPostForget {
		t.Errorf("fired = %+v", r.fired)
	}
	if _, err := s.Get(p.Name); err == nil {
		t.Error("project should be unregistered")
	}
	if _, err := os.Stat(filepath.Join(dir, ".tasky")); err != nil {
		t.Error(".tasky should be left on disk")
	}
}

func TestResolve(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, ".tasky"), 0o755); err != nil {
		t.Fatal(err)
	}
	deep := filepath.Join(root, "src", "pkg")
	if err := os.MkdirAll(deep, 0o755); err != nil {
		t.Fatal(err)
	}

	got, err := Resolve(deep)
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if got != root {
		t.Errorf("Resolve = %q, want %q", got, root)
	}

	if _, err := Resolve(t.TempDir()); !errors.Is(err, ErrNotInProject) {
		t.Errorf("expected ErrNotInProject, got %v", err)
	}
}

func TestScan(t *testing.T) {
	s := setupStore(t)
	root := t.TempDir()
	for _, d := range []string{"alpha/.tasky", "beta/.tasky", "beta/nested/.tasky", "plain", ".hidden/.tasky"} {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			t.Fatal(err)
		}
	}

	added, err := s.Scan(root, 2)
	if err != nil {
		t.Fatalf("Scan error: %v", err)
	}
	var names []string
	for _, p := range added {
		names = append(names, p.Name)
	}
	if strings.Join(names, ",") != "alpha,beta" {
		t.Errorf("scanned = %v, want [alpha beta]", names)
	}

	if _, err := s.Scan(root, -1); err == nil {
		t.Error("negative depth should fail")
	}
}

func TestScanReportsSkippedProjects(t *testing.T) {
	var logs bytes.Buffer
	prev := log.SetOutput(&logs)
	t.Cleanup(func() { log.SetOutput(prev) })

	s := setupStore(t)
	root := t.TempDir()
	for _, d := range []string{"one/app/.tasky", "two/app/.tasky"} {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			t.Fatal(err)
		}
	}

	added, err := s.Scan(root, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(added) != 1 || added[0].Path != filepath.Join(root, "one", "app") {
		t.Fatalf("added = %+v", added)
	}
	skipped := filepath.Join(root, "two", "app")
	if !strings.Contains(logs.String(), "skipping "+skipped) || !strings.Contains(logs.String(), "already registered") {
		t.Errorf("expected a warning for the name clash, got %q", logs.String())
	}

	// Re-scanning projects that are already registered is not a warning.
	logs.Reset()
	if _, err := s.Scan(filepath.Join(root, "one"), 1); err != nil {
		t.Fatal(err)
	}
	if logs.Len() != 0 {
		t.Errorf("re-scan logged %q", logs.String())
	}
}
