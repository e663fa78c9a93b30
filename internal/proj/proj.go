package proj

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rnwolfe/tasky/internal/hook"
	"github.com/rnwolfe/tasky/internal/log"
)

var (
	ErrProjectExists = errors.New("project already registered")
	ErrNotInProject  = errors.New("not inside a tasky project")
)

// Project is a registered project workspace.
type Project struct {
	Name      string
	Path      string
	CreatedAt time.Time
}

// HookRunner fires a lifecycle event. *hook.Runner satisfies it.
type HookRunner interface {
	Run(ctx context.Context, projectRoot string, event hook.Event, payload hook.Payload) (hook.Payload, error)
}

// Store owns the project registry.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Add registers the directory at path. An empty path means the cwd.
func (s *Store) Add(path string) (*Project, error) {
	abs, err := absDir(path)
	if err != nil {
		return nil, err
	}

	name := filepath.Base(abs)
	if strings.TrimSpace(name) == "" || name == string(filepath.Separator) {
		return nil, fmt.Errorf("invalid project name")
	}

	var existing string
	err = s.db.QueryRow(`SELECT name FROM projects WHERE name = ? OR path = ?`, name, abs).Scan(&existing)
	if err == nil {
		return nil, fmt.Errorf("%w: %s", ErrProjectExists, existing)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("check duplicates: %w", err)
	}

	now := time.Now().UTC()
	_, err = s.db.Exec(
		`INSERT INTO projects (name, path, created_at) VALUES (?, ?, ?)`,
		name, abs, now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("insert project: %w", err)
	}

	return &Project{Name: name, Path: abs, CreatedAt: now}, nil
}

func (s *Store) Remove(name string) error {
	res, err := s.db.Exec(`DELETE FROM projects WHERE name = ?`, strings.TrimSpace(name))
	if err != nil {
		return fmt.Errorf("remove project: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("project %q not found", name)
	}
	return nil
}

func (s *Store) List() ([]Project, error) {
	rows, err := s.db.Query(`SELECT name, path, created_at FROM projects ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		var p Project
		var created string
		if err := rows.Scan(&p.Name, &p.Path, &created); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		p.CreatedAt = parseTime(created)
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// Get looks a project up by name, falling back to its path.
func (s *Store) Get(nameOrPath string) (*Project, error) {
	key := strings.TrimSpace(nameOrPath)
	abs, _ := filepath.Abs(key)

	var p Project
	var created string
	err := s.db.QueryRow(
		`SELECT name, path, created_at FROM projects WHERE name = ? OR path = ? ORDER BY name = ? DESC LIMIT 1`,
		key, abs, key,
	).Scan(&p.Name, &p.Path, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("project %q not found", nameOrPath)
		}
		return nil, fmt.Errorf("load project: %w", err)
	}
	p.CreatedAt = parseTime(created)
	return &p, nil
}

// Init creates the .tasky directory at path, registers the project and
// fires project.post_init. A post_init failure is returned alongside the
// registered project.
func (s *Store) Init(ctx context.Context, hooks HookRunner, path string) (*Project, error) {
	abs, err := absDir(path)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Join(abs, hook.ProjectDirName), 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", hook.ProjectDirName, err)
	}

	p, err := s.Add(abs)
	if err != nil {
		return nil, err
	}
	return p, fire(ctx, hooks, p, hook.ProjectPostInit)
}

// Forget fires project.post_forget and then unregisters the project. The
// .tasky directory is left on disk. A hook failure does not keep the project
// registered.
func (s *Store) Forget(ctx context.Context, hooks HookRunner, nameOrPath string) (*Project, error) {
	p, err := s.Get(nameOrPath)
	if err != nil {
		return nil, err
	}
	hookErr := fire(ctx, hooks, p, hook.ProjectPostForget)
	if err := s.Remove(p.Name); err != nil {
		return nil, err
	}
	return p, hookErr
}

// Scan registers every directory below root, up to depth levels deep, that
// already contains a .tasky directory.
func (s *Store) Scan(root string, depth int) ([]Project, error) {
	if strings.TrimSpace(root) == "" {
		root = "."
	}
	if depth < 0 {
		return nil, fmt.Errorf("depth must be >= 0")
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve scan root: %w", err)
	}

	var added []Project
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil || !d.IsDir() {
			return nil
		}

		rel, _ := filepath.Rel(absRoot, path)
		if depthFromRel(rel) > depth {
			return filepath.SkipDir
		}
		if path != absRoot && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}

		if isProjectRoot(path) {
			p, err := s.Add(path)
			switch {
			case err == nil:
				added = append(added, *p)
			case s.registered(path):
				log.Debug("scan: %s already registered", path)
			default:
				log.Warn("scan: skipping %s: %v", path, err)
			}
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan projects: %w", err)
	}

	sort.Slice(added, func(i, j int) bool { return added[i].Name < added[j].Name })
	return added, nil
}

// Resolve walks up from dir to the nearest directory holding .tasky.
func Resolve(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}
	for cur := abs; ; {
		if isProjectRoot(cur) {
			return cur, nil
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return "", fmt.Errorf("%w: %s", ErrNotInProject, abs)
		}
		cur = parent
	}
}

// payload is what project hooks receive on stdin.
type payload struct {
	Event       hook.Event `json:"event"`
	ProjectPath string     `json:"project_path"`
	Name        string     `json:"name"`
}

func fire(ctx context.Context, hooks HookRunner, p *Project, event hook.Event) error {
	if hooks == nil {
		return nil
	}
	pl, err := hook.NewPayload(payload{Event: event, ProjectPath: p.Path, Name: p.Name})
	if err != nil {
		return err
	}
	if _, err := hooks.Run(ctx, p.Path, event, pl); err != nil {
		return &hook.PostHookError{Event: event, Err: err}
	}
	return nil
}

func isProjectRoot(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, hook.ProjectDirName))
	return err == nil && info.IsDir()
}

func absDir(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("resolve cwd: %w", err)
		}
		path = cwd
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("stat path: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("project path must be a directory")
	}
	return abs, nil
}

func parseTime(raw string) time.Time {
	for _, layout := range []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
	} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}

func depthFromRel(rel string) int {
	if rel == "." || rel == "" {
		return 0
	}
	return strings.Count(rel, string(filepath.Separator)) + 1
}

// registered reports whether path itself is already in the registry.
func (s *Store) registered(path string) bool {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM projects WHERE path = ?`, path).Scan(&n)
	return err == nil && n > 0
}
