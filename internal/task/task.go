package task

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned when a task id does not exist in the project.
var ErrNotFound = errors.New("task not found")

// Task is a single project task.
type Task struct {
	ID          int
	ProjectPath string
	Name        string
	Details     string
	ParentID    *int
	Done        bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
}

// Draft is a task that has not been stored yet.
type Draft struct {
	Name     string `json:"name"`
	Details  string `json:"details"`
	ParentID *int   `json:"parent_id"`
}

// Changes holds the fields an update touches. Nil fields are left alone.
type Changes struct {
	Name    *string `json:"name,omitempty"`
	Details *string `json:"details,omitempty"`
}

// Empty reports whether c changes nothing.
func (c Changes) Empty() bool {
	return c.Name == nil && c.Details == nil
}

// Store handles task persistence.
type Store struct {
	db *sql.DB
}

// NewStore creates a new task store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Add creates a task in projectPath and returns its ID.
func (s *Store) Add(projectPath string, d Draft) (int, error) {
	return s.add(s.db, projectPath, d)
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
	QueryRow(query string, args ...any) *sql.Row
}

func (s *Store) add(q execer, projectPath string, d Draft) (int, error) {
	name := strings.TrimSpace(d.Name)
	if name == "" {
		return 0, fmt.Errorf("task name is required")
	}
	if d.ParentID != nil {
		var n int
		err := q.QueryRow(`SELECT COUNT(*) FROM tasks WHERE id = ? AND project_path = ?`, *d.ParentID, projectPath).Scan(&n)
		if err != nil {
			return 0, fmt.Errorf("checking parent: %w", err)
		}
		if n == 0 {
			return 0, fmt.Errorf("parent task #%d: %w", *d.ParentID, ErrNotFound)
		}
	}

	res, err := q.Exec(
		`INSERT INTO tasks (project_path, name, details, parent_id) VALUES (?, ?, ?, ?)`,
		projectPath, d.Name, d.Details, d.ParentID,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting task: %w", err)
	}
	id, _ := res.LastInsertId()
	return int(id), nil
}

// Import adds all drafts in one transaction and returns their IDs in order.
func (s *Store) Import(projectPath string, drafts []Draft) ([]int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("starting import: %w", err)
	}
	defer tx.Rollback()

	ids := make([]int, 0, len(drafts))
	for i, d := range drafts {
		id, err := s.add(tx, projectPath, d)
		if err != nil {
			return nil, fmt.Errorf("task %d: %w", i+1, err)
		}
		ids = append(ids, id)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing import: %w", err)
	}
	return ids, nil
}

// Get returns a single task by ID.
func (s *Store) Get(projectPath string, id int) (*Task, error) {
	row := s.db.QueryRow(
		`SELECT id, project_path, name, details, parent_id, done, created_at, updated_at, completed_at
		 FROM tasks WHERE id = ? AND project_path = ?`,
		id, projectPath,
	)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task #%d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading task #%d: %w", id, err)
	}
	return t, nil
}

// List returns the project's tasks in creation order.
func (s *Store) List(projectPath string, showDone bool) ([]Task, error) {
	query := `SELECT id, project_path, name, details, parent_id, done, created_at, updated_at, completed_at
		FROM tasks WHERE project_path = ?`
	if !showDone {
		query += ` AND done = 0`
	}
	query += ` ORDER BY id ASC`

	rows, err := s.db.Query(query, projectPath)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// Update applies c to the task.
func (s *Store) Update(projectPath string, id int, c Changes) error {
	sets := []string{}
	args := []any{}

	if c.Name != nil {
		if strings.TrimSpace(*c.Name) == "" {
			return fmt.Errorf("task name cannot be empty")
		}
		sets = append(sets, "name = ?")
		args = append(args, *c.Name)
	}
	if c.Details != nil {
		sets = append(sets, "details = ?")
		args = append(args, *c.Details)
	}
	if len(sets) == 0 {
		return nil
	}

	sets = append(sets, "updated_at = CURRENT_TIMESTAMP")
	args = append(args, id, projectPath)

	query := fmt.Sprintf("UPDATE tasks SET %s WHERE id = ? AND project_path = ?", strings.Join(sets, ", "))
	return s.expectRow(id, query, args...)
}

// Complete marks a task done.
func (s *Store) Complete(projectPath string, id int) error {
	if err := s.expectRow(id,
		`UPDATE tasks SET done = 1, completed_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND project_path = ? AND done = 0`,
		id, projectPath,
	); err != nil {
		return fmt.Errorf("%w (or already done)", err)
	}
	return nil
}

// Reopen marks a done task as open again.
func (s *Store) Reopen(projectPath string, id int) error {
	if err := s.expectRow(id,
		`UPDATE tasks SET done = 0, completed_at = NULL, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND project_path = ? AND done = 1`,
		id, projectPath,
	); err != nil {
		return fmt.Errorf("%w (or not done)", err)
	}
	return nil
}

// Remove deletes a task and its subtasks.
func (s *Store) Remove(projectPath string, id int) error {
	if err := s.expectRow(id, `DELETE FROM tasks WHERE id = ? AND project_path = ?`, id, projectPath); err != nil {
		return err
	}
	_, err := s.db.Exec(`DELETE FROM tasks WHERE parent_id = ? AND project_path = ?`, id, projectPath)
	return err
}

func (s *Store) expectRow(id int, query string, args ...any) error {
	res, err := s.db.Exec(query, args...)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("task #%d: %w", id, ErrNotFound)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (*Task, error) {
	var t Task
	var doneInt int
	var parent sql.NullInt64
	var completedAt sql.NullTime
	var createdStr, updatedStr string

	if err := row.Scan(&t.ID, &t.ProjectPath, &t.Name, &t.Details, &parent, &doneInt,
		&createdStr, &updatedStr, &completedAt); err != nil {
		return nil, err
	}
	t.Done = doneInt == 1
	if parent.Valid {
		p := int(parent.Int64)
		t.ParentID = &p
	}
	if completedAt.Valid {
		t.CompletedAt = &completedAt.Time
	}
	t.CreatedAt = parseTime(createdStr)
	t.UpdatedAt = parseTime(updatedStr)
	return &t, nil
}

func parseTime(raw string) time.Time {
	for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339Nano} {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts
		}
	}
	return time.Time{}
}
