package hook

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rnwolfe/tasky/internal/log"
)

// maxAuditStderr caps how much hook stderr is stored per step.
const maxAuditStderr = 4096

// SQLRecorder persists pipeline steps to the hook_runs table.
type SQLRecorder struct {
	db *sql.DB
}

// NewSQLRecorder returns a recorder writing to db.
func NewSQLRecorder(db *sql.DB) *SQLRecorder {
	return &SQLRecorder{db: db}
}

// Record inserts step. Failures are logged, never returned: auditing must not
// change the outcome of a hook run.
func (r *SQLRecorder) Record(ctx context.Context, step StepRecord) {
	stderr := step.Stderr
	if len(stderr) > maxAuditStderr {
		stderr = stderr[:maxAuditStderr]
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO hook_runs (run_id, project_path, event, hook_id, position, state, exit_code, elapsed_ms, stderr, mutated, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		step.RunID, step.ProjectRoot, string(step.Event), step.HookID, step.Position, string(step.State),
		step.ExitCode, step.Elapsed.Milliseconds(), stderr, step.Mutated, step.At.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		log.Warn("recording hook run %s/%s: %v", step.RunID, step.HookID, err)
	}
}

// Recent returns up to limit steps, newest first. An empty projectRoot means
// all projects.
func (r *SQLRecorder) Recent(ctx context.Context, projectRoot string, limit int) ([]StepRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT run_id, project_path, event, hook_id, position, state, exit_code, elapsed_ms, stderr, mutated, created_at
		FROM hook_runs`
	var args []any
	if projectRoot != "" {
		query += ` WHERE project_path = ?`
		args = append(args, projectRoot)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying hook runs: %w", err)
	}
	defer rows.Close()

	var out []StepRecord
	for rows.Next() {
		var (
			s         StepRecord
			event     string
			state     string
			elapsedMS int64
			createdAt string
		)
		if err := rows.Scan(&s.RunID, &s.ProjectRoot, &event, &s.HookID, &s.Position, &state,
			&s.ExitCode, &elapsedMS, &s.Stderr, &s.Mutated, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning hook run: %w", err)
		}
		s.Event = Event(event)
		s.State = State(state)
		s.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		s.At, _ = time.Parse(time.RFC3339Nano, createdAt)
		out = append(out, s)
	}
	return out, rows.Err()
}
