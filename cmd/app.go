package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rnwolfe/tasky/internal/config"
	"github.com/rnwolfe/tasky/internal/hook"
	"github.com/rnwolfe/tasky/internal/log"
	"github.com/rnwolfe/tasky/internal/proj"
	"github.com/rnwolfe/tasky/internal/store"
	"github.com/rnwolfe/tasky/internal/task"
	"github.com/rnwolfe/tasky/internal/ui"
	"github.com/spf13/cobra"
)

// app holds the pieces task, project and hook commands share for one
// invocation.
type app struct {
	cfg      *config.Config
	db       *store.DB
	runner   *hook.Runner
	invoker  *hook.ExecInvoker
	audit    *hook.SQLRecorder
	projects *proj.Store
}

func openApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	db, err := store.Open()
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	audit := hook.NewSQLRecorder(db.Conn())
	recorders := hook.MultiRecorder{hook.RecorderFunc(logStep)}
	if cfg.Hooks.AuditEnabled() {
		recorders = append(recorders, audit)
	}
	inv := hook.NewExecInvoker(cfg.Hooks.Grace())
	runner := hook.NewRunner(hook.NewManifestStore(), hook.NewPipeline(inv, recorders))
	runner.SetEnabled(cfg.Hooks.IsEnabled())

	return &app{
		cfg:      cfg,
		db:       db,
		runner:   runner,
		invoker:  inv,
		audit:    audit,
		projects: proj.NewStore(db.Conn()),
	}, nil
}

// logStep traces every hook step at debug level (visible with --verbose).
func logStep(_ context.Context, step hook.StepRecord) {
	log.Debug("hook %s %s #%d: %s (exit %d, %s)",
		step.Event, step.HookID, step.Position, step.State, step.ExitCode, step.Elapsed.Round(time.Millisecond))
}

func (a *app) Close() error {
	return a.db.Close()
}

// projectRoot resolves --project, or the nearest .tasky above the cwd.
func (a *app) projectRoot() (string, error) {
	if projectFlag != "" {
		p, err := a.projects.Get(projectFlag)
		if err != nil {
			return "", err
		}
		return p.Path, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("resolve cwd: %w", err)
	}
	root, err := proj.Resolve(cwd)
	if errors.Is(err, proj.ErrNotInProject) {
		return "", fmt.Errorf("%w (run %s first)", err, ui.Accent.Render("tasky project init"))
	}
	return root, err
}

func (a *app) tasks() (*task.Service, error) {
	root, err := a.projectRoot()
	if err != nil {
		return nil, err
	}
	return task.NewService(task.NewStore(a.db.Conn()), a.runner, root), nil
}

// reportPostHook prints a post-event hook failure as a warning and clears it.
// Any other error is returned unchanged.
func reportPostHook(err error) error {
	var phe *hook.PostHookError
	if errors.As(err, &phe) {
		ui.Warn(phe.Error())
		return nil
	}
	return err
}

// commandContext returns the command's context, or Background when the
// command was invoked directly.
func commandContext(cmd *cobra.Command) context.Context {
	if cmd != nil && cmd.Context() != nil {
		return cmd.Context()
	}
	return context.Background()
}
