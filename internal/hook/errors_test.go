package hook

import (
	"errors"
	"io/fs"
	"testing"
	"time"
)

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			"manifest with cause",
			&ManifestError{Path: "/p/hook.json", Msg: "reading manifest", Err: fs.ErrPermission},
			"hook manifest /p/hook.json: reading manifest: permission denied",
		},
		{
			"manifest schema",
			&ManifestError{Path: "/p/hook.json", Msg: "version is required"},
			"hook manifest /p/hook.json: version is required",
		},
		{
			"timeout",
			&TimeoutError{HookID: "slow", Event: TaskPreAdd, Timeout: 2 * time.Second},
			`hook "slow" (task.pre_add) timed out after 2s`,
		},
		{
			"execution with stderr",
			&ExecutionError{HookID: "lint", Event: TaskPreUpdate, ExitCode: 1, Stderr: "bad name\n"},
			`hook "lint" (task.pre_update) failed with exit code 1: bad name`,
		},
		{
			"execution start failure",
			&ExecutionError{HookID: "ghost", Event: TaskPreAdd, ExitCode: -1, Err: fs.ErrNotExist},
			`hook "ghost" (task.pre_add) failed with exit code -1: file does not exist`,
		},
		{
			"execution bare",
			&ExecutionError{HookID: "x", Event: TaskPostAdd, ExitCode: 2},
			`hook "x" (task.post_add) failed with exit code 2`,
		},
		{
			"post hook",
			&PostHookError{Event: TaskPostAdd, Err: errors.New("boom")},
			"task.post_add hooks failed: boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestErrorsUnwrap(t *testing.T) {
	inner := &ExecutionError{HookID: "x", Event: TaskPostAdd, ExitCode: 1, Err: fs.ErrNotExist}
	wrapped := &PostHookError{Event: TaskPostAdd, Err: inner}

	var ee *ExecutionError
	if !errors.As(wrapped, &ee) || ee != inner {
		t.Error("PostHookError should unwrap to the hook error")
	}
	if !errors.Is(wrapped, fs.ErrNotExist) {
		t.Error("unwrap chain should reach the start failure")
	}
	if !errors.Is(&ManifestError{Err: fs.ErrPermission}, fs.ErrPermission) {
		t.Error("ManifestError should unwrap its cause")
	}
}
