package hook

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnknownEvent is returned for event names outside AllEvents.
var ErrUnknownEvent = errors.New("unknown hook event")

// ManifestError reports a manifest that exists but cannot be used: bad JSON,
// a schema violation, or a filesystem failure while reading it.
type ManifestError struct {
	Path string
	Msg  string
	Err  error
}

func (e *ManifestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("hook manifest %s: %s: %v", e.Path, e.Msg, e.Err)
	}
	return fmt.Sprintf("hook manifest %s: %s", e.Path, e.Msg)
}

func (e *ManifestError) Unwrap() error { return e.Err }

// TimeoutError reports a hook killed for exceeding its timeout.
type TimeoutError struct {
	HookID  string
	Event   Event
	Timeout time.Duration
	Stderr  string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("hook %q (%s) timed out after %s", e.HookID, e.Event, e.Timeout)
}

// ExecutionError reports a hook that exited non-zero or could not be started.
// ExitCode is -1 when the process never produced an exit status.
type ExecutionError struct {
	HookID   string
	Event    Event
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ExecutionError) Error() string {
	msg := fmt.Sprintf("hook %q (%s) failed with exit code %d", e.HookID, e.Event, e.ExitCode)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		return msg + ": " + s
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// PostHookError reports a failed post-event hook. The operation it follows
// has already been committed.
type PostHookError struct {
	Event Event
	Err   error
}

func (e *PostHookError) Error() string {
	return fmt.Sprintf("%s hooks failed: %v", e.Event, e.Err)
}

func (e *PostHookError) Unwrap() error { return e.Err }
