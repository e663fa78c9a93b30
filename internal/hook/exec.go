package hook

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/rnwolfe/tasky/internal/log"
)

// minWaitDelay bounds how long Wait keeps reading pipes held open by
// descendants after the hook is signalled.
const minWaitDelay = 100 * time.Millisecond

// Result is the outcome of running one hook once.
type Result struct {
	HookID   string
	Event    Event
	ExitCode int
	Stdout   []byte
	Stderr   string
	// Output is the candidate next payload, or nil when stdout held no JSON object.
	Output   *Payload
	Elapsed  time.Duration
	TimedOut bool
}

// Invoker runs a single hook for a single payload. It does no filtering or
// ordering of its own.
type Invoker interface {
	Invoke(ctx context.Context, def Definition, payload Payload, env Env) (*Result, error)
}

// ExecInvoker runs hooks as child processes.
type ExecInvoker struct {
	// KillGrace is the delay between SIGTERM and SIGKILL on timeout.
	KillGrace time.Duration
}

// NewExecInvoker returns an invoker with the given kill grace period.
func NewExecInvoker(killGrace time.Duration) *ExecInvoker {
	return &ExecInvoker{KillGrace: killGrace}
}

// Invoke spawns def.Command in env.HooksDir, writes payload to its stdin and
// waits at most def.Timeout. It returns *TimeoutError or *ExecutionError on
// failure; the Result is populated in every case.
func (e *ExecInvoker) Invoke(ctx context.Context, def Definition, payload Payload, env Env) (*Result, error) {
	res := &Result{HookID: def.ID, Event: def.Event, ExitCode: -1}
	if len(def.Command) == 0 {
		return res, &ExecutionError{HookID: def.ID, Event: def.Event, ExitCode: -1, Err: errors.New("empty command")}
	}

	timeout := def.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, def.Command[0], def.Command[1:]...)
	cmd.Dir = env.HooksDir
	cmd.Env = append(os.Environ(),
		EnvEvent+"="+string(def.Event),
		EnvHookID+"="+def.ID,
		EnvProjectRoot+"="+env.ProjectRoot,
		EnvHooksDir+"="+env.HooksDir,
	)
	cmd.Stdin = bytes.NewReader(payload.Bytes())

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	setProcGroup(cmd)
	if e.KillGrace > 0 {
		cmd.Cancel = func() error { return terminateProcGroup(cmd) }
		cmd.WaitDelay = e.KillGrace
	} else {
		cmd.Cancel = func() error { return killProcGroup(cmd) }
		cmd.WaitDelay = minWaitDelay
	}

	start := time.Now()
	runErr := cmd.Run()
	res.Elapsed = time.Since(start)
	res.Stdout = stdout.Bytes()
	res.Stderr = stderr.String()
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}

	if runCtx.Err() != nil {
		// Leader is gone; make sure nothing it spawned outlives it.
		_ = killProcGroup(cmd)
		if ctx.Err() != nil {
			return res, fmt.Errorf("hook %q (%s): %w", def.ID, def.Event, ctx.Err())
		}
		res.TimedOut = true
		log.Debug("hook %s timed out after %s", def.ID, timeout)
		return res, &TimeoutError{HookID: def.ID, Event: def.Event, Timeout: timeout, Stderr: res.Stderr}
	}

	if errors.Is(runErr, exec.ErrWaitDelay) && res.ExitCode == 0 {
		// Exited cleanly but left a background process holding stdout open.
		log.Debug("hook %s left stdout open after exit", def.ID)
		runErr = nil
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			res.ExitCode = -1
		}
		return res, &ExecutionError{
			HookID:   def.ID,
			Event:    def.Event,
			ExitCode: res.ExitCode,
			Stderr:   res.Stderr,
			Err:      runErr,
		}
	}

	res.Output = candidatePayload(def.ID, res.Stdout)
	log.Debug("hook %s exited 0 in %s (mutated=%t)", def.ID, res.Elapsed.Round(time.Millisecond), res.Output != nil)
	return res, nil
}

// candidatePayload returns the JSON object on stdout, or nil if there is none.
func candidatePayload(hookID string, stdout []byte) *Payload {
	if len(bytes.TrimSpace(stdout)) == 0 {
		return nil
	}
	p, err := ParsePayload(stdout)
	if err != nil {
		log.Debug("hook %s stdout is not a JSON object, payload unchanged: %v", hookID, err)
		return nil
	}
	return &p
}
