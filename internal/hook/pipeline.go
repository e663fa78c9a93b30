package hook

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/rnwolfe/tasky/internal/log"
)

// State is the position of a hook or a whole event run in the pipeline.
//
//	PENDING → RUNNING(hook) → SUCCEEDED | FAILED_CONTINUE | FAILED_ABORT → ... → COMPLETED | ABORTED
type State string

const (
	StatePending        State = "pending"
	StateRunning        State = "running"
	StateSucceeded      State = "succeeded"
	StateFailedContinue State = "failed_continue"
	StateFailedAbort    State = "failed_abort"
	StateCompleted      State = "completed"
	StateAborted        State = "aborted"
)

// StepRecord describes one finished hook inside an event run.
type StepRecord struct {
	RunID       string
	ProjectRoot string
	Event       Event
	HookID      string
	Position    int
	State       State
	ExitCode    int
	Elapsed     time.Duration
	Stderr      string
	Mutated     bool
	At          time.Time
}

// Recorder observes pipeline steps. Implementations must not block for long;
// they run inline between hooks.
type Recorder interface {
	Record(ctx context.Context, step StepRecord)
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(ctx context.Context, step StepRecord)

// Record calls f.
func (f RecorderFunc) Record(ctx context.Context, step StepRecord) { f(ctx, step) }

// MultiRecorder fans each step out to several recorders in order.
type MultiRecorder []Recorder

// Record forwards step to every non-nil recorder.
func (m MultiRecorder) Record(ctx context.Context, step StepRecord) {
	for _, r := range m {
		if r != nil {
			r.Record(ctx, step)
		}
	}
}

// Pipeline runs the hooks registered for one event in order, threading the
// payload from each hook to the next.
type Pipeline struct {
	invoker  Invoker
	recorder Recorder
}

// NewPipeline creates a pipeline. rec may be nil.
func NewPipeline(inv Invoker, rec Recorder) *Pipeline {
	return &Pipeline{invoker: inv, recorder: rec}
}

// Execute runs every hook in hooks whose Event matches event, in slice order.
//
// A hook that emits a JSON object replaces the payload wholesale; one that
// emits nothing leaves it alone. A failing hook with ContinueOnError is logged
// and skipped. Any other failure stops the run and its *ExecutionError or
// *TimeoutError is returned unchanged, together with the last good payload.
func (p *Pipeline) Execute(ctx context.Context, hooks []Definition, event Event, payload Payload, env Env) (Payload, error) {
	matched := filterHooks(hooks, event)
	if len(matched) == 0 {
		return payload, nil
	}

	runID := uuid.NewString()
	current := payload

	for i, def := range matched {
		res, err := p.invoker.Invoke(ctx, def, current, env)
		step := StepRecord{
			RunID:       runID,
			ProjectRoot: env.ProjectRoot,
			Event:       event,
			HookID:      def.ID,
			Position:    i,
			At:          time.Now().UTC(),
		}
		if res != nil {
			step.ExitCode = res.ExitCode
			step.Elapsed = res.Elapsed
			step.Stderr = res.Stderr
		}

		if err != nil {
			if def.ContinueOnError && ctx.Err() == nil {
				log.Warn("%v (continue_on_error, payload unchanged)", err)
				step.State = StateFailedContinue
				p.record(ctx, step)
				continue
			}
			step.State = StateFailedAbort
			p.record(ctx, step)
			log.Debug("event %s aborted at hook %s; %d hooks skipped", event, def.ID, len(matched)-i-1)
			return current, err
		}

		step.State = StateSucceeded
		if res != nil && res.Output != nil {
			current = *res.Output
			step.Mutated = true
		}
		p.record(ctx, step)
	}

	return current, nil
}

func (p *Pipeline) record(ctx context.Context, step StepRecord) {
	if p.recorder != nil {
		p.recorder.Record(ctx, step)
	}
}
