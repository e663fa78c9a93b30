package hook

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeInvoker replays scripted results keyed by hook ID.
type fakeInvoker struct {
	mu      sync.Mutex
	calls   []string
	inputs  []string
	outputs map[string]string
	fail    map[string]error
}

func (f *fakeInvoker) Invoke(ctx context.Context, def Definition, payload Payload, env Env) (*Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, def.ID)
	f.inputs = append(f.inputs, payload.String())
	f.mu.Unlock()

	res := &Result{HookID: def.ID, Event: def.Event, Elapsed: time.Millisecond}
	if err, ok := f.fail[def.ID]; ok {
		res.ExitCode = 1
		res.Stderr = "boom"
		return res, err
	}
	if out, ok := f.outputs[def.ID]; ok {
		p, err := ParsePayload([]byte(out))
		if err != nil {
			return nil, err
		}
		res.Output = &p
	}
	return res, nil
}

type stepLog struct {
	mu    sync.Mutex
	steps []StepRecord
}

func (l *stepLog) Record(_ context.Context, s StepRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.steps = append(l.steps, s)
}

func defs(event Event, ids ...string) []Definition {
	out := make([]Definition, len(ids))
	for i, id := range ids {
		out[i] = Definition{ID: id, Event: event, Command: []string{"x"}, Timeout: time.Second}
	}
	return out
}

func TestPipelineThreadsPayload(t *testing.T) {
	inv := &fakeInvoker{outputs: map[string]string{
		"first": `{"name":"one"}`,
		"third": `{"name":"three"}`,
	}}
	rec := &stepLog{}
	p := NewPipeline(inv, rec)

	out, err := p.Execute(context.Background(), defs(TaskPreAdd, "first", "second", "third"), TaskPreAdd,
		mustPayload(t, `{"name":"zero"}`), Env{ProjectRoot: "/p"})
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if out.String() != `{"name":"three"}` {
		t.Errorf("final payload = %s", out)
	}

	wantInputs := []string{`{"name":"zero"}`, `{"name":"one"}`, `{"name":"one"}`}
	for i, want := range wantInputs {
		if inv.inputs[i] != want {
			t.Errorf("input to hook %d = %s, want %s", i, inv.inputs[i], want)
		}
	}

	if len(rec.steps) != 3 {
		t.Fatalf("recorded %d steps, want 3", len(rec.steps))
	}
	runID := rec.steps[0].RunID
	if runID == "" {
		t.Error("steps should carry a run ID")
	}
	for i, s := range rec.steps {
		if s.RunID != runID || s.Position != i || s.State != StateSucceeded || s.ProjectRoot != "/p" {
			t.Errorf("step %d = %+v", i, s)
		}
	}
	if !rec.steps[0].Mutated || rec.steps[1].Mutated || !rec.steps[2].Mutated {
		t.Error("Mutated should reflect which hooks emitted JSON")
	}
}

func TestPipelineFiltersByEvent(t *testing.T) {
	inv := &fakeInvoker{}
	hooks := append(defs(TaskPreAdd, "a"), defs(TaskPostAdd, "b")...)
	hooks = append(hooks, defs(TaskPreAdd, "c")...)

	if _, err := NewPipeline(inv, nil).Execute(context.Background(), hooks, TaskPreAdd, Payload{}, Env{}); err != nil {
		t.Fatal(err)
	}
	if strings.Join(inv.calls, ",") != "a,c" {
		t.Errorf("calls = %v, want [a c]", inv.calls)
	}
}

func TestPipelineNoHooksReturnsInput(t *testing.T) {
	inv := &fakeInvoker{}
	in := mustPayload(t, `{"k":"v"}`)
	out, err := NewPipeline(inv, nil).Execute(context.Background(), defs(TaskPostAdd, "a"), TaskPreAdd, in, Env{})
	if err != nil {
		t.Fatal(err)
	}
	if !out.Equal(in) || len(inv.calls) != 0 {
		t.Errorf("out = %s, calls = %v", out, inv.calls)
	}
}

func TestPipelineAbortsOnFailure(t *testing.T) {
	failure := &ExecutionError{HookID: "second", Event: TaskPreAdd, ExitCode: 1, Stderr: "boom"}
	inv := &fakeInvoker{
		outputs: map[string]string{"first": `{"n":1}`, "third": `{"n":3}`},
		fail:    map[string]error{"second": failure},
	}
	rec := &stepLog{}

	out, err := NewPipeline(inv, rec).Execute(context.Background(), defs(TaskPreAdd, "first", "second", "third"),
		TaskPreAdd, Payload{}, Env{})
	if err != failure {
		t.Fatalf("error should be returned unchanged, got %v", err)
	}
	if strings.Join(inv.calls, ",") != "first,second" {
		t.Errorf("calls = %v; hooks after the failure must not run", inv.calls)
	}
	if out.String() != `{"n":1}` {
		t.Errorf("payload on abort = %s, want the last good one", out)
	}
	if n := len(rec.steps); n != 2 || rec.steps[1].State != StateFailedAbort || rec.steps[1].ExitCode != 1 {
		t.Errorf("steps = %+v", rec.steps)
	}
}

func TestPipelineContinueOnError(t *testing.T) {
	hooks := defs(TaskPostComplete, "notify", "log")
	hooks[0].ContinueOnError = true
	inv := &fakeInvoker{
		outputs: map[string]string{"log": `{"logged":true}`},
		fail:    map[string]error{"notify": &TimeoutError{HookID: "notify", Event: TaskPostComplete, Timeout: time.Second}},
	}
	rec := &stepLog{}

	out, err := NewPipeline(inv, rec).Execute(context.Background(), hooks, TaskPostComplete,
		mustPayload(t, `{"task_id":1}`), Env{})
	if err != nil {
		t.Fatalf("continue_on_error hook should not fail the run: %v", err)
	}
	if out.String() != `{"logged":true}` {
		t.Errorf("final payload = %s", out)
	}
	if inv.inputs[1] != `{"task_id":1}` {
		t.Errorf("hook after a skipped failure saw %s", inv.inputs[1])
	}
	if rec.steps[0].State != StateFailedContinue || rec.steps[1].State != StateSucceeded {
		t.Errorf("states = %s, %s", rec.steps[0].State, rec.steps[1].State)
	}
}

func TestPipelineCancelledContextAbortsContinueHooks(t *testing.T) {
	hooks := defs(TaskPostAdd, "a", "b")
	hooks[0].ContinueOnError = true
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	inv := &fakeInvoker{fail: map[string]error{"a": context.Canceled}}

	_, err := NewPipeline(inv, nil).Execute(ctx, hooks, TaskPostAdd, Payload{}, Env{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(inv.calls) != 1 {
		t.Errorf("calls = %v", inv.calls)
	}
}

func TestMultiRecorder(t *testing.T) {
	var a, b stepLog
	var n int
	m := MultiRecorder{&a, nil, RecorderFunc(func(context.Context, StepRecord) { n++ }), &b}
	m.Record(context.Background(), StepRecord{HookID: "x"})
	if len(a.steps) != 1 || len(b.steps) != 1 || n != 1 {
		t.Errorf("fan-out: a=%d b=%d func=%d", len(a.steps), len(b.steps), n)
	}
}

// Real processes: each matching hook is spawned exactly once, in order.
func TestPipelineSpawnsEachHookOnce(t *testing.T) {
	root := newProject(t)
	trace := filepath.Join(t.TempDir(), "trace")
	script := func(id string) []string {
		return sh("cat >/dev/null; echo " + id + " >> " + trace)
	}
	hooks := []Definition{
		{ID: "one", Event: TaskPreRemove, Command: script("one"), Timeout: 5 * time.Second},
		{ID: "other", Event: TaskPostRemove, Command: script("other"), Timeout: 5 * time.Second},
		{ID: "two", Event: TaskPreRemove, Command: script("two"), Timeout: 5 * time.Second},
	}

	p := NewPipeline(NewExecInvoker(0), nil)
	if _, err := p.Execute(context.Background(), hooks, TaskPreRemove, mustPayload(t, `{"task_id":3}`), EnvFor(root)); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(trace)
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Fields(string(data)); strings.Join(got, ",") != "one,two" {
		t.Errorf("spawned = %v, want [one two]", got)
	}
}
