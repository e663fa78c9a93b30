package hook

import (
	"context"
	"fmt"
	"sync/atomic"
)

// Runner is the entry point task and project commands use to fire events.
type Runner struct {
	store    *ManifestStore
	pipeline *Pipeline
	disabled atomic.Bool
}

// NewRunner combines a manifest store and a pipeline.
func NewRunner(store *ManifestStore, pipeline *Pipeline) *Runner {
	return &Runner{store: store, pipeline: pipeline}
}

// SetEnabled turns hook execution on or off. A disabled runner returns every
// payload unchanged.
func (r *Runner) SetEnabled(enabled bool) {
	r.disabled.Store(!enabled)
}

// Store returns the manifest store backing the runner.
func (r *Runner) Store() *ManifestStore {
	return r.store
}

// Run fires event for the project at projectRoot and returns the final
// payload. Projects without a manifest get payload back untouched. Manifest,
// execution and timeout errors are returned as-is for the caller to present.
func (r *Runner) Run(ctx context.Context, projectRoot string, event Event, payload Payload) (Payload, error) {
	if !event.Valid() {
		return payload, fmt.Errorf("%w: %q", ErrUnknownEvent, event)
	}
	if r.disabled.Load() {
		return payload, nil
	}

	m, err := r.store.Get(projectRoot)
	if err != nil {
		return payload, err
	}
	if m == nil {
		return payload, nil
	}

	root := normalizeRoot(projectRoot)
	return r.pipeline.Execute(ctx, m.Hooks, event, payload, EnvFor(root))
}
