package task

import (
	"context"

	"github.com/rnwolfe/tasky/internal/hook"
)

// HookRunner fires a lifecycle event and returns the final payload.
// *hook.Runner satisfies it.
type HookRunner interface {
	Run(ctx context.Context, projectRoot string, event hook.Event, payload hook.Payload) (hook.Payload, error)
}

// Service performs task operations for one project, firing the matching
// pre and post hooks around each one. Pre-hook failures abort the operation.
type Service struct {
	store *Store
	hooks HookRunner
	root  string
}

// NewService binds store and hooks to the project at root.
func NewService(store *Store, hooks HookRunner, root string) *Service {
	return &Service{store: store, hooks: hooks, root: root}
}

// Root returns the project root the service operates on.
func (s *Service) Root() string {
	return s.root
}

// Add runs task.pre_add, stores the resulting draft and runs task.post_add.
func (s *Service) Add(ctx context.Context, d Draft) (*Task, error) {
	pre, err := AddPayload(hook.TaskPreAdd, s.root, d)
	if err != nil {
		return nil, err
	}
	out, err := s.hooks.Run(ctx, s.root, hook.TaskPreAdd, pre)
	if err != nil {
		return nil, err
	}
	d, err = DraftFromPayload(out)
	if err != nil {
		return nil, err
	}

	id, err := s.store.Add(s.root, d)
	if err != nil {
		return nil, err
	}
	t, err := s.store.Get(s.root, id)
	if err != nil {
		return nil, err
	}
	return t, s.post(ctx, hook.TaskPostAdd, func() (hook.Payload, error) {
		return TaskPayload(hook.TaskPostAdd, t)
	})
}

// Import runs task.pre_import over the whole batch, stores it and runs
// task.post_import.
func (s *Service) Import(ctx context.Context, drafts []Draft) ([]int, error) {
	pre, err := ImportPayload(hook.TaskPreImport, s.root, drafts, nil)
	if err != nil {
		return nil, err
	}
	out, err := s.hooks.Run(ctx, s.root, hook.TaskPreImport, pre)
	if err != nil {
		return nil, err
	}
	drafts, err = DraftsFromPayload(out)
	if err != nil {
		return nil, err
	}

	ids, err := s.store.Import(s.root, drafts)
	if err != nil {
		return nil, err
	}
	return ids, s.post(ctx, hook.TaskPostImport, func() (hook.Payload, error) {
		return ImportPayload(hook.TaskPostImport, s.root, drafts, ids)
	})
}

// Update runs task.pre_update over c, applies the resulting changes and runs
// task.post_update.
func (s *Service) Update(ctx context.Context, id int, c Changes) (*Task, error) {
	if _, err := s.store.Get(s.root, id); err != nil {
		return nil, err
	}
	pre, err := UpdatePayload(hook.TaskPreUpdate, s.root, id, c)
	if err != nil {
		return nil, err
	}
	out, err := s.hooks.Run(ctx, s.root, hook.TaskPreUpdate, pre)
	if err != nil {
		return nil, err
	}
	c, err = ChangesFromPayload(out)
	if err != nil {
		return nil, err
	}

	if err := s.store.Update(s.root, id, c); err != nil {
		return nil, err
	}
	t, err := s.store.Get(s.root, id)
	if err != nil {
		return nil, err
	}
	return t, s.post(ctx, hook.TaskPostUpdate, func() (hook.Payload, error) {
		return UpdatePayload(hook.TaskPostUpdate, s.root, id, c)
	})
}

// Complete marks a task done between task.pre_complete and task.post_complete.
func (s *Service) Complete(ctx context.Context, id int) (*Task, error) {
	return s.transition(ctx, id, hook.TaskPreComplete, hook.TaskPostComplete, s.store.Complete)
}

// Reopen marks a task open between task.pre_reopen and task.post_reopen.
func (s *Service) Reopen(ctx context.Context, id int) (*Task, error) {
	return s.transition(ctx, id, hook.TaskPreReopen, hook.TaskPostReopen, s.store.Reopen)
}

// Remove deletes a task between task.pre_remove and task.post_remove. The
// returned task is the state before removal.
func (s *Service) Remove(ctx context.Context, id int) (*Task, error) {
	t, err := s.store.Get(s.root, id)
	if err != nil {
		return nil, err
	}
	if err := s.pre(ctx, hook.TaskPreRemove, t); err != nil {
		return nil, err
	}
	if err := s.store.Remove(s.root, id); err != nil {
		return nil, err
	}
	return t, s.post(ctx, hook.TaskPostRemove, func() (hook.Payload, error) {
		return TaskPayload(hook.TaskPostRemove, t)
	})
}

func (s *Service) transition(ctx context.Context, id int, preEvent, postEvent hook.Event, apply func(string, int) error) (*Task, error) {
	t, err := s.store.Get(s.root, id)
	if err != nil {
		return nil, err
	}
	if err := s.pre(ctx, preEvent, t); err != nil {
		return nil, err
	}
	if err := apply(s.root, id); err != nil {
		return nil, err
	}
	if t, err = s.store.Get(s.root, id); err != nil {
		return nil, err
	}
	return t, s.post(ctx, postEvent, func() (hook.Payload, error) {
		return TaskPayload(postEvent, t)
	})
}

// pre runs a veto-only pre hook; the returned payload is not applied because
// the operation has no fields for a hook to rewrite.
func (s *Service) pre(ctx context.Context, event hook.Event, t *Task) error {
	p, err := TaskPayload(event, t)
	if err != nil {
		return err
	}
	_, err = s.hooks.Run(ctx, s.root, event, p)
	return err
}

func (s *Service) post(ctx context.Context, event hook.Event, build func() (hook.Payload, error)) error {
	p, err := build()
	if err != nil {
		return &hook.PostHookError{Event: event, Err: err}
	}
	if _, err := s.hooks.Run(ctx, s.root, event, p); err != nil {
		return &hook.PostHookError{Event: event, Err: err}
	}
	return nil
}
