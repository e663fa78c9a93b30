package task

import (
	"fmt"

	"github.com/rnwolfe/tasky/internal/hook"
)

// Payload shapes handed to hooks. Field order is the order hooks see.

type addPayload struct {
	Event       hook.Event `json:"event"`
	ProjectPath string     `json:"project_path"`
	Draft
}

type taskPayload struct {
	Event       hook.Event `json:"event"`
	ProjectPath string     `json:"project_path"`
	TaskID      int        `json:"task_id"`
	Name        string     `json:"name"`
	Details     string     `json:"details"`
	ParentID    *int       `json:"parent_id"`
	Done        bool       `json:"done"`
}

type updatePayload struct {
	Event       hook.Event `json:"event"`
	ProjectPath string     `json:"project_path"`
	TaskID      int        `json:"task_id"`
	Changes     Changes    `json:"changes"`
}

type importPayload struct {
	Event       hook.Event `json:"event"`
	ProjectPath string     `json:"project_path"`
	Tasks       []Draft    `json:"tasks"`
	TaskIDs     []int      `json:"task_ids,omitempty"`
}

// AddPayload describes a task about to be, or just, added.
func AddPayload(event hook.Event, projectPath string, d Draft) (hook.Payload, error) {
	return hook.NewPayload(addPayload{Event: event, ProjectPath: projectPath, Draft: d})
}

// DraftFromPayload reads the (possibly hook-modified) draft back.
func DraftFromPayload(p hook.Payload) (Draft, error) {
	var v addPayload
	if err := p.Decode(&v); err != nil {
		return Draft{}, fmt.Errorf("decoding task from hook payload: %w", err)
	}
	return v.Draft, nil
}

// TaskPayload describes an existing task for remove, complete and reopen events.
func TaskPayload(event hook.Event, t *Task) (hook.Payload, error) {
	return hook.NewPayload(taskPayload{
		Event:       event,
		ProjectPath: t.ProjectPath,
		TaskID:      t.ID,
		Name:        t.Name,
		Details:     t.Details,
		ParentID:    t.ParentID,
		Done:        t.Done,
	})
}

// UpdatePayload describes the changes about to be, or just, applied to a task.
func UpdatePayload(event hook.Event, projectPath string, id int, c Changes) (hook.Payload, error) {
	return hook.NewPayload(updatePayload{Event: event, ProjectPath: projectPath, TaskID: id, Changes: c})
}

// ChangesFromPayload reads the (possibly hook-modified) changes back.
func ChangesFromPayload(p hook.Payload) (Changes, error) {
	var v updatePayload
	if err := p.Decode(&v); err != nil {
		return Changes{}, fmt.Errorf("decoding changes from hook payload: %w", err)
	}
	return v.Changes, nil
}

// ImportPayload describes a batch of tasks. ids is empty for pre events.
func ImportPayload(event hook.Event, projectPath string, drafts []Draft, ids []int) (hook.Payload, error) {
	if drafts == nil {
		drafts = []Draft{}
	}
	return hook.NewPayload(importPayload{Event: event, ProjectPath: projectPath, Tasks: drafts, TaskIDs: ids})
}

// DraftsFromPayload reads the (possibly hook-modified) batch back.
func DraftsFromPayload(p hook.Payload) ([]Draft, error) {
	var v importPayload
	if err := p.Decode(&v); err != nil {
		return nil, fmt.Errorf("decoding tasks from hook payload: %w", err)
	}
	return v.Tasks, nil
}
