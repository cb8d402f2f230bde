// Package taskstate is the client for the task-state service: a small
// persistent store of tasks and per-instance heartbeats (SS3). Two
// backends implement the same Store interface — RPCClient, a line-delimited
// JSON-RPC 2.0 stdio client matching the original Python server's wire
// protocol, and PostgresStore, a local drop-in replacement grounded on
// ent0n29's store_postgres.go.
package taskstate

import (
	"context"

	"github.com/lokutor-ai/jarvisd/pkg/model"
)

// allowedTaskFields are the only columns update_task may touch, matching
// the original server's allowed_fields list.
var allowedTaskFields = map[string]bool{
	"title":          true,
	"description":    true,
	"status":         true,
	"priority":       true,
	"assignee":       true,
	"parent_task_id": true,
	"metadata":       true,
}

var allowedInstanceFields = map[string]bool{
	"current_task_id":  true,
	"status":           true,
	"working_directory": true,
	"metadata":         true,
}

func validTaskStatus(s model.TaskStatus) bool {
	switch s {
	case model.TaskPending, model.TaskInProgress, model.TaskCompleted, model.TaskBlocked:
		return true
	}
	return false
}

func validPriority(p model.TaskPriority) bool {
	switch p {
	case model.PriorityLow, model.PriorityMedium, model.PriorityHigh, model.PriorityCritical:
		return true
	}
	return false
}

func validInstanceStatus(s model.InstanceStatus) bool {
	switch s {
	case model.InstanceActive, model.InstanceIdle, model.InstanceBusy:
		return true
	}
	return false
}

// TaskFilter narrows query_tasks results. Zero-value fields are ignored,
// matching the original's "only apply filters that were actually passed"
// behavior.
type TaskFilter struct {
	ID                 string
	Status             model.TaskStatus
	Priority           model.TaskPriority
	Assignee           string
	ParentTaskID       string
	TitleContains      string
	DescriptionContains string
}

// CreateTaskParams mirrors create_task's optional-field arguments.
type CreateTaskParams struct {
	Title        string
	Description  string
	Status       model.TaskStatus
	Priority     model.TaskPriority
	Assignee     string
	ParentTaskID string
	Metadata     []byte
}

// Store is every operation the Orchestrator Core and Task Router need from
// the task-state service (SS6). Both backends implement it so callers never
// branch on which one is wired in.
type Store interface {
	CreateTask(ctx context.Context, params CreateTaskParams) (model.Task, error)
	UpdateTask(ctx context.Context, id string, updates map[string]any) (model.Task, error)
	DeleteTask(ctx context.Context, id string) (model.Task, error)
	GetTask(ctx context.Context, id string) (model.Task, []string, error)
	QueryTasks(ctx context.Context, filter TaskFilter) ([]model.Task, error)

	GetInstanceState(ctx context.Context, instanceID string) (model.InstanceState, error)
	SetInstanceState(ctx context.Context, instanceID string, updates map[string]any) (model.InstanceState, error)
	ListActiveInstances(ctx context.Context) ([]model.InstanceState, error)
	Heartbeat(ctx context.Context, instanceID string) (model.InstanceState, error)

	Close() error
}
