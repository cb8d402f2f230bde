// Package model holds the plain data types shared across the orchestrator:
// audio frames/clips, pane state, assignments, conversation turns, and the
// task-state service's task/instance records.
package model

import "time"

// SampleRate is the fixed capture rate the whole pipeline assumes.
const SampleRate = 16000

// FrameSamples is 80ms of audio at SampleRate, 16-bit mono.
const FrameSamples = 1280

// Frame is one 80ms slice of 16-bit signed PCM, mono.
type Frame struct {
	Samples []int16
}

// Clip is a variable-length buffer representing one utterance.
type Clip struct {
	Samples    []int16
	SampleRate int
}

// Duration reports how long the clip runs for.
func (c Clip) Duration() time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(c.Samples)) * time.Second / time.Duration(c.SampleRate)
}

// PaneState is the inferred activity state of a watched tmux pane.
type PaneState string

const (
	PaneUnknown PaneState = "UNKNOWN"
	PaneWorking PaneState = "WORKING"
	PaneIdle    PaneState = "IDLE"
	PaneErrored PaneState = "ERRORED"
)

// PaneRecord is the Pane Monitor's per-window bookkeeping. Owned and mutated
// only by the monitor's goroutine; callbacks receive copies.
type PaneRecord struct {
	Window            int
	State             PaneState
	LastDigest        uint64
	LastStateChangeTS time.Time
	LastSnapshot      string
}

// PaneTransition is the event posted to callbacks on a state change.
type PaneTransition struct {
	Window      int
	OldState    PaneState
	NewState    PaneState
	TailSnippet string
	At          time.Time
}

// AssignmentStatus tracks the lifecycle of a Task Router assignment.
type AssignmentStatus string

const (
	AssignmentActive    AssignmentStatus = "active"
	AssignmentCompleted AssignmentStatus = "completed"
	AssignmentCancelled AssignmentStatus = "cancelled"
	AssignmentErrored   AssignmentStatus = "errored"
)

// Assignment records that a specific pane was asked to run a specific
// prompt and is expected to return to idle when done.
type Assignment struct {
	Window     int
	Prompt     string
	AssignedTS time.Time
	Status     AssignmentStatus
}

// WindowInfo describes one multiplexer window for listing.
type WindowInfo struct {
	Window       int
	Name         string
	Active       bool
	Task         string
	TaskStatus   AssignmentStatus
	HasAssignment bool
}

// ConversationTurn is one user/assistant exchange, held in a bounded ring by
// the Brain Client only (SS9: not shared with Fast Router or Local LLM).
type ConversationTurn struct {
	UserText      string
	AssistantText string
	TS            time.Time
}

// TaskStatus is the lifecycle of a task-state service task.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskBlocked    TaskStatus = "blocked"
)

// TaskPriority ranks a task's urgency.
type TaskPriority string

const (
	PriorityLow      TaskPriority = "low"
	PriorityMedium   TaskPriority = "medium"
	PriorityHigh     TaskPriority = "high"
	PriorityCritical TaskPriority = "critical"
)

// Task is the task-state service's tool invocation record.
type Task struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	Description  string       `json:"description,omitempty"`
	Status       TaskStatus   `json:"status"`
	Priority     TaskPriority `json:"priority"`
	Assignee     string       `json:"assignee,omitempty"`
	ParentTaskID string       `json:"parent_task_id,omitempty"`
	Metadata     []byte       `json:"metadata,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
	CompletedAt  *time.Time   `json:"completed_at,omitempty"`
}

// InstanceStatus is an agent instance's reported activity.
type InstanceStatus string

const (
	InstanceActive InstanceStatus = "active"
	InstanceIdle   InstanceStatus = "idle"
	InstanceBusy   InstanceStatus = "busy"
)

// InstanceState is the task-state service's heartbeat record.
type InstanceState struct {
	InstanceID       string         `json:"instance_id"`
	CurrentTaskID    string         `json:"current_task_id,omitempty"`
	Status           InstanceStatus `json:"status"`
	WorkingDirectory string         `json:"working_directory,omitempty"`
	LastHeartbeat    time.Time      `json:"last_heartbeat"`
	Metadata         []byte         `json:"metadata,omitempty"`
}

// ActiveWindow is 5 minutes per SS3's instance-liveness invariant.
const ActiveWindow = 5 * time.Minute

// IsActive reports whether the instance's last heartbeat is within ActiveWindow of now.
func (s InstanceState) IsActive(now time.Time) bool {
	return now.Sub(s.LastHeartbeat) <= ActiveWindow
}

// RAGHit is one knowledge-base search result.
type RAGHit struct {
	ID         string  `json:"id"`
	Document   string  `json:"document"`
	Metadata   string  `json:"metadata,omitempty"`
	Collection string  `json:"collection"`
	Distance   float64 `json:"distance"`
}

// RAGRelevanceThreshold is the distance below which a RAG hit is usable context.
const RAGRelevanceThreshold = 1.5

// ScreenSnapshot is the richer Screen Context variant this spec standardizes
// on: active window, mouse position, and screen geometry on every call, with
// an optional vision description layered on top.
type ScreenSnapshot struct {
	ActiveWindowTitle string
	MouseX, MouseY    int
	ScreenWidth       int
	ScreenHeight      int
	Windows           []string
	VisionDescription string
	CapturedAt        time.Time
}

// BrainMode is the Brain Client's quick/full decision.
type BrainMode string

const (
	BrainModeQuick BrainMode = "quick"
	BrainModeFull  BrainMode = "full"
)

// IntentCategory is the Local LLM Client's classify_intent output.
type IntentCategory string

const (
	IntentSimple    IntentCategory = "simple"
	IntentComplex   IntentCategory = "complex"
	IntentAction    IntentCategory = "action"
	IntentTmux      IntentCategory = "tmux"
	IntentKnowledge IntentCategory = "knowledge"
)
