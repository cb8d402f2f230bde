package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/lokutor-ai/jarvisd/pkg/model"
)

// onPaneTransition is invoked by the Pane Monitor on its own goroutine per
// transition (SS9's single-owner-actor redesign): it must never block the
// monitor's poll loop, so it only copies the event onto a bounded channel.
func (o *Orchestrator) onPaneTransition(t model.PaneTransition) {
	select {
	case o.paneEvents <- t:
	default:
		o.log.Warn("orchestrator: pane event dropped, alert channel full", "window", t.Window)
	}
}

// paneAlertLoop is the sole consumer of paneEvents, running on its own
// goroutine so pane alerts never compete with the turn worker for the TTS
// engine or the orchestrator's state lock.
func (o *Orchestrator) paneAlertLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-o.paneEvents:
			o.handlePaneTransition(ctx, t)
		}
	}
}

func (o *Orchestrator) handlePaneTransition(ctx context.Context, t model.PaneTransition) {
	// Alerts are suppressed entirely while a conversation turn is active
	// (SS9): speaking an alert mid-turn would talk over the user.
	if o.State() != StateIdle {
		return
	}

	switch t.NewState {
	case model.PaneWorking:
		return
	case model.PaneIdle:
		if o.dedup(t.Window, t.At, o.lastCompletionTick, o.cfg.PaneCompletionDedupWindow) {
			return
		}
		o.deps.Tasks.MarkCompleted(t.Window)
		o.updateWindowTask(ctx, t.Window, model.TaskCompleted)
		phrase := fmt.Sprintf("Window %d has finished %s.", t.Window, assignmentSnippet(o.deps.Tasks, t.Window))
		o.speakAlert(ctx, phrase)
	case model.PaneErrored:
		if o.dedup(t.Window, t.At, o.lastErrorTick, o.cfg.PaneErrorDedupWindow) {
			return
		}
		o.deps.Tasks.MarkErrored(t.Window)
		o.updateWindowTask(ctx, t.Window, model.TaskBlocked)
		phrase := fmt.Sprintf("Window %d encountered an error.", t.Window)
		o.speakAlert(ctx, phrase)
	}
}

// dedup reports whether this transition falls in the same bucket as the
// last one alerted for this window (SS9 Open Question #3: bucket =
// floor(at / dedupWindow)), recording the new bucket if not.
func (o *Orchestrator) dedup(window int, at time.Time, ticks map[int]int64, dedupWindow time.Duration) bool {
	bucket := at.UnixNano() / dedupWindow.Nanoseconds()

	o.mu.Lock()
	defer o.mu.Unlock()
	if last, ok := ticks[window]; ok && last == bucket {
		return true
	}
	ticks[window] = bucket
	return false
}

// speakAlert speaks a canned pane-completion/error phrase, emitting it on
// the debug event stream regardless of whether playback succeeds.
func (o *Orchestrator) speakAlert(ctx context.Context, phrase string) {
	o.emit(EventPaneAlert, phrase)
	if err := o.deps.TTS.Speak(ctx, phrase); err != nil {
		o.log.Warn("orchestrator: pane alert speak failed", "err", err)
	}
}

// updateWindowTask marks the TaskStore task tracked for window (if any)
// with the given status, and forgets the mapping once resolved.
func (o *Orchestrator) updateWindowTask(ctx context.Context, window int, status model.TaskStatus) {
	if o.deps.TaskStore == nil {
		return
	}
	o.mu.Lock()
	taskID, ok := o.windowTasks[window]
	if ok {
		delete(o.windowTasks, window)
	}
	o.mu.Unlock()
	if !ok {
		return
	}
	if _, err := o.deps.TaskStore.UpdateTask(ctx, taskID, map[string]any{"status": string(status)}); err != nil {
		o.log.Warn("orchestrator: failed to update task status", "window", window, "err", err)
	}
}

// assignmentSnippet returns the first 50 characters of the prompt assigned
// to window, matching the SS8 scenario 3 alert wording exactly.
func assignmentSnippet(tasks windowAssignmentLookup, window int) string {
	a, ok := tasks.Assignment(window)
	if !ok {
		return ""
	}
	snippet := a.Prompt
	if len(snippet) > 50 {
		snippet = snippet[:50]
	}
	return snippet
}

// windowAssignmentLookup is the narrow slice of *taskrouter.Router that
// assignmentSnippet needs, kept as an interface so it's trivially fakeable
// in tests.
type windowAssignmentLookup interface {
	Assignment(window int) (model.Assignment, bool)
}
