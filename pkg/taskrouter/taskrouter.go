// Package taskrouter assigns prompts to multiplexer windows and tracks their
// lifecycle (SS4.7).
package taskrouter

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lokutor-ai/jarvisd/pkg/model"
	"github.com/lokutor-ai/jarvisd/pkg/panemonitor"
)

// pasteSettle is how long assign() waits between pasting the buffer and
// sending Enter, so the target program has processed the paste.
const pasteSettle = 100 * time.Millisecond

// Router wraps a Multiplexer with assignment bookkeeping.
type Router struct {
	mux   panemonitor.Multiplexer
	sleep func(time.Duration)

	mu          sync.Mutex
	assignments map[int]*model.Assignment
}

func New(mux panemonitor.Multiplexer) *Router {
	return &Router{
		mux:         mux,
		sleep:       time.Sleep,
		assignments: make(map[int]*model.Assignment),
	}
}

// Assign stages prompt into the paste buffer, pastes it into window, waits
// for the paste to settle, then sends Enter.
func (r *Router) Assign(ctx context.Context, window int, prompt string) error {
	if err := r.Type(ctx, window, prompt); err != nil {
		return err
	}
	r.sleep(pasteSettle)
	if err := r.mux.SendEnter(ctx, window); err != nil {
		return fmt.Errorf("taskrouter: send enter: %w", err)
	}

	r.mu.Lock()
	r.assignments[window] = &model.Assignment{
		Window:     window,
		Prompt:     prompt,
		AssignedTS: time.Now(),
		Status:     model.AssignmentActive,
	}
	r.mu.Unlock()
	return nil
}

// Type stages and pastes text without sending Enter.
func (r *Router) Type(ctx context.Context, window int, text string) error {
	if err := r.mux.SetBuffer(ctx, text); err != nil {
		return fmt.Errorf("taskrouter: set buffer: %w", err)
	}
	if err := r.mux.PasteBuffer(ctx, window); err != nil {
		return fmt.Errorf("taskrouter: paste buffer: %w", err)
	}
	return nil
}

// Cancel sends Ctrl+C and marks any active assignment on window cancelled.
func (r *Router) Cancel(ctx context.Context, window int) error {
	if err := r.mux.SendInterrupt(ctx, window); err != nil {
		return fmt.Errorf("taskrouter: send interrupt: %w", err)
	}
	r.setStatus(window, model.AssignmentCancelled)
	return nil
}

// Switch selects window in the multiplexer.
func (r *Router) Switch(ctx context.Context, window int) error {
	return r.mux.SelectWindow(ctx, window)
}

// List returns every multiplexer window annotated with any known assignment.
func (r *Router) List(ctx context.Context) ([]model.WindowInfo, error) {
	windows, err := r.mux.ListWindows(ctx)
	if err != nil {
		return nil, fmt.Errorf("taskrouter: list windows: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range windows {
		if a, ok := r.assignments[windows[i].Window]; ok {
			windows[i].Task = a.Prompt
			windows[i].TaskStatus = a.Status
			windows[i].HasAssignment = true
		}
	}
	sort.Slice(windows, func(i, j int) bool { return windows[i].Window < windows[j].Window })
	return windows, nil
}

// FindByName does a case-insensitive substring match against window names,
// for the Fast Router's "(claude|gemini|codex|opencode)" pattern (SS4.8).
func (r *Router) FindByName(ctx context.Context, substr string) (model.WindowInfo, bool, error) {
	windows, err := r.List(ctx)
	if err != nil {
		return model.WindowInfo{}, false, err
	}
	needle := strings.ToLower(substr)
	for _, w := range windows {
		if strings.Contains(strings.ToLower(w.Name), needle) {
			return w, true, nil
		}
	}
	return model.WindowInfo{}, false, nil
}

// MarkCompleted mutates an assignment's status to completed, called by the
// orchestrator on a pane WORKING -> IDLE transition.
func (r *Router) MarkCompleted(window int) {
	r.setStatus(window, model.AssignmentCompleted)
}

// MarkErrored mutates an assignment's status to errored, called by the
// orchestrator on a pane WORKING -> ERRORED transition.
func (r *Router) MarkErrored(window int) {
	r.setStatus(window, model.AssignmentErrored)
}

// Assignment returns a copy of the current assignment for a window, if any.
func (r *Router) Assignment(window int) (model.Assignment, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.assignments[window]
	if !ok {
		return model.Assignment{}, false
	}
	return *a, true
}

func (r *Router) setStatus(window int, status model.AssignmentStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.assignments[window]; ok {
		a.Status = status
	}
}
