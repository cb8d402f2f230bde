package orchestrator

import (
	"testing"
	"time"

	"github.com/lokutor-ai/jarvisd/pkg/model"
)

func newTestOrchestrator() *Orchestrator {
	return &Orchestrator{
		lastCompletionTick: make(map[int]int64),
		lastErrorTick:      make(map[int]int64),
	}
}

// TestDedupSuppressesWithinWindow covers SS9's dedup-bucket invariant: two
// transitions on the same window within one dedup window collapse to one
// alert.
func TestDedupSuppressesWithinWindow(t *testing.T) {
	o := newTestOrchestrator()
	window := 30 * time.Second
	base := time.Unix(1_700_000_000, 0)

	if o.dedup(2, base, o.lastCompletionTick, window) {
		t.Fatalf("first observation in a bucket must not be deduped")
	}
	if !o.dedup(2, base.Add(5*time.Second), o.lastCompletionTick, window) {
		t.Fatalf("second observation in the same bucket must be deduped")
	}
}

func TestDedupAllowsNextBucket(t *testing.T) {
	o := newTestOrchestrator()
	window := 30 * time.Second
	base := time.Unix(1_700_000_000, 0)

	if o.dedup(2, base, o.lastCompletionTick, window) {
		t.Fatalf("first observation must not be deduped")
	}
	if o.dedup(2, base.Add(31*time.Second), o.lastCompletionTick, window) {
		t.Fatalf("observation in the next bucket must not be deduped")
	}
}

func TestDedupTracksWindowsIndependently(t *testing.T) {
	o := newTestOrchestrator()
	window := 30 * time.Second
	base := time.Unix(1_700_000_000, 0)

	if o.dedup(2, base, o.lastCompletionTick, window) {
		t.Fatalf("window 2 first observation must not be deduped")
	}
	if o.dedup(3, base, o.lastCompletionTick, window) {
		t.Fatalf("window 3 is a distinct counter and must not be deduped by window 2's bucket")
	}
}

func TestDedupCompletionAndErrorTicksAreIndependent(t *testing.T) {
	o := newTestOrchestrator()
	window := 30 * time.Second
	base := time.Unix(1_700_000_000, 0)

	if o.dedup(2, base, o.lastCompletionTick, window) {
		t.Fatalf("completion bucket must not be deduped on first observation")
	}
	if o.dedup(2, base, o.lastErrorTick, window) {
		t.Fatalf("error bucket is tracked separately from completion bucket")
	}
}

type fakeAssignmentLookup map[int]model.Assignment

func (f fakeAssignmentLookup) Assignment(window int) (model.Assignment, bool) {
	a, ok := f[window]
	return a, ok
}

func TestAssignmentSnippetTruncatesAt50Chars(t *testing.T) {
	long := "please refactor the authentication middleware to use the new session store and add tests"
	tasks := fakeAssignmentLookup{3: {Window: 3, Prompt: long}}

	got := assignmentSnippet(tasks, 3)
	if len(got) != 50 {
		t.Fatalf("assignmentSnippet length = %d, want 50", len(got))
	}
	if got != long[:50] {
		t.Fatalf("assignmentSnippet = %q, want prefix %q", got, long[:50])
	}
}

func TestAssignmentSnippetShortPromptUnchanged(t *testing.T) {
	tasks := fakeAssignmentLookup{3: {Window: 3, Prompt: "run tests"}}
	if got := assignmentSnippet(tasks, 3); got != "run tests" {
		t.Fatalf("assignmentSnippet = %q, want %q", got, "run tests")
	}
}

func TestAssignmentSnippetUnknownWindow(t *testing.T) {
	tasks := fakeAssignmentLookup{}
	if got := assignmentSnippet(tasks, 9); got != "" {
		t.Fatalf("assignmentSnippet for unwatched window = %q, want empty", got)
	}
}

// TestHandlePaneTransitionIgnoredWhenNotIdle covers SS9's gating rule: pane
// alerts only fire while the Orchestrator is IDLE.
func TestHandlePaneTransitionIgnoredWhenNotIdle(t *testing.T) {
	o := newTestOrchestrator()
	o.state = StateThinking
	o.events = make(chan Event, 4)

	o.handlePaneTransition(nil, model.PaneTransition{
		Window: 1, NewState: model.PaneIdle, At: time.Now(),
	})

	select {
	case ev := <-o.events:
		t.Fatalf("expected no alert while not idle, got %+v", ev)
	default:
	}
}
