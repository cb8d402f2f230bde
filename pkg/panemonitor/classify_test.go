package panemonitor

import (
	"testing"

	"github.com/lokutor-ai/jarvisd/pkg/model"
)

func TestClassifyShellPromptIsIdle(t *testing.T) {
	snapshot := "$ ls\nfile1.txt\nfile2.txt\n$ "
	if got := Classify(snapshot); got != model.PaneIdle {
		t.Fatalf("expected IDLE, got %v", got)
	}
}

func TestClassifyStrictErrorDoesNotMatchMidSentence(t *testing.T) {
	snapshot := "doing work\nhandled error gracefully, continuing\nstill working"
	if got := Classify(snapshot); got != model.PaneWorking {
		t.Fatalf("expected WORKING (not ERRORED) for mid-sentence 'error', got %v", got)
	}
}

func TestClassifyAnchoredErrorMarker(t *testing.T) {
	snapshot := "running tests\nFAILED test_foo\nsome more output"
	if got := Classify(snapshot); got != model.PaneErrored {
		t.Fatalf("expected ERRORED, got %v", got)
	}
}

func TestClassifyTraceback(t *testing.T) {
	snapshot := "Traceback (most recent call last):\n  File ...\nKeyError: 'x'"
	if got := Classify(snapshot); got != model.PaneErrored {
		t.Fatalf("expected ERRORED for traceback, got %v", got)
	}
}

func TestClassifyOngoingOutputIsWorking(t *testing.T) {
	snapshot := "compiling...\nlinking...\n75%"
	if got := Classify(snapshot); got != model.PaneWorking {
		t.Fatalf("expected WORKING, got %v", got)
	}
}

func TestTailSnippetLastNLines(t *testing.T) {
	snapshot := "a\nb\nc\nd\ne\nf\ng"
	got := TailSnippet(snapshot, 3)
	want := "e\nf\ng"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}
