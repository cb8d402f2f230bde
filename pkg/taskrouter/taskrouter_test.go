package taskrouter

import (
	"context"
	"testing"
	"time"

	"github.com/lokutor-ai/jarvisd/pkg/model"
)

type fakeMux struct {
	windows    []model.WindowInfo
	buffer     string
	pasted     []int
	entersSent []int
	interrupts []int
	selected   []int
}

func (f *fakeMux) ListWindows(ctx context.Context) ([]model.WindowInfo, error) {
	out := make([]model.WindowInfo, len(f.windows))
	copy(out, f.windows)
	return out, nil
}
func (f *fakeMux) CapturePane(ctx context.Context, window int, lines int) (string, error) {
	return "", nil
}
func (f *fakeMux) SelectWindow(ctx context.Context, window int) error {
	f.selected = append(f.selected, window)
	return nil
}
func (f *fakeMux) SetBuffer(ctx context.Context, text string) error {
	f.buffer = text
	return nil
}
func (f *fakeMux) PasteBuffer(ctx context.Context, window int) error {
	f.pasted = append(f.pasted, window)
	return nil
}
func (f *fakeMux) SendEnter(ctx context.Context, window int) error {
	f.entersSent = append(f.entersSent, window)
	return nil
}
func (f *fakeMux) SendInterrupt(ctx context.Context, window int) error {
	f.interrupts = append(f.interrupts, window)
	return nil
}
func (f *fakeMux) SetStatusRight(ctx context.Context, text string) error { return nil }

func TestAssignStagesPastesAndSendsEnter(t *testing.T) {
	mux := &fakeMux{windows: []model.WindowInfo{{Window: 2, Name: "claude-dev"}}}
	r := New(mux)
	r.sleep = func(time.Duration) {}

	if err := r.Assign(context.Background(), 2, "run the tests"); err != nil {
		t.Fatal(err)
	}
	if mux.buffer != "run the tests" {
		t.Fatalf("expected buffer set, got %q", mux.buffer)
	}
	if len(mux.pasted) != 1 || mux.pasted[0] != 2 {
		t.Fatalf("expected paste into window 2, got %v", mux.pasted)
	}
	if len(mux.entersSent) != 1 || mux.entersSent[0] != 2 {
		t.Fatalf("expected enter sent to window 2, got %v", mux.entersSent)
	}

	a, ok := r.Assignment(2)
	if !ok || a.Status != model.AssignmentActive || a.Prompt != "run the tests" {
		t.Fatalf("expected active assignment, got %+v ok=%v", a, ok)
	}
}

func TestTypeDoesNotSendEnter(t *testing.T) {
	mux := &fakeMux{}
	r := New(mux)
	if err := r.Type(context.Background(), 1, "draft text"); err != nil {
		t.Fatal(err)
	}
	if len(mux.entersSent) != 0 {
		t.Fatalf("type() must not send enter, got %v", mux.entersSent)
	}
}

func TestCancelSendsInterruptAndMarksCancelled(t *testing.T) {
	mux := &fakeMux{}
	r := New(mux)
	r.sleep = func(time.Duration) {}
	if err := r.Assign(context.Background(), 3, "long task"); err != nil {
		t.Fatal(err)
	}
	if err := r.Cancel(context.Background(), 3); err != nil {
		t.Fatal(err)
	}
	if len(mux.interrupts) != 1 || mux.interrupts[0] != 3 {
		t.Fatalf("expected interrupt sent to window 3, got %v", mux.interrupts)
	}
	a, _ := r.Assignment(3)
	if a.Status != model.AssignmentCancelled {
		t.Fatalf("expected cancelled status, got %v", a.Status)
	}
}

func TestListAnnotatesAssignmentsAndSorts(t *testing.T) {
	mux := &fakeMux{windows: []model.WindowInfo{
		{Window: 2, Name: "b"},
		{Window: 1, Name: "a"},
	}}
	r := New(mux)
	r.sleep = func(time.Duration) {}
	if err := r.Assign(context.Background(), 1, "do thing"); err != nil {
		t.Fatal(err)
	}

	windows, err := r.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(windows) != 2 || windows[0].Window != 1 || windows[1].Window != 2 {
		t.Fatalf("expected windows sorted by index, got %+v", windows)
	}
	if !windows[0].HasAssignment || windows[0].TaskStatus != model.AssignmentActive {
		t.Fatalf("expected window 1 to carry its assignment, got %+v", windows[0])
	}
}

func TestFindByNameCaseInsensitiveSubstring(t *testing.T) {
	mux := &fakeMux{windows: []model.WindowInfo{
		{Window: 4, Name: "claude-session"},
		{Window: 5, Name: "shell"},
	}}
	r := New(mux)

	w, ok, err := r.FindByName(context.Background(), "CLAUDE")
	if err != nil {
		t.Fatal(err)
	}
	if !ok || w.Window != 4 {
		t.Fatalf("expected to find window 4, got %+v ok=%v", w, ok)
	}

	_, ok, err = r.FindByName(context.Background(), "gemini")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected no match for 'gemini'")
	}
}

func TestMarkCompletedAndErrored(t *testing.T) {
	mux := &fakeMux{}
	r := New(mux)
	r.sleep = func(time.Duration) {}
	if err := r.Assign(context.Background(), 1, "build"); err != nil {
		t.Fatal(err)
	}

	r.MarkCompleted(1)
	a, _ := r.Assignment(1)
	if a.Status != model.AssignmentCompleted {
		t.Fatalf("expected completed, got %v", a.Status)
	}

	if err := r.Assign(context.Background(), 1, "build again"); err != nil {
		t.Fatal(err)
	}
	r.MarkErrored(1)
	a, _ = r.Assignment(1)
	if a.Status != model.AssignmentErrored {
		t.Fatalf("expected errored, got %v", a.Status)
	}
}
