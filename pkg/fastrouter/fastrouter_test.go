package fastrouter

import (
	"context"
	"testing"

	"github.com/lokutor-ai/jarvisd/pkg/model"
	"github.com/lokutor-ai/jarvisd/pkg/taskrouter"
)

type fakeMux struct {
	windows []model.WindowInfo
	panes   map[int]string
}

func (f *fakeMux) ListWindows(ctx context.Context) ([]model.WindowInfo, error) {
	out := make([]model.WindowInfo, len(f.windows))
	copy(out, f.windows)
	return out, nil
}
func (f *fakeMux) CapturePane(ctx context.Context, window int, lines int) (string, error) {
	return f.panes[window], nil
}
func (f *fakeMux) SelectWindow(ctx context.Context, window int) error    { return nil }
func (f *fakeMux) SetBuffer(ctx context.Context, text string) error     { return nil }
func (f *fakeMux) PasteBuffer(ctx context.Context, window int) error    { return nil }
func (f *fakeMux) SendEnter(ctx context.Context, window int) error      { return nil }
func (f *fakeMux) SendInterrupt(ctx context.Context, window int) error  { return nil }
func (f *fakeMux) SetStatusRight(ctx context.Context, text string) error { return nil }

func newTestRouter() (*Router, *fakeMux, *taskrouter.Router) {
	mux := &fakeMux{
		windows: []model.WindowInfo{
			{Window: 1, Name: "claude-dev"},
			{Window: 2, Name: "shell"},
		},
		panes: map[int]string{2: "line one\nline two\nline three\nline four"},
	}
	tasks := taskrouter.New(mux)
	return New(tasks, mux), mux, tasks
}

func TestAssignByNumber(t *testing.T) {
	r, _, tasks := newTestRouter()
	res, err := r.Route(context.Background(), "Tell window 1 to run the tests")
	if err != nil {
		t.Fatal(err)
	}
	if res.ActionTag != "assign_by_number" || res.Reply != "Sent to window 1." {
		t.Fatalf("unexpected result: %+v", res)
	}
	a, ok := tasks.Assignment(1)
	if !ok || a.Prompt != "run the tests" {
		t.Fatalf("expected assignment with prompt 'run the tests', got %+v ok=%v", a, ok)
	}
}

func TestAssignByName(t *testing.T) {
	r, _, tasks := newTestRouter()
	res, err := r.Route(context.Background(), "Ask claude to fix the bug")
	if err != nil {
		t.Fatal(err)
	}
	if res.Reply != "Sent to window 1." {
		t.Fatalf("unexpected reply: %q", res.Reply)
	}
	a, ok := tasks.Assignment(1)
	if !ok || a.Prompt != "fix the bug" {
		t.Fatalf("expected assignment, got %+v ok=%v", a, ok)
	}
}

func TestCheckStatusReturnsTrimmedTail(t *testing.T) {
	r, _, _ := newTestRouter()
	res, err := r.Route(context.Background(), "check on window 2")
	if err != nil {
		t.Fatal(err)
	}
	if res.Reply != "line two line three line four" {
		t.Fatalf("unexpected reply: %q", res.Reply)
	}
}

func TestSwitchWindow(t *testing.T) {
	r, _, _ := newTestRouter()
	res, err := r.Route(context.Background(), "switch to window 2")
	if err != nil {
		t.Fatal(err)
	}
	if res.ActionTag != "switch_window" {
		t.Fatalf("unexpected tag: %s", res.ActionTag)
	}
}

func TestCancelWindow(t *testing.T) {
	r, _, tasks := newTestRouter()
	if err := tasks.Assign(context.Background(), 1, "x"); err != nil {
		t.Fatal(err)
	}
	res, err := r.Route(context.Background(), "cancel window 1")
	if err != nil {
		t.Fatal(err)
	}
	if res.ActionTag != "cancel_window" {
		t.Fatalf("unexpected tag: %s", res.ActionTag)
	}
}

func TestListWindows(t *testing.T) {
	r, _, _ := newTestRouter()
	res, err := r.Route(context.Background(), "list all windows")
	if err != nil {
		t.Fatal(err)
	}
	if res.ActionTag != "list_windows" {
		t.Fatalf("unexpected tag: %s", res.ActionTag)
	}
}

func TestNoMatchEscalates(t *testing.T) {
	r, _, _ := newTestRouter()
	_, err := r.Route(context.Background(), "what's the weather like today")
	if err != ErrNoMatch {
		t.Fatalf("expected ErrNoMatch, got %v", err)
	}
}

func TestUnmatchedAssignNamedWindowRepliesGracefully(t *testing.T) {
	r, _, _ := newTestRouter()
	res, err := r.Route(context.Background(), "tell gemini to run tests")
	if err != nil {
		t.Fatal(err)
	}
	if res.Reply == "" {
		t.Fatal("expected a graceful reply for an unknown window name")
	}
}
