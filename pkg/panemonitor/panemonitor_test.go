package panemonitor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/lokutor-ai/jarvisd/pkg/model"
)

type fakeMux struct {
	mu      sync.Mutex
	outputs map[int]string
}

func newFakeMux() *fakeMux { return &fakeMux{outputs: map[int]string{}} }

func (f *fakeMux) set(window int, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outputs[window] = text
}

func (f *fakeMux) CapturePane(ctx context.Context, window int, lines int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.outputs[window], nil
}

func (f *fakeMux) ListWindows(ctx context.Context) ([]model.WindowInfo, error) { return nil, nil }
func (f *fakeMux) SelectWindow(ctx context.Context, window int) error          { return nil }
func (f *fakeMux) SetBuffer(ctx context.Context, text string) error            { return nil }
func (f *fakeMux) PasteBuffer(ctx context.Context, window int) error           { return nil }
func (f *fakeMux) SendEnter(ctx context.Context, window int) error             { return nil }
func (f *fakeMux) SendInterrupt(ctx context.Context, window int) error         { return nil }
func (f *fakeMux) SetStatusRight(ctx context.Context, text string) error       { return nil }

func collectTransitions(m *Monitor) *[]model.PaneTransition {
	var mu sync.Mutex
	var got []model.PaneTransition
	m.OnTransition(func(tr model.PaneTransition) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, tr)
	})
	return &got
}

func TestBaselineSuppressesFirstPoll(t *testing.T) {
	mux := newFakeMux()
	mux.set(1, "$ ")
	m := New(mux, Config{Interval: time.Hour, Windows: []int{1}}, nil)
	transitions := collectTransitions(m)

	m.poll(context.Background(), 1)

	if len(*transitions) != 0 {
		t.Fatalf("expected no transition on baseline poll, got %d", len(*transitions))
	}
	rec, err := m.Snapshot(1)
	if err != nil {
		t.Fatal(err)
	}
	if rec.State != model.PaneIdle {
		t.Fatalf("expected baseline state IDLE, got %v", rec.State)
	}
}

func TestTransitionFiresOnceOnStateChange(t *testing.T) {
	mux := newFakeMux()
	mux.set(1, "compiling...")
	m := New(mux, Config{Interval: time.Hour, Windows: []int{1}}, nil)
	transitions := collectTransitions(m)

	m.poll(context.Background(), 1) // baseline: WORKING, suppressed

	mux.set(1, "$ ")
	m.poll(context.Background(), 1) // WORKING -> IDLE

	mux.set(1, "$ ")
	m.poll(context.Background(), 1) // unchanged, no re-fire

	time.Sleep(50 * time.Millisecond)

	if len(*transitions) != 1 {
		t.Fatalf("expected exactly 1 transition, got %d", len(*transitions))
	}
	tr := (*transitions)[0]
	if tr.OldState != model.PaneWorking || tr.NewState != model.PaneIdle {
		t.Fatalf("expected WORKING->IDLE, got %v->%v", tr.OldState, tr.NewState)
	}
}

func TestStalledUnchangedWorkingPaneDoesNotSpuriouslyTransition(t *testing.T) {
	mux := newFakeMux()
	mux.set(1, "compiling...")
	interval := 10 * time.Millisecond
	m := New(mux, Config{Interval: interval, Windows: []int{1}}, nil)
	transitions := collectTransitions(m)

	m.poll(context.Background(), 1) // baseline, suppressed

	time.Sleep(3 * interval) // past the 2x-interval stall re-check window
	m.poll(context.Background(), 1)
	m.poll(context.Background(), 1)

	time.Sleep(20 * time.Millisecond)

	if len(*transitions) != 0 {
		t.Fatalf("re-classifying identical WORKING content should not fire a transition, got %d", len(*transitions))
	}
	rec, _ := m.Snapshot(1)
	if rec.State != model.PaneWorking {
		t.Fatalf("expected state to remain WORKING, got %v", rec.State)
	}
}
