package orchestrator

import (
	"testing"
	"time"
)

func TestNewRejectsMissingDependencies(t *testing.T) {
	_, err := New(DefaultConfig(), Dependencies{}, nil, nil)
	if err != ErrMissingDependency {
		t.Fatalf("New with empty Dependencies: err = %v, want %v", err, ErrMissingDependency)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.WakeName != "jarvis" {
		t.Errorf("WakeName = %q, want jarvis", cfg.WakeName)
	}
	if cfg.ListenFirstUtteranceTimeout != 5*time.Second {
		t.Errorf("ListenFirstUtteranceTimeout = %v, want 5s", cfg.ListenFirstUtteranceTimeout)
	}
	if cfg.ListenPhraseTimeLimit != 15*time.Second {
		t.Errorf("ListenPhraseTimeLimit = %v, want 15s", cfg.ListenPhraseTimeLimit)
	}
	if cfg.PaneCompletionDedupWindow != 30*time.Second {
		t.Errorf("PaneCompletionDedupWindow = %v, want 30s", cfg.PaneCompletionDedupWindow)
	}
	if cfg.PaneErrorDedupWindow != 60*time.Second {
		t.Errorf("PaneErrorDedupWindow = %v, want 60s", cfg.PaneErrorDedupWindow)
	}
}

// TestStateTransitionsEmitEvents covers SS11's debug event stream: every
// setState call must emit a state_changed event without blocking, even when
// nobody is reading.
func TestStateTransitionsEmitEvents(t *testing.T) {
	o := &Orchestrator{
		state:  StateIdle,
		events: make(chan Event, 4),
	}

	o.setState(StateListening)
	if got := o.State(); got != StateListening {
		t.Fatalf("State() = %v, want %v", got, StateListening)
	}

	ev := <-o.events
	if ev.Type != EventStateChanged || ev.Data != string(StateListening) {
		t.Fatalf("event = %+v, want state_changed/LISTENING", ev)
	}
}

// TestEmitNonBlockingWhenBufferFull covers the "debug stream is best-effort"
// contract: emit must never block the caller, even with a full buffer.
func TestEmitNonBlockingWhenBufferFull(t *testing.T) {
	o := &Orchestrator{events: make(chan Event, 1)}

	o.emit(EventTranscript, "first")

	done := make(chan struct{})
	go func() {
		o.emit(EventTranscript, "second, should be dropped")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("emit blocked with a full event buffer")
	}
}

func TestSentToWindowRegex(t *testing.T) {
	cases := []struct {
		reply  string
		window string
		ok     bool
	}{
		{"Sent to window 2.", "2", true},
		{"Sent to window 14.", "14", true},
		{"Sent to window 2", "", false},
		{"window 2 got your request.", "", false},
		{"I ran into an issue.", "", false},
	}
	for _, tc := range cases {
		m := sentToWindowRE.FindStringSubmatch(tc.reply)
		if tc.ok && (m == nil || m[1] != tc.window) {
			t.Errorf("FindStringSubmatch(%q) = %v, want window %q", tc.reply, m, tc.window)
		}
		if !tc.ok && m != nil {
			t.Errorf("FindStringSubmatch(%q) = %v, want no match", tc.reply, m)
		}
	}
}

func TestTrackWindowAssignmentNoopWithoutTaskStore(t *testing.T) {
	o := &Orchestrator{}
	// No TaskStore configured; must return without touching o.windowTasks
	// (which is nil here) or panicking.
	o.trackWindowAssignment(nil, "Sent to window 2.", "run the tests")
}
