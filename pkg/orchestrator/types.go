// Package orchestrator is the Orchestrator Core (SS4.12): the state machine
// and concurrency owner that wires every other component package into one
// hands-free voice assistant. States are IDLE, LISTENING, THINKING, and
// SPEAKING; a dedicated goroutine runs one conversation turn at a time while
// the wake detector, pane monitor, and hotkey watcher keep running
// independently (SS5).
package orchestrator

import "time"

// State is one of the four Orchestrator Core states (SS4.12).
type State string

const (
	StateIdle      State = "IDLE"
	StateListening State = "LISTENING"
	StateThinking  State = "THINKING"
	StateSpeaking  State = "SPEAKING"
)

// Config tunes the knobs named across SS4-SS10: listen timeouts, pane-alert
// dedup windows, the wake name used in end-phrase matching, and storage
// paths. Loaded once at startup from .env + process environment (SS10).
type Config struct {
	WakeName string // recognizes "<wake-name> end"/"<wake-name> stop" end phrases

	ListenFirstUtteranceTimeout time.Duration // 5s default
	ListenPhraseTimeLimit       time.Duration // 15s default
	ListenSilenceTail           time.Duration // trailing silence that ends an utterance

	PaneCompletionDedupWindow time.Duration // 30s default (SS9 Open Question #3)
	PaneErrorDedupWindow      time.Duration // 60s default

	ScratchDir string
	CacheDir   string
}

// DefaultConfig returns SS4.12/SS5's stated defaults.
func DefaultConfig() Config {
	return Config{
		WakeName:                    "jarvis",
		ListenFirstUtteranceTimeout: 5 * time.Second,
		ListenPhraseTimeLimit:       15 * time.Second,
		ListenSilenceTail:           time.Second,
		PaneCompletionDedupWindow:   30 * time.Second,
		PaneErrorDedupWindow:        60 * time.Second,
	}
}

// EventType labels entries on the debug event stream (SS11: the
// coder/websocket debug event-stream endpoint consumes these).
type EventType string

const (
	EventStateChanged EventType = "state_changed"
	EventWake         EventType = "wake"
	EventBusy         EventType = "busy_ack"
	EventTranscript   EventType = "transcript"
	EventReply        EventType = "reply"
	EventPaneAlert    EventType = "pane_alert"
	EventTurnEnded    EventType = "turn_ended"
)

// Event is one entry on the debug event stream.
type Event struct {
	Type EventType
	Data string
	At   time.Time
}

// busyAckPhrase is spoken when a wake event arrives while a turn is already
// in progress (SS4.12).
const busyAckPhrase = "One moment."

// timeoutReply is spoken when the Brain Client exceeds its deadline (SS5,
// SS8 scenario 5's exact wording).
const timeoutReply = "That took too long. Could you try a simpler request."

// brainIssueReply is spoken when the Brain Client produces no usable text
// (SS7: "Brain empty output").
const brainIssueReply = "I ran into an issue."
