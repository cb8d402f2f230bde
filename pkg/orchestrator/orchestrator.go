package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/lokutor-ai/jarvisd/pkg/audiosource"
	"github.com/lokutor-ai/jarvisd/pkg/brain"
	"github.com/lokutor-ai/jarvisd/pkg/fastrouter"
	"github.com/lokutor-ai/jarvisd/pkg/hotkey"
	"github.com/lokutor-ai/jarvisd/pkg/localllm"
	"github.com/lokutor-ai/jarvisd/pkg/logging"
	"github.com/lokutor-ai/jarvisd/pkg/model"
	"github.com/lokutor-ai/jarvisd/pkg/panemonitor"
	"github.com/lokutor-ai/jarvisd/pkg/rag"
	"github.com/lokutor-ai/jarvisd/pkg/screencontext"
	"github.com/lokutor-ai/jarvisd/pkg/speaker"
	"github.com/lokutor-ai/jarvisd/pkg/taskrouter"
	"github.com/lokutor-ai/jarvisd/pkg/taskstate"
	"github.com/lokutor-ai/jarvisd/pkg/transcribe"
	"github.com/lokutor-ai/jarvisd/pkg/tts"
	"github.com/lokutor-ai/jarvisd/pkg/wake"
)

// Metrics receives turn-stage and routing observations. Every method must
// return promptly; the default NoOpMetrics discards everything.
type Metrics interface {
	TurnStage(stage string, dur time.Duration)
	RouteTier(tier string)
	PanePoll()
}

// NoOpMetrics discards every observation.
type NoOpMetrics struct{}

func (NoOpMetrics) TurnStage(stage string, dur time.Duration) {}
func (NoOpMetrics) RouteTier(tier string)                     {}
func (NoOpMetrics) PanePoll()                                 {}

// Dependencies bundles every already-constructed component the Orchestrator
// Core wires together. Audio, Wake, Speaker, Transcriber, TTS, Panes, Tasks,
// FastRouter, Brain, Screen, and Hotkey are required; LocalLLM, RAG, and
// TaskStore are optional (nil disables that routing tier / persistence).
type Dependencies struct {
	Audio       *audiosource.Source
	Wake        *wake.Detector
	SpeakerV    *speaker.Verifier
	Transcriber *transcribe.Transcriber
	TTS         *tts.Engine
	Panes       *panemonitor.Monitor
	Tasks       *taskrouter.Router
	FastRouter  *fastrouter.Router
	LocalLLM    *localllm.Client
	Brain       *brain.Client
	Screen      *screencontext.Provider
	RAG         *rag.Client
	TaskStore   taskstate.Store
	Hotkey      *hotkey.Watcher
}

const paneEventBuffer = 32

// Orchestrator owns the state machine and concurrency model of SS4.12/SS5.
type Orchestrator struct {
	cfg  Config
	deps Dependencies
	log  logging.Logger
	metr Metrics

	mu         sync.Mutex
	state      State
	turnActive bool

	events     chan Event
	paneEvents chan model.PaneTransition

	windowTasks        map[int]string // window -> taskstate task id
	lastCompletionTick map[int]int64  // window -> dedup bucket
	lastErrorTick      map[int]int64
}

// New validates deps and builds an Orchestrator in the IDLE state.
func New(cfg Config, deps Dependencies, logger logging.Logger, metrics Metrics) (*Orchestrator, error) {
	if deps.Audio == nil || deps.Wake == nil || deps.SpeakerV == nil || deps.Transcriber == nil ||
		deps.TTS == nil || deps.Panes == nil || deps.Tasks == nil || deps.FastRouter == nil ||
		deps.Brain == nil || deps.Screen == nil || deps.Hotkey == nil {
		return nil, ErrMissingDependency
	}
	if cfg.ListenFirstUtteranceTimeout <= 0 || cfg.ListenPhraseTimeLimit <= 0 {
		d := DefaultConfig()
		if cfg.ListenFirstUtteranceTimeout <= 0 {
			cfg.ListenFirstUtteranceTimeout = d.ListenFirstUtteranceTimeout
		}
		if cfg.ListenPhraseTimeLimit <= 0 {
			cfg.ListenPhraseTimeLimit = d.ListenPhraseTimeLimit
		}
		if cfg.ListenSilenceTail <= 0 {
			cfg.ListenSilenceTail = d.ListenSilenceTail
		}
	}
	if cfg.PaneCompletionDedupWindow <= 0 {
		cfg.PaneCompletionDedupWindow = DefaultConfig().PaneCompletionDedupWindow
	}
	if cfg.PaneErrorDedupWindow <= 0 {
		cfg.PaneErrorDedupWindow = DefaultConfig().PaneErrorDedupWindow
	}
	if cfg.WakeName == "" {
		cfg.WakeName = DefaultConfig().WakeName
	}
	if metrics == nil {
		metrics = NoOpMetrics{}
	}

	o := &Orchestrator{
		cfg:                 cfg,
		deps:                deps,
		log:                 logging.OrNoOp(logger),
		metr:                metrics,
		state:               StateIdle,
		events:              make(chan Event, 256),
		paneEvents:          make(chan model.PaneTransition, paneEventBuffer),
		windowTasks:         make(map[int]string),
		lastCompletionTick:  make(map[int]int64),
		lastErrorTick:       make(map[int]int64),
	}
	deps.Panes.OnTransition(o.onPaneTransition)
	return o, nil
}

// State returns the current state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Events exposes the debug event stream (SS11's websocket endpoint reads
// from this).
func (o *Orchestrator) Events() <-chan Event {
	return o.events
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
	o.emit(EventStateChanged, string(s))
}

func (o *Orchestrator) emit(t EventType, data string) {
	select {
	case o.events <- Event{Type: t, Data: data, At: time.Now()}:
	default:
		// Drop rather than block; the debug stream is best-effort.
	}
}

// Run starts the four long-running activities of SS5 and blocks until ctx
// is cancelled: the wake detector loop, the pane monitor loop, the hotkey
// watcher, and the pane-alert worker. The conversation turn worker is
// spawned per-wake by handleWake, not here.
func (o *Orchestrator) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(4)

	go func() {
		defer wg.Done()
		if err := o.deps.Wake.Run(ctx, o.deps.Audio, o.handleWake); err != nil {
			o.log.Warn("orchestrator: wake detector loop exited", "err", err)
		}
	}()
	go func() {
		defer wg.Done()
		o.deps.Panes.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		o.deps.Hotkey.Run(ctx, o.handleWake)
	}()
	go func() {
		defer wg.Done()
		o.paneAlertLoop(ctx)
	}()

	wg.Wait()
}

// handleWake is called synchronously from the wake detector's and hotkey
// watcher's own goroutines; it must return promptly (SS5's ordering
// guarantees). A turn already in progress is acknowledged, not nested; a
// new turn is handed off to its own goroutine.
func (o *Orchestrator) handleWake() {
	o.mu.Lock()
	if o.turnActive {
		o.mu.Unlock()
		o.emit(EventBusy, busyAckPhrase)
		go func() {
			if err := o.deps.TTS.Speak(context.Background(), busyAckPhrase); err != nil {
				o.log.Warn("orchestrator: busy ack failed", "err", err)
			}
		}()
		return
	}
	o.turnActive = true
	o.mu.Unlock()

	o.deps.Wake.Pause()
	o.emit(EventWake, "")

	go o.runTurn()
}

// Close releases the audio device. Call after Run returns.
func (o *Orchestrator) Close() {
	o.deps.Audio.Close()
}
