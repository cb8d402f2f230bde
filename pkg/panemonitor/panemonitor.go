// Package panemonitor watches a set of multiplexer panes on a poll interval
// and classifies each into IDLE/WORKING/ERRORED (SS4.6). Pane records are
// owned and mutated only on the monitor's own goroutine; callbacks receive
// copies and must not block the poll loop.
package panemonitor

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/lokutor-ai/jarvisd/pkg/logging"
	"github.com/lokutor-ai/jarvisd/pkg/model"
)

const (
	defaultInterval  = 2500 * time.Millisecond
	captureLines     = 30
	tailSnippetLines = 5
)

// Config controls poll cadence and which windows are watched.
type Config struct {
	Interval time.Duration
	Windows  []int
	// OnPoll, if set, is called once per poll cycle (SS11's pane-poll
	// counter). It must return promptly.
	OnPoll func()
}

func DefaultConfig(windows []int) Config {
	return Config{Interval: defaultInterval, Windows: windows}
}

// TransitionFunc is invoked on every state change. It must not block.
type TransitionFunc func(model.PaneTransition)

// Monitor polls a fixed set of windows and classifies their tail output.
type Monitor struct {
	mux Multiplexer
	cfg Config
	log logging.Logger

	mu        sync.Mutex
	records   map[int]*model.PaneRecord
	callbacks []TransitionFunc
}

func New(mux Multiplexer, cfg Config, logger logging.Logger) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	records := make(map[int]*model.PaneRecord, len(cfg.Windows))
	for _, w := range cfg.Windows {
		records[w] = &model.PaneRecord{Window: w, State: model.PaneUnknown}
	}
	return &Monitor{
		mux:     mux,
		cfg:     cfg,
		log:     logging.OrNoOp(logger),
		records: records,
	}
}

// OnTransition registers a callback. Not safe to call concurrently with Run.
func (m *Monitor) OnTransition(fn TransitionFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, fn)
}

// Snapshot returns a copy of the current record for a window.
func (m *Monitor) Snapshot(window int) (model.PaneRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[window]
	if !ok {
		return model.PaneRecord{}, ErrNotWatched
	}
	return *rec, nil
}

// Run blocks, polling every configured interval until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.pollAll(ctx)
		}
	}
}

func (m *Monitor) pollAll(ctx context.Context) {
	if m.cfg.OnPoll != nil {
		m.cfg.OnPoll()
	}

	m.mu.Lock()
	windows := make([]int, 0, len(m.records))
	for w := range m.records {
		windows = append(windows, w)
	}
	m.mu.Unlock()

	for _, w := range windows {
		m.poll(ctx, w)
	}
}

func (m *Monitor) poll(ctx context.Context, window int) {
	snapshot, err := m.mux.CapturePane(ctx, window, captureLines)
	if err != nil {
		m.log.Warn("panemonitor: capture failed", "window", window, "err", err)
		return
	}

	digest := digestOf(snapshot)
	now := time.Now()

	m.mu.Lock()
	rec, ok := m.records[window]
	if !ok {
		m.mu.Unlock()
		return
	}

	unchanged := rec.LastDigest == digest && rec.LastSnapshot != ""
	if unchanged {
		stalled := rec.State == model.PaneWorking && now.Sub(rec.LastStateChangeTS) > 2*m.cfg.Interval
		if !stalled {
			m.mu.Unlock()
			return
		}
	}

	baseline := rec.LastSnapshot == "" && rec.State == model.PaneUnknown
	newState := Classify(snapshot)
	oldState := rec.State

	rec.LastDigest = digest
	rec.LastSnapshot = snapshot
	if newState != oldState {
		rec.LastStateChangeTS = now
	}
	rec.State = newState

	fireTransition := !baseline && newState != oldState
	callbacks := append([]TransitionFunc(nil), m.callbacks...)
	m.mu.Unlock()

	if !fireTransition {
		return
	}

	transition := model.PaneTransition{
		Window:      window,
		OldState:    oldState,
		NewState:    newState,
		TailSnippet: TailSnippet(snapshot, tailSnippetLines),
		At:          now,
	}
	for _, cb := range callbacks {
		cb := cb
		go cb(transition)
	}
}

func digestOf(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}
