// Package hotkey watches a scratch-directory sentinel file and synthesizes
// wake events when it appears (SS4.12/SS6), the Go-native replacement for
// hotkey_detector.py's OS-level keyboard hook plus trigger_voice.py's
// signal-file handoff: a global key-hook isn't portable, so the trigger
// surface here is the same signal file, just polled rather than pushed.
package hotkey

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/lokutor-ai/jarvisd/pkg/logging"
)

const (
	// SignalFileName matches the original's /tmp/voice_interface_signal.
	SignalFileName = "voice_interface_signal"

	defaultPollInterval = 150 * time.Millisecond
)

// Config controls the watcher's scratch directory and poll cadence.
type Config struct {
	ScratchDir   string
	PollInterval time.Duration
}

func DefaultConfig(scratchDir string) Config {
	return Config{ScratchDir: scratchDir, PollInterval: defaultPollInterval}
}

// Watcher polls for the sentinel file and removes it immediately once seen,
// matching the original's own cleanup (written by a hotkey trigger, removed
// after a short delay so a stale file never re-fires).
type Watcher struct {
	path string
	poll time.Duration
	log  logging.Logger
}

func New(cfg Config, logger logging.Logger) *Watcher {
	poll := cfg.PollInterval
	if poll <= 0 {
		poll = defaultPollInterval
	}
	return &Watcher{
		path: filepath.Join(cfg.ScratchDir, SignalFileName),
		poll: poll,
		log:  logging.OrNoOp(logger),
	}
}

// Run blocks, calling onTrigger every time the sentinel file appears, until
// ctx is canceled.
func (w *Watcher) Run(ctx context.Context, onTrigger func()) {
	ticker := time.NewTicker(w.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if w.consume() {
				onTrigger()
			}
		}
	}
}

// consume reports whether the sentinel file was present, removing it so a
// single appearance fires exactly one trigger.
func (w *Watcher) consume() bool {
	if _, err := os.Stat(w.path); err != nil {
		return false
	}
	if err := os.Remove(w.path); err != nil && !os.IsNotExist(err) {
		w.log.Warn("hotkey: failed to remove signal file", "err", err)
		return false
	}
	return true
}

// Trigger writes the sentinel file, the Go equivalent of trigger_voice.py's
// signal-file handoff from an external hotkey daemon (xbindkeys, a systemd
// key-remap unit, ...) into this process.
func Trigger(scratchDir string) error {
	return os.WriteFile(filepath.Join(scratchDir, SignalFileName), []byte("activate"), 0o644)
}
