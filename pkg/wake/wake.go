// Package wake implements the Wake Detector (SS4.2): threshold/cooldown
// dispatch around an externally-supplied scoring function. The scorer
// itself (the wake-word classifier) is out of scope per the spec and
// modeled as the Scorer interface; a concrete sherpa-onnx-backed Scorer
// lives in sherpa.go.
package wake

import (
	"context"
	"sync"
	"time"

	"github.com/lokutor-ai/jarvisd/pkg/logging"
	"github.com/lokutor-ai/jarvisd/pkg/model"
)

// Scorer is the external pure function detect(pcm_frame) -> score. Reset
// clears any internal model state (called on activation and on Resume).
type Scorer interface {
	Score(frame model.Frame) (float64, error)
	Reset()
}

// Config tunes the detector's threshold and cooldown.
type Config struct {
	Threshold float64
	Cooldown  time.Duration
}

// DefaultConfig matches the spec's stated defaults.
func DefaultConfig() Config {
	return Config{Threshold: 0.35, Cooldown: 2 * time.Second}
}

// Detector runs frames through a Scorer and fires OnWake with debounce.
type Detector struct {
	cfg    Config
	scorer Scorer
	logger logging.Logger

	lastActivation time.Time
	consecutiveErr int

	pauseMu sync.Mutex
	paused  bool
}

func New(scorer Scorer, cfg Config, logger logging.Logger) *Detector {
	if cfg.Threshold == 0 {
		cfg = DefaultConfig()
	}
	return &Detector{cfg: cfg, scorer: scorer, logger: logging.OrNoOp(logger)}
}

// Pause stops frame scoring; Resume resets the scorer's internal state so a
// partial match before pausing cannot immediately retrigger. Pause is
// called from the wake or hotkey goroutine that starts a turn, Resume from
// the turn worker's goroutine after its turn ends, and Paused is polled from
// Run's own goroutine, so the flag is mutex-guarded rather than a plain bool.
func (d *Detector) Pause() {
	d.pauseMu.Lock()
	d.paused = true
	d.pauseMu.Unlock()
}

func (d *Detector) Resume() {
	d.pauseMu.Lock()
	d.paused = false
	d.pauseMu.Unlock()
	d.scorer.Reset()
}

func (d *Detector) Paused() bool {
	d.pauseMu.Lock()
	defer d.pauseMu.Unlock()
	return d.paused
}

// ProcessFrame scores one frame and reports whether this frame fired the
// wake event (crossed threshold with cooldown elapsed).
func (d *Detector) ProcessFrame(frame model.Frame) (bool, error) {
	if d.Paused() {
		return false, nil
	}
	score, err := d.scorer.Score(frame)
	if err != nil {
		d.consecutiveErr++
		if d.consecutiveErr > 50 {
			return false, ErrPersistentFailure
		}
		d.logger.Debug("wake scorer transient error", "error", err)
		time.Sleep(20 * time.Millisecond)
		return false, nil
	}
	d.consecutiveErr = 0

	if score < d.cfg.Threshold {
		return false, nil
	}
	now := time.Now()
	if !d.lastActivation.IsZero() && now.Sub(d.lastActivation) < d.cfg.Cooldown {
		return false, nil
	}
	d.lastActivation = now
	d.scorer.Reset()
	return true, nil
}

// FrameSource is the pull interface the detector consumes frames from
// (satisfied by *audiosource.Source).
type FrameSource interface {
	ReadFrame(ctx context.Context) (model.Frame, error)
}

// Run loops reading frames and invoking onWake whenever ProcessFrame fires.
// It returns only on ctx cancellation or a persistent scorer failure.
func (d *Detector) Run(ctx context.Context, src FrameSource, onWake func()) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if d.Paused() {
			// Don't steal frames from the exclusive LISTENING-phase reader
			// (the turn worker's ReadClip call) while paused.
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(20 * time.Millisecond):
			}
			continue
		}
		frame, err := src.ReadFrame(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			time.Sleep(20 * time.Millisecond)
			continue
		}
		fired, err := d.ProcessFrame(frame)
		if err != nil {
			d.logger.Error("wake detector stopping", "error", err)
			return err
		}
		if fired {
			onWake()
		}
	}
}
