// Package audiosource owns the one capture device and exposes a pull
// interface over it, so the wake detector and the command listener never
// fight over the microphone (SS4.1 / SS5 shared-resources).
package audiosource

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/gen2brain/malgo"

	"github.com/lokutor-ai/jarvisd/pkg/logging"
	"github.com/lokutor-ai/jarvisd/pkg/model"
)

// Config tunes capture and voice-activity segmentation.
type Config struct {
	SampleRate int
	// CalibrationWindow is how long New listens to ambient noise
	// before picking an initial energy threshold (mirrors
	// recognizer.adjust_for_ambient_noise(source, duration=2)).
	CalibrationWindow time.Duration
	// PauseThreshold is how much trailing silence ends an utterance.
	PauseThreshold time.Duration
	// FrameBuffer bounds the internal channel; full buffers drop the
	// oldest frame rather than block the capture callback.
	FrameBuffer int
}

// DefaultConfig matches the spec's stated defaults.
func DefaultConfig() Config {
	return Config{
		SampleRate:        model.SampleRate,
		CalibrationWindow: 2 * time.Second,
		PauseThreshold:    time.Second,
		FrameBuffer:       64,
	}
}

// Source is the single owner of the capture device.
type Source struct {
	cfg    Config
	logger logging.Logger

	mctx   *malgo.AllocatedContext
	device *malgo.Device

	frames chan model.Frame
	pcmBuf []int16 // partial-frame carry between callback invocations

	mu        sync.Mutex
	threshold float64 // dynamically calibrated RMS energy threshold
	lastRMS   float64
}

// New opens the default input device and starts capturing immediately.
func New(cfg Config, logger logging.Logger) (*Source, error) {
	logger = logging.OrNoOp(logger)
	if cfg.SampleRate == 0 {
		cfg = DefaultConfig()
	}

	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, ErrDeviceLost
	}

	s := &Source{
		cfg:       cfg,
		logger:    logger,
		mctx:      mctx,
		frames:    make(chan model.Frame, cfg.FrameBuffer),
		threshold: 0.02,
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = 1
	deviceConfig.SampleRate = uint32(cfg.SampleRate)

	device, err := malgo.InitDevice(mctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: s.onSamples,
	})
	if err != nil {
		mctx.Uninit()
		return nil, ErrDeviceLost
	}
	s.device = device

	if err := device.Start(); err != nil {
		device.Uninit()
		mctx.Uninit()
		return nil, ErrDeviceLost
	}

	s.calibrate()
	return s, nil
}

// Close releases the capture device.
func (s *Source) Close() {
	if s.device != nil {
		s.device.Uninit()
	}
	if s.mctx != nil {
		s.mctx.Uninit()
	}
}

// Pause stops the capture device so the wake detector and command listener
// never read concurrently; Resume restarts it.
func (s *Source) Pause() error {
	if err := s.device.Stop(); err != nil {
		return ErrDeviceLost
	}
	return nil
}

func (s *Source) Resume() error {
	if err := s.device.Start(); err != nil {
		return ErrDeviceLost
	}
	return nil
}

func (s *Source) onSamples(_, input []byte, _ uint32) {
	if len(input) == 0 {
		return
	}
	for i := 0; i+1 < len(input); i += 2 {
		sample := int16(input[i]) | (int16(input[i+1]) << 8)
		s.pcmBuf = append(s.pcmBuf, sample)
	}
	for len(s.pcmBuf) >= model.FrameSamples {
		frame := model.Frame{Samples: append([]int16(nil), s.pcmBuf[:model.FrameSamples]...)}
		s.pcmBuf = s.pcmBuf[model.FrameSamples:]
		select {
		case s.frames <- frame:
		default:
			// Drop the oldest buffered frame rather than block the audio callback.
			select {
			case <-s.frames:
			default:
			}
			select {
			case s.frames <- frame:
			default:
			}
		}
	}
}

// ReadFrame blocks until one 80ms frame is available.
func (s *Source) ReadFrame(ctx context.Context) (model.Frame, error) {
	select {
	case f := <-s.frames:
		return f, nil
	case <-ctx.Done():
		return model.Frame{}, ctx.Err()
	}
}

// ReadClip segments one utterance using an energy-threshold VAD: speech
// starts once RMS exceeds the calibrated threshold, and ends once
// silenceTailSecs of trailing quiet is observed. maxSecs bounds the whole
// capture; phraseTimeoutSecs bounds how long we wait for speech to start.
func (s *Source) ReadClip(ctx context.Context, maxSecs, silenceTailSecs, phraseTimeoutSecs time.Duration) (model.Clip, error) {
	deadline := time.Now().Add(maxSecs)
	waitDeadline := time.Now().Add(phraseTimeoutSecs)

	var samples []int16
	var speaking bool
	var silenceStart time.Time

	for {
		if time.Now().After(deadline) {
			if speaking {
				return model.Clip{Samples: samples, SampleRate: s.cfg.SampleRate}, nil
			}
			return model.Clip{}, ErrTimeout
		}
		frameCtx, cancel := context.WithDeadline(ctx, time.Now().Add(200*time.Millisecond))
		frame, err := s.ReadFrame(frameCtx)
		cancel()
		if err != nil {
			if !speaking && time.Now().After(waitDeadline) {
				return model.Clip{}, ErrTimeout
			}
			continue
		}

		rms := rmsOf(frame.Samples)
		s.observeSilence(rms)

		if rms >= s.Threshold() {
			speaking = true
			silenceStart = time.Time{}
			samples = append(samples, frame.Samples...)
			continue
		}

		if !speaking {
			if time.Now().After(waitDeadline) {
				return model.Clip{}, ErrTimeout
			}
			continue
		}

		samples = append(samples, frame.Samples...)
		if silenceStart.IsZero() {
			silenceStart = time.Now()
		}
		if time.Since(silenceStart) >= silenceTailSecs {
			return model.Clip{Samples: samples, SampleRate: s.cfg.SampleRate}, nil
		}
	}
}

// Threshold returns the current calibrated RMS energy threshold.
func (s *Source) Threshold() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.threshold
}

func (s *Source) calibrate() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.CalibrationWindow)
	defer cancel()
	var peak float64
	for {
		frame, err := s.ReadFrame(ctx)
		if err != nil {
			break
		}
		if r := rmsOf(frame.Samples); r > peak {
			peak = r
		}
	}
	s.mu.Lock()
	s.threshold = math.Max(peak*2.5, 0.015)
	s.mu.Unlock()
	s.logger.Info("audio source calibrated", "threshold", s.Threshold())
}

// observeSilence slowly adapts the threshold from ambient noise observed
// between utterances, so a noisier room doesn't stay pinned to the
// start-of-process calibration.
func (s *Source) observeSilence(rms float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastRMS = rms
	if rms < s.threshold {
		s.threshold = s.threshold*0.98 + (rms*2.5)*0.02
		if s.threshold < 0.015 {
			s.threshold = 0.015
		}
	}
}

func rmsOf(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, v := range samples {
		f := float64(v) / 32768.0
		sum += f * f
	}
	return math.Sqrt(sum / float64(len(samples)))
}
