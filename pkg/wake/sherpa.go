package wake

import (
	"fmt"
	"sync"

	"github.com/lokutor-ai/jarvisd/internal/sherpa"
	"github.com/lokutor-ai/jarvisd/pkg/model"
)

// SherpaConfig points at the keyword-spotting model files for the
// configured wake phrase.
type SherpaConfig struct {
	Encoder      string
	Decoder      string
	Joiner       string
	Tokens       string
	KeywordsFile string
	NumThreads   int
	Provider     string
}

// SherpaScorer wraps a sherpa-onnx keyword spotter as a Scorer: one frame in,
// one score out, with Reset() clearing the spotter's streaming decode state.
type SherpaScorer struct {
	mu     sync.Mutex
	spot   *sherpa.KeywordSpotter
	stream *sherpa.OnlineStream
}

// NewSherpaScorer loads the keyword-spotting model described by cfg.
func NewSherpaScorer(cfg SherpaConfig) (*SherpaScorer, error) {
	kwsConfig := &sherpa.KeywordSpotterConfig{}
	kwsConfig.ModelConfig.Transducer.Encoder = cfg.Encoder
	kwsConfig.ModelConfig.Transducer.Decoder = cfg.Decoder
	kwsConfig.ModelConfig.Transducer.Joiner = cfg.Joiner
	kwsConfig.ModelConfig.Tokens = cfg.Tokens
	kwsConfig.ModelConfig.Provider = cfg.Provider
	kwsConfig.ModelConfig.NumThreads = cfg.NumThreads
	kwsConfig.KeywordsFile = cfg.KeywordsFile
	kwsConfig.FeatConfig.SampleRate = model.SampleRate
	kwsConfig.FeatConfig.FeatureDim = 80

	spot := sherpa.NewKeywordSpotter(kwsConfig)
	if spot == nil {
		return nil, fmt.Errorf("wake: failed to load keyword spotter model from %q", cfg.Encoder)
	}
	stream := sherpa.NewOnlineStream(spot)
	return &SherpaScorer{spot: spot, stream: stream}, nil
}

// Score feeds one frame into the streaming keyword spotter and returns 1.0
// if the configured keyword fired on this frame, else 0.0. The spotter's
// own internal confidence isn't exposed per-frame by the Go binding, so the
// detector's threshold effectively becomes a simple fire/no-fire gate at
// any positive configured threshold below 1.0.
func (s *SherpaScorer) Score(frame model.Frame) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	samples := make([]float32, len(frame.Samples))
	for i, v := range frame.Samples {
		samples[i] = float32(v) / 32768.0
	}
	s.stream.AcceptWaveform(model.SampleRate, samples)
	for s.spot.IsReady(s.stream) {
		s.spot.Decode(s.stream)
	}
	result := s.spot.GetResult(s.stream)
	if result != nil && result.Keyword != "" {
		s.spot.Reset(s.stream)
		return 1.0, nil
	}
	return 0.0, nil
}

// Reset clears streaming decode state, matching spec SS4.2's
// reset-on-activation / reset-on-resume requirement.
func (s *SherpaScorer) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spot.Reset(s.stream)
}

// Close releases the native spotter resources.
func (s *SherpaScorer) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	sherpa.DeleteOnlineStream(s.stream)
	sherpa.DeleteKeywordSpotter(s.spot)
}
