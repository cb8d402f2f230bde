package speaker

import (
	"fmt"

	"github.com/lokutor-ai/jarvisd/internal/sherpa"
	"github.com/lokutor-ai/jarvisd/pkg/model"
)

// SherpaConfig points at a speaker-embedding model (SS4.3's "embeds
// captured audio clip" pure function).
type SherpaConfig struct {
	Model      string
	NumThreads int
	Provider   string
}

// SherpaEmbedder wraps a sherpa-onnx speaker-embedding extractor as an
// Embedder: one clip in, one fixed-dimension vector out.
type SherpaEmbedder struct {
	extractor *sherpa.SpeakerEmbeddingExtractor
}

// NewSherpaEmbedder loads the embedding model described by cfg.
func NewSherpaEmbedder(cfg SherpaConfig) (*SherpaEmbedder, error) {
	extractorConfig := &sherpa.SpeakerEmbeddingExtractorConfig{}
	extractorConfig.Model = cfg.Model
	extractorConfig.NumThreads = cfg.NumThreads
	extractorConfig.Provider = cfg.Provider

	extractor := sherpa.NewSpeakerEmbeddingExtractor(extractorConfig)
	if extractor == nil {
		return nil, fmt.Errorf("speaker: failed to load embedding model from %q", cfg.Model)
	}
	return &SherpaEmbedder{extractor: extractor}, nil
}

// Embed computes a fixed-dimension embedding vector for clip.
func (e *SherpaEmbedder) Embed(clip model.Clip) ([]float64, error) {
	stream := sherpa.NewSpeakerEmbeddingExtractorStream(e.extractor)
	defer sherpa.DeleteOnlineStream(stream)

	samples := make([]float32, len(clip.Samples))
	for i, v := range clip.Samples {
		samples[i] = float32(v) / 32768.0
	}
	stream.AcceptWaveform(clip.SampleRate, samples)
	stream.InputFinished()

	if !sherpa.SpeakerEmbeddingExtractorIsReady(e.extractor, stream) {
		return nil, fmt.Errorf("speaker: embedding extractor not ready after accepting full clip")
	}
	embedding := sherpa.SpeakerEmbeddingExtractorComputeEmbedding(e.extractor, stream)
	out := make([]float64, len(embedding))
	for i, v := range embedding {
		out[i] = float64(v)
	}
	return out, nil
}

// Close releases the native extractor resources.
func (e *SherpaEmbedder) Close() {
	sherpa.DeleteSpeakerEmbeddingExtractor(e.extractor)
}
