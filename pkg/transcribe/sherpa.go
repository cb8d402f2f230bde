package transcribe

import (
	"fmt"

	"github.com/lokutor-ai/jarvisd/internal/sherpa"
	"github.com/lokutor-ai/jarvisd/pkg/model"
)

// SherpaConfig points at an offline transducer ASR model (encoder, decoder,
// joiner, tokens) run through sherpa-onnx. Language is not passed to the
// recognizer.
type SherpaConfig struct {
	Encoder    string
	Decoder    string
	Joiner     string
	Tokens     string
	NumThreads int
	Provider   string
	Language   string
}

// SherpaModel is a Model backed by sherpa-onnx's offline recognizer.
type SherpaModel struct {
	recognizer *sherpa.OfflineRecognizer
}

func NewSherpaModel(cfg SherpaConfig) (*SherpaModel, error) {
	rc := &sherpa.OfflineRecognizerConfig{}
	rc.ModelConfig.Transducer.Encoder = cfg.Encoder
	rc.ModelConfig.Transducer.Decoder = cfg.Decoder
	rc.ModelConfig.Transducer.Joiner = cfg.Joiner
	rc.ModelConfig.Tokens = cfg.Tokens
	rc.ModelConfig.Provider = cfg.Provider
	rc.ModelConfig.NumThreads = cfg.NumThreads
	rc.DecodingMethod = "greedy_search"

	recognizer := sherpa.NewOfflineRecognizer(rc)
	if recognizer == nil {
		return nil, fmt.Errorf("transcribe: failed to load offline recognizer model from %q", cfg.Encoder)
	}
	return &SherpaModel{recognizer: recognizer}, nil
}

func (m *SherpaModel) Transcribe(clip model.Clip) (string, error) {
	stream := sherpa.NewOfflineStream(m.recognizer)
	defer sherpa.DeleteOfflineStream(stream)

	samples := make([]float32, len(clip.Samples))
	for i, v := range clip.Samples {
		samples[i] = float32(v) / 32768.0
	}
	stream.AcceptWaveform(clip.SampleRate, samples)
	m.recognizer.Decode(stream)
	result := stream.GetResult()
	return result.Text, nil
}

func (m *SherpaModel) Close() {
	sherpa.DeleteOfflineRecognizer(m.recognizer)
}
