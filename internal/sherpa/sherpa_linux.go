//go:build linux

// Package sherpa re-exports the platform-specific sherpa-onnx-go bindings
// used as the concrete model runtime behind the Wake Detector and
// Transcriber interfaces (SS4.2, SS4.4 — both pure functions per the spec,
// sherpa-onnx is the pack's runtime for that role).
package sherpa

import impl "github.com/k2-fsa/sherpa-onnx-go-linux"

type KeywordSpotter = impl.KeywordSpotter
type KeywordSpotterConfig = impl.KeywordSpotterConfig
type OnlineStream = impl.OnlineStream

type OfflineRecognizer = impl.OfflineRecognizer
type OfflineRecognizerConfig = impl.OfflineRecognizerConfig
type OfflineStream = impl.OfflineStream
type OfflineRecognizerResult = impl.OfflineRecognizerResult

var NewKeywordSpotter = impl.NewKeywordSpotter
var DeleteKeywordSpotter = impl.DeleteKeywordSpotter
var NewOnlineStream = impl.NewOnlineStream
var DeleteOnlineStream = impl.DeleteOnlineStream

var NewOfflineRecognizer = impl.NewOfflineRecognizer
var DeleteOfflineRecognizer = impl.DeleteOfflineRecognizer
var NewOfflineStream = impl.NewOfflineStream
var DeleteOfflineStream = impl.DeleteOfflineStream

type SpeakerEmbeddingExtractor = impl.SpeakerEmbeddingExtractor
type SpeakerEmbeddingExtractorConfig = impl.SpeakerEmbeddingExtractorConfig

var NewSpeakerEmbeddingExtractor = impl.NewSpeakerEmbeddingExtractor
var DeleteSpeakerEmbeddingExtractor = impl.DeleteSpeakerEmbeddingExtractor
var NewSpeakerEmbeddingExtractorStream = impl.NewSpeakerEmbeddingExtractorStream
var SpeakerEmbeddingExtractorIsReady = impl.SpeakerEmbeddingExtractorIsReady
var SpeakerEmbeddingExtractorComputeEmbedding = impl.SpeakerEmbeddingExtractorComputeEmbedding
