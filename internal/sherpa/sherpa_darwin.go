//go:build darwin

package sherpa

import impl "github.com/k2-fsa/sherpa-onnx-go-macos"

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
