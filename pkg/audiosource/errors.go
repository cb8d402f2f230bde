package audiosource

import "errors"

var (
	// ErrDeviceLost is returned when the capture device disappears mid-stream.
	ErrDeviceLost = errors.New("audio device lost")

	// ErrTimeout is returned by ReadClip when speech never starts, either
	// before phraseTimeoutSecs or before maxSecs. An utterance that has started
	// and reaches maxSecs is returned as a clip, not as ErrTimeout.
	ErrTimeout = errors.New("read_clip timed out waiting for speech")
)
