package tts

import "errors"

// ErrNotCached is returned by PlayCached for a key with no rendered audio on disk.
var ErrNotCached = errors.New("tts: phrase not cached")
