package wake

import "errors"

// ErrPersistentFailure is surfaced once the scorer fails repeatedly; a
// single transient read error is swallowed with a brief sleep (SS4.2).
var ErrPersistentFailure = errors.New("wake detector: persistent scoring failure")
