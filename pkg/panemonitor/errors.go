package panemonitor

import "errors"

// ErrNotWatched is returned for operations against a window the monitor was
// never asked to watch.
var ErrNotWatched = errors.New("panemonitor: window not watched")
