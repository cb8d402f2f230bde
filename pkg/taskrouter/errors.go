package taskrouter

import "errors"

// ErrNoSuchWindow names a window the router has no record of and the
// multiplexer cannot resolve. No Router method returns it: operations on an
// unknown window pass the multiplexer's own error through.
var ErrNoSuchWindow = errors.New("taskrouter: no such window")
