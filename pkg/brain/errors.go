package brain

import "errors"

// ErrTimeout is returned when the reasoning-agent executable does not finish
// within the quick/full deadline.
var ErrTimeout = errors.New("brain: reasoning agent timed out")
