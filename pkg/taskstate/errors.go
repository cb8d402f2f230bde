package taskstate

import "errors"

// ErrNotFound is returned when a task or instance id doesn't exist.
var ErrNotFound = errors.New("taskstate: not found")

// ErrInvalidField is returned when an update names a field outside the
// allowed set, or a status/priority value outside its enum.
var ErrInvalidField = errors.New("taskstate: invalid field")
