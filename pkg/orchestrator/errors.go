package orchestrator

import "errors"

// ErrMissingDependency is returned by New when a required component is nil.
var ErrMissingDependency = errors.New("orchestrator: required dependency is nil")
