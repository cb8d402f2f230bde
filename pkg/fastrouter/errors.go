package fastrouter

import "errors"

// ErrNoMatch is returned by Route when no pattern in the table matched;
// callers escalate to the Local LLM / Brain Client path.
var ErrNoMatch = errors.New("fastrouter: no pattern matched")
