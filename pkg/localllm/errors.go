package localllm

import "errors"

// ErrUnavailable names an unreachable local generation endpoint. No function
// in this package returns it; callers see the underlying transport error.
var ErrUnavailable = errors.New("localllm: endpoint unavailable")
