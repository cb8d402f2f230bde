package screencontext

import "errors"

// ErrVisionUnavailable is returned when the vision-model path failed or
// produced an empty description; callers fall back to OCR.
var ErrVisionUnavailable = errors.New("screencontext: vision description unavailable")
