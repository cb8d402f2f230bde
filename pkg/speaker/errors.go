package speaker

import "errors"

// ErrNoEnrollmentClips is returned when Enroll has no clip of sufficient
// duration (>= 0.1s, SS4.3) to embed.
var ErrNoEnrollmentClips = errors.New("speaker: no enrollment clips of sufficient duration")
