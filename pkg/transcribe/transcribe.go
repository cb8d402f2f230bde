// Package transcribe wraps the speech-to-text model (SS4.4). transcribe()
// is synchronous; is_noise() filters empty/parenthesized/filler results so
// callers can cheaply suppress them.
package transcribe

import (
	"regexp"
	"strings"

	"github.com/lokutor-ai/jarvisd/pkg/model"
)

// Model is the external pure function transcribe(pcm_clip) -> text.
type Model interface {
	Transcribe(clip model.Clip) (string, error)
}

// Transcriber wraps a Model, optionally re-passing low-confidence previews
// through a larger final model (SS4.4: "a smaller model for previews and a
// larger model for a final re-pass").
type Transcriber struct {
	preview Model
	final   Model
}

// New builds a Transcriber. final may be nil to skip the re-pass tier.
func New(preview, final Model) *Transcriber {
	return &Transcriber{preview: preview, final: final}
}

// Transcribe runs the clip through the preview model, and through final (if
// configured and preview produced noise) for a second pass.
func (t *Transcriber) Transcribe(clip model.Clip) (string, error) {
	text, err := t.preview.Transcribe(clip)
	if err != nil {
		return "", err
	}
	if !IsNoise(text) {
		return text, nil
	}
	if t.final == nil {
		return text, nil
	}
	return t.final.Transcribe(clip)
}

var parenthesizedRE = regexp.MustCompile(`^\s*[\(\[].*[\)\]]\s*$`)

var fillerWords = map[string]bool{
	"um": true, "uh": true, "uhh": true, "umm": true, "hmm": true,
	"mm": true, "mhm": true, "er": true, "ah": true,
}

// IsNoise reports whether text is empty, a parenthesized bracketing (Whisper
// emits these for non-speech sounds, e.g. "(background noise)"), or a single
// trivial filler word.
func IsNoise(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return true
	}
	if parenthesizedRE.MatchString(trimmed) {
		return true
	}
	if fillerWords[strings.ToLower(strings.Trim(trimmed, ".,!?"))] {
		return true
	}
	return false
}
