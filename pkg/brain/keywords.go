package brain

import "strings"

// actionKeywords force "full" mode regardless of utterance length (SS4.10/SS6).
var actionKeywords = map[string]bool{
	"click": true, "type": true, "open": true, "mouse": true, "screen": true,
	"browser": true, "window": true, "scroll": true, "fill": true, "form": true,
	"cursor": true, "move": true, "press": true, "close": true, "focus": true,
	"switch": true, "tab": true, "desktop": true, "display": true, "launch": true,
	"run": true,
}

// screenKeywords trigger the vision-model path over a fresh screenshot in
// full mode (SS6). Some of them (tab, desktop, display, ...) are also
// actionKeywords; neither set contains the other.
var screenKeywords = map[string]bool{
	"screen": true, "see": true, "looking at": true, "running": true,
	"browser": true, "window": true, "app": true, "application": true,
	"tab": true, "showing": true, "display": true, "desktop": true,
	"fill": true, "form": true, "click": true, "type": true, "mouse": true,
	"cursor": true, "open": true,
}

func containsAnyKeyword(text string, set map[string]bool) bool {
	lowered := strings.ToLower(text)
	for kw := range set {
		if strings.Contains(kw, " ") {
			if strings.Contains(lowered, kw) {
				return true
			}
			continue
		}
		for _, word := range strings.Fields(lowered) {
			if strings.Trim(word, ".,!?") == kw {
				return true
			}
		}
	}
	return false
}

func hasActionKeyword(text string) bool { return containsAnyKeyword(text, actionKeywords) }
func hasScreenKeyword(text string) bool { return containsAnyKeyword(text, screenKeywords) }
