package panemonitor

import (
	"regexp"
	"strings"

	"github.com/lokutor-ai/jarvisd/pkg/model"
)

// idlePatterns match a trailing shell/REPL prompt with no further output
// expected. Anchored to line start, space-tolerant at the end (SS6).
var idlePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^❯\s*$`),
	regexp.MustCompile(`^>\s*$`),
	regexp.MustCompile(`^\$\s*$`),
	regexp.MustCompile(`^%\s*$`),
	regexp.MustCompile(`^\(.*\)\s*❯\s*$`),
	regexp.MustCompile(`^\(.*\)\s*>\s*$`),
	regexp.MustCompile(`^\S+@\S+[\$#]\s*$`),
}

// errorPatterns must begin the line; a mid-sentence mention of "error"
// must never trip a false ERRORED classification (SS4.6, SS8 test case 4).
var errorPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^error[:\s]`),
	regexp.MustCompile(`(?i)^Traceback \(most recent`),
	regexp.MustCompile(`(?i)^.*Exception:`),
	regexp.MustCompile(`(?i)^fatal:`),
	regexp.MustCompile(`(?i)^FAILED`),
	regexp.MustCompile(`(?i)^panic:`),
}

// errorScanLines is how many trailing lines are scanned for an error marker.
const errorScanLines = 15

// Classify is a pure function of a captured pane snapshot: it never looks at
// prior state, only the text itself (SS4.6).
func Classify(snapshot string) model.PaneState {
	lines := splitNonEmpty(snapshot)
	if len(lines) == 0 {
		return model.PaneWorking
	}

	if matchesAny(idlePatterns, lines[len(lines)-1]) {
		return model.PaneIdle
	}

	start := 0
	if len(lines) > errorScanLines {
		start = len(lines) - errorScanLines
	}
	for _, line := range lines[start:] {
		if matchesAny(errorPatterns, line) {
			return model.PaneErrored
		}
	}
	return model.PaneWorking
}

// TailSnippet returns the last n non-empty lines, joined, for transition
// callbacks (SS4.6 default n=5).
func TailSnippet(snapshot string, n int) string {
	lines := splitNonEmpty(snapshot)
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

func splitNonEmpty(snapshot string) []string {
	raw := strings.Split(snapshot, "\n")
	out := make([]string, 0, len(raw))
	for _, line := range raw {
		trimmed := strings.TrimRight(line, " \t\r")
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}

func matchesAny(patterns []*regexp.Regexp, line string) bool {
	for _, p := range patterns {
		if p.MatchString(line) {
			return true
		}
	}
	return false
}
