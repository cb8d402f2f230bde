package orchestrator

import (
	"fmt"
	"regexp"
	"strings"
)

// baseEndPhrases is SS6's end-phrase list, minus the two that depend on the
// configured wake name.
var baseEndPhrases = []string{
	"end conversation", "stop conversation", "goodbye", "bye",
	"that's all", "thats all", "never mind", "nevermind", "dismiss",
}

var punctuationRE = regexp.MustCompile(`[^a-z0-9\s]`)

// isEndPhrase reports whether utterance contains an end phrase anywhere,
// matched case-insensitively with punctuation stripped (SS6).
func isEndPhrase(utterance, wakeName string) bool {
	cleaned := normalize(utterance)
	phrases := append(append([]string(nil), baseEndPhrases...),
		fmt.Sprintf("%s end", strings.ToLower(wakeName)),
		fmt.Sprintf("%s stop", strings.ToLower(wakeName)),
	)
	for _, phrase := range phrases {
		if strings.Contains(cleaned, normalize(phrase)) {
			return true
		}
	}
	return false
}

func normalize(s string) string {
	lowered := strings.ToLower(s)
	stripped := punctuationRE.ReplaceAllString(lowered, "")
	return strings.Join(strings.Fields(stripped), " ")
}
