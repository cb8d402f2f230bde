package brain

import (
	"fmt"
	"strings"

	"github.com/lokutor-ai/jarvisd/pkg/model"
)

const systemPreamble = `You are a hands-free voice assistant running on the user's own machine. You can see a description of what's on screen when provided, recall relevant notes, and remember recent turns of this conversation. Answer naturally and concisely, as if speaking aloud.`

// buildPrompt assembles: system preamble, optional screen context, optional
// RAG snippets, optional conversation history, then the utterance (SS4.10).
func buildPrompt(utterance string, screen *model.ScreenSnapshot, ragHits []model.RAGHit, history []model.ConversationTurn) string {
	var b strings.Builder
	b.WriteString(systemPreamble)
	b.WriteString("\n\n")

	if screen != nil {
		b.WriteString("Current screen:\n")
		fmt.Fprintf(&b, "- Active window: %s\n", screen.ActiveWindowTitle)
		fmt.Fprintf(&b, "- Mouse at (%d, %d) on a %dx%d display\n", screen.MouseX, screen.MouseY, screen.ScreenWidth, screen.ScreenHeight)
		if len(screen.Windows) > 0 {
			fmt.Fprintf(&b, "- Open windows: %s\n", strings.Join(screen.Windows, ", "))
		}
		if screen.VisionDescription != "" {
			fmt.Fprintf(&b, "- What's visible: %s\n", screen.VisionDescription)
		}
		b.WriteString("\n")
	}

	if len(ragHits) > 0 {
		b.WriteString("Relevant notes:\n")
		for _, hit := range ragHits {
			fmt.Fprintf(&b, "- %s\n", hit.Document)
		}
		b.WriteString("\n")
	}

	if len(history) > 0 {
		b.WriteString("Recent conversation:\n")
		for _, turn := range history {
			fmt.Fprintf(&b, "User: %s\nAssistant: %s\n", turn.UserText, turn.AssistantText)
		}
		b.WriteString("\n")
	}

	b.WriteString("User: ")
	b.WriteString(utterance)
	return b.String()
}
