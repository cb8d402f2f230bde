package brain

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lokutor-ai/jarvisd/pkg/model"
)

func TestDecideModeShortUtteranceIsQuick(t *testing.T) {
	if got := DecideMode("what's today's date"); got != model.BrainModeQuick {
		t.Fatalf("expected quick, got %v", got)
	}
}

func TestDecideModeActionKeywordForcesFull(t *testing.T) {
	if got := DecideMode("click the button"); got != model.BrainModeFull {
		t.Fatalf("expected full due to action keyword, got %v", got)
	}
}

func TestDecideModeLongUtteranceIsFull(t *testing.T) {
	long := "tell me a very long story about the history of the roman empire starting from founding through to its fall across many centuries"
	if got := DecideMode(long); got != model.BrainModeFull {
		t.Fatalf("expected full for long utterance, got %v", got)
	}
}

func TestNeedsVisionOnScreenKeyword(t *testing.T) {
	if !NeedsVision("what app is running right now") {
		t.Fatal("expected vision trigger for screen keyword utterance")
	}
	if NeedsVision("what's the capital of france") {
		t.Fatal("expected no vision trigger for unrelated utterance")
	}
}

func TestPostprocessStripsMarkdownAndTruncates(t *testing.T) {
	raw := "```go\n# Heading\n**bold** and `code` text\n```"
	got := postprocess(raw)
	if got != "Heading\nbold and code text" {
		t.Fatalf("unexpected postprocessed text: %q", got)
	}
}

func TestPostprocessTruncatesLongReplyToLastSentence(t *testing.T) {
	sentence := "This is a sentence. "
	var raw string
	for len(raw) < 600 {
		raw += sentence
	}
	got := postprocess(raw)
	if len(got) > maxReplyChars {
		t.Fatalf("expected truncated output <= %d chars, got %d", maxReplyChars, len(got))
	}
	if got[len(got)-1] != '.' {
		t.Fatalf("expected truncation to end on a full sentence, got %q", got[len(got)-20:])
	}
}

// fakeAgentScript writes a shell script that reads --output-file from argv
// and writes reply to it, mimicking the reasoning agent executable's
// output-file contract.
func fakeAgentScript(t *testing.T, reply string, sleepSecs int) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fake-agent.sh")
	script := "#!/bin/sh\nsleep " + itoa(sleepSecs) + "\nfor i in \"$@\"; do\n  if [ \"$prev\" = \"--output-file\" ]; then\n    printf '%s' \"" + reply + "\" > \"$i\"\n  fi\n  prev=\"$i\"\ndone\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := ""
	for n > 0 {
		digits = string(rune('0'+n%10)) + digits
		n /= 10
	}
	return digits
}

func TestInvokeReadsOutputFile(t *testing.T) {
	agent := fakeAgentScript(t, "Hello from the agent.", 0)
	c := New(Config{ExecPath: agent, ScratchDir: t.TempDir()}, nil)

	reply, err := c.Invoke(context.Background(), "hi there", model.BrainModeQuick, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if reply != "Hello from the agent." {
		t.Fatalf("unexpected reply: %q", reply)
	}
}

func TestInvokeRecordsHistoryAndClearHistory(t *testing.T) {
	agent := fakeAgentScript(t, "ack", 0)
	c := New(Config{ExecPath: agent, ScratchDir: t.TempDir()}, nil)

	if _, err := c.Invoke(context.Background(), "first turn", model.BrainModeQuick, nil, nil); err != nil {
		t.Fatal(err)
	}
	c.mu.Lock()
	histLen := len(c.history)
	c.mu.Unlock()
	if histLen != 1 {
		t.Fatalf("expected 1 history turn, got %d", histLen)
	}

	c.ClearHistory()
	c.mu.Lock()
	histLen = len(c.history)
	c.mu.Unlock()
	if histLen != 0 {
		t.Fatalf("expected history cleared, got %d turns", histLen)
	}
}

func TestInvokeTimesOutOnSlowAgent(t *testing.T) {
	agent := fakeAgentScript(t, "too slow", 5)
	c := New(Config{ExecPath: agent, ScratchDir: t.TempDir()}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := c.Invoke(ctx, "do something slow", model.BrainModeQuick, nil, nil)
	if err != ErrTimeout {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}
