package localllm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lokutor-ai/jarvisd/pkg/model"
)

func TestParseIntentCategoryKnownWord(t *testing.T) {
	if got := parseIntentCategory(" Simple.\n"); got != model.IntentSimple {
		t.Fatalf("expected simple, got %v", got)
	}
}

func TestParseIntentCategoryDefaultsToComplex(t *testing.T) {
	if got := parseIntentCategory("gibberish output"); got != model.IntentComplex {
		t.Fatalf("expected complex default, got %v", got)
	}
}

func newFakeOllama(t *testing.T, generateReply string) (*Client, func()) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/generate", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		resp := map[string]any{
			"model":    "test-model",
			"response": generateReply,
			"done":     true,
		}
		_ = json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"models": []any{}})
	})
	srv := httptest.NewServer(mux)

	c, err := New(Config{Host: srv.URL, Model: "test-model"})
	if err != nil {
		t.Fatal(err)
	}
	return c, srv.Close
}

func TestClassifyIntentParsesCategoryFromServer(t *testing.T) {
	c, closeSrv := newFakeOllama(t, "knowledge")
	defer closeSrv()

	got := c.ClassifyIntent(context.Background(), "what is the capital of france")
	if got != model.IntentKnowledge {
		t.Fatalf("expected knowledge, got %v", got)
	}
}

func TestQuickAnswerReturnsGeneratedText(t *testing.T) {
	c, closeSrv := newFakeOllama(t, "It's sunny today.")
	defer closeSrv()

	out, ok := c.QuickAnswer(context.Background(), "how's the weather")
	if !ok {
		t.Fatal("expected quick answer to succeed")
	}
	if out != "It's sunny today." {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestAvailableTrueWhenTagsReachable(t *testing.T) {
	c, closeSrv := newFakeOllama(t, "")
	defer closeSrv()

	if !c.Available(context.Background()) {
		t.Fatal("expected available() to succeed against a reachable server")
	}
}

func TestAvailableFalseWhenUnreachable(t *testing.T) {
	c, err := New(Config{Host: "http://127.0.0.1:1", Model: "x"})
	if err != nil {
		t.Fatal(err)
	}
	if c.Available(context.Background()) {
		t.Fatal("expected available() to fail against an unreachable host")
	}
}
