package rag

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lokutor-ai/jarvisd/pkg/model"
)

func TestSearchDecodesHitsInDistanceOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		var req searchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if req.Query != "how do I deploy" {
			t.Fatalf("unexpected query %q", req.Query)
		}
		_ = json.NewEncoder(w).Encode([]wireHit{
			{ID: "conv-1", Document: "deploy via the release script", Collection: "conversations", Distance: 0.42},
			{ID: "doc-1", Document: "deployment runbook", Collection: "project_docs", Distance: 1.9},
		})
	}))
	defer srv.Close()

	c := New(DefaultConfig(srv.URL))
	hits, err := c.Search(context.Background(), "how do I deploy", 5, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 || hits[0].ID != "conv-1" {
		t.Fatalf("unexpected hits: %+v", hits)
	}
}

func TestSearchNonOKStatusMapsToErrUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(DefaultConfig(srv.URL))
	if _, err := c.Search(context.Background(), "x", 5, nil); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestSearchUnreachableMapsToErrUnavailable(t *testing.T) {
	c := New(DefaultConfig("http://127.0.0.1:1"))
	if _, err := c.Search(context.Background(), "x", 5, nil); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestBestHitBelowThreshold(t *testing.T) {
	hits := []model.RAGHit{
		{ID: "a", Distance: 1.8},
		{ID: "b", Distance: 0.9},
		{ID: "c", Distance: 1.2},
	}
	best, ok := BestHit(hits)
	if !ok || best.ID != "b" {
		t.Fatalf("expected hit b, got %+v ok=%v", best, ok)
	}
}

func TestBestHitAllAboveThresholdReturnsFalse(t *testing.T) {
	hits := []model.RAGHit{{ID: "a", Distance: 1.6}, {ID: "b", Distance: 2.1}}
	if _, ok := BestHit(hits); ok {
		t.Fatal("expected no usable hit")
	}
}

func TestBestHitEmptyReturnsFalse(t *testing.T) {
	if _, ok := BestHit(nil); ok {
		t.Fatal("expected false for empty input")
	}
}

func TestSaveConversationPostsSummary(t *testing.T) {
	var got saveConversationRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/save_conversation" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(DefaultConfig(srv.URL))
	if err := c.SaveConversation(context.Background(), "discussed the deploy pipeline", "sess-1"); err != nil {
		t.Fatal(err)
	}
	if got.Summary != "discussed the deploy pipeline" || got.SessionID != "sess-1" {
		t.Fatalf("unexpected request body: %+v", got)
	}
}
