// Package rag is a thin HTTP client for the knowledge-base service: a
// vector index of past task records and documents (SS3/SS6), queried over a
// REST surface rather than embedded in-process (the original's
// rag/knowledge_base.py runs ChromaDB locally; here it's a sibling
// service the Orchestrator Core calls).
package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/lokutor-ai/jarvisd/pkg/model"
)

const defaultTimeout = 5 * time.Second

// Config points the client at the knowledge-base service.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

func DefaultConfig(baseURL string) Config {
	return Config{BaseURL: baseURL, Timeout: defaultTimeout}
}

// Client calls search and save_conversation against the knowledge-base
// service's REST surface.
type Client struct {
	baseURL string
	http    *http.Client
}

func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     30 * time.Second,
			},
		},
	}
}

type searchRequest struct {
	Query       string   `json:"query"`
	NResults    int      `json:"n_results"`
	Collections []string `json:"collections,omitempty"`
}

// wireHit mirrors knowledge_base.py's search() return shape exactly
// (SS3: "RAG hit ... exactly mirrors rag/knowledge_base.py's search()").
type wireHit struct {
	ID         string         `json:"id"`
	Document   string         `json:"document"`
	Metadata   map[string]any `json:"metadata"`
	Collection string         `json:"collection"`
	Distance   float64        `json:"distance"`
}

// Search queries the knowledge base across all collections (or a named
// subset) and returns hits ordered by ascending distance, capped at
// nResults. A service error degrades to ErrUnavailable rather than a raw
// transport error, matching the "RAG is optional context" contract SS4.12's
// routing decision relies on.
func (c *Client) Search(ctx context.Context, query string, nResults int, collections []string) ([]model.RAGHit, error) {
	if nResults <= 0 {
		nResults = 5
	}
	body, err := json.Marshal(searchRequest{Query: query, NResults: nResults, Collections: collections})
	if err != nil {
		return nil, fmt.Errorf("rag: marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("rag: build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		drained, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, drained)
	}

	var wires []wireHit
	if err := json.NewDecoder(resp.Body).Decode(&wires); err != nil {
		return nil, fmt.Errorf("rag: decode search response: %w", err)
	}

	hits := make([]model.RAGHit, 0, len(wires))
	for _, w := range wires {
		hit := model.RAGHit{
			ID:         w.ID,
			Document:   w.Document,
			Collection: w.Collection,
			Distance:   w.Distance,
		}
		if w.Metadata != nil {
			if b, err := json.Marshal(w.Metadata); err == nil {
				hit.Metadata = string(b)
			}
		}
		hits = append(hits, hit)
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	if len(hits) > nResults {
		hits = hits[:nResults]
	}
	return hits, nil
}

// BestHit returns the lowest-distance hit, or false if none fall within
// RAGRelevanceThreshold (SS4.12's routing decision: "if the best distance <
// 1.5, build a small context string").
func BestHit(hits []model.RAGHit) (model.RAGHit, bool) {
	var best model.RAGHit
	found := false
	for _, h := range hits {
		if !found || h.Distance < best.Distance {
			best = h
			found = true
		}
	}
	if !found || best.Distance >= model.RAGRelevanceThreshold {
		return model.RAGHit{}, false
	}
	return best, true
}

type saveConversationRequest struct {
	Summary   string `json:"summary"`
	SessionID string `json:"session_id,omitempty"`
}

// SaveConversation persists a session summary for future retrieval. Failures
// are logged by the caller, not fatal to the turn.
func (c *Client) SaveConversation(ctx context.Context, summary, sessionID string) error {
	body, err := json.Marshal(saveConversationRequest{Summary: summary, SessionID: sessionID})
	if err != nil {
		return fmt.Errorf("rag: marshal save_conversation request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/save_conversation", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("rag: build save_conversation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		drained, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, drained)
	}
	return nil
}
