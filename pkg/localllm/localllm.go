// Package localllm wraps the local Ollama generation endpoint (SS4.9).
// Generate returns the generated text or an error on any failure (network,
// timeout, non-2xx); callers treat a non-nil error as "fall through to the
// next routing tier" rather than a hard failure.
package localllm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/lokutor-ai/jarvisd/pkg/model"
)

const (
	classifyTimeout = 5 * time.Second
	quickTimeout    = 8 * time.Second
	probeTimeout    = 2 * time.Second
)

// Config points the client at a local Ollama host and model.
type Config struct {
	Host  string
	Model string
}

// Client is an Ollama-backed Local LLM Client, built on Ollama's own Go
// client library rather than a hand-rolled net/http caller (SS11).
type Client struct {
	client *api.Client
	model  string
}

func New(cfg Config) (*Client, error) {
	host := strings.TrimSuffix(cfg.Host, "/")
	if host == "" {
		host = "http://127.0.0.1:11434"
	}
	parsed, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("localllm: invalid host %q: %w", cfg.Host, err)
	}
	httpClient := &http.Client{
		Timeout: 60 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
	return &Client{client: api.NewClient(parsed, httpClient), model: cfg.Model}, nil
}

// Generate issues {model, prompt, system?, stream=false, options} to the
// endpoint and returns the generated text.
func (c *Client) Generate(ctx context.Context, prompt, system string, numPredict int, temperature float32) (string, error) {
	stream := false
	var out string
	req := &api.GenerateRequest{
		Model:  c.model,
		Prompt: prompt,
		System: system,
		Stream: &stream,
		Options: map[string]any{
			"num_predict": numPredict,
			"temperature": temperature,
		},
	}
	err := c.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
		out += resp.Response
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("localllm: generate: %w", err)
	}
	return strings.TrimSpace(out), nil
}

const classifyPrompt = `Classify the following user utterance into exactly one category: simple, complex, action, tmux, knowledge.
Reply with only the category word.

Utterance: %s`

// ClassifyIntent issues a single-category-output prompt with a 5s timeout.
// On parse failure (timeout, unreachable endpoint, or unrecognized category)
// it defaults to complex.
func (c *Client) ClassifyIntent(ctx context.Context, text string) model.IntentCategory {
	ctx, cancel := context.WithTimeout(ctx, classifyTimeout)
	defer cancel()

	out, err := c.Generate(ctx, fmt.Sprintf(classifyPrompt, text), "", 8, 0)
	if err != nil {
		return model.IntentComplex
	}
	return parseIntentCategory(out)
}

func parseIntentCategory(text string) model.IntentCategory {
	word := strings.ToLower(strings.TrimSpace(text))
	word = strings.Trim(word, ".,!? ")
	for _, c := range []model.IntentCategory{
		model.IntentSimple, model.IntentComplex, model.IntentAction,
		model.IntentTmux, model.IntentKnowledge,
	} {
		if word == string(c) {
			return c
		}
	}
	return model.IntentComplex
}

// QuickAnswer asks for a short conversational answer with an 8s timeout. It
// returns ("", false) on any failure.
func (c *Client) QuickAnswer(ctx context.Context, text string) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, quickTimeout)
	defer cancel()

	const system = "You are a concise voice assistant. Answer in one or two short sentences."
	out, err := c.Generate(ctx, text, system, 150, 0.7)
	if err != nil || out == "" {
		return "", false
	}
	return out, true
}

// Available probes the endpoint's tags path with a 2s timeout.
func (c *Client) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	_, err := c.client.List(ctx)
	return err == nil
}
