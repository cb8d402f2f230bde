package screencontext

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
)

// VisionClient describes a screenshot via a multimodal chat endpoint.
type VisionClient interface {
	Describe(ctx context.Context, imagePath, question string) (string, error)
}

// OllamaVisionClient posts a base64-encoded screenshot to a local multimodal
// Ollama model, reusing the same client library as pkg/localllm (SS11) for
// the vision path rather than a bespoke HTTP caller.
type OllamaVisionClient struct {
	client *api.Client
	model  string
}

func NewOllamaVisionClient(host, model string) (*OllamaVisionClient, error) {
	host = strings.TrimSuffix(host, "/")
	if host == "" {
		host = "http://127.0.0.1:11434"
	}
	parsed, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("screencontext: invalid vision host %q: %w", host, err)
	}
	httpClient := &http.Client{Timeout: 20 * time.Second}
	return &OllamaVisionClient{client: api.NewClient(parsed, httpClient), model: model}, nil
}

// Describe returns a 2-3 sentence description, or empty on failure.
func (v *OllamaVisionClient) Describe(ctx context.Context, imagePath, question string) (string, error) {
	image, err := os.ReadFile(imagePath)
	if err != nil {
		return "", fmt.Errorf("screencontext: read screenshot: %w", err)
	}
	if question == "" {
		question = "Describe what's on screen in 2-3 short sentences."
	}

	stream := false
	var reply string
	err = v.client.Chat(ctx, &api.ChatRequest{
		Model: v.model,
		Messages: []api.Message{
			{Role: "user", Content: question, Images: []api.ImageData{image}},
		},
		Stream: &stream,
	}, func(resp api.ChatResponse) error {
		reply += resp.Message.Content
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("screencontext: vision chat: %w", err)
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", ErrVisionUnavailable
	}
	return reply, nil
}
