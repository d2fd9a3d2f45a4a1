package genclient

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"
)

// GeminiProvider talks to the Google GenAI API.
type GeminiProvider struct {
	client     *genai.Client
	probeModel string
}

// NewGeminiProvider builds a provider. probeModel is the model used by Ping.
func NewGeminiProvider(ctx context.Context, apiKey, probeModel string) (*GeminiProvider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GeminiProvider{client: client, probeModel: probeModel}, nil
}

func (p *GeminiProvider) Complete(ctx context.Context, model, prompt string, wantJSON bool) (string, error) {
	config := &genai.GenerateContentConfig{}
	if wantJSON {
		config.ResponseMIMEType = "application/json"
	}

	resp, err := p.client.Models.GenerateContent(ctx, model, genai.Text(prompt), config)
	if err != nil {
		return "", fmt.Errorf("generate content failed: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("empty generation response")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	return sb.String(), nil
}

func (p *GeminiProvider) Ping(ctx context.Context) bool {
	if _, err := p.client.Models.Get(ctx, p.probeModel, nil); err != nil {
		slog.Error("llm ping failed", "error", err.Error())
		return false
	}
	return true
}
