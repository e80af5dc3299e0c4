package oracle

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

var planItemSchema = &genai.Schema{
	Type: genai.TypeArray,
	Items: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"id":                {Type: genai.TypeString},
			"order":             {Type: genai.TypeInteger},
			"start_at":          {Type: genai.TypeString},
			"end_at":            {Type: genai.TypeString},
			"estimated_minutes": {Type: genai.TypeInteger},
			"priority":          {Type: genai.TypeInteger},
		},
		Required: []string{"id", "order"},
	},
}

// GeminiBackend asks Gemini models for a JSON array constrained by the
// plan item schema.
type GeminiBackend struct {
	client *genai.Client
}

// GeminiOption adjusts the client config before the client is built.
type GeminiOption func(*genai.ClientConfig)

// WithGeminiBaseURL sends requests to url instead of the public endpoint.
func WithGeminiBaseURL(url string) GeminiOption {
	return func(cfg *genai.ClientConfig) {
		cfg.HTTPOptions.BaseURL = url
	}
}

func NewGeminiBackend(ctx context.Context, apiKey string, opts ...GeminiOption) (*GeminiBackend, error) {
	if apiKey == "" {
		return nil, errors.New("oracle: gemini api key is empty")
	}
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("oracle: gemini client: %w", err)
	}
	return &GeminiBackend{client: client}, nil
}

func (g *GeminiBackend) Complete(ctx context.Context, model string, req Request) (string, error) {
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   planItemSchema,
	}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	resp, err := g.client.Models.GenerateContent(ctx, model, genai.Text(req.Prompt), cfg)
	if err != nil {
		return "", err
	}
	text := resp.Text()
	if text == "" {
		return "", errors.New("oracle: gemini returned no text")
	}
	return text, nil
}
