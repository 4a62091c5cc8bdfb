package llm

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"google.golang.org/genai"
)

// DefaultGeminiModel balances latency and quality for spoken turns.
const DefaultGeminiModel = "gemini-2.0-flash"

// Gemini is the Client backed by the Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
	logger zerolog.Logger
}

// NewGemini creates a Gemini client using an API key.
func NewGemini(ctx context.Context, apiKey, model string, logger zerolog.Logger) (*Gemini, error) {
	if model == "" {
		model = DefaultGeminiModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Gemini{
		client: client,
		model:  model,
		logger: logger.With().Str("provider", "gemini").Logger(),
	}, nil
}

// Generate performs a single GenerateContent call and returns the model's
// free-form text.
func (g *Gemini) Generate(ctx context.Context, systemInstruction, prompt string) (string, error) {
	cfg := &genai.GenerateContentConfig{}
	if systemInstruction != "" {
		cfg.SystemInstruction = genai.NewContentFromText(systemInstruction, genai.RoleUser)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	text := resp.Text()
	g.logger.Debug().Int("chars", len(text)).Msg("model response")
	return text, nil
}
