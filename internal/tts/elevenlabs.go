package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const (
	elevenLabsAPIEndpoint = "https://api.elevenlabs.io/v1"

	// outputFormat asks for 8kHz mu-law so the audio can go straight onto
	// the telephony stream without transcoding.
	outputFormat = "ulaw_8000"
)

// ElevenLabsConfig configures the synthesis provider.
type ElevenLabsConfig struct {
	APIKey     string
	Endpoint   string
	ModelID    string
	Stability  float64
	Similarity float64
}

// DefaultElevenLabsConfig returns sensible defaults. The multilingual model
// handles the Hinglish replies the personas produce.
func DefaultElevenLabsConfig() ElevenLabsConfig {
	return ElevenLabsConfig{
		Endpoint:   elevenLabsAPIEndpoint,
		ModelID:    "eleven_multilingual_v2",
		Stability:  0.5,
		Similarity: 0.75,
	}
}

// ElevenLabs synthesizes utterance chunks over the provider's HTTP API.
type ElevenLabs struct {
	config ElevenLabsConfig
	client *http.Client
	logger zerolog.Logger
}

// NewElevenLabs creates the provider. Zero-value config fields fall back to
// defaults.
func NewElevenLabs(config ElevenLabsConfig, logger zerolog.Logger) *ElevenLabs {
	def := DefaultElevenLabsConfig()
	if config.Endpoint == "" {
		config.Endpoint = def.Endpoint
	}
	if config.ModelID == "" {
		config.ModelID = def.ModelID
	}
	if config.Stability == 0 {
		config.Stability = def.Stability
	}
	if config.Similarity == 0 {
		config.Similarity = def.Similarity
	}
	return &ElevenLabs{
		config: config,
		client: &http.Client{Timeout: 30 * time.Second},
		logger: logger.With().Str("provider", "elevenlabs").Logger(),
	}
}

// Synthesize converts text to 8kHz mu-law audio for the given voice.
func (p *ElevenLabs) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	if p.config.APIKey == "" {
		return nil, ErrUnavailable
	}
	if text == "" {
		return nil, ErrEmptyText
	}

	start := time.Now()

	payload := map[string]any{
		"text":     text,
		"model_id": p.config.ModelID,
		"voice_settings": map[string]float64{
			"stability":        p.config.Stability,
			"similarity_boost": p.config.Similarity,
		},
	}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/text-to-speech/%s?output_format=%s", p.config.Endpoint, voiceID, outputFormat)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("xi-api-key", p.config.APIKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("synthesis API error %d: %s", resp.StatusCode, string(body))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}

	p.logger.Debug().
		Str("voice", voiceID).
		Int("audioBytes", len(audio)).
		Dur("took", time.Since(start)).
		Msg("synthesis complete")

	return audio, nil
}
