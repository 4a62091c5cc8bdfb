// Package tts wraps the external text-to-speech service.
package tts

import (
	"context"
	"errors"
)

// Common errors
var (
	ErrUnavailable = errors.New("TTS provider unavailable")
	ErrEmptyText   = errors.New("nothing to synthesize")
)

// Synthesizer converts one utterance chunk to audio in the media stream's
// native format (8kHz mu-law), ready to frame onto the outbound connection.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voiceID string) ([]byte, error)
}
