package stt

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	deepgramWSEndpoint = "wss://api.deepgram.com/v1/listen"
	deepgramModel      = "nova-2"
)

// DeepgramConfig configures the streaming recognizer for telephony audio.
type DeepgramConfig struct {
	APIKey         string
	Endpoint       string
	Model          string
	Language       string
	SampleRate     int
	Encoding       string
	InterimResults bool
	Punctuate      bool
}

// DefaultDeepgramConfig returns settings matched to the 8kHz mu-law frames
// the media stream delivers.
func DefaultDeepgramConfig() DeepgramConfig {
	return DeepgramConfig{
		Endpoint:       deepgramWSEndpoint,
		Model:          deepgramModel,
		Language:       "hi",
		SampleRate:     8000,
		Encoding:       "mulaw",
		InterimResults: true,
		Punctuate:      true,
	}
}

// Deepgram opens one WebSocket recognition stream per call.
type Deepgram struct {
	config DeepgramConfig
	logger zerolog.Logger
}

// NewDeepgram creates the transcriber. Zero-value config fields fall back to
// defaults.
func NewDeepgram(config DeepgramConfig, logger zerolog.Logger) *Deepgram {
	def := DefaultDeepgramConfig()
	if config.Endpoint == "" {
		config.Endpoint = def.Endpoint
	}
	if config.Model == "" {
		config.Model = def.Model
	}
	if config.Language == "" {
		config.Language = def.Language
	}
	if config.SampleRate == 0 {
		config.SampleRate = def.SampleRate
	}
	if config.Encoding == "" {
		config.Encoding = def.Encoding
	}
	return &Deepgram{
		config: config,
		logger: logger.With().Str("provider", "deepgram").Logger(),
	}
}

type deepgramMessage struct {
	Type        string          `json:"type"`
	IsFinal     bool            `json:"is_final,omitempty"`
	SpeechFinal bool            `json:"speech_final,omitempty"`
	Channel     deepgramChannel `json:"channel,omitempty"`
}

type deepgramChannel struct {
	Alternatives []deepgramAlternative `json:"alternatives,omitempty"`
}

type deepgramAlternative struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
}

// Open dials the recognizer and starts the read loop. The returned Stream is
// owned by a single call.
func (d *Deepgram) Open(ctx context.Context) (Stream, error) {
	if d.config.APIKey == "" {
		return nil, ErrUnavailable
	}

	url := fmt.Sprintf("%s?model=%s&language=%s&encoding=%s&sample_rate=%d&channels=1&punctuate=%t&interim_results=%t",
		d.config.Endpoint,
		d.config.Model,
		d.config.Language,
		d.config.Encoding,
		d.config.SampleRate,
		d.config.Punctuate,
		d.config.InterimResults,
	)

	header := http.Header{}
	header.Set("Authorization", "Token "+d.config.APIKey)

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			d.logger.Error().Int("status", resp.StatusCode).Err(err).Msg("recognizer dial failed")
		}
		return nil, fmt.Errorf("websocket dial: %w", err)
	}

	s := &deepgramStream{
		conn:    conn,
		logger:  d.logger,
		results: make(chan Transcript, 32),
	}
	go s.readLoop(ctx)

	d.logger.Info().Msg("transcription stream opened")
	return s, nil
}

type deepgramStream struct {
	conn    *websocket.Conn
	logger  zerolog.Logger
	results chan Transcript

	mu        sync.Mutex
	closed    bool
	closeOnce sync.Once
}

func (s *deepgramStream) Results() <-chan Transcript {
	return s.results
}

func (s *deepgramStream) Send(frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrNotConnected
	}
	return s.conn.WriteMessage(websocket.BinaryMessage, frame)
}

func (s *deepgramStream) readLoop(ctx context.Context) {
	defer close(s.results)

	for {
		if ctx.Err() != nil {
			return
		}

		_, message, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug().Msg("recognizer connection closed")
				return
			}
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			if !closed {
				s.logger.Error().Err(err).Msg("recognizer read failed")
			}
			return
		}

		if t, ok := parseDeepgramMessage(message); ok {
			select {
			case s.results <- t:
				s.logger.Debug().Str("text", t.Text).Bool("final", t.IsFinal).Msg("transcript")
			default:
				s.logger.Warn().Msg("transcript channel full, dropping")
			}
		}
	}
}

// parseDeepgramMessage extracts a transcript from one recognizer message.
// Empty transcripts and non-result messages are skipped.
func parseDeepgramMessage(message []byte) (Transcript, bool) {
	var msg deepgramMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		return Transcript{}, false
	}
	if msg.Type != "Results" || len(msg.Channel.Alternatives) == 0 {
		return Transcript{}, false
	}
	alt := msg.Channel.Alternatives[0]
	if alt.Transcript == "" {
		return Transcript{}, false
	}
	return Transcript{
		Text:       alt.Transcript,
		Confidence: alt.Confidence,
		IsFinal:    msg.IsFinal || msg.SpeechFinal,
	}, true
}

// Close sends the end-of-stream marker and releases the connection. Safe to
// call from any exit path, including more than once.
func (s *deepgramStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		closeMsg := []byte(`{"type": "CloseStream"}`)
		if werr := s.conn.WriteMessage(websocket.TextMessage, closeMsg); werr != nil {
			s.logger.Warn().Err(werr).Msg("failed to send close message")
		}
		err = s.conn.Close()
		s.mu.Unlock()
		s.logger.Info().Msg("transcription stream closed")
	})
	return err
}
