// Package stt wraps the external streaming speech-recognition service.
package stt

import (
	"context"
	"errors"
)

// Common errors
var (
	ErrNotConnected = errors.New("transcription stream not connected")
	ErrUnavailable  = errors.New("STT provider unavailable")
)

// Transcript is one recognition result. Only final transcripts drive
// response generation; interim ones are informational.
type Transcript struct {
	Text       string
	Confidence float64
	IsFinal    bool
}

// Stream is one call's transcription session. Close must be called on every
// exit path; it releases the underlying connection and closes Results.
type Stream interface {
	// Send feeds one raw inbound audio frame.
	Send(frame []byte) error

	// Results yields transcripts until the stream closes.
	Results() <-chan Transcript

	Close() error
}

// Transcriber opens per-call transcription streams.
type Transcriber interface {
	Open(ctx context.Context) (Stream, error)
}
