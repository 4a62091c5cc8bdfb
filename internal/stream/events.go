// Package stream implements the telephony media-stream wire protocol: JSON
// events over a WebSocket connection carrying base64 mu-law audio.
package stream

import "encoding/base64"

// Event names on the media-stream connection.
const (
	EventConnected = "connected"
	EventStart     = "start"
	EventMedia     = "media"
	EventMark      = "mark"
	EventClear     = "clear"
	EventStop      = "stop"
)

// Event is the envelope for every inbound and outbound stream message.
type Event struct {
	Event          string `json:"event"`
	SequenceNumber string `json:"sequenceNumber,omitempty"`
	StreamSID      string `json:"streamSid,omitempty"`
	Start          *Start `json:"start,omitempty"`
	Media          *Media `json:"media,omitempty"`
	Mark           *Mark  `json:"mark,omitempty"`
	Stop           *Stop  `json:"stop,omitempty"`
}

// Start carries the stream identity and the custom parameters attached to
// the <Stream> TwiML verb.
type Start struct {
	StreamSID        string            `json:"streamSid"`
	AccountSID       string            `json:"accountSid"`
	CallSID          string            `json:"callSid"`
	CustomParameters map[string]string `json:"customParameters,omitempty"`
}

// Media is one audio frame, payload base64 mu-law at 8kHz.
type Media struct {
	Track     string `json:"track,omitempty"`
	Chunk     string `json:"chunk,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   string `json:"payload"`
}

// Mark is the provider's playback checkpoint event.
type Mark struct {
	Name string `json:"name"`
}

// Stop signals stream termination.
type Stop struct {
	AccountSID string `json:"accountSid,omitempty"`
	CallSID    string `json:"callSid,omitempty"`
}

// Frame decodes the media payload to raw mu-law bytes.
func (m *Media) Frame() ([]byte, error) {
	return base64.StdEncoding.DecodeString(m.Payload)
}

// MediaMessage builds an outbound audio event.
func MediaMessage(streamSID string, audio []byte) Event {
	return Event{
		Event:     EventMedia,
		StreamSID: streamSID,
		Media:     &Media{Payload: base64.StdEncoding.EncodeToString(audio)},
	}
}

// ClearMessage builds the control event that discards any audio the provider
// has buffered but not yet played. Used for barge-in.
func ClearMessage(streamSID string) Event {
	return Event{Event: EventClear, StreamSID: streamSID}
}

// MarkMessage builds a playback checkpoint event.
func MarkMessage(streamSID, name string) Event {
	return Event{
		Event:     EventMark,
		StreamSID: streamSID,
		Mark:      &Mark{Name: name},
	}
}
