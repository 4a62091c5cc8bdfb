package stream

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Writer is the outbound half of a media-stream connection. The playback
// controller and the barge-in path both write to it, possibly from different
// goroutines.
type Writer interface {
	WriteMedia(streamSID string, audio []byte) error
	WriteClear(streamSID string) error
	WriteMark(streamSID, name string) error
}

// Conn wraps a WebSocket connection with a write lock. gorilla/websocket
// allows at most one concurrent writer.
type Conn struct {
	mu sync.Mutex
	ws *websocket.Conn
}

// NewConn wraps ws.
func NewConn(ws *websocket.Conn) *Conn {
	return &Conn{ws: ws}
}

func (c *Conn) write(ev Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteJSON(ev)
}

// WriteMedia sends one outbound audio frame.
func (c *Conn) WriteMedia(streamSID string, audio []byte) error {
	return c.write(MediaMessage(streamSID, audio))
}

// WriteClear tells the provider to drop buffered outbound audio immediately.
func (c *Conn) WriteClear(streamSID string) error {
	return c.write(ClearMessage(streamSID))
}

// WriteMark sends a playback checkpoint.
func (c *Conn) WriteMark(streamSID, name string) error {
	return c.write(MarkMessage(streamSID, name))
}
