package engine

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/callerwork/callerd/internal/brain"
	"github.com/callerwork/callerd/internal/metrics"
	"github.com/callerwork/callerd/internal/persona"
	"github.com/callerwork/callerd/internal/session"
	"github.com/callerwork/callerd/internal/stream"
	"github.com/callerwork/callerd/internal/stt"
)

type turnKind int

const (
	turnGreeting turnKind = iota
	turnTranscript
	turnAck
)

// turnItem is one unit of work for a call's turn loop. Transcript-final
// items are processed to completion one at a time; the loop is what gives
// each session its ordering guarantee.
type turnItem struct {
	kind turnKind
	text string
}

// call is the per-connection event-loop state. Events arrive on one
// goroutine (the WebSocket reader); turns are processed on a second; the
// transcriber forwards results on a third.
type call struct {
	o         *Orchestrator
	writer    stream.Writer
	streamSID string
	sess      *session.Session
	sttStream stt.Stream
	turns     chan turnItem
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	logger    zerolog.Logger
}

func (o *Orchestrator) newCall(w stream.Writer) *call {
	ctx, cancel := context.WithCancel(context.Background())
	return &call{
		o:      o,
		writer: w,
		turns:  make(chan turnItem, 8),
		ctx:    ctx,
		cancel: cancel,
		logger: o.logger,
	}
}

// handleEvent dispatches one stream event. It reports whether the stream is
// finished.
func (c *call) handleEvent(ev *stream.Event) bool {
	switch ev.Event {
	case stream.EventConnected:
		// Protocol preamble, nothing to do until start.
	case stream.EventStart:
		c.onStart(ev.Start)
	case stream.EventMedia:
		c.onMedia(ev.Media)
	case stream.EventStop:
		c.logger.Info().Str("phone", c.phone()).Msg("media stream stopped")
		return true
	}
	return false
}

func (c *call) onStart(start *stream.Start) {
	if start == nil {
		return
	}
	c.streamSID = start.StreamSID

	phone := session.NormalizePhone(start.CustomParameters["phone"])
	sess, ok := c.o.registry.Get(phone)
	if !ok {
		sess = c.o.registry.Create(phone, phone)
	}
	c.sess = sess
	c.logger = c.o.logger.With().Str("phone", phone).Str("stream_sid", c.streamSID).Logger()

	_, followUp, _ := sess.Snapshot()
	greeting := c.ensurePersona(followUp)
	sess.Do(func(s *session.Session) { s.State = session.StateListening })

	sttStream, err := c.o.transcriber.Open(c.ctx)
	if err != nil {
		// The call still greets; it just can't hear. A reconnect would need
		// a fresh call anyway.
		c.logger.Error().Err(err).Msg("transcription stream open failed")
	} else {
		c.sttStream = sttStream
		c.wg.Add(1)
		go c.forwardTranscripts()
	}

	c.wg.Add(1)
	go c.turnLoop()

	c.enqueue(turnItem{kind: turnGreeting, text: greeting})
	c.logger.Info().Bool("follow_up", followUp).Msg("media stream started")
}

// ensurePersona backfills the default persona for calls that never reached
// digit selection, and picks the greeting variant for the call kind.
func (c *call) ensurePersona(followUp bool) string {
	var p persona.Persona
	c.sess.Do(func(s *session.Session) {
		if s.Persona == nil {
			def := persona.Default()
			s.Persona = &def
		}
		p = *s.Persona
	})
	if followUp {
		return p.FollowUpGreeting
	}
	return p.Greeting
}

func (c *call) onMedia(media *stream.Media) {
	if media == nil || c.sess == nil {
		return
	}
	frame, err := media.Frame()
	if err != nil {
		c.logger.Debug().Err(err).Msg("undecodable media payload")
		return
	}

	if c.sttStream != nil {
		if err := c.sttStream.Send(frame); err != nil {
			c.logger.Debug().Err(err).Msg("transcriber send failed")
		}
	}

	// The detector only matters while the AI is speaking; caller speech in
	// the listening state reaches us through the transcriber.
	if c.sess.Speaking() && c.o.detector.IsSpeech(frame) {
		c.onBargeIn()
	}
}

// onBargeIn applies the interruption protocol: flag the session, tell the
// provider to drop buffered audio, then queue a short acknowledgment.
func (c *call) onBargeIn() {
	if !c.sess.Interrupt() {
		// Playback finished between the check and the flag; nothing to cut.
		return
	}
	metrics.BargeIns.Inc()
	c.logger.Info().Msg("barge-in detected, clearing playback")

	if err := c.writer.WriteClear(c.streamSID); err != nil {
		c.logger.Error().Err(err).Msg("clear event failed")
	}
	c.enqueue(turnItem{kind: turnAck, text: brain.InterruptionUtterance})
}

func (c *call) forwardTranscripts() {
	defer c.wg.Done()
	for t := range c.sttStream.Results() {
		if !t.IsFinal || strings.TrimSpace(t.Text) == "" {
			continue
		}
		c.sess.Touch()
		c.logger.Debug().Str("text", t.Text).Float64("confidence", t.Confidence).Msg("final transcript")
		c.enqueue(turnItem{kind: turnTranscript, text: t.Text})
	}
}

func (c *call) turnLoop() {
	defer c.wg.Done()
	for {
		select {
		case <-c.ctx.Done():
			return
		case item := <-c.turns:
			c.processTurn(item)
		}
	}
}

func (c *call) processTurn(item turnItem) {
	switch item.kind {
	case turnGreeting:
		c.o.playback.Speak(c.ctx, c.sess, c.writer, c.streamSID, item.text)
	case turnTranscript, turnAck:
		started := time.Now()
		res := c.o.generator.Generate(c.ctx, c.sess, item.text)
		if item.kind == turnTranscript {
			metrics.Turns.Inc()
			metrics.TurnLatency.Observe(time.Since(started).Seconds())
		}
		c.o.playback.Speak(c.ctx, c.sess, c.writer, c.streamSID, res.Reply)
	}
}

// enqueue never blocks the stream reader; an overflowing queue drops the
// oldest pending work implicitly by dropping the new item.
func (c *call) enqueue(item turnItem) {
	select {
	case c.turns <- item:
	default:
		c.logger.Warn().Int("kind", int(item.kind)).Msg("turn queue full, dropping item")
	}
}

func (c *call) phone() string {
	if c.sess == nil {
		return ""
	}
	return c.sess.Phone
}

// shutdown releases the call's resources on every exit path: stop event,
// read error, or provider disconnect.
func (c *call) shutdown() {
	c.cancel()
	if c.sttStream != nil {
		_ = c.sttStream.Close()
	}
	if c.sess != nil {
		c.sess.Do(func(s *session.Session) {
			s.State = session.StateEnded
			s.AISpeaking = false
		})
	}
	c.wg.Wait()
}
