// Package engine is the call orchestrator: it owns the per-call state
// machine, drives the webhook responses, and runs the media-stream event
// loop that ties the detector, transcriber, generator and playback together.
package engine

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/callerwork/callerd/internal/audio"
	"github.com/callerwork/callerd/internal/brain"
	"github.com/callerwork/callerd/internal/metrics"
	"github.com/callerwork/callerd/internal/persona"
	"github.com/callerwork/callerd/internal/session"
	"github.com/callerwork/callerd/internal/stream"
	"github.com/callerwork/callerd/internal/stt"
	"github.com/callerwork/callerd/internal/telephony"
)

// ErrMissingPhone rejects a call trigger without a destination.
var ErrMissingPhone = errors.New("engine: destination phone number required")

// CallPlacer is the outbound-call boundary. Satisfied by *telephony.Client.
type CallPlacer interface {
	PlaceCall(ctx context.Context, to, webhookURL string) (string, error)
}

// FollowUpCanceler removes a pending follow-up task when its session is
// reset by a fresh call. Satisfied by *schedule.Scheduler.
type FollowUpCanceler interface {
	Cancel(phone string) bool
}

// ReplyGenerator produces the next spoken turn. Satisfied by
// *brain.Generator.
type ReplyGenerator interface {
	Generate(ctx context.Context, sess *session.Session, utterance string) brain.Result
}

// Speaker plays one utterance to the caller. Satisfied by *Playback.
type Speaker interface {
	Speak(ctx context.Context, sess *session.Session, w stream.Writer, streamSID, text string)
}

// Orchestrator coordinates one process's calls.
type Orchestrator struct {
	registry    *session.Registry
	placer      CallPlacer
	canceler    FollowUpCanceler
	transcriber stt.Transcriber
	detector    audio.SpeechActivityDetector
	generator   ReplyGenerator
	playback    Speaker
	publicURL   string
	logger      zerolog.Logger
}

// New creates an Orchestrator. publicURL is the externally reachable base of
// the webhook server, no trailing slash.
func New(
	registry *session.Registry,
	placer CallPlacer,
	canceler FollowUpCanceler,
	transcriber stt.Transcriber,
	detector audio.SpeechActivityDetector,
	generator ReplyGenerator,
	playback Speaker,
	publicURL string,
	logger zerolog.Logger,
) *Orchestrator {
	return &Orchestrator{
		registry:    registry,
		placer:      placer,
		canceler:    canceler,
		transcriber: transcriber,
		detector:    detector,
		generator:   generator,
		playback:    playback,
		publicURL:   strings.TrimRight(publicURL, "/"),
		logger:      logger.With().Str("component", "orchestrator").Logger(),
	}
}

// StartCall triggers a fresh outbound call to phone. Any previous session
// for the number is replaced and its pending follow-up cancelled. Returns
// the provider's call identifier.
func (o *Orchestrator) StartCall(ctx context.Context, phone string) (string, error) {
	key := session.NormalizePhone(phone)
	if key == "" {
		return "", ErrMissingPhone
	}

	o.canceler.Cancel(key)
	o.registry.Create(key, phone)

	sid, err := o.placer.PlaceCall(ctx, phone, o.voiceURL(key))
	if err != nil {
		o.registry.Remove(key)
		return "", err
	}

	metrics.CallsPlaced.WithLabelValues("initial").Inc()
	o.logger.Info().Str("phone", key).Str("call_sid", sid).Msg("outbound call placed")
	return sid, nil
}

// PlaceFollowUp fires a scheduled check-in call. An absent session is a
// no-op; a provider error is logged and the task stays consumed so the
// caller is never double-dialed.
func (o *Orchestrator) PlaceFollowUp(phone string) {
	sess, ok := o.registry.Get(phone)
	if !ok {
		o.logger.Warn().Str("phone", phone).Msg("follow-up fired for evicted session, skipping")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sid, err := o.placer.PlaceCall(ctx, sess.DialNumber, o.voiceURL(phone))
	if err != nil {
		o.logger.Error().Err(err).Str("phone", phone).Msg("follow-up dispatch failed")
		return
	}

	sess.Do(func(s *session.Session) {
		s.IsFollowUp = true
		s.State = session.StateRinging
	})
	metrics.CallsPlaced.WithLabelValues("follow_up").Inc()
	metrics.FollowUpsFired.Inc()
	o.logger.Info().Str("phone", phone).Str("call_sid", sid).Msg("follow-up call placed")
}

// HandleAnswer serves the call-answer webhook. First calls get the persona
// digit menu; follow-up calls reuse the stored persona and connect the media
// stream immediately.
func (o *Orchestrator) HandleAnswer(phone string) string {
	key := session.NormalizePhone(phone)
	sess, ok := o.registry.Get(key)
	if !ok {
		// Answer webhook without a trigger (e.g. process restart mid-call):
		// recover with a fresh session rather than dropping the call.
		sess = o.registry.Create(key, phone)
	}

	_, followUp, _ := sess.Snapshot()
	if followUp {
		sess.Do(func(s *session.Session) { s.State = session.StateListening })
		return telephony.ConnectStream(o.streamURL(), key)
	}

	sess.Do(func(s *session.Session) { s.State = session.StatePersonaSelect })
	return telephony.GatherDigits(persona.MenuPrompt(), o.selectURL(key))
}

// HandleDigits serves the persona-selection webhook. A missing or unknown
// digit falls back to the default persona.
func (o *Orchestrator) HandleDigits(phone, digits string) string {
	key := session.NormalizePhone(phone)
	p := persona.Resolve(digits)

	if !o.registry.Mutate(key, func(s *session.Session) {
		s.Persona = &p
		s.State = session.StateListening
	}) {
		sess := o.registry.Create(key, phone)
		sess.Do(func(s *session.Session) {
			s.Persona = &p
			s.State = session.StateListening
		})
	}

	o.logger.Info().Str("phone", key).Str("persona", p.Name).Msg("persona selected")
	return telephony.ConnectStream(o.streamURL(), key)
}

// HandleStream runs the media-stream event loop for one call. It returns
// when the provider closes the connection or sends stop.
func (o *Orchestrator) HandleStream(ws *websocket.Conn) {
	metrics.ActiveStreams.Inc()
	defer metrics.ActiveStreams.Dec()

	c := o.newCall(stream.NewConn(ws))
	defer c.shutdown()

	for {
		var ev stream.Event
		if err := ws.ReadJSON(&ev); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				o.logger.Debug().Err(err).Msg("media stream read ended")
			}
			return
		}
		if done := c.handleEvent(&ev); done {
			return
		}
	}
}

func (o *Orchestrator) voiceURL(phone string) string {
	return o.publicURL + "/voice?phone=" + phone
}

func (o *Orchestrator) selectURL(phone string) string {
	return o.publicURL + "/select?phone=" + phone
}

// streamURL derives the WebSocket endpoint from the public base URL.
func (o *Orchestrator) streamURL() string {
	u := o.publicURL
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/media"
}
