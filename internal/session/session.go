// Package session provides per-call conversation state and the registry
// shared between the webhook handlers and the media-stream event loops.
package session

import (
	"strings"
	"sync"
	"time"

	"github.com/callerwork/callerd/internal/persona"
)

// Emotion is the caller's detected emotional state.
type Emotion string

const (
	EmotionSad      Emotion = "sad"
	EmotionStressed Emotion = "stressed"
	EmotionOkay     Emotion = "okay"
	EmotionHappy    Emotion = "happy"
)

// ParseEmotion maps free-form model output to the closed enum, defaulting
// to EmotionOkay for anything unrecognized.
func ParseEmotion(s string) Emotion {
	switch Emotion(strings.ToLower(strings.TrimSpace(s))) {
	case EmotionSad:
		return EmotionSad
	case EmotionStressed:
		return EmotionStressed
	case EmotionHappy:
		return EmotionHappy
	default:
		return EmotionOkay
	}
}

// Negative reports whether the emotion should trigger a follow-up call.
func (e Emotion) Negative() bool {
	return e == EmotionSad || e == EmotionStressed
}

// CallState is the orchestrator's per-call state machine position.
type CallState string

const (
	StateRinging       CallState = "ringing"
	StatePersonaSelect CallState = "persona_select"
	StateListening     CallState = "listening"
	StateAISpeaking    CallState = "ai_speaking"
	StateEnded         CallState = "ended"
)

// Session holds the conversational state for one phone number. Fields are
// guarded by the embedded mutex; use Do for compound mutations and the
// accessor methods for the playback flags.
type Session struct {
	mu sync.Mutex

	// Phone is the normalized (digits-only) registry key.
	Phone string
	// DialNumber is the number as originally provided, used for dialing.
	DialNumber string

	Persona      *persona.Persona
	History      *History
	Emotion      Emotion
	AISpeaking   bool
	Interrupted  bool
	IsFollowUp   bool
	State        CallState
	LastActivity time.Time
}

// New returns a fresh session in the ringing state.
func New(phone, dialNumber string) *Session {
	return &Session{
		Phone:        phone,
		DialNumber:   dialNumber,
		History:      NewHistory(DefaultMaxEntries),
		Emotion:      EmotionOkay,
		State:        StateRinging,
		LastActivity: time.Now(),
	}
}

// Do runs fn with the session locked.
func (s *Session) Do(fn func(*Session)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s)
	s.LastActivity = time.Now()
}

// Touch refreshes the last-activity timestamp.
func (s *Session) Touch() {
	s.mu.Lock()
	s.LastActivity = time.Now()
	s.mu.Unlock()
}

// Speaking reports whether playback is in progress.
func (s *Session) Speaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.AISpeaking
}

// BeginSpeaking marks the start of an utterance and clears any stale
// interruption flag.
func (s *Session) BeginSpeaking() {
	s.mu.Lock()
	s.AISpeaking = true
	s.Interrupted = false
	s.State = StateAISpeaking
	s.LastActivity = time.Now()
	s.mu.Unlock()
}

// EndSpeaking marks the end of an utterance, normal or aborted.
func (s *Session) EndSpeaking() {
	s.mu.Lock()
	s.AISpeaking = false
	if s.State == StateAISpeaking {
		s.State = StateListening
	}
	s.mu.Unlock()
}

// Interrupt applies the barge-in flag transition. It returns true only when
// the AI was actually speaking; a barge-in observed while not speaking has
// no effect.
func (s *Session) Interrupt() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.AISpeaking {
		return false
	}
	s.Interrupted = true
	s.AISpeaking = false
	s.State = StateListening
	return true
}

// WasInterrupted reports whether the current utterance was cut off.
func (s *Session) WasInterrupted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Interrupted
}

// Snapshot returns a copy of the fields the HTTP handlers render from.
func (s *Session) Snapshot() (p *persona.Persona, followUp bool, state CallState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Persona, s.IsFollowUp, s.State
}

// NormalizePhone reduces a phone number to its digits, the registry key.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
