package brain

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/callerwork/callerd/internal/persona"
	"github.com/callerwork/callerd/internal/session"
)

type stubModel struct {
	response string
	err      error

	mu        sync.Mutex
	calls     int
	gotSystem string
	gotPrompt string
}

func (m *stubModel) Generate(_ context.Context, system, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.gotSystem = system
	m.gotPrompt = prompt
	return m.response, m.err
}

type fakeScheduler struct {
	mu        sync.Mutex
	scheduled []string
}

func (f *fakeScheduler) Schedule(phone string, _ time.Duration) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scheduled = append(f.scheduled, phone)
	return true
}

func newTestSession() *session.Session {
	s := session.New("919876543210", "+91 98765 43210")
	p := persona.Default()
	s.Do(func(s *session.Session) { s.Persona = &p })
	return s
}

func TestGenerate_DecodesStructuredReply(t *testing.T) {
	model := &stubModel{response: `Sure! {"reply": "Achha, that sounds great!", "emotion": "happy"}`}
	sched := &fakeScheduler{}
	g := New(model, sched, time.Minute, zerolog.Nop())
	sess := newTestSession()

	res := g.Generate(context.Background(), sess, "aaj bahut achha din tha")

	assert.Equal(t, "Achha, that sounds great!", res.Reply)
	assert.Equal(t, session.EmotionHappy, res.Emotion)
	assert.Equal(t, 1, model.calls)
	assert.Empty(t, sched.scheduled, "happy emotion must not schedule a follow-up")

	turns := sess.History.Turns()
	if assert.Len(t, turns, 2) {
		assert.Equal(t, session.RoleUser, turns[0].Role)
		assert.Equal(t, "aaj bahut achha din tha", turns[0].Text)
		assert.Equal(t, session.RoleAssistant, turns[1].Role)
		assert.Equal(t, "Achha, that sounds great!", turns[1].Text)
	}
}

func TestGenerate_PromptContainsContext(t *testing.T) {
	model := &stubModel{response: `{"reply": "ok", "emotion": "okay"}`}
	g := New(model, &fakeScheduler{}, time.Minute, zerolog.Nop())
	sess := newTestSession()
	sess.History.Append(session.RoleUser, "hello")
	sess.History.Append(session.RoleAssistant, "hi, kaise ho?")

	g.Generate(context.Background(), sess, "thoda busy hoon")

	assert.Contains(t, model.gotSystem, "Meera", "persona instructions go in the system instruction")
	assert.Contains(t, model.gotPrompt, "Meera: hi, kaise ho?")
	assert.Contains(t, model.gotPrompt, "User: hello")
	assert.Contains(t, model.gotPrompt, `User just said: "thoda busy hoon"`)
	assert.Contains(t, model.gotPrompt, "sad, stressed, okay, happy")
}

func TestGenerate_InferenceErrorFallsBack(t *testing.T) {
	model := &stubModel{err: errors.New("quota exhausted")}
	g := New(model, &fakeScheduler{}, time.Minute, zerolog.Nop())
	sess := newTestSession()

	res := g.Generate(context.Background(), sess, "hello?")

	assert.Equal(t, FallbackReply, res.Reply)
	assert.Equal(t, session.EmotionOkay, res.Emotion)
	// The fallback is still a real turn.
	assert.Equal(t, 2, sess.History.Len())
}

func TestGenerate_UndecodableOutputFallsBack(t *testing.T) {
	for _, raw := range []string{
		"Sorry, I can't help with that.",
		`{"reply": "unterminated`,
		`{"emotion": "sad"}`,
	} {
		model := &stubModel{response: raw}
		g := New(model, &fakeScheduler{}, time.Minute, zerolog.Nop())
		sess := newTestSession()

		res := g.Generate(context.Background(), sess, "hmm")
		assert.Equal(t, FallbackReply, res.Reply, "raw=%q", raw)
		assert.Equal(t, session.EmotionOkay, res.Emotion, "raw=%q", raw)
	}
}

func TestGenerate_NegativeEmotionSchedulesFollowUp(t *testing.T) {
	model := &stubModel{response: `{"reply": "Hmm... tension mat lo, main hoon na.", "emotion": "stressed"}`}
	sched := &fakeScheduler{}
	g := New(model, sched, time.Minute, zerolog.Nop())
	sess := newTestSession()

	g.Generate(context.Background(), sess, "bahut stress hai yaar")

	assert.Equal(t, []string{"919876543210"}, sched.scheduled)

	var emotion session.Emotion
	sess.Do(func(s *session.Session) { emotion = s.Emotion })
	assert.Equal(t, session.EmotionStressed, emotion)

	_, followUp, _ := sess.Snapshot()
	assert.False(t, followUp, "scheduling must not mark the session as a follow-up")
}

func TestGenerate_FollowUpCallNeverReschedules(t *testing.T) {
	model := &stubModel{response: `{"reply": "Ohh.. I am here for you.", "emotion": "sad"}`}
	sched := &fakeScheduler{}
	g := New(model, sched, time.Minute, zerolog.Nop())
	sess := newTestSession()
	sess.Do(func(s *session.Session) { s.IsFollowUp = true })

	g.Generate(context.Background(), sess, "abhi bhi sad hoon")

	assert.Empty(t, sched.scheduled, "a follow-up call must not chain another follow-up")
}

func TestDecodeResult_EmotionOutsideEnum(t *testing.T) {
	res, ok := decodeResult(`{"reply": "theek hai", "emotion": "melancholy"}`)
	assert.True(t, ok)
	assert.Equal(t, session.EmotionOkay, res.Emotion)
}
