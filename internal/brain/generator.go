// Package brain turns a final transcript into the next spoken reply plus an
// emotion classification, with a fixed fallback when the model misbehaves.
package brain

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/callerwork/callerd/internal/llm"
	"github.com/callerwork/callerd/internal/metrics"
	"github.com/callerwork/callerd/internal/session"
)

// FallbackReply is spoken whenever inference fails or the model's output
// cannot be decoded.
const FallbackReply = "I understand.. tension mat lo."

// InterruptionUtterance stands in for the user's words when a barge-in is
// detected; the model sees it instead of a transcript.
const InterruptionUtterance = "(The user just interrupted you mid-sentence. Acknowledge briefly and ask them to go ahead.)"

// DefaultFollowUpDelay is how long after a negative emotion the check-in
// call is placed.
const DefaultFollowUpDelay = 5 * time.Minute

// FollowUpScheduler registers the deferred check-in call. Satisfied by
// *schedule.Scheduler.
type FollowUpScheduler interface {
	Schedule(phone string, delay time.Duration) bool
}

// Result is one generated turn.
type Result struct {
	Reply   string
	Emotion session.Emotion
}

// structured result embedded somewhere in the model's free-form text
var jsonBlock = regexp.MustCompile(`(?s)\{.*\}`)

// Generator produces replies for a session, one model call per turn.
type Generator struct {
	model         llm.Client
	scheduler     FollowUpScheduler
	followUpDelay time.Duration
	logger        zerolog.Logger
}

// New creates a Generator. A zero delay selects DefaultFollowUpDelay.
func New(model llm.Client, scheduler FollowUpScheduler, followUpDelay time.Duration, logger zerolog.Logger) *Generator {
	if followUpDelay <= 0 {
		followUpDelay = DefaultFollowUpDelay
	}
	return &Generator{
		model:         model,
		scheduler:     scheduler,
		followUpDelay: followUpDelay,
		logger:        logger.With().Str("component", "brain").Logger(),
	}
}

// Generate builds the prompt for utterance, runs one inference, and returns
// the decoded reply. It never returns an error to the caller: any failure
// degrades to FallbackReply with an okay emotion. Side effects: both turns
// are appended to the session history, the session's emotion is updated, and
// a negative emotion on a first call schedules the follow-up.
func (g *Generator) Generate(ctx context.Context, sess *session.Session, utterance string) Result {
	p, followUp, _ := sess.Snapshot()
	prompt := buildPrompt(sess, utterance)

	res := Result{Reply: FallbackReply, Emotion: session.EmotionOkay}

	var instructions string
	if p != nil {
		instructions = p.Instructions
	}
	raw, err := g.model.Generate(ctx, instructions, prompt)
	if err != nil {
		g.logger.Error().Err(err).Str("phone", sess.Phone).Msg("inference failed, using fallback")
	} else if decoded, ok := decodeResult(raw); ok {
		res = decoded
	} else {
		g.logger.Warn().Str("phone", sess.Phone).Str("raw", truncate(raw, 200)).Msg("undecodable model output, using fallback")
	}

	sess.History.Append(session.RoleUser, utterance)
	sess.History.Append(session.RoleAssistant, res.Reply)
	sess.Do(func(s *session.Session) {
		s.Emotion = res.Emotion
	})

	if res.Emotion.Negative() && !followUp {
		if g.scheduler.Schedule(sess.Phone, g.followUpDelay) {
			metrics.FollowUpsScheduled.Inc()
			g.logger.Info().
				Str("phone", sess.Phone).
				Str("emotion", string(res.Emotion)).
				Dur("delay", g.followUpDelay).
				Msg("follow-up call scheduled")
		}
	}

	return res
}

// buildPrompt combines the rendered memory, the new utterance, and the fixed
// output rules. The persona instructions travel separately as the system
// instruction.
func buildPrompt(sess *session.Session, utterance string) string {
	p, _, _ := sess.Snapshot()
	name := ""
	if p != nil {
		name = p.Name
	}

	var b strings.Builder
	if history := sess.History.Render(name); history != "" {
		b.WriteString("Conversation so far:\n")
		b.WriteString(history)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "User just said: %q\n\n", utterance)
	b.WriteString("Rules:\n")
	b.WriteString("- Reply in 1-2 short sentences, like a real phone conversation.\n")
	b.WriteString("- Match the user's language and register (Hinglish stays Hinglish).\n")
	b.WriteString("- Classify the user's current emotion as exactly one of: sad, stressed, okay, happy.\n")
	b.WriteString(`- Respond with ONLY this JSON, nothing else: {"reply": "<your reply>", "emotion": "<emotion>"}`)
	return b.String()
}

// decodeResult extracts the first {...} block from raw and decodes it.
func decodeResult(raw string) (Result, bool) {
	block := jsonBlock.FindString(raw)
	if block == "" {
		return Result{}, false
	}

	var payload struct {
		Reply   string `json:"reply"`
		Emotion string `json:"emotion"`
	}
	if err := json.Unmarshal([]byte(block), &payload); err != nil {
		return Result{}, false
	}
	if strings.TrimSpace(payload.Reply) == "" {
		return Result{}, false
	}
	return Result{
		Reply:   strings.TrimSpace(payload.Reply),
		Emotion: session.ParseEmotion(payload.Emotion),
	}, true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
