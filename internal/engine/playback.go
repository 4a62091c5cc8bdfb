package engine

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/callerwork/callerd/internal/metrics"
	"github.com/callerwork/callerd/internal/session"
	"github.com/callerwork/callerd/internal/stream"
	"github.com/callerwork/callerd/internal/tts"
)

// mu-law at 8kHz is one byte per sample, so playback consumes 8000 bytes of
// audio per second.
const bytesPerSecond = 8000

// sentence-ending runes that close an utterance chunk; includes the
// Devanagari danda for Hindi text.
const chunkTerminators = ".?!…।"

// Playback streams a reply to the caller one sentence chunk at a time,
// checking the session's interruption flag between chunks.
type Playback struct {
	synth  tts.Synthesizer
	logger zerolog.Logger

	// wait paces chunk delivery to the audio's real duration; replaced in
	// tests.
	wait func(ctx context.Context, d time.Duration)
}

// NewPlayback creates a playback controller.
func NewPlayback(synth tts.Synthesizer, logger zerolog.Logger) *Playback {
	return &Playback{
		synth:  synth,
		logger: logger.With().Str("component", "playback").Logger(),
		wait:   sleepCtx,
	}
}

// Speak synthesizes and streams text for the session. It marks the session
// speaking for its whole duration, aborts remaining chunks once the session
// is interrupted, and skips (not aborts) chunks whose synthesis fails.
func (p *Playback) Speak(ctx context.Context, sess *session.Session, w stream.Writer, streamSID, text string) {
	chunks := SplitUtterance(text)
	if len(chunks) == 0 {
		return
	}

	voiceID := ""
	if persona, _, _ := sess.Snapshot(); persona != nil {
		voiceID = persona.VoiceID
	}

	sess.BeginSpeaking()
	defer sess.EndSpeaking()

	for i, chunk := range chunks {
		if ctx.Err() != nil {
			return
		}
		if sess.WasInterrupted() {
			p.logger.Debug().
				Str("phone", sess.Phone).
				Int("spoken", i).
				Int("total", len(chunks)).
				Msg("playback aborted by barge-in")
			return
		}

		audio, err := p.synth.Synthesize(ctx, chunk, voiceID)
		if err != nil {
			metrics.SynthesisFailures.Inc()
			p.logger.Error().Err(err).Str("phone", sess.Phone).Str("chunk", chunk).Msg("synthesis failed, skipping chunk")
			continue
		}
		if err := w.WriteMedia(streamSID, audio); err != nil {
			p.logger.Error().Err(err).Str("phone", sess.Phone).Msg("outbound write failed, aborting playback")
			return
		}

		// Frames land in the provider's buffer near-instantly; without
		// pacing the interruption check would never see a mid-utterance
		// barge-in.
		p.wait(ctx, time.Duration(len(audio))*time.Second/bytesPerSecond)
	}
}

// SplitUtterance cuts text into non-empty chunks after sentence-ending
// punctuation. Runs of terminators (ellipses, "?!") stay attached to their
// chunk.
func SplitUtterance(text string) []string {
	var chunks []string
	var b strings.Builder

	flush := func() {
		if c := strings.TrimSpace(b.String()); c != "" {
			chunks = append(chunks, c)
		}
		b.Reset()
	}

	runes := []rune(text)
	for i, r := range runes {
		b.WriteRune(r)
		if !strings.ContainsRune(chunkTerminators, r) {
			continue
		}
		// Wait for the end of a terminator run.
		if i+1 < len(runes) && strings.ContainsRune(chunkTerminators, runes[i+1]) {
			continue
		}
		flush()
	}
	flush()
	return chunks
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
