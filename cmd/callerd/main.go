package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/callerwork/callerd/internal/audio"
	"github.com/callerwork/callerd/internal/brain"
	"github.com/callerwork/callerd/internal/config"
	"github.com/callerwork/callerd/internal/engine"
	"github.com/callerwork/callerd/internal/llm"
	"github.com/callerwork/callerd/internal/logging"
	"github.com/callerwork/callerd/internal/schedule"
	"github.com/callerwork/callerd/internal/server"
	"github.com/callerwork/callerd/internal/session"
	"github.com/callerwork/callerd/internal/stt"
	"github.com/callerwork/callerd/internal/telephony"
	"github.com/callerwork/callerd/internal/tts"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := logging.New("info")
		bootLogger.Fatal().Err(err).Msg("configuration load failed")
	}

	logger := logging.New(cfg.Server.LogLevel)

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("configuration invalid")
	}

	ctx := context.Background()

	registry := session.NewRegistry(logger)

	telClient := telephony.NewClient(telephony.Config{
		AccountSID: cfg.Telephony.AccountSID,
		AuthToken:  cfg.Telephony.AuthToken,
		FromNumber: cfg.Telephony.FromNumber,
		BaseURL:    cfg.Telephony.BaseURL,
	}, logger)

	transcriber := stt.NewDeepgram(stt.DeepgramConfig{
		APIKey:         cfg.STT.DeepgramAPIKey,
		Model:          cfg.STT.Model,
		Language:       cfg.STT.Language,
		InterimResults: cfg.STT.InterimResults,
		Punctuate:      true,
	}, logger)

	synth := tts.NewElevenLabs(tts.ElevenLabsConfig{
		APIKey:     cfg.TTS.ElevenLabsAPIKey,
		ModelID:    cfg.TTS.ModelID,
		Stability:  cfg.TTS.Stability,
		Similarity: cfg.TTS.Similarity,
	}, logger)

	model, err := llm.NewGemini(ctx, cfg.LLM.GeminiAPIKey, cfg.LLM.Model, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("language model client init failed")
	}

	detector := audio.NewEnergyDetector(cfg.Engine.EnergyThreshold)
	playback := engine.NewPlayback(synth, logger)

	// The scheduler fires back into the orchestrator, which is built after
	// it; the closure resolves the pointer at fire time.
	var orch *engine.Orchestrator
	scheduler := schedule.New(func(phone string) { orch.PlaceFollowUp(phone) }, logger)
	defer scheduler.Stop()

	generator := brain.New(model, scheduler, cfg.Engine.FollowUpDelay, logger)

	orch = engine.New(
		registry,
		telClient,
		scheduler,
		transcriber,
		detector,
		generator,
		playback,
		cfg.Server.PublicURL,
		logger,
	)

	janitorStop := make(chan struct{})
	go registry.RunJanitor(cfg.Engine.SessionTTL, cfg.Engine.SweepInterval, janitorStop)
	defer close(janitorStop)

	srv := server.New(orch, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run(cfg.Server.Addr) }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		logger.Fatal().Err(err).Msg("http server failed")
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}
}
