package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/hh-interviewer/internal/ai/gemini"
	"github.com/spigell/hh-interviewer/internal/audio"
	"github.com/spigell/hh-interviewer/internal/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve voice interviews over websocket",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := newLogger("")
	defer logger.Sync() //nolint:errcheck

	config := mustConfig(logger)

	logger.Info("starting the hh-interviewer", zap.String("version", version))

	client, err := newGenAIClient(ctx, config.AI)
	if err != nil {
		logger.Fatal("creating ai client", zap.Error(err))
	}
	gcfg := config.AI.Gemini

	generator, err := newGenerator(client, gcfg, logger)
	if err != nil {
		logger.Fatal("creating text generator", zap.Error(err))
	}
	transcriber, err := gemini.NewTranscriber(client, gcfg.STTModel, gcfg.MaxRetries, logger)
	if err != nil {
		logger.Fatal("creating transcriber", zap.Error(err))
	}
	synthesizer, err := gemini.NewSynthesizer(client, gcfg.TTSModel, gcfg.Voice, gcfg.MaxRetries, logger)
	if err != nil {
		logger.Fatal("creating synthesizer", zap.Error(err))
	}

	source, _, err := newSetupSource(config, logger)
	if err != nil {
		logger.Fatal("preparing interview setup", zap.Error(err))
	}

	library, store, err := newInterviews(config, generator, source, logger)
	if err != nil {
		logger.Fatal("preparing interviews", zap.Error(err))
	}
	defer store.Close()

	coordinator, err := session.NewCoordinator(session.Deps{
		Gate:        session.NewGate(),
		Interviews:  library,
		Transcriber: transcriber,
		Synthesizer: synthesizer,
		NewDetector: func() audio.SpeechDetector { return audio.NewEnergyDetector(0, 0) },
	}, config.Audio, logger)
	if err != nil {
		logger.Fatal("creating session coordinator", zap.Error(err))
	}

	server := session.NewServer(config.Server, coordinator, logger)
	if err := server.ListenAndServe(ctx); err != nil {
		logger.Fatal("serving", zap.Error(err))
	}

	logger.Info("stopped")
}
