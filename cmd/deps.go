package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/hh-interviewer/internal/ai/gemini"
	"github.com/spigell/hh-interviewer/internal/headhunter"
	"github.com/spigell/hh-interviewer/internal/interview"
	"github.com/spigell/hh-interviewer/internal/logger"
	"github.com/spigell/hh-interviewer/internal/secrets"
	"github.com/spigell/hh-interviewer/internal/storage"
)

// newLogger builds the process logger or exits.
func newLogger(output string) *zap.Logger {
	l, err := logger.New(logger.Options{
		JSON:   viper.GetBool("json"),
		Debug:  viper.GetBool("debug"),
		Output: output,
	})
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	return l
}

func mustConfig(l *zap.Logger) *Config {
	config, err := getConfig()
	if err != nil {
		l.Fatal("getting a config", zap.Error(err))
	}
	if config == nil {
		l.Fatal("config is required")
	}
	return config
}

func newGenAIClient(ctx context.Context, cfg AIConfig) (*genai.Client, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name: "gemini api key",
		File: cfg.Gemini.APIKeyFile,
		Env:  "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file, GEMINI_API_KEY_FILE or GEMINI_API_KEY)", err)
	}

	return gemini.NewClient(ctx, apiKey)
}

func newGenerator(client *genai.Client, cfg GeminiConfig, l *zap.Logger) (*gemini.Generator, error) {
	return gemini.NewGenerator(client, gemini.GeneratorOptions{
		Model:        cfg.Model,
		MaxRetries:   cfg.MaxRetries,
		MaxLogLength: cfg.MaxLogLength,
	}, l)
}

// newSetupSource picks hh.ru when a vacancy id is configured and the setup file otherwise.
func newSetupSource(config *Config, l *zap.Logger) (interview.SetupSource, *headhunter.Client, error) {
	cfg := config.Interview

	if config.Headhunter.VacancyID == "" {
		source, err := fileSetupSource(cfg)
		return source, nil, err
	}

	token, err := secrets.Load(secrets.Source{
		Name: "headhunter token",
		File: config.Headhunter.TokenFile,
		Env:  "HH_TOKEN",
	})
	if err != nil && !errors.Is(err, secrets.ErrNotConfigured) {
		return nil, nil, err
	}
	if token == "" {
		l.Warn("no headhunter token configured, only public resumes are available",
			zap.String("hint", "set HH_TOKEN_FILE environment variable or the 'headhunter.token-file' key"),
		)
	}

	hh := headhunter.NewFromConfig(config.Headhunter, token, l)
	return hh.SetupSource(config.Headhunter, cfg.HRName, cfg.SoftTopics), hh, nil
}

// fileSetupSource serves the setup file to every user. With resumes-dir set,
// the résumé of a user is read from <resumes-dir>/<user>.txt or .md.
func fileSetupSource(cfg InterviewConfig) (interview.SetupSource, error) {
	if cfg.SetupFile == "" {
		return nil, errors.New("interview.setup-file or headhunter.vacancy-id is required")
	}

	base, err := interview.LoadSetup(cfg.SetupFile)
	if err != nil {
		return nil, err
	}
	if base.HRName == "" {
		base.HRName = cfg.HRName
	}
	if len(base.SoftTopics) == 0 {
		base.SoftTopics = cfg.SoftTopics
	}
	if err := base.Validate(); err != nil {
		return nil, fmt.Errorf("setup file %q: %w", cfg.SetupFile, err)
	}

	return func(_ context.Context, userID string) (*interview.Setup, error) {
		setup := base.WithTopics(base.Topics)
		if cfg.ResumesDir == "" {
			return setup, nil
		}

		resume, err := readResume(cfg.ResumesDir, userID)
		if err != nil {
			return nil, err
		}
		setup.ResumeContext = resume
		return setup, nil
	}, nil
}

func readResume(dir, userID string) (string, error) {
	if userID == "" || userID != filepath.Base(userID) || strings.HasPrefix(userID, ".") {
		return "", fmt.Errorf("invalid user id %q", userID)
	}

	for _, ext := range []string{".txt", ".md"} {
		data, err := os.ReadFile(filepath.Join(dir, userID+ext))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("reading resume of %s: %w", userID, err)
		}
		return string(data), nil
	}
	return "", fmt.Errorf("no resume for %s in %s", userID, dir)
}

// newInterviews wires the evaluator, the optional planner and the snapshot store into a library.
func newInterviews(config *Config, generator *gemini.Generator, source interview.SetupSource, l *zap.Logger) (*interview.Library, storage.Store, error) {
	cfg := config.Interview
	maxLog := config.AI.Gemini.MaxLogLength

	var planner *interview.Planner
	if cfg.UsePlanner {
		planner = interview.NewPlanner(generator, cfg.MaxHardTopics, cfg.MaxSoftTopics, maxLog, l)
	}
	maxHard := cfg.MaxHardTopics
	if maxHard <= 0 {
		maxHard = interview.DefaultMaxHardTopics
	}

	store, err := storage.New(config.Storage)
	if err != nil {
		return nil, nil, err
	}

	evaluator := interview.NewLLMEvaluator(generator, cfg.AffirmativeToken, maxLog, l)
	library := interview.NewLibrary(
		store,
		interview.PlannedSource(source, planner, maxHard),
		generator,
		evaluator,
		interview.Config{
			GreetingKeywords:    cfg.GreetingKeywords,
			VacancyDoneKeywords: cfg.VacancyDoneKeywords,
		},
		l,
	)

	return library, store, nil
}
