package cmd

import (
	"errors"
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/hh-interviewer/internal/headhunter"
	"github.com/spigell/hh-interviewer/internal/session"
	"github.com/spigell/hh-interviewer/internal/storage"
)

const (
	app       = "hh-interviewer"
	envPrefix = "HH_INTERVIEWER"
)

type Config struct {
	Server     session.ServerConfig `mapstructure:"server"`
	Interview  InterviewConfig      `mapstructure:"interview"`
	Audio      session.Config       `mapstructure:"audio"`
	AI         AIConfig             `mapstructure:"ai"`
	Storage    storage.Config       `mapstructure:"storage"`
	Headhunter headhunter.Config    `mapstructure:"headhunter"`
}

type InterviewConfig struct {
	HRName              string   `mapstructure:"hr-name"`
	SetupFile           string   `mapstructure:"setup-file"`
	ResumesDir          string   `mapstructure:"resumes-dir"`
	AffirmativeToken    string   `mapstructure:"affirmative-token"`
	GreetingKeywords    []string `mapstructure:"greeting-keywords"`
	VacancyDoneKeywords []string `mapstructure:"vacancy-done-keywords"`
	SoftTopics          []string `mapstructure:"soft-topics"`
	MaxHardTopics       int      `mapstructure:"max-hard-topics"`
	MaxSoftTopics       int      `mapstructure:"max-soft-topics"`
	UsePlanner          bool     `mapstructure:"use-planner"`
}

type AIConfig struct {
	Provider string       `mapstructure:"provider"`
	Gemini   GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	STTModel     string `mapstructure:"stt-model"`
	TTSModel     string `mapstructure:"tts-model"`
	Voice        string `mapstructure:"voice"`
	MaxRetries   int    `mapstructure:"max-retries"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "hh-interviewer runs voice screening interviews for hh.ru vacancies",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// A missing .env file is fine, the environment may already be set.
	_ = godotenv.Load()

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	for key, env := range map[string]string{
		"headhunter.token-file":  "HH_TOKEN_FILE",
		"ai.gemini.api-key-file": "GEMINI_API_KEY_FILE",
	} {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	setDefaults()

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is hh-interviewer.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

// setDefaults registers every key so that environment variables can override it.
func setDefaults() {
	viper.SetDefault("server.listen", session.DefaultListen)
	viper.SetDefault("server.read-limit", session.DefaultReadLimit)
	viper.SetDefault("server.shutdown-timeout", session.DefaultShutdownTimeout)

	viper.SetDefault("interview.hr-name", "Анна")
	viper.SetDefault("interview.setup-file", "")
	viper.SetDefault("interview.resumes-dir", "")
	viper.SetDefault("interview.affirmative-token", "")
	viper.SetDefault("interview.max-hard-topics", 0)
	viper.SetDefault("interview.max-soft-topics", 0)
	viper.SetDefault("interview.use-planner", true)

	viper.SetDefault("audio.sample-rate", 16000)
	viper.SetDefault("audio.frame-size", session.DefaultFrameSize)
	viper.SetDefault("audio.output-chunk-size", session.DefaultOutputChunkSize)
	viper.SetDefault("audio.chunk-delay-ms", session.DefaultChunkDelayMs)

	viper.SetDefault("ai.provider", "gemini")
	viper.SetDefault("ai.gemini.model", "")
	viper.SetDefault("ai.gemini.stt-model", "")
	viper.SetDefault("ai.gemini.tts-model", "")
	viper.SetDefault("ai.gemini.voice", "")
	viper.SetDefault("ai.gemini.max-retries", 3)
	viper.SetDefault("ai.gemini.max-log-length", 200)

	viper.SetDefault("storage.driver", string(storage.DriverMemory))
	viper.SetDefault("storage.redis.addr", "")
	viper.SetDefault("storage.redis.password", "")
	viper.SetDefault("storage.redis.db", 0)

	viper.SetDefault("headhunter.vacancy-id", "")
	viper.SetDefault("headhunter.resume-id", "")
	viper.SetDefault("headhunter.user-agent", "")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// Without an explicit --config a missing file means environment-only configuration.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return
		}
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}
