package cmd

import (
	"errors"
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/careerpath-ai/internal/ai/gemini"
	"github.com/spigell/careerpath-ai/internal/ai/ollama"
	"github.com/spigell/careerpath-ai/internal/ai/prompt"
	"github.com/spigell/careerpath-ai/internal/logger"
	"github.com/spigell/careerpath-ai/internal/matching"
)

const (
	app = "careerpath-ai"
)

type Config struct {
	AI        *AIConfig        `mapstructure:"ai"`
	Screening *ScreeningConfig `mapstructure:"screening"`
}

type AIConfig struct {
	Provider            string               `mapstructure:"provider"`
	Mock                bool                 `mapstructure:"mock"`
	TimeoutMS           int                  `mapstructure:"timeout-ms"`
	CoverLetterMaxWords int                  `mapstructure:"cover-letter-max-words"`
	Locale              string               `mapstructure:"locale"`
	BoundStrictRetry    bool                 `mapstructure:"bound-strict-retry"`
	MaxLogLength        int                  `mapstructure:"max-log-length"`
	Ollama              *OllamaConfig        `mapstructure:"ollama"`
	Gemini              *GeminiConfig        `mapstructure:"gemini"`
	MockResponses       *MockResponsesConfig `mapstructure:"mock-responses"`
}

type OllamaConfig struct {
	URL   string `mapstructure:"url"`
	Model string `mapstructure:"model"`
}

type GeminiConfig struct {
	APIKey     string `mapstructure:"api-key"`
	APIKeyFile string `mapstructure:"api-key-file"`
	Model      string `mapstructure:"model"`
}

type MockResponsesConfig struct {
	CoverLetter string `mapstructure:"cover-letter"`
	Analysis    string `mapstructure:"analysis"`
}

type ScreeningConfig struct {
	Concurrency  int      `mapstructure:"concurrency"`
	Statuses     []string `mapstructure:"statuses"`
	MinimumScore int      `mapstructure:"minimum-score"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "careerpath-ai writes cover letters and scores candidate/job matches with a text-generation model",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

var envBindings = map[string]string{
	"ai.provider":               "AI_PROVIDER",
	"ai.mock":                   "USE_MOCK_AI",
	"ai.timeout-ms":             "OLLAMA_TIMEOUT",
	"ai.cover-letter-max-words": "AI_COVER_LETTER_MAX_WORDS",
	"ai.locale":                 "AI_LOCALE",
	"ai.bound-strict-retry":     "AI_BOUND_STRICT_RETRY",
	"ai.ollama.url":             "OLLAMA_URL",
	"ai.ollama.model":           "OLLAMA_MODEL",
	"ai.gemini.model":           "GEMINI_MODEL",
	"ai.gemini.api-key-file":    "GEMINI_API_KEY_FILE",
}

func init() {
	for key, env := range envBindings {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	setDefaults(viper.GetViper())

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is careerpath-ai.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().Bool("mock", false, "return canned AI outputs without calling any model")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("ai.mock", rootCmd.PersistentFlags().Lookup("mock"))
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ai.provider", providerOllama)
	v.SetDefault("ai.mock", false)
	v.SetDefault("ai.timeout-ms", matching.DefaultTimeout.Milliseconds())
	v.SetDefault("ai.cover-letter-max-words", prompt.DefaultCoverLetterMaxWords)
	v.SetDefault("ai.locale", prompt.DefaultLocale)
	v.SetDefault("ai.bound-strict-retry", true)
	v.SetDefault("ai.max-log-length", matching.DefaultMaxLogLength)
	v.SetDefault("ai.ollama.url", ollama.DefaultURL)
	v.SetDefault("ai.ollama.model", ollama.DefaultModel)
	v.SetDefault("ai.gemini.model", gemini.DefaultModel)
	v.SetDefault("screening.concurrency", 4)
	v.SetDefault("screening.statuses", []string{"pending", "interview"})
	v.SetDefault("screening.minimum-score", 0)
}

func initConfig() {
	// .env is optional; values already in the environment win.
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return
		}
		// We can't proceed if the config file parsed with error.
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

// setup builds the logger and the resolved configuration shared by all commands.
func setup() (*zap.Logger, *Config) {
	l, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		l.Fatal("getting a config", zap.Error(err))
	}
	if config == nil || config.AI == nil {
		l.Fatal("config is required")
	}

	return l, config
}
