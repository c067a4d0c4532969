package cmd

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/opportunity-matcher/internal/api"
	"github.com/spigell/opportunity-matcher/internal/autoapply"
	"github.com/spigell/opportunity-matcher/internal/feed"
)

const (
	app       = "opportunity-matcher"
	envPrefix = "OPPORTUNITY_MATCHER"

	defaultDSN = "opportunity-matcher.db"
)

type Config struct {
	Database    DatabaseConfig  `mapstructure:"database"`
	Server      api.Config      `mapstructure:"server"`
	Matching    MatchingConfig  `mapstructure:"matching"`
	AutoApply   AutoApplyConfig `mapstructure:"auto-apply"`
	Feed        FeedConfig      `mapstructure:"feed"`
	ExcludeFile string          `mapstructure:"exclude-file"`
	AI          *AIConfig       `mapstructure:"ai"`
}

type DatabaseConfig struct {
	// DSN is a postgres:// URL, a sqlite:// URL or a path to a SQLite file.
	DSN     string `mapstructure:"dsn"`
	DSNFile string `mapstructure:"dsn-file"`
}

type MatchingConfig struct {
	Strategy     string `mapstructure:"strategy" validate:"omitempty,oneof=taxonomy direct"`
	TaxonomyFile string `mapstructure:"taxonomy-file"`
}

type AutoApplyConfig struct {
	MinScore           int      `mapstructure:"min-score" validate:"gte=0,lte=100"`
	ExcludedCategories []string `mapstructure:"excluded-categories"`
	ExcludedPlatforms  []string `mapstructure:"excluded-platforms"`
}

type FeedConfig struct {
	URL       string      `mapstructure:"url" validate:"omitempty,url"`
	TokenFile string      `mapstructure:"token-file"`
	MaxPages  int         `mapstructure:"max-pages" validate:"gte=0"`
	Params    feed.Params `mapstructure:"params"`
}

type AIConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Provider        string        `mapstructure:"provider" validate:"omitempty,oneof=gemini"`
	MinimumFitScore float64       `mapstructure:"minimum-fit-score" validate:"gte=0,lte=1"`
	ExcludeRejected bool          `mapstructure:"exclude-rejected"`
	Gemini          *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKeyFile   string        `mapstructure:"api-key-file"`
	Model        string        `mapstructure:"model"`
	MaxRetries   int           `mapstructure:"max-retries" validate:"gte=0"`
	MaxLogLength int           `mapstructure:"max-log-length" validate:"gte=0"`
	Prompt       *PromptConfig `mapstructure:"prompt"`
}

type PromptConfig struct {
	ExtraCriteria     string `mapstructure:"extra-criteria"`
	DealBreakers      string `mapstructure:"deal-breakers"`
	CustomKeywords    string `mapstructure:"custom-keywords"`
	Tone              string `mapstructure:"tone"`
	RegionConstraints string `mapstructure:"region-constraints"`
	UserInstructions  string `mapstructure:"user-instructions"`
}

var envReplacer = strings.NewReplacer(".", "_", "-", "_")

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "opportunity-matcher scores student opportunities against a profile and applies to the best ones",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	setDefaults(viper.GetViper())

	// Well-known names accepted next to the prefixed ones.
	for key, env := range map[string]string{
		"database.dsn":           "DATABASE_URL",
		"database.dsn-file":      "DATABASE_URL_FILE",
		"ai.gemini.api-key-file": "GEMINI_API_KEY_FILE",
		"feed.token-file":        "FEED_TOKEN_FILE",
	} {
		if err := viper.BindEnv(key, envName(key), env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is opportunity-matcher.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.dsn", defaultDSN)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.allowed-origins", []string{"*"})
	v.SetDefault("server.request-timeout", 60*time.Second)
	v.SetDefault("server.match-min-score", 70)
	v.SetDefault("matching.strategy", "taxonomy")
	v.SetDefault("auto-apply.min-score", autoapply.DefaultMinScore)
	v.SetDefault("ai.enabled", false)
}

// envName is the prefixed variable AutomaticEnv reads for key.
func envName(key string) string {
	return envPrefix + "_" + strings.ToUpper(envReplacer.Replace(key))
}

func initConfig() {
	// A missing .env is fine; a broken one is not.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("loading .env: %v", err)
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(envReplacer)
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// Without an explicit --config the defaults and the environment are enough.
		if cfgFile == "" && errors.As(err, &notFound) {
			return
		}
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	return decodeConfig(viper.GetViper())
}

func decodeConfig(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := validator.New().Struct(config); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	if config.AI != nil && config.AI.Enabled && config.AI.Gemini == nil {
		return nil, errors.New("gemini configuration is required when ai is enabled")
	}

	return &config, nil
}
