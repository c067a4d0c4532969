package cmd

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/opportunity-matcher/internal/ai"
	"github.com/spigell/opportunity-matcher/internal/ai/gemini"
	"github.com/spigell/opportunity-matcher/internal/autoapply"
	"github.com/spigell/opportunity-matcher/internal/filtering"
	"github.com/spigell/opportunity-matcher/internal/logger"
	"github.com/spigell/opportunity-matcher/internal/matching"
	"github.com/spigell/opportunity-matcher/internal/secrets"
	"github.com/spigell/opportunity-matcher/internal/store"
)

// setup builds the logger and the config every command starts with.
func setup() (*zap.Logger, *Config) {
	l, err := logger.New(logger.Options{
		JSON:  viper.GetBool("json"),
		Debug: viper.GetBool("debug"),
	})
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		l.Fatal("getting a config", zap.Error(err))
	}

	return l, config
}

func openStore(ctx context.Context, config *Config, l *zap.Logger) (store.Repository, error) {
	dsn, err := secrets.Load(secrets.Source{
		Name:  "database dsn",
		Value: config.Database.DSN,
		File:  config.Database.DSNFile,
	})
	if err != nil {
		return nil, err
	}

	return store.Open(ctx, dsn, logger.Component(l, "store"))
}

func newScorer(config *Config) (*matching.Scorer, error) {
	strategy, err := matching.ParseStrategy(config.Matching.Strategy)
	if err != nil {
		return nil, err
	}

	opts := []matching.Option{matching.WithStrategy(strategy)}

	if path := strings.TrimSpace(config.Matching.TaxonomyFile); path != "" {
		taxonomy, err := matching.LoadTaxonomy(path)
		if err != nil {
			return nil, fmt.Errorf("load taxonomy: %w", err)
		}
		opts = append(opts, matching.WithTaxonomy(taxonomy))
	}

	return matching.NewScorer(opts...), nil
}

// filteringConfig maps the file config onto the settings the filters read.
func filteringConfig(config *Config) filtering.Config {
	cfg := filtering.Config{
		MinScore:           config.AutoApply.MinScore,
		ExcludeFile:        config.ExcludeFile,
		ExcludedCategories: config.AutoApply.ExcludedCategories,
		ExcludedPlatforms:  config.AutoApply.ExcludedPlatforms,
	}

	if config.AI != nil {
		cfg.AI = &filtering.AIConfig{
			Enabled:         config.AI.Enabled,
			Provider:        config.AI.Provider,
			MinimumFitScore: config.AI.MinimumFitScore,
			ExcludeRejected: config.AI.ExcludeRejected,
		}
		if config.AI.Gemini != nil {
			cfg.AI.Gemini = &filtering.GeminiConfig{
				Model:        config.AI.Gemini.Model,
				MaxRetries:   config.AI.Gemini.MaxRetries,
				MaxLogLength: config.AI.Gemini.MaxLogLength,
			}
		}
	}

	return cfg
}

// newAutoApply wires the workflow. A broken AI setup only disables the ai_fit step.
func newAutoApply(ctx context.Context, config *Config, repo store.Repository, scorer *matching.Scorer, ignoreApplied bool, l *zap.Logger) *autoapply.Service {
	opts := []autoapply.Option{
		autoapply.WithScorer(scorer),
		autoapply.WithLogger(logger.Component(l, "auto-apply")),
		autoapply.WithConfig(autoapply.Config{
			MinScore:      config.AutoApply.MinScore,
			IgnoreApplied: ignoreApplied,
			Filtering:     filteringConfig(config),
		}),
	}

	if config.AI != nil && config.AI.Enabled {
		matcher, err := newAIMatcher(ctx, config.AI, l)
		if err != nil {
			l.Warn("skipping AI filter", zap.Error(err))
		} else {
			opts = append(opts, autoapply.WithMatcher(matcher))
		}
	}

	return autoapply.NewService(repo, opts...)
}

func newAIMatcher(ctx context.Context, cfg *AIConfig, l *zap.Logger) (ai.Matcher, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}
	if cfg.Gemini == nil {
		return nil, fmt.Errorf("gemini configuration is required when ai filter is enabled")
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name: "gemini api key",
		File: cfg.Gemini.APIKeyFile,
		Env:  "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
	}

	genLogger := logger.WithAI(l, "gemini", cfg.Gemini.Model).With(
		zap.Int("ai_retry_attempts", cfg.Gemini.MaxRetries),
	)

	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, cfg.Gemini.MaxRetries, genLogger)
	if err != nil {
		return nil, err
	}

	minScore := cfg.MinimumFitScore
	if minScore < 0 {
		minScore = 0
	}

	matcher := gemini.NewMatcher(generator, minScore, cfg.Gemini.MaxLogLength,
		l.With(zap.Float64("minimum_fit_score", minScore)),
	)

	if p := cfg.Gemini.Prompt; p != nil {
		matcher.SetPromptOverrides(gemini.PromptOverrides{
			ExtraCriteria:     p.ExtraCriteria,
			DealBreakers:      p.DealBreakers,
			CustomKeywords:    p.CustomKeywords,
			Tone:              p.Tone,
			RegionConstraints: p.RegionConstraints,
			UserInstructions:  p.UserInstructions,
		})
	}

	return matcher, nil
}
