package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/opportunity-matcher/internal/catalog"
	"github.com/spigell/opportunity-matcher/internal/feed"
	"github.com/spigell/opportunity-matcher/internal/logger"
	"github.com/spigell/opportunity-matcher/internal/opportunity"
	"github.com/spigell/opportunity-matcher/internal/secrets"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load opportunities from a catalog file or a feed, and profiles from JSON",
	Run: func(cmd *cobra.Command, _ []string) {
		seed(cmd)
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)

	seedCmd.Flags().String("file", "", "YAML catalog with an opportunities list")
	seedCmd.Flags().String("url", "", "paginated JSON feed of opportunities (overrides feed.url)")
	seedCmd.Flags().String("profile", "", "JSON file with a profile to store")
	seedCmd.Flags().String("user", "", "id of the stored profile (required with --profile)")

	viper.BindPFlag("feed.url", seedCmd.Flags().Lookup("url"))
}

func seed(cmd *cobra.Command) {
	ctx := context.Background()

	l, config := setup()
	defer l.Sync()

	file, _ := cmd.Flags().GetString("file")
	profileFile, _ := cmd.Flags().GetString("profile")
	userID, _ := cmd.Flags().GetString("user")

	if file == "" && config.Feed.URL == "" && profileFile == "" {
		l.Fatal("nothing to seed", zap.String("hint", "pass --file, --url or --profile"))
	}

	repo, err := openStore(ctx, config, l)
	if err != nil {
		l.Fatal("opening the store", zap.Error(err))
	}
	defer repo.Close()

	var opps []*opportunity.Opportunity

	if file != "" {
		loaded, err := catalog.LoadFile(file)
		if err != nil {
			l.Fatal("loading the catalog", zap.Error(err))
		}
		l.Info("loaded catalog", zap.String("file", file), zap.Int("count", len(loaded)))
		opps = append(opps, loaded...)
	}

	if config.Feed.URL != "" {
		fetched, err := fetchFeed(ctx, config, l)
		if err != nil {
			l.Fatal("fetching the feed", zap.Error(err))
		}
		opps = append(opps, fetched...)
	}

	if len(opps) > 0 {
		if err := repo.UpsertOpportunities(ctx, opps); err != nil {
			l.Fatal("storing opportunities", zap.Error(err))
		}
		l.Info("stored opportunities", zap.Int("count", len(opps)))
	}

	if profileFile != "" {
		profile, err := loadProfile(profileFile, userID)
		if err != nil {
			l.Fatal("loading the profile", zap.Error(err))
		}
		if err := repo.UpsertProfile(ctx, profile); err != nil {
			l.Fatal("storing the profile", zap.Error(err))
		}
		l.Info("stored profile",
			zap.String("user_id", profile.ID),
			zap.Int("completeness", profile.Completeness()),
		)
	}
}

func fetchFeed(ctx context.Context, config *Config, l *zap.Logger) ([]*opportunity.Opportunity, error) {
	token, err := secrets.LoadOptional(secrets.Source{
		Name: "feed token",
		File: config.Feed.TokenFile,
		Env:  "FEED_TOKEN",
	})
	if err != nil {
		return nil, err
	}

	client := feed.New(logger.Component(l, "feed"), token)
	if config.Feed.MaxPages > 0 {
		client.MaxPages = config.Feed.MaxPages
	}

	fetched, err := client.Fetch(ctx, config.Feed.URL, config.Feed.Params)
	if err != nil {
		return nil, err
	}

	// The unique key is (title, platform); items without it cannot be stored.
	valid := make([]*opportunity.Opportunity, 0, len(fetched))
	for _, opp := range fetched {
		if strings.TrimSpace(opp.Title) == "" || strings.TrimSpace(opp.Platform) == "" {
			l.Warn("skipping feed item without title or platform", zap.String("opportunity_id", opp.ID))
			continue
		}
		valid = append(valid, opp)
	}

	return valid, nil
}

func loadProfile(path, userID string) (*opportunity.Profile, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, errors.New("--user is required with --profile")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var in opportunity.ProfileInput
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("decode profile %s: %w", path, err)
	}
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("validate profile %s: %w", path, err)
	}

	return in.ToProfile(userID), nil
}
