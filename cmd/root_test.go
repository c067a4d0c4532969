package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/opportunity-matcher/internal/matching"
	"github.com/spigell/opportunity-matcher/internal/opportunity"
)

func newViper(t *testing.T, yaml string) *viper.Viper {
	t.Helper()

	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewBufferString(yaml)))
	return v
}

func TestDecodeConfigDefaults(t *testing.T) {
	config, err := decodeConfig(newViper(t, ""))
	require.NoError(t, err)

	assert.Equal(t, defaultDSN, config.Database.DSN)
	assert.Equal(t, ":8080", config.Server.Addr)
	assert.Equal(t, []string{"*"}, config.Server.AllowedOrigins)
	assert.Equal(t, 60*time.Second, config.Server.RequestTimeout)
	assert.Equal(t, 70, config.Server.MatchMinScore)
	assert.Equal(t, 75, config.AutoApply.MinScore)
	assert.Equal(t, "taxonomy", config.Matching.Strategy)
	require.NotNil(t, config.AI)
	assert.False(t, config.AI.Enabled)
}

func TestDecodeConfigFile(t *testing.T) {
	config, err := decodeConfig(newViper(t, `
database:
  dsn: postgres://matcher@localhost/matcher
server:
  addr: ":9090"
  request-timeout: 5s
  allowed-origins: [https://app.example.com]
matching:
  strategy: direct
auto-apply:
  min-score: 80
  excluded-categories: [workshop]
exclude-file: excluded.json
feed:
  url: https://feed.example.com/opportunities
  max-pages: 3
  params:
    text: intern
    categories: [internship]
    per-page: 20
ai:
  enabled: true
  minimum-fit-score: 0.7
  gemini:
    model: gemini-2.5-flash
    prompt:
      tone: Formal
`))
	require.NoError(t, err)

	assert.Equal(t, "postgres://matcher@localhost/matcher", config.Database.DSN)
	assert.Equal(t, ":9090", config.Server.Addr)
	assert.Equal(t, 5*time.Second, config.Server.RequestTimeout)
	assert.Equal(t, []string{"https://app.example.com"}, config.Server.AllowedOrigins)
	assert.Equal(t, "direct", config.Matching.Strategy)
	assert.Equal(t, 80, config.AutoApply.MinScore)
	assert.Equal(t, 3, config.Feed.MaxPages)
	assert.Equal(t, "intern", config.Feed.Params.Text)
	assert.Equal(t, []string{"internship"}, config.Feed.Params.Categories)
	assert.Equal(t, 20, config.Feed.Params.PerPage)
	require.NotNil(t, config.AI.Gemini)
	assert.Equal(t, "Formal", config.AI.Gemini.Prompt.Tone)

	cfg := filteringConfig(config)
	assert.Equal(t, 80, cfg.MinScore)
	assert.Equal(t, "excluded.json", cfg.ExcludeFile)
	assert.Equal(t, []string{"workshop"}, cfg.ExcludedCategories)
	require.NotNil(t, cfg.AI)
	assert.True(t, cfg.AI.Enabled)
	assert.InDelta(t, 0.7, cfg.AI.MinimumFitScore, 1e-9)
	assert.Equal(t, "gemini-2.5-flash", cfg.AI.Gemini.Model)
}

func TestDecodeConfigRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "strategy", yaml: "matching:\n  strategy: fuzzy\n"},
		{name: "min score", yaml: "auto-apply:\n  min-score: 101\n"},
		{name: "fit score", yaml: "ai:\n  minimum-fit-score: 2\n"},
		{name: "provider", yaml: "ai:\n  provider: openai\n"},
		{name: "feed url", yaml: "feed:\n  url: not a url\n"},
		{name: "ai without gemini", yaml: "ai:\n  enabled: true\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeConfig(newViper(t, tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestEnvName(t *testing.T) {
	assert.Equal(t, "OPPORTUNITY_MATCHER_DATABASE_DSN_FILE", envName("database.dsn-file"))
	assert.Equal(t, "OPPORTUNITY_MATCHER_AI_GEMINI_API_KEY_FILE", envName("ai.gemini.api-key-file"))
}

func TestNewScorer(t *testing.T) {
	scorer, err := newScorer(&Config{})
	require.NoError(t, err)
	assert.Equal(t, matching.StrategyTaxonomy, scorer.Strategy())
	assert.Equal(t, 50, scorer.Score("React", "Vue"))

	scorer, err = newScorer(&Config{Matching: MatchingConfig{Strategy: "direct"}})
	require.NoError(t, err)
	assert.Equal(t, 0, scorer.Score("React", "Vue"))

	_, err = newScorer(&Config{Matching: MatchingConfig{TaxonomyFile: filepath.Join(t.TempDir(), "missing.yaml")}})
	assert.Error(t, err)
}

func TestLoadProfile(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "profile.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"name": "Ada",
		"email": "ada@example.com",
		"skills": "[\"Python\",\"SQL\"]",
		"resume_url": "https://files.example.com/cv.pdf"
	}`), 0o600))

	profile, err := loadProfile(path, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", profile.ID)
	assert.Equal(t, []string{"Python", "SQL"}, profile.Skills)
	assert.True(t, profile.HasResume())

	_, err = loadProfile(path, " ")
	assert.Error(t, err)

	invalid := filepath.Join(dir, "invalid.json")
	require.NoError(t, os.WriteFile(invalid, []byte(`{"email": "nope"}`), 0o600))
	_, err = loadProfile(invalid, "u1")
	assert.Error(t, err)
}

func TestOptionLabel(t *testing.T) {
	score := 83
	opp := &opportunity.Opportunity{ID: "o1", Title: "Data Intern", Platform: "Handshake", Deadline: "2026-07-01", MatchScore: &score}
	assert.Equal(t, "o1 Data Intern / Handshake / 2026-07-01 / 83%", optionLabel(opp))

	opp.MatchScore = nil
	assert.Equal(t, "o1 Data Intern / Handshake / 2026-07-01 / -", optionLabel(opp))
}
