package catalog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/opportunity-matcher/internal/matching"
	"github.com/spigell/opportunity-matcher/internal/opportunity"
)

func ids(opps []*opportunity.Opportunity) []string {
	out := make([]string, 0, len(opps))
	for _, o := range opps {
		out = append(out, o.ID)
	}
	return out
}

func TestRank(t *testing.T) {
	opps := []*opportunity.Opportunity{
		{ID: "half", RequiredSkills: []string{"Go", "Rust"}},
		{ID: "full-a", RequiredSkills: []string{"Go"}},
		nil,
		{ID: "none", RequiredSkills: []string{"Photoshop"}},
		{ID: "full-b", RequiredSkills: `["go"]`},
		{ID: "empty", RequiredSkills: nil},
	}

	matches := Rank(matching.NewScorer(), []string{"Go"}, opps, 50)

	require.Len(t, matches, 3)
	assert.Equal(t, "full-a", matches[0].Opportunity.ID)
	assert.Equal(t, "full-b", matches[1].Opportunity.ID, "ties keep input order")
	assert.Equal(t, "half", matches[2].Opportunity.ID)
	assert.Equal(t, []int{100, 100, 50}, []int{matches[0].Score, matches[1].Score, matches[2].Score})
}

func TestRankThresholdIsInclusive(t *testing.T) {
	opps := []*opportunity.Opportunity{{ID: "1", RequiredSkills: []string{"Go", "Rust"}}}

	assert.Len(t, Rank(matching.NewScorer(), []string{"Go"}, opps, 50), 1)
	assert.Empty(t, Rank(matching.NewScorer(), []string{"Go"}, opps, 51))
}

func TestSearch(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	opps := []*opportunity.Opportunity{
		{ID: "late", Title: "Go Intern", Platform: "LinkedIn", Category: "internship", Deadline: "2026-07-01", RequiredSkills: []string{"Go"}},
		{ID: "soon", Title: "AI Hackathon", Platform: "Devpost", Category: "hackathon", Deadline: "2026-06-02", RequiredSkills: `["Python","PyTorch"]`, Location: "Berlin"},
		{ID: "expired", Title: "Old Workshop", Platform: "Meetup", Category: "workshop", Deadline: "2026-05-01"},
		{ID: "undated", Title: "Open Role", Platform: "LinkedIn", Category: "full-time", Company: "Acme"},
	}

	tests := []struct {
		name   string
		query  Query
		expect []string
	}{
		{name: "default hides expired and sorts by deadline", query: Query{Now: now}, expect: []string{"soon", "late", "undated"}},
		{name: "include expired", query: Query{Now: now, IncludeExpired: true}, expect: []string{"expired", "soon", "late", "undated"}},
		{name: "category all", query: Query{Now: now, Category: "all"}, expect: []string{"soon", "late", "undated"}},
		{name: "category", query: Query{Now: now, Category: "internship"}, expect: []string{"late"}},
		{name: "platform", query: Query{Now: now, Platform: "LinkedIn"}, expect: []string{"late", "undated"}},
		{name: "text in skills", query: Query{Now: now, Text: "pytorch"}, expect: []string{"soon"}},
		{name: "text in company", query: Query{Now: now, Text: "ACME"}, expect: []string{"undated"}},
		{name: "text in location", query: Query{Now: now, Text: "berlin"}, expect: []string{"soon"}},
		{name: "text in platform", query: Query{Now: now, Text: "devpost"}, expect: []string{"soon"}},
		{name: "no match", query: Query{Now: now, Text: "cobol"}, expect: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, ids(Search(opps, tt.query)))
		})
	}
}

func TestCategoriesAndPlatforms(t *testing.T) {
	opps := []*opportunity.Opportunity{
		{Category: "internship", Platform: "LinkedIn"},
		{Category: "hackathon", Platform: "LinkedIn"},
		{Category: "internship", Platform: "Devpost"},
	}

	assert.Equal(t, []string{"internship", "hackathon"}, Categories(opps))
	assert.Equal(t, []string{"LinkedIn", "Devpost"}, Platforms(opps))
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
opportunities:
  - title: Backend Intern
    platform: LinkedIn
    deadline: 2026-12-01
    category: internship
    company: Acme
    required_skills: [Go, PostgreSQL]
  - title: Data Hackathon
    platform: Devpost
    deadline: "2026-11-15"
    category: hackathon
    required_skills: '["Python","Pandas"]'
`), 0o600))

	opps, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, opps, 2)

	assert.Equal(t, "2026-12-01", opps[0].Deadline)
	assert.Equal(t, []string{"Go", "PostgreSQL"}, opps[0].RequiredSkills)
	assert.Equal(t, []string{"Python", "Pandas"}, opps[1].RequiredSkills)
}

func TestParseRejectsInvalidEntries(t *testing.T) {
	_, err := Parse([]byte(`
opportunities:
  - title: Missing platform
    deadline: 2026-12-01
    category: internship
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Missing platform")

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
