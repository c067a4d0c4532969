// Package catalog ranks and searches opportunity lists.
package catalog

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/spigell/opportunity-matcher/internal/matching"
	"github.com/spigell/opportunity-matcher/internal/opportunity"
)

const allValues = "all"

// Match is an opportunity with the score it earned against a profile.
type Match struct {
	Opportunity *opportunity.Opportunity `json:"opportunity"`
	Score       int                      `json:"score"`
}

// Rank scores every opportunity against candidate sequentially, keeps those
// scoring at least min and sorts by descending score. Ties keep input order.
func Rank(scorer *matching.Scorer, candidate any, opps []*opportunity.Opportunity, min int) []Match {
	matches := make([]Match, 0, len(opps))
	for _, opp := range opps {
		if opp == nil {
			continue
		}
		score := scorer.Score(candidate, opp.RequiredSkills)
		if score < min {
			continue
		}
		matches = append(matches, Match{Opportunity: opp, Score: score})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	return matches
}

// Query filters a catalog the way the opportunities listing does.
type Query struct {
	Text           string
	Category       string
	Platform       string
	IncludeExpired bool
	Now            time.Time
}

// Search returns the opportunities matching q ordered by closest deadline.
// Opportunities without a parseable deadline go last.
func Search(opps []*opportunity.Opportunity, q Query) []*opportunity.Opportunity {
	now := q.Now
	if now.IsZero() {
		now = time.Now()
	}
	text := strings.ToLower(strings.TrimSpace(q.Text))

	out := make([]*opportunity.Opportunity, 0, len(opps))
	for _, opp := range opps {
		if opp == nil {
			continue
		}
		if !matchesFilter(q.Category, opp.Category) || !matchesFilter(q.Platform, opp.Platform) {
			continue
		}
		if !q.IncludeExpired && opp.Expired(now) {
			continue
		}
		if text != "" && !matchesText(opp, text) {
			continue
		}
		out = append(out, opp)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, aok := out[i].DeadlineTime()
		b, bok := out[j].DeadlineTime()
		switch {
		case aok && bok:
			return a.Before(b)
		default:
			return aok && !bok
		}
	})

	return out
}

func matchesFilter(filter, value string) bool {
	filter = strings.TrimSpace(filter)
	return filter == "" || strings.EqualFold(filter, allValues) || filter == value
}

func matchesText(opp *opportunity.Opportunity, text string) bool {
	for _, field := range []string{opp.Title, opp.Platform, opp.Company, opp.Location} {
		if strings.Contains(strings.ToLower(field), text) {
			return true
		}
	}
	for _, skill := range opp.SkillSet() {
		if strings.Contains(strings.ToLower(skill), text) {
			return true
		}
	}
	return false
}

// Categories returns the distinct categories in first-seen order.
func Categories(opps []*opportunity.Opportunity) []string {
	return distinct(opps, func(o *opportunity.Opportunity) string { return o.Category })
}

// Platforms returns the distinct platforms in first-seen order.
func Platforms(opps []*opportunity.Opportunity) []string {
	return distinct(opps, func(o *opportunity.Opportunity) string { return o.Platform })
}

func distinct(opps []*opportunity.Opportunity, field func(*opportunity.Opportunity) string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, opp := range opps {
		v := field(opp)
		if _, ok := seen[v]; ok || v == "" {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

type catalogFile struct {
	Opportunities []opportunity.OpportunityInput `yaml:"opportunities"`
}

// LoadFile reads and validates a YAML catalog of the form `opportunities: [...]`.
func LoadFile(path string) ([]*opportunity.Opportunity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}

	return Parse(data)
}

func Parse(data []byte) ([]*opportunity.Opportunity, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	out := make([]*opportunity.Opportunity, 0, len(file.Opportunities))
	for i, in := range file.Opportunities {
		if err := in.Validate(); err != nil {
			return nil, fmt.Errorf("opportunity #%d (%s): %w", i, in.Title, err)
		}
		out = append(out, in.ToOpportunity())
	}

	return out, nil
}
