// Package matching scores a candidate skill set against required skills.
package matching

import (
	"fmt"
	"strings"

	"github.com/spigell/opportunity-matcher/internal/skills"
)

// Strategy selects which passes the scorer runs.
type Strategy int

const (
	// StrategyTaxonomy runs the direct pass and then grants half credit via technology groups.
	StrategyTaxonomy Strategy = iota
	// StrategyDirect runs the bidirectional substring pass only.
	StrategyDirect
)

func (s Strategy) String() string {
	switch s {
	case StrategyDirect:
		return "direct"
	case StrategyTaxonomy:
		return "taxonomy"
	default:
		return "unknown"
	}
}

// ParseStrategy maps a strategy name to its value. An empty name means taxonomy.
func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "taxonomy":
		return StrategyTaxonomy, nil
	case "direct":
		return StrategyDirect, nil
	default:
		return StrategyTaxonomy, fmt.Errorf("unknown strategy %q", name)
	}
}

// Result is a score with its per-token breakdown.
type Result struct {
	Score   int      `json:"score"`
	Full    []string `json:"full"`
	Partial []string `json:"partial"`
	Missing []string `json:"missing"`
	// PartialGroups maps each partially matched token to the group that credited it.
	PartialGroups map[string]string `json:"partial_groups,omitempty"`
}

// Scorer is immutable once built and safe for concurrent use.
type Scorer struct {
	taxonomy Taxonomy
	strategy Strategy
}

type Option func(*Scorer)

func WithTaxonomy(t Taxonomy) Option {
	return func(s *Scorer) {
		s.taxonomy = t.Clone()
	}
}

func WithStrategy(strategy Strategy) Option {
	return func(s *Scorer) {
		s.strategy = strategy
	}
}

func NewScorer(opts ...Option) *Scorer {
	s := &Scorer{
		taxonomy: DefaultTaxonomy(),
		strategy: StrategyTaxonomy,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var defaultScorer = NewScorer()

// Score computes the match score with the default taxonomy-aware scorer.
func Score(candidate, required any) int {
	return defaultScorer.Score(candidate, required)
}

func (s *Scorer) Strategy() Strategy {
	return s.strategy
}

// With returns a copy of the scorer with opts applied on top of its settings.
func (s *Scorer) With(opts ...Option) *Scorer {
	clone := &Scorer{taxonomy: s.taxonomy, strategy: s.strategy}
	for _, opt := range opts {
		opt(clone)
	}
	return clone
}

func (s *Scorer) Score(candidate, required any) int {
	return s.Explain(candidate, required).Score
}

// Explain normalizes both inputs, runs the configured passes and reports the
// score in [0, 100]. Either side empty scores 0. Rounding is half away from zero.
func (s *Scorer) Explain(candidate, required any) Result {
	res := Result{Full: []string{}, Partial: []string{}, Missing: []string{}}

	have := tokens(candidate)
	need := tokens(required)
	if len(have) == 0 || len(need) == 0 {
		res.Missing = append(res.Missing, need...)
		return res
	}

	halfPoints := 0
	for _, token := range need {
		if containsEither(have, token) {
			halfPoints += 2
			res.Full = append(res.Full, token)
			continue
		}

		if s.strategy == StrategyTaxonomy {
			if group, ok := s.relatedGroup(have, token); ok {
				halfPoints++
				res.Partial = append(res.Partial, token)
				if res.PartialGroups == nil {
					res.PartialGroups = map[string]string{}
				}
				res.PartialGroups[token] = group
				continue
			}
		}

		res.Missing = append(res.Missing, token)
	}

	res.Score = percent(halfPoints, 2*len(need))
	return res
}

// relatedGroup returns the first group that both the required token and some
// candidate token fall into.
func (s *Scorer) relatedGroup(have []string, token string) (string, bool) {
	for _, group := range s.taxonomy {
		if !containsEither(group.Tokens, token) {
			continue
		}
		for _, candidate := range have {
			if containsEither(group.Tokens, candidate) {
				return group.Name, true
			}
		}
	}
	return "", false
}

// containsEither reports whether any item contains token or is contained by it.
func containsEither(items []string, token string) bool {
	for _, item := range items {
		if strings.Contains(item, token) || strings.Contains(token, item) {
			return true
		}
	}
	return false
}

func tokens(raw any) []string {
	set := skills.Lower(skills.Normalize(raw))
	out := make([]string, 0, len(set))
	for _, token := range set {
		// A blank token is a substring of everything.
		if strings.TrimSpace(token) == "" {
			continue
		}
		out = append(out, token)
	}
	return out
}

// percent rounds 100*num/den half away from zero using integer math.
func percent(num, den int) int {
	if den <= 0 || num <= 0 {
		return 0
	}
	score := (200*num + den) / (2 * den)
	if score > 100 {
		return 100
	}
	return score
}
