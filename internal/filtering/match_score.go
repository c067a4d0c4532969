package filtering

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/spigell/opportunity-matcher/internal/matching"
	"github.com/spigell/opportunity-matcher/internal/opportunity"
)

type matchScoreFilter struct {
	minScore int
	disabled bool
	reason   string
}

// NewMatchScore creates a filter that scores every opportunity against the
// profile, drops those below the minimum and orders the rest by descending score.
func NewMatchScore() Filter {
	return &matchScoreFilter{}
}

func (f *matchScoreFilter) Name() string { return "match_score" }

func (f *matchScoreFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *matchScoreFilter) IsEnabled() bool { return !f.disabled }

func (f *matchScoreFilter) Validate(cfg *Config) error {
	f.minScore = 0
	if cfg != nil {
		f.minScore = cfg.MinScore
	}
	if f.minScore < 0 || f.minScore > 100 {
		return fmt.Errorf("minimum score must be within [0, 100], got %d", f.minScore)
	}
	return nil
}

func (f *matchScoreFilter) Apply(_ context.Context, deps Deps, o *opportunity.Opportunities) (*opportunity.Opportunities, Step, error) {
	initial := o.Len()
	if deps.Profile == nil {
		return o, Step{}, errors.New("profile is required for scoring")
	}

	scorer := deps.Scorer
	if scorer == nil {
		scorer = matching.NewScorer()
	}

	for _, item := range o.Items {
		score := scorer.Score(deps.Profile.Skills, item.RequiredSkills)
		item.MatchScore = &score
	}

	excluded := o.ExcludeFunc(func(item *opportunity.Opportunity) bool {
		return *item.MatchScore < f.minScore
	})

	sort.SliceStable(o.Items, func(i, j int) bool {
		return *o.Items[i].MatchScore > *o.Items[j].MatchScore
	})

	if len(excluded) > 0 {
		deps.logger().Info("excluding opportunities below the match threshold",
			zap.Int("min_score", f.minScore),
			zap.Stringer("strategy", scorer.Strategy()),
			zap.Strings("excluded_opportunities", excluded),
			zap.Int("opportunities_left", o.Len()),
		)
	}

	return o, result(initial, o), nil
}

func (f *matchScoreFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: f.IsEnabled(),
		Reason:  f.reason,
		Details: map[string]string{"min_score": strconv.Itoa(f.minScore)},
	}
}
