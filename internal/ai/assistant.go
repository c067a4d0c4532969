package ai

import (
	"context"

	"github.com/spigell/opportunity-matcher/internal/opportunity"
)

type FitAssessment struct {
	Fit     bool
	Score   float64
	Reason  string
	Message string
	Raw     string
}

// Matcher gives a second opinion on whether a profile fits an opportunity.
type Matcher interface {
	Evaluate(ctx context.Context, profile *opportunity.Profile, opp *opportunity.Opportunity) (*FitAssessment, error)
}
