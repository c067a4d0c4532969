package filtering

import (
	"context"
	"fmt"
	"maps"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/opportunity-matcher/internal/ai"
	"github.com/spigell/opportunity-matcher/internal/opportunity"
)

const aiActor = "ai"

type aiFitFilter struct {
	disabled    bool
	reason      string
	config      *AIConfig
	excludeFile string
	assessments map[string]*ai.FitAssessment
}

// NewAIFit creates the AI-based filtering step.
func NewAIFit() Filter {
	return &aiFitFilter{}
}

func (f *aiFitFilter) Name() string { return "ai_fit" }

func (f *aiFitFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *aiFitFilter) IsEnabled() bool { return !f.disabled }

func (f *aiFitFilter) Validate(cfg *Config) error {
	f.config = nil
	f.excludeFile = ""
	if cfg != nil {
		f.config = cfg.AI
		f.excludeFile = strings.TrimSpace(cfg.ExcludeFile)
	}
	if !f.IsEnabled() {
		return nil
	}
	if cfg == nil || cfg.AI == nil {
		return fmt.Errorf("ai configuration is required when ai filter is enabled")
	}
	if cfg.AI.Gemini == nil {
		return fmt.Errorf("gemini configuration is required when ai filter is enabled")
	}
	if strings.TrimSpace(cfg.AI.Gemini.Model) == "" {
		return fmt.Errorf("gemini model is required when ai filter is enabled")
	}
	return nil
}

func (f *aiFitFilter) Apply(ctx context.Context, deps Deps, o *opportunity.Opportunities) (*opportunity.Opportunities, Step, error) {
	initial := o.Len()
	logger := deps.logger()
	if deps.Matcher == nil {
		logger.Info("ai matcher is not configured; skipping ai_fit filter")
		return o, result(initial, o), nil
	}
	if deps.Profile == nil {
		return o, Step{}, fmt.Errorf("profile is required for AI evaluation")
	}

	approved := make([]*opportunity.Opportunity, 0, initial)
	rejected := make([]*opportunity.Opportunity, 0)
	f.assessments = make(map[string]*ai.FitAssessment)

	for _, item := range o.Items {
		if err := ctx.Err(); err != nil {
			return o, Step{}, err
		}

		assessment, err := deps.Matcher.Evaluate(ctx, deps.Profile, item)
		if err != nil {
			logger.Warn("AI evaluation failed",
				zap.String("opportunity_id", item.ID),
				zap.Error(err),
			)
			item.AI = &opportunity.AIAssessment{Error: err.Error()}
			approved = append(approved, item)
			continue
		}

		item.AI = &opportunity.AIAssessment{
			Fit:     assessment.Fit,
			Score:   assessment.Score,
			Reason:  assessment.Reason,
			Message: assessment.Message,
		}

		if !assessment.Fit {
			logger.Info("opportunity rejected by AI provider",
				zap.String("opportunity_id", item.ID),
				zap.Float64("ai_score", assessment.Score),
				zap.String("reason", assessment.Reason),
			)
			rejected = append(rejected, item)
			continue
		}

		logger.Info("opportunity approved by AI",
			zap.String("opportunity_id", item.ID),
			zap.Float64("ai_score", assessment.Score),
		)
		approved = append(approved, item)
		f.assessments[item.ID] = assessment
	}

	o.Items = approved

	if err := f.rememberRejected(deps, rejected); err != nil {
		return o, Step{}, err
	}

	if initial != len(approved) {
		logger.Info("AI filtering completed",
			zap.Int("initial_opportunities", initial),
			zap.Int("approved_opportunities", len(approved)),
		)
	}

	return o, result(initial, o), nil
}

// rememberRejected appends rejected opportunities to the exclude file so the
// next run does not ask the provider again.
func (f *aiFitFilter) rememberRejected(deps Deps, rejected []*opportunity.Opportunity) error {
	if len(rejected) == 0 || f.config == nil || !f.config.ExcludeRejected || f.excludeFile == "" {
		return nil
	}

	excluded, err := opportunity.LoadExcluded(f.excludeFile)
	if err != nil {
		return fmt.Errorf("read exclude file: %w", err)
	}

	excluded.Append(opportunity.NewOpportunities(rejected).ToExcluded(aiActor, "rejected by AI provider", deps.now()))
	if err := excluded.ToFile(f.excludeFile); err != nil {
		return fmt.Errorf("write exclude file: %w", err)
	}

	deps.logger().Info("rejected opportunities added to exclude file",
		zap.String("path", f.excludeFile),
		zap.Int("count", len(rejected)),
	)
	return nil
}

func (f *aiFitFilter) Assessments() map[string]*ai.FitAssessment {
	if f.assessments == nil {
		return map[string]*ai.FitAssessment{}
	}
	return maps.Clone(f.assessments)
}

func (f *aiFitFilter) Status() Status {
	details := map[string]string{}
	if f.config != nil {
		details["minimum_fit_score"] = fmt.Sprintf("%.2f", f.config.MinimumFitScore)
		details["exclude_rejected"] = strconv.FormatBool(f.config.ExcludeRejected)
		if f.config.Gemini != nil {
			details["model"] = f.config.Gemini.Model
			details["max_retries"] = strconv.Itoa(f.config.Gemini.MaxRetries)
			details["max_log_length"] = strconv.Itoa(f.config.Gemini.MaxLogLength)
		}
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}
