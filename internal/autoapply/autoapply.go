// Package autoapply applies a user to every eligible opportunity in one pass:
// it filters and scores the catalog, composes a cover letter for each survivor
// and records an application snapshot.
package autoapply

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/opportunity-matcher/internal/ai"
	"github.com/spigell/opportunity-matcher/internal/coverletter"
	"github.com/spigell/opportunity-matcher/internal/filtering"
	"github.com/spigell/opportunity-matcher/internal/logger"
	"github.com/spigell/opportunity-matcher/internal/matching"
	"github.com/spigell/opportunity-matcher/internal/opportunity"
)

const DefaultMinScore = 75

var (
	ErrProfileNotFound     = errors.New("profile not found")
	ErrNoResume            = errors.New("No resume found. Please upload a resume first.")
	ErrOpportunityNotFound = errors.New("opportunity not found")
	ErrAlreadyApplied      = errors.New("already applied to this opportunity")
)

// Store is the subset of the repository the workflow needs.
type Store interface {
	GetProfile(ctx context.Context, id string) (*opportunity.Profile, error)
	ListOpportunities(ctx context.Context) ([]*opportunity.Opportunity, error)
	GetOpportunity(ctx context.Context, id string) (*opportunity.Opportunity, error)
	ListApplications(ctx context.Context, userID string) ([]*opportunity.Application, error)
	CreateApplication(ctx context.Context, app *opportunity.Application) error
}

// Config tunes a Service.
type Config struct {
	// MinScore overrides Filtering.MinScore when positive; zero means DefaultMinScore.
	MinScore int
	// IgnoreApplied keeps opportunities the user already applied to.
	IgnoreApplied bool
	Filtering     filtering.Config
}

type Service struct {
	store   Store
	scorer  *matching.Scorer
	matcher ai.Matcher
	config  Config
	logger  *zap.Logger
	now     func() time.Time
}

type Option func(*Service)

func WithScorer(scorer *matching.Scorer) Option {
	return func(s *Service) { s.scorer = scorer }
}

// WithMatcher enables the ai_fit step with the given provider.
func WithMatcher(matcher ai.Matcher) Option {
	return func(s *Service) { s.matcher = matcher }
}

func WithConfig(cfg Config) Option {
	return func(s *Service) { s.config = cfg }
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		scorer: matching.NewScorer(),
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MinScore is the effective auto-apply threshold.
func (s *Service) MinScore() int {
	if s.config.MinScore > 0 {
		return s.config.MinScore
	}
	return DefaultMinScore
}

// Plan is the set of opportunities a run would apply to, best match first.
type Plan struct {
	UserID      string
	Profile     *opportunity.Profile
	Candidates  *opportunity.Opportunities
	Considered  int
	Assessments map[string]*ai.FitAssessment
	Filters     []filtering.Status
}

// Report summarizes a run.
type Report struct {
	Applied    []*opportunity.Application `json:"applications"`
	Failed     int                        `json:"failed"`
	Considered int                        `json:"considered"`
	DryRun     bool                       `json:"dry_run"`
}

func (r *Report) Message() string {
	if r.DryRun {
		return fmt.Sprintf("Would auto-apply to %d opportunities.", len(r.Applied))
	}
	return fmt.Sprintf("Successfully auto-applied to %d opportunities!", len(r.Applied))
}

// Run plans and applies in one go.
func (s *Service) Run(ctx context.Context, userID string) (*Report, error) {
	plan, err := s.Plan(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.Execute(ctx, plan)
}

// DryRun returns the applications a run would create without persisting them.
func (s *Service) DryRun(ctx context.Context, userID string) (*Report, error) {
	plan, err := s.Plan(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.Preview(plan), nil
}

// Preview builds the dry-run report of an existing plan without touching the store.
func (s *Service) Preview(plan *Plan) *Report {
	report := &Report{Considered: plan.Considered, DryRun: true}
	for _, item := range plan.Candidates.Items {
		report.Applied = append(report.Applied, s.snapshot(plan, item))
	}
	return report
}

// Plan loads the profile, the catalog and the user's history and runs the filters.
func (s *Service) Plan(ctx context.Context, userID string) (*Plan, error) {
	profile, err := s.loadProfile(ctx, userID, true)
	if err != nil {
		return nil, err
	}

	catalog, err := s.store.ListOpportunities(ctx)
	if err != nil {
		return nil, fmt.Errorf("list opportunities: %w", err)
	}

	applications, err := s.store.ListApplications(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}

	cfg := s.config.Filtering
	cfg.MinScore = s.MinScore()

	steps := filtering.Default(s.config.IgnoreApplied)
	if s.matcher == nil || cfg.AI == nil || !cfg.AI.Enabled {
		filtering.DisableByName(steps, "ai_fit", "ai is not enabled")
	}

	log := logger.WithUser(s.logger, userID)
	list := opportunity.NewOpportunities(catalog)
	considered := list.Len()

	deps := filtering.Deps{
		Logger:       log,
		Profile:      profile,
		Applications: applications,
		Scorer:       s.scorer,
		Matcher:      s.matcher,
		Now:          s.now,
	}

	candidates, assessments, err := filtering.Run(ctx, &cfg, deps, steps, list)
	if err != nil {
		return nil, fmt.Errorf("filter opportunities: %w", err)
	}

	log.Info("auto-apply plan ready",
		zap.Int("considered", considered),
		zap.Int("eligible", candidates.Len()),
		zap.Int("min_score", cfg.MinScore),
	)

	return &Plan{
		UserID:      userID,
		Profile:     profile,
		Candidates:  candidates,
		Considered:  considered,
		Assessments: assessments,
		Filters:     filtering.Describe(steps),
	}, nil
}

// Execute records an application for every candidate in the plan. A failed
// insert is logged and counted; cancellation stops the loop.
func (s *Service) Execute(ctx context.Context, plan *Plan) (*Report, error) {
	report := &Report{Considered: plan.Considered}
	log := logger.WithUser(s.logger, plan.UserID)

	for _, item := range plan.Candidates.Items {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		app := s.snapshot(plan, item)
		if err := s.store.CreateApplication(ctx, app); err != nil {
			log.Warn("failed to record application",
				zap.String(logger.FieldOpportunityID, item.ID),
				zap.Error(err),
			)
			report.Failed++
			continue
		}

		log.Info("applied",
			zap.String(logger.FieldOpportunityID, item.ID),
			zap.String("title", item.Title),
			zap.Int("match_score", app.MatchScore),
		)
		report.Applied = append(report.Applied, app)
	}

	return report, nil
}

// Apply records a single application chosen by the user. Neither the threshold
// nor the resume requirement applies; the score snapshot is computed now.
func (s *Service) Apply(ctx context.Context, userID, opportunityID string) (*opportunity.Application, error) {
	profile, err := s.loadProfile(ctx, userID, false)
	if err != nil {
		return nil, err
	}

	opp, err := s.store.GetOpportunity(ctx, opportunityID)
	if err != nil {
		return nil, fmt.Errorf("get opportunity: %w", err)
	}
	if opp == nil {
		return nil, fmt.Errorf("%w: %s", ErrOpportunityNotFound, opportunityID)
	}

	applications, err := s.store.ListApplications(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	for _, app := range applications {
		if app != nil && app.OpportunityID == opportunityID {
			return nil, ErrAlreadyApplied
		}
	}

	score := s.scorer.Score(profile.Skills, opp.RequiredSkills)
	opp.MatchScore = &score

	app := s.snapshot(&Plan{UserID: userID, Profile: profile}, opp)
	if err := s.store.CreateApplication(ctx, app); err != nil {
		return nil, fmt.Errorf("create application: %w", err)
	}
	return app, nil
}

func (s *Service) loadProfile(ctx context.Context, userID string, requireResume bool) (*opportunity.Profile, error) {
	profile, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	if profile == nil {
		return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, userID)
	}
	if requireResume && !profile.HasResume() {
		return nil, ErrNoResume
	}
	return profile, nil
}

func (s *Service) snapshot(plan *Plan, item *opportunity.Opportunity) *opportunity.Application {
	score := 0
	if item.MatchScore != nil {
		score = *item.MatchScore
	}
	letter := coverletter.Compose(plan.Profile, item)
	return opportunity.NewApplication(plan.UserID, item, score, letter, s.now())
}
