package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/opportunity-matcher/internal/autoapply"
	"github.com/spigell/opportunity-matcher/internal/catalog"
	"github.com/spigell/opportunity-matcher/internal/opportunity"
)

type profileResponse struct {
	Profile      *opportunity.Profile `json:"profile"`
	Completeness int                  `json:"completeness"`
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	profile, err := s.repo.GetProfile(r.Context(), userID)
	if err != nil {
		s.logger.Error("failed to get profile", zap.Error(err), zap.String("user_id", userID))
		s.respondError(w, http.StatusInternalServerError, "internal_error", "failed to get profile")
		return
	}
	if profile == nil {
		s.respondError(w, http.StatusNotFound, "not_found", "profile not found")
		return
	}

	profile.Skills = profile.SkillSet()
	s.respondJSON(w, http.StatusOK, profileResponse{Profile: profile, Completeness: profile.Completeness()})
}

func (s *Server) handlePutProfile(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var input opportunity.ProfileInput
	if err := decodeBody(w, r, &input); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if err := input.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, "validation_error", validationMessage(err))
		return
	}

	profile := input.ToProfile(userID)
	if err := s.repo.UpsertProfile(r.Context(), profile); err != nil {
		s.logger.Error("failed to save profile", zap.Error(err), zap.String("user_id", userID))
		s.respondError(w, http.StatusInternalServerError, "internal_error", "failed to save profile")
		return
	}

	s.respondJSON(w, http.StatusOK, profileResponse{Profile: profile, Completeness: profile.Completeness()})
}

func (s *Server) handleListMatches(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	minScore := s.config.MatchMinScore
	if raw := r.URL.Query().Get("min_score"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 || parsed > 100 {
			s.respondError(w, http.StatusBadRequest, "validation_error", "min_score must be an integer within [0, 100]")
			return
		}
		minScore = parsed
	}

	var (
		profile      *opportunity.Profile
		opps         []*opportunity.Opportunity
		applications []*opportunity.Application
	)

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		profile, err = s.repo.GetProfile(ctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		opps, err = s.repo.ListOpportunities(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		applications, err = s.repo.ListApplications(ctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("failed to load matches", zap.Error(err), zap.String("user_id", userID))
		s.respondError(w, http.StatusInternalServerError, "internal_error", "failed to load matches")
		return
	}
	if profile == nil {
		s.respondError(w, http.StatusNotFound, "not_found", "profile not found")
		return
	}

	list := opportunity.NewOpportunities(catalog.Search(opps, catalog.Query{Now: s.now()}))
	applied := make([]string, 0, len(applications))
	for _, app := range applications {
		applied = append(applied, app.OpportunityID)
	}
	list.Exclude(opportunity.IDField, applied)

	matches := catalog.Rank(s.scorer, profile.Skills, list.Items, minScore)
	out := make([]*opportunity.Opportunity, 0, len(matches))
	for _, match := range matches {
		score := match.Score
		opp := *match.Opportunity
		opp.RequiredSkills = match.Opportunity.SkillSet()
		opp.MatchScore = &score
		out = append(out, &opp)
	}

	s.respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleListApplications(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	apps, err := s.repo.ListApplications(r.Context(), userID)
	if err != nil {
		s.logger.Error("failed to list applications", zap.Error(err), zap.String("user_id", userID))
		s.respondError(w, http.StatusInternalServerError, "internal_error", "failed to list applications")
		return
	}
	if apps == nil {
		apps = []*opportunity.Application{}
	}

	s.respondJSON(w, http.StatusOK, apps)
}

type createApplicationRequest struct {
	OpportunityID string `json:"opportunity_id" validate:"required"`
}

func (s *Server) handleCreateApplication(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var req createApplicationRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if err := opportunity.Validator().Struct(req); err != nil {
		s.respondError(w, http.StatusBadRequest, "validation_error", validationMessage(err))
		return
	}

	app, err := s.autoApply.Apply(r.Context(), userID, req.OpportunityID)
	if err != nil {
		s.respondWorkflowError(w, err, userID)
		return
	}

	s.respondJSON(w, http.StatusCreated, app)
}

type autoApplyRequest struct {
	DryRun bool `json:"dry_run"`
}

type autoApplyResponse struct {
	ApplicationsCount int                        `json:"applications_count"`
	Applications      []*opportunity.Application `json:"applications"`
	Failed            int                        `json:"failed"`
	Considered        int                        `json:"considered"`
	DryRun            bool                       `json:"dry_run"`
	Message           string                     `json:"message"`
}

func (s *Server) handleAutoApply(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var req autoApplyRequest
	if err := decodeBody(w, r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		s.respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	run := s.autoApply.Run
	if req.DryRun {
		run = s.autoApply.DryRun
	}

	report, err := run(r.Context(), userID)
	if err != nil {
		s.respondWorkflowError(w, err, userID)
		return
	}

	apps := report.Applied
	if apps == nil {
		apps = []*opportunity.Application{}
	}

	s.respondJSON(w, http.StatusOK, autoApplyResponse{
		ApplicationsCount: len(report.Applied),
		Applications:      apps,
		Failed:            report.Failed,
		Considered:        report.Considered,
		DryRun:            report.DryRun,
		Message:           report.Message(),
	})
}

func (s *Server) respondWorkflowError(w http.ResponseWriter, err error, userID string) {
	switch {
	case errors.Is(err, autoapply.ErrNoResume):
		s.respondError(w, http.StatusBadRequest, "no_resume", autoapply.ErrNoResume.Error())
	case errors.Is(err, autoapply.ErrProfileNotFound):
		s.respondError(w, http.StatusNotFound, "not_found", "profile not found")
	case errors.Is(err, autoapply.ErrOpportunityNotFound):
		s.respondError(w, http.StatusNotFound, "not_found", "opportunity not found")
	case errors.Is(err, autoapply.ErrAlreadyApplied):
		s.respondError(w, http.StatusConflict, "already_applied", autoapply.ErrAlreadyApplied.Error())
	default:
		s.logger.Error("auto-apply workflow failed", zap.Error(err), zap.String("user_id", userID))
		s.respondError(w, http.StatusInternalServerError, "internal_error", "failed to apply")
	}
}
