package api

import (
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/spigell/opportunity-matcher/internal/catalog"
	"github.com/spigell/opportunity-matcher/internal/opportunity"
)

func (s *Server) handleListOpportunities(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	includeExpired := false
	if raw := query.Get("include_expired"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "validation_error", "include_expired must be a boolean")
			return
		}
		includeExpired = parsed
	}

	opps, err := s.repo.ListOpportunities(r.Context())
	if err != nil {
		s.logger.Error("failed to list opportunities", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "internal_error", "failed to list opportunities")
		return
	}

	found := catalog.Search(opps, catalog.Query{
		Text:           query.Get("q"),
		Category:       query.Get("category"),
		Platform:       query.Get("platform"),
		IncludeExpired: includeExpired,
		Now:            s.now(),
	})

	s.respondJSON(w, http.StatusOK, withNormalizedSkills(found))
}

func (s *Server) handleCreateOpportunities(w http.ResponseWriter, r *http.Request) {
	var inputs []opportunity.OpportunityInput
	if err := decodeBody(w, r, &inputs); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid_request", "expected a JSON array of opportunities")
		return
	}
	if len(inputs) == 0 {
		s.respondError(w, http.StatusBadRequest, "validation_error", "at least one opportunity is required")
		return
	}

	opps := make([]*opportunity.Opportunity, 0, len(inputs))
	for i, input := range inputs {
		if err := input.Validate(); err != nil {
			s.respondError(w, http.StatusBadRequest, "validation_error",
				fmt.Sprintf("opportunity #%d: %s", i+1, validationMessage(err)))
			return
		}
		opps = append(opps, input.ToOpportunity())
	}

	if err := s.repo.UpsertOpportunities(r.Context(), opps); err != nil {
		s.logger.Error("failed to upsert opportunities", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "internal_error", "failed to save opportunities")
		return
	}

	s.respondJSON(w, http.StatusCreated, opps)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	opps, err := s.repo.ListOpportunities(r.Context())
	if err != nil {
		s.logger.Error("failed to list opportunities", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "internal_error", "failed to list opportunities")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string][]string{
		"categories": catalog.Categories(opps),
		"platforms":  catalog.Platforms(opps),
	})
}

// withNormalizedSkills replaces the stored skill shapes with their SkillSet.
func withNormalizedSkills(opps []*opportunity.Opportunity) []*opportunity.Opportunity {
	out := make([]*opportunity.Opportunity, 0, len(opps))
	for _, opp := range opps {
		clone := *opp
		clone.RequiredSkills = opp.SkillSet()
		out = append(out, &clone)
	}
	return out
}
