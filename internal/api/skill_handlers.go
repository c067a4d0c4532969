package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/spigell/opportunity-matcher/internal/opportunity"
	"github.com/spigell/opportunity-matcher/internal/skills"
)

type addSkillRequest struct {
	Skill string `json:"skill" validate:"required,max=100"`
}

func (s *Server) handleAddSkill(w http.ResponseWriter, r *http.Request) {
	var req addSkillRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if err := opportunity.Validator().Struct(req); err != nil {
		s.respondError(w, http.StatusBadRequest, "validation_error", validationMessage(err))
		return
	}

	s.editSkills(w, r, func(set skills.SkillSet) (skills.SkillSet, error) {
		return skills.Add(set, req.Skill)
	})
}

func (s *Server) handleRemoveSkill(w http.ResponseWriter, r *http.Request) {
	skill := chi.URLParam(r, "skill")

	s.editSkills(w, r, func(set skills.SkillSet) (skills.SkillSet, error) {
		return skills.Remove(set, skill), nil
	})
}

// editSkills loads the profile, applies edit to its normalized skills and stores the result.
func (s *Server) editSkills(w http.ResponseWriter, r *http.Request, edit func(skills.SkillSet) (skills.SkillSet, error)) {
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

	updated, err := edit(profile.SkillSet())
	switch {
	case errors.Is(err, skills.ErrDuplicateSkill):
		s.respondError(w, http.StatusConflict, "duplicate_skill", "This skill is already added")
		return
	case errors.Is(err, skills.ErrEmptySkill):
		s.respondError(w, http.StatusBadRequest, "validation_error", "skill must not be empty")
		return
	case err != nil:
		s.respondError(w, http.StatusInternalServerError, "internal_error", "failed to update skills")
		return
	}

	profile.Skills = []string(updated)
	if err := s.repo.UpsertProfile(r.Context(), profile); err != nil {
		s.logger.Error("failed to save profile", zap.Error(err), zap.String("user_id", userID))
		s.respondError(w, http.StatusInternalServerError, "internal_error", "failed to save profile")
		return
	}

	s.respondJSON(w, http.StatusOK, profileResponse{Profile: profile, Completeness: profile.Completeness()})
}
