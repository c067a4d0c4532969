package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/spigell/opportunity-matcher/internal/coverletter"
	"github.com/spigell/opportunity-matcher/internal/matching"
	"github.com/spigell/opportunity-matcher/internal/opportunity"
	"github.com/spigell/opportunity-matcher/internal/skills"
)

const maxBodyBytes = 1 << 20

var errEmptyBody = errors.New("empty body")

// Response helpers

type apiResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *apiError `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: false,
		Error: &apiError{
			Code:    code,
			Message: message,
		},
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("failed to encode error response", zap.Error(err))
	}
}

// decodeBody reads a JSON body into dst. An empty body yields errEmptyBody.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst)
	if errors.Is(err, io.EOF) {
		return errEmptyBody
	}
	return err
}

// validationMessage returns the first validation failure in a readable form.
func validationMessage(err error) string {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		ve := validationErrors[0]
		return fmt.Sprintf("validation error: %s - %s", ve.Field(), ve.Tag())
	}
	return "validation error: invalid request"
}

// Health handlers

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   s.now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.repo.Ping(r.Context()); err != nil {
		s.logger.Warn("store is not ready", zap.Error(err))
		s.respondError(w, http.StatusServiceUnavailable, "not_ready", "service not ready")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}

// Scoring handlers

type matchRequest struct {
	Skills         any    `json:"skills"`
	RequiredSkills any    `json:"required_skills"`
	Strategy       string `json:"strategy"`
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	var req matchRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	scorer := s.scorer
	if req.Strategy != "" {
		strategy, err := matching.ParseStrategy(req.Strategy)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "validation_error", err.Error())
			return
		}
		if strategy != scorer.Strategy() {
			scorer = s.scorer.With(matching.WithStrategy(strategy))
		}
	}

	s.respondJSON(w, http.StatusOK, scorer.Explain(req.Skills, req.RequiredSkills))
}

type normalizeRequest struct {
	Skills any `json:"skills"`
}

func (s *Server) handleNormalizeSkills(w http.ResponseWriter, r *http.Request) {
	var req normalizeRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"skills": skills.Normalize(req.Skills),
	})
}

type coverLetterRequest struct {
	Profile     *opportunity.Profile     `json:"profile" validate:"required"`
	Opportunity *opportunity.Opportunity `json:"opportunity" validate:"required"`
}

func (s *Server) handleCoverLetter(w http.ResponseWriter, r *http.Request) {
	var req coverLetterRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if err := opportunity.Validator().Struct(req); err != nil {
		s.respondError(w, http.StatusBadRequest, "validation_error", validationMessage(err))
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{
		"cover_letter": coverletter.Compose(req.Profile, req.Opportunity),
	})
}
