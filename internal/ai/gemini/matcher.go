package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/spigell/opportunity-matcher/internal/ai"
	"github.com/spigell/opportunity-matcher/internal/logger"
	"github.com/spigell/opportunity-matcher/internal/opportunity"
	"github.com/spigell/opportunity-matcher/internal/utils"
)

const (
	providerName            = "gemini"
	defaultMaxLogLength     = 200
	maxUserInstructionRunes = 500

	systemInstruction = "You evaluate student opportunities. Follow the template and answer with JSON only."
)

//go:embed prompt.md
var promptTemplate string

type contentGenerator interface {
	GenerateContent(ctx context.Context, system, message string) (string, error)
	Model() string
}

// PromptOverrides carries user preferences injected into the prompt.
type PromptOverrides struct {
	ExtraCriteria     string
	DealBreakers      string
	CustomKeywords    string
	Tone              string
	RegionConstraints string
	UserInstructions  string
}

type Matcher struct {
	generator contentGenerator
	minScore  float64
	logger    *zap.Logger
	maxLogLen int
	overrides PromptOverrides
}

var _ ai.Matcher = (*Matcher)(nil)

func NewMatcher(generator contentGenerator, minScore float64, maxLogLength int, log *zap.Logger) *Matcher {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Matcher{
		generator: generator,
		minScore:  minScore,
		logger:    logger.WithAI(log, providerName, generator.Model()),
		maxLogLen: maxLogLength,
	}
}

func (m *Matcher) SetPromptOverrides(overrides PromptOverrides) {
	m.overrides = overrides
}

func (m *Matcher) Evaluate(ctx context.Context, profile *opportunity.Profile, opp *opportunity.Opportunity) (*ai.FitAssessment, error) {
	if profile == nil {
		return nil, fmt.Errorf("profile is required")
	}
	if opp == nil {
		return nil, fmt.Errorf("opportunity is required")
	}

	profileJSON, err := json.MarshalIndent(profilePayload(profile), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal profile payload: %w", err)
	}

	opportunityJSON, err := json.MarshalIndent(opportunityPayload(opp), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal opportunity payload: %w", err)
	}

	prompt := m.buildPrompt(string(profileJSON), string(opportunityJSON))

	m.logger.Debug("gemini generate content request",
		zap.String("opportunity_id", opp.ID),
		zap.String("profile_id", profile.ID),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, m.maxLogLen)),
	)

	raw, err := m.generator.GenerateContent(ctx, systemInstruction, prompt)
	if err != nil {
		return nil, err
	}

	m.logger.Debug("gemini generate content response",
		zap.String("opportunity_id", opp.ID),
		zap.String("profile_id", profile.ID),
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, m.maxLogLen)),
	)

	assessment, err := parseResponse(raw)
	if err != nil {
		return nil, err
	}

	if m.minScore > 0 && assessment.Score < m.minScore {
		m.logger.Debug("set fit to false by score threshold",
			zap.String("opportunity_id", opp.ID),
			zap.Float64("score", assessment.Score),
			zap.Float64("threshold", m.minScore),
		)
		assessment.Fit = false
	}

	assessment.Raw = raw
	return assessment, nil
}

func profilePayload(p *opportunity.Profile) map[string]any {
	return map[string]any{
		"name":       p.Name,
		"education":  p.Education,
		"experience": p.Experience,
		"skills":     p.SkillSet(),
	}
}

func opportunityPayload(o *opportunity.Opportunity) map[string]any {
	payload := map[string]any{
		"title":           o.Title,
		"platform":        o.Platform,
		"category":        o.Category,
		"company":         o.Company,
		"location":        o.Location,
		"deadline":        o.Deadline,
		"description":     o.Description,
		"required_skills": o.SkillSet(),
	}
	if o.MatchScore != nil {
		payload["match_score"] = *o.MatchScore
	}
	return payload
}

func (m *Matcher) buildPrompt(profileJSON, opportunityJSON string) string {
	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Profile:\n{{PROFILE_JSON}}\n\nOpportunity:\n{{OPPORTUNITY_JSON}}\n\nJSON Response:"
	}

	replacer := strings.NewReplacer(
		"{{EXTRA_CRITERIA}}", singleLine(m.overrides.ExtraCriteria, "none"),
		"{{DEAL_BREAKERS}}", singleLine(m.overrides.DealBreakers, "none"),
		"{{CUSTOM_KEYWORDS}}", keywords(m.overrides.CustomKeywords),
		"{{TONE}}", singleLine(m.overrides.Tone, "Friendly"),
		"{{REGION_CONSTRAINTS}}", singleLine(m.overrides.RegionConstraints, "none"),
		"{{USER_INSTRUCTIONS}}", userInstructions(m.overrides.UserInstructions),
		"{{PROFILE_JSON}}", profileJSON,
		"{{OPPORTUNITY_JSON}}", opportunityJSON,
	)
	return replacer.Replace(template)
}

// neutralize keeps user text from imitating the template's section headers.
func neutralize(s string) string {
	return strings.NewReplacer("[", "(", "]", ")").Replace(s)
}

func singleLine(s, fallback string) string {
	s = strings.Join(strings.Fields(neutralize(s)), " ")
	if s == "" {
		return fallback
	}
	return s
}

func keywords(s string) string {
	parts := strings.Split(neutralize(s), ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.Join(strings.Fields(part), " "); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return "none"
	}
	return strings.Join(out, ", ")
}

func userInstructions(s string) string {
	s = strings.TrimSpace(neutralize(s))
	if runes := []rune(s); len(runes) > maxUserInstructionRunes {
		s = string(runes[:maxUserInstructionRunes])
	}

	lines := make([]string, 0)
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, "  - "+line)
		}
	}
	if len(lines) == 0 {
		return "  - none"
	}
	return strings.Join(lines, "\n")
}

func parseResponse(raw string) (*ai.FitAssessment, error) {
	cleaned := extractJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("parse gemini response: %w", err)
	}

	score := coerceFloat(data["score"])
	if math.IsNaN(score) {
		score = 0
	}

	return &ai.FitAssessment{
		Fit:     coerceBool(data["fit"]),
		Score:   score,
		Reason:  coerceString(data["reason"]),
		Message: coerceString(data["message"]),
	}, nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

func coerceBool(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		lower := strings.ToLower(strings.TrimSpace(val))
		return lower == "true" || lower == "yes"
	case float64:
		return val != 0
	default:
		return false
	}
}

func coerceFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case string:
		trimmed := strings.TrimSpace(val)
		if trimmed == "" {
			return math.NaN()
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case fmt.Stringer:
		return strings.TrimSpace(val.String())
	default:
		if v == nil {
			return ""
		}
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}
