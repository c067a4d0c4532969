// Package opportunity holds the profile, opportunity and application records
// exchanged with the stores, the API and the auto-apply workflow.
package opportunity

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"

	"github.com/spigell/opportunity-matcher/internal/skills"
)

const (
	IDField       = "ID"
	CategoryField = "Category"
	PlatformField = "Platform"

	DeadlineLayout = "2006-01-02"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusApplied Status = "applied"
)

// Profile is a user's skills profile. Skills stays in its raw stored shape.
type Profile struct {
	ID         string `json:"id,omitempty" mapstructure:"id"`
	Name       string `json:"name,omitempty" mapstructure:"name"`
	Email      string `json:"email,omitempty" mapstructure:"email"`
	Skills     any    `json:"skills,omitempty" mapstructure:"skills"`
	Education  string `json:"education,omitempty" mapstructure:"education"`
	Experience string `json:"experience,omitempty" mapstructure:"experience"`
	ResumeURL  string `json:"resume_url,omitempty" mapstructure:"resume_url"`
	ResumeName string `json:"resume_name,omitempty" mapstructure:"resume_name"`
}

// Opportunity is a catalog entry. RequiredSkills stays in its raw stored shape.
type Opportunity struct {
	ID             string `json:"id,omitempty" mapstructure:"id" yaml:"id,omitempty"`
	Title          string `json:"title" mapstructure:"title" yaml:"title"`
	Platform       string `json:"platform" mapstructure:"platform" yaml:"platform"`
	Deadline       string `json:"deadline" mapstructure:"deadline" yaml:"deadline"`
	Category       string `json:"category" mapstructure:"category" yaml:"category"`
	RequiredSkills any    `json:"required_skills" mapstructure:"required_skills" yaml:"required_skills"`
	Company        string `json:"company,omitempty" mapstructure:"company" yaml:"company,omitempty"`
	Location       string `json:"location,omitempty" mapstructure:"location" yaml:"location,omitempty"`
	Description    string `json:"description,omitempty" mapstructure:"description" yaml:"description,omitempty"`
	ApplicationURL string `json:"application_url,omitempty" mapstructure:"application_url" yaml:"application_url,omitempty"`

	// Filled by the filter pipeline, never persisted.
	MatchScore *int          `json:"match_score,omitempty" mapstructure:"-" yaml:"-"`
	AI         *AIAssessment `json:"ai,omitempty" mapstructure:"-" yaml:"-"`
}

// AIAssessment is the optional second opinion attached by the ai_fit step.
type AIAssessment struct {
	Fit     bool    `json:"fit"`
	Score   float64 `json:"score"`
	Reason  string  `json:"reason,omitempty"`
	Message string  `json:"message,omitempty"`
	Error   string  `json:"error,omitempty"`
}

// Application is an immutable snapshot of an application taken when it was submitted.
type Application struct {
	ID            string     `json:"id"`
	UserID        string     `json:"user_id"`
	OpportunityID string     `json:"opportunity_id"`
	Status        Status     `json:"status"`
	MatchScore    int        `json:"match_score"`
	CoverLetter   string     `json:"cover_letter,omitempty"`
	AppliedAt     *time.Time `json:"applied_at,omitempty"`
}

// NewApplication builds an applied snapshot holding the score and letter computed now.
func NewApplication(userID string, opp *Opportunity, score int, letter string, now time.Time) *Application {
	appliedAt := now.UTC()
	return &Application{
		ID:            uuid.NewString(),
		UserID:        userID,
		OpportunityID: opp.ID,
		Status:        StatusApplied,
		MatchScore:    score,
		CoverLetter:   letter,
		AppliedAt:     &appliedAt,
	}
}

// DecodeProfile decodes a loosely typed record into a Profile.
func DecodeProfile(raw map[string]any) (*Profile, error) {
	var p Profile
	if err := decode(raw, &p); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return &p, nil
}

// DecodeOpportunity decodes a loosely typed record into an Opportunity.
func DecodeOpportunity(raw map[string]any) (*Opportunity, error) {
	var o Opportunity
	if err := decode(raw, &o); err != nil {
		return nil, fmt.Errorf("decode opportunity: %w", err)
	}
	return &o, nil
}

// DecodeOpportunities decodes a list of loosely typed records, skipping nothing.
func DecodeOpportunities(items []any) ([]*Opportunity, error) {
	var out []*Opportunity
	if err := decode(items, &out); err != nil {
		return nil, fmt.Errorf("decode opportunities: %w", err)
	}
	return out, nil
}

func decode(input, result any) error {
	cfg := &mapstructure.DecoderConfig{
		Result:           result,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	}
	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}

// Completeness is the percentage of filled profile fields among name, email,
// skills, education, experience and resume.
func (p *Profile) Completeness() int {
	filled := 0
	fields := []bool{
		present(p.Name),
		present(p.Email),
		len(skills.Normalize(p.Skills)) > 0,
		present(p.Education),
		present(p.Experience),
		present(p.ResumeURL),
	}
	for _, ok := range fields {
		if ok {
			filled++
		}
	}
	return filled * 100 / len(fields)
}

func (p *Profile) HasResume() bool {
	return present(p.ResumeURL)
}

func (p *Profile) SkillSet() skills.SkillSet {
	return skills.Normalize(p.Skills)
}

func (o *Opportunity) SkillSet() skills.SkillSet {
	return skills.Normalize(o.RequiredSkills)
}

// DeadlineTime parses the deadline as a date or an RFC 3339 timestamp.
func (o *Opportunity) DeadlineTime() (time.Time, bool) {
	deadline := strings.TrimSpace(o.Deadline)
	if deadline == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(DeadlineLayout, deadline); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, deadline); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// Expired reports whether the deadline day is before the day of now.
// An empty or unparseable deadline never expires.
func (o *Opportunity) Expired(now time.Time) bool {
	deadline, ok := o.DeadlineTime()
	if !ok {
		return false
	}
	return day(deadline).Before(day(now))
}

func (o *Opportunity) GetStringField(name string) string {
	switch name {
	case IDField:
		return o.ID
	case CategoryField:
		return o.Category
	case PlatformField:
		return o.Platform
	default:
		return ""
	}
}

func day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func present(s string) bool {
	return strings.TrimSpace(s) != ""
}
