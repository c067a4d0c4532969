package opportunity

import (
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/spigell/opportunity-matcher/internal/skills"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator returns the shared request validator.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// ProfileInput is the writable part of a profile.
type ProfileInput struct {
	Name       string `json:"name" validate:"max=200"`
	Email      string `json:"email" validate:"omitempty,email"`
	Skills     any    `json:"skills"`
	Education  string `json:"education" validate:"max=500"`
	Experience string `json:"experience" validate:"max=5000"`
	ResumeURL  string `json:"resume_url" validate:"omitempty,url"`
	ResumeName string `json:"resume_name" validate:"max=255"`
}

func (in ProfileInput) Validate() error {
	return Validator().Struct(in)
}

func (in ProfileInput) ToProfile(id string) *Profile {
	return &Profile{
		ID:         id,
		Name:       in.Name,
		Email:      in.Email,
		Skills:     []string(skills.Normalize(in.Skills)),
		Education:  in.Education,
		Experience: in.Experience,
		ResumeURL:  in.ResumeURL,
		ResumeName: in.ResumeName,
	}
}

// OpportunityInput is a catalog entry as accepted by the seeder and the API.
type OpportunityInput struct {
	Title          string `json:"title" yaml:"title" validate:"required"`
	Platform       string `json:"platform" yaml:"platform" validate:"required"`
	Deadline       string `json:"deadline" yaml:"deadline" validate:"required,datetime=2006-01-02"`
	Category       string `json:"category" yaml:"category" validate:"required"`
	RequiredSkills any    `json:"required_skills" yaml:"required_skills"`
	Company        string `json:"company" yaml:"company"`
	Location       string `json:"location" yaml:"location"`
	Description    string `json:"description" yaml:"description"`
	ApplicationURL string `json:"application_url" yaml:"application_url" validate:"omitempty,url"`
}

func (in OpportunityInput) Validate() error {
	return Validator().Struct(in)
}

func (in OpportunityInput) ToOpportunity() *Opportunity {
	return &Opportunity{
		Title:          in.Title,
		Platform:       in.Platform,
		Deadline:       in.Deadline,
		Category:       in.Category,
		RequiredSkills: []string(skills.Normalize(in.RequiredSkills)),
		Company:        in.Company,
		Location:       in.Location,
		Description:    in.Description,
		ApplicationURL: in.ApplicationURL,
	}
}
