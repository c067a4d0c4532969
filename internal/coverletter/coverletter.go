// Package coverletter renders the templated cover letter attached to applications.
package coverletter

import (
	"strings"

	"github.com/spigell/opportunity-matcher/internal/opportunity"
	"github.com/spigell/opportunity-matcher/internal/skills"
)

const (
	defaultEducation  = "student"
	defaultSkills     = "various technologies"
	defaultExperience = "I have experience in relevant projects and am eager to apply my skills in a professional environment."
	defaultFocus      = "this field"
	defaultSignature  = "Applicant"
)

// Compose renders the letter for profile p applying to o. The output depends
// only on its inputs. Blank text fields fall back to their defaults.
func Compose(p *opportunity.Profile, o *opportunity.Opportunity) string {
	if p == nil {
		p = &opportunity.Profile{}
	}
	if o == nil {
		o = &opportunity.Opportunity{}
	}

	var b strings.Builder

	b.WriteString("Dear Hiring Manager")
	if company := strings.TrimSpace(o.Company); company != "" {
		b.WriteString(" at ")
		b.WriteString(company)
	}
	b.WriteString(",\n\n")

	b.WriteString("I am writing to express my interest in the ")
	b.WriteString(o.Title)
	b.WriteString(" opportunity listed on ")
	b.WriteString(o.Platform)
	b.WriteString(". As a ")
	b.WriteString(orDefault(p.Education, defaultEducation))
	b.WriteString(" with skills in ")
	b.WriteString(joinSkills(p.Skills, defaultSkills))
	b.WriteString(", I believe I am well-suited for this role.\n\n")

	b.WriteString(orDefault(p.Experience, defaultExperience))
	b.WriteString("\n\n")

	b.WriteString("I am particularly excited about this opportunity because it aligns with my career goals and would allow me to further develop my skills in ")
	b.WriteString(joinSkills(o.RequiredSkills, defaultFocus))
	b.WriteString(".\n\n")

	b.WriteString("Thank you for considering my application. I look forward to the possibility of discussing this opportunity with you further.\n\n")
	b.WriteString("Sincerely,\n")
	b.WriteString(orDefault(p.Name, defaultSignature))

	return b.String()
}

func joinSkills(raw any, fallback string) string {
	set := skills.Normalize(raw)
	kept := make(skills.SkillSet, 0, len(set))
	for _, s := range set {
		if strings.TrimSpace(s) != "" {
			kept = append(kept, s)
		}
	}
	return kept.Join(", ", fallback)
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
