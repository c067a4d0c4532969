package coverletter

import (
	"strings"
	"testing"

	"github.com/spigell/opportunity-matcher/internal/opportunity"
)

func TestComposeFullProfile(t *testing.T) {
	p := &opportunity.Profile{
		Name:       "Ada Lovelace",
		Education:  "Computer Science student",
		Experience: "I built a compiler.",
		Skills:     `["Go","SQL"]`,
	}
	o := &opportunity.Opportunity{
		Title:          "Backend Intern",
		Platform:       "LinkedIn",
		Company:        "Acme",
		RequiredSkills: []string{"Go", "Docker"},
	}

	expect := "Dear Hiring Manager at Acme,\n\n" +
		"I am writing to express my interest in the Backend Intern opportunity listed on LinkedIn. " +
		"As a Computer Science student with skills in Go, SQL, I believe I am well-suited for this role.\n\n" +
		"I built a compiler.\n\n" +
		"I am particularly excited about this opportunity because it aligns with my career goals and would allow me to further develop my skills in Go, Docker.\n\n" +
		"Thank you for considering my application. I look forward to the possibility of discussing this opportunity with you further.\n\n" +
		"Sincerely,\nAda Lovelace"

	if got := Compose(p, o); got != expect {
		t.Fatalf("unexpected letter:\n%s", got)
	}
}

func TestComposeDefaults(t *testing.T) {
	got := Compose(&opportunity.Profile{Name: "  "}, &opportunity.Opportunity{Title: "Hackathon", Platform: "Devpost", Company: " "})

	if !strings.HasPrefix(got, "Dear Hiring Manager,\n\n") {
		t.Fatalf("expected greeting without company clause, got %q", got)
	}

	for _, want := range []string{
		"As a student with skills in various technologies,",
		defaultExperience,
		"develop my skills in this field.",
		"Sincerely,\nApplicant",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %q in letter:\n%s", want, got)
		}
	}

	for _, artifact := range []string{"undefined", " at ,", "<nil>", "()"} {
		if strings.Contains(got, artifact) {
			t.Fatalf("unexpected artifact %q in letter:\n%s", artifact, got)
		}
	}
}

func TestComposeNilInputs(t *testing.T) {
	got := Compose(nil, nil)
	if !strings.HasPrefix(got, "Dear Hiring Manager,") {
		t.Fatalf("unexpected letter: %q", got)
	}
}

func TestComposeIsDeterministic(t *testing.T) {
	p := &opportunity.Profile{Skills: []any{"Go", 2}}
	o := &opportunity.Opportunity{Title: "T", Platform: "P", RequiredSkills: "Go"}

	if Compose(p, o) != Compose(p, o) {
		t.Fatalf("expected identical output for identical inputs")
	}
}

func TestComposeSkipsBlankSkills(t *testing.T) {
	got := Compose(&opportunity.Profile{Skills: []string{"", " "}}, &opportunity.Opportunity{})
	if !strings.Contains(got, "with skills in various technologies,") {
		t.Fatalf("expected skills fallback, got %q", got)
	}
}
