package matching

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

var ErrEmptyTaxonomy = errors.New("taxonomy has no groups")

// TechnologyGroup is a named cluster of related lower-case skill tokens.
type TechnologyGroup struct {
	Name   string   `yaml:"name" json:"name"`
	Tokens []string `yaml:"tokens" json:"tokens"`
}

// Taxonomy is an ordered list of technology groups. Order matters: the first
// qualifying group grants partial credit.
type Taxonomy []TechnologyGroup

type taxonomyFile struct {
	Groups []TechnologyGroup `yaml:"groups"`
}

// DefaultTaxonomy returns a fresh copy of the built-in technology groups.
func DefaultTaxonomy() Taxonomy {
	return Taxonomy{
		{Name: "javascript", Tokens: []string{"js", "es6", "typescript", "ts", "node", "nodejs", "react", "vue", "angular", "jquery"}},
		{Name: "frontend", Tokens: []string{"html", "css", "sass", "scss", "less", "bootstrap", "tailwind", "react", "vue", "angular", "svelte"}},
		{Name: "backend", Tokens: []string{"node", "express", "django", "flask", "ruby", "rails", "php", "laravel", "spring", "asp.net"}},
		{Name: "database", Tokens: []string{"sql", "mysql", "postgresql", "postgres", "mongodb", "nosql", "firebase", "supabase", "oracle", "redis"}},
		{Name: "mobile", Tokens: []string{"android", "ios", "swift", "kotlin", "flutter", "react native", "xamarin"}},
		{Name: "devops", Tokens: []string{"docker", "kubernetes", "aws", "azure", "gcp", "ci/cd", "jenkins", "github actions"}},
		{Name: "ai", Tokens: []string{"machine learning", "ml", "deep learning", "dl", "tensorflow", "pytorch", "nlp", "computer vision", "cv", "ai"}},
		{Name: "python", Tokens: []string{"django", "flask", "fastapi", "numpy", "pandas", "scikit-learn", "pytorch", "tensorflow"}},
	}
}

// LoadTaxonomy reads a YAML taxonomy of the form `groups: [{name, tokens}]`.
func LoadTaxonomy(path string) (Taxonomy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read taxonomy %s: %w", path, err)
	}

	return ParseTaxonomy(data)
}

// ParseTaxonomy decodes YAML taxonomy data. Tokens are lower-cased and blank
// tokens are dropped; groups without a name are rejected.
func ParseTaxonomy(data []byte) (Taxonomy, error) {
	var file taxonomyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode taxonomy: %w", err)
	}

	if len(file.Groups) == 0 {
		return nil, ErrEmptyTaxonomy
	}

	out := make(Taxonomy, 0, len(file.Groups))
	for i, group := range file.Groups {
		name := strings.TrimSpace(group.Name)
		if name == "" {
			return nil, fmt.Errorf("group #%d: name is required", i)
		}

		out = append(out, TechnologyGroup{Name: name, Tokens: cleanTokens(group.Tokens)})
	}

	return out, nil
}

// Clone returns a deep copy so callers cannot mutate a scorer's groups.
func (t Taxonomy) Clone() Taxonomy {
	out := make(Taxonomy, len(t))
	for i, group := range t {
		out[i] = TechnologyGroup{Name: group.Name, Tokens: append([]string(nil), group.Tokens...)}
	}
	return out
}

func cleanTokens(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, token := range tokens {
		token = strings.ToLower(strings.TrimSpace(token))
		if token == "" {
			continue
		}
		out = append(out, token)
	}
	return out
}
