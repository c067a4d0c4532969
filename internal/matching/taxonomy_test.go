package matching

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestDefaultTaxonomyShape(t *testing.T) {
	tax := DefaultTaxonomy()

	names := make([]string, 0, len(tax))
	for _, group := range tax {
		names = append(names, group.Name)
		for _, token := range group.Tokens {
			if token == "" {
				t.Fatalf("group %s has an empty token", group.Name)
			}
		}
	}

	expect := []string{"javascript", "frontend", "backend", "database", "mobile", "devops", "ai", "python"}
	if !reflect.DeepEqual(names, expect) {
		t.Fatalf("unexpected group order: %v", names)
	}
}

func TestDefaultTaxonomyReturnsCopy(t *testing.T) {
	a := DefaultTaxonomy()
	a[0].Tokens[0] = "changed"

	if DefaultTaxonomy()[0].Tokens[0] != "js" {
		t.Fatalf("default taxonomy must not be shared")
	}
}

func TestLoadTaxonomyRoundTripsDefault(t *testing.T) {
	data, err := yaml.Marshal(taxonomyFile{Groups: DefaultTaxonomy()})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	path := filepath.Join(t.TempDir(), "taxonomy.yaml")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	loaded, err := LoadTaxonomy(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	fromFile := NewScorer(WithTaxonomy(loaded))
	builtin := NewScorer()
	cases := [][2][]string{
		{{"Vue"}, {"React"}},
		{{"Docker"}, {"Kubernetes", "AWS"}},
		{{"Photoshop"}, {"React", "Node.js"}},
	}
	for _, c := range cases {
		if fromFile.Score(c[0], c[1]) != builtin.Score(c[0], c[1]) {
			t.Fatalf("loaded taxonomy scores %v vs %v differently", c[0], c[1])
		}
	}
}

func TestParseTaxonomy(t *testing.T) {
	tax, err := ParseTaxonomy([]byte(`
groups:
  - name: streaming
    tokens: [" Kafka ", "", "NATS"]
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(tax[0].Tokens, []string{"kafka", "nats"}) {
		t.Fatalf("unexpected tokens: %q", tax[0].Tokens)
	}

	if _, err := ParseTaxonomy([]byte("groups: []")); !errors.Is(err, ErrEmptyTaxonomy) {
		t.Fatalf("expected empty taxonomy error, got %v", err)
	}
	if _, err := ParseTaxonomy([]byte("groups:\n  - tokens: [go]\n")); err == nil {
		t.Fatalf("expected error for unnamed group")
	}
	if _, err := ParseTaxonomy([]byte("groups: [")); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestLoadTaxonomyMissingFile(t *testing.T) {
	if _, err := LoadTaxonomy(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
