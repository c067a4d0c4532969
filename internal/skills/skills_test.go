package skills

import (
	"encoding/json"
	"errors"
	"slices"
	"testing"
)

type stringer struct{ v string }

func (s stringer) String() string { return s.v }

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  any
		expect SkillSet
	}{
		{name: "nil", input: nil, expect: SkillSet{}},
		{name: "empty string", input: "", expect: SkillSet{}},
		{name: "whitespace string", input: "   ", expect: SkillSet{}},
		{name: "empty list", input: []string{}, expect: SkillSet{}},
		{name: "nil pointer", input: (*string)(nil), expect: SkillSet{}},
		{name: "string list", input: []string{"React", "CSS"}, expect: SkillSet{"React", "CSS"}},
		{name: "skill set", input: SkillSet{"Go"}, expect: SkillSet{"Go"}},
		{name: "duplicates kept", input: []string{"Go", "Go"}, expect: SkillSet{"Go", "Go"}},
		{name: "mixed list", input: []any{"Go", 3, true, nil, 1.5}, expect: SkillSet{"Go", "3", "true", "1.5"}},
		{name: "nested element", input: []any{map[string]any{"name": "Go"}}, expect: SkillSet{`{"name":"Go"}`}},
		{name: "stringer element", input: []any{stringer{v: "Rust"}}, expect: SkillSet{"Rust"}},
		{name: "int array", input: [2]int{1, 2}, expect: SkillSet{"1", "2"}},
		{name: "json array text", input: `["React","CSS"]`, expect: SkillSet{"React", "CSS"}},
		{name: "json array with numbers", input: `["Go", 2, null]`, expect: SkillSet{"Go", "2"}},
		{name: "empty json array", input: `[]`, expect: SkillSet{}},
		{name: "plain text", input: "Python", expect: SkillSet{"Python"}},
		{name: "json object text", input: `{"a":1}`, expect: SkillSet{`{"a":1}`}},
		{name: "json number text", input: "42", expect: SkillSet{"42"}},
		{name: "malformed json", input: `["React",`, expect: SkillSet{`["React",`}},
		{name: "trailing garbage", input: `["Go"] extra`, expect: SkillSet{`["Go"] extra`}},
		{name: "bytes", input: []byte(`["Go"]`), expect: SkillSet{"Go"}},
		{name: "raw message array", input: json.RawMessage(`["Go","SQL"]`), expect: SkillSet{"Go", "SQL"}},
		{name: "raw message null", input: json.RawMessage(`null`), expect: SkillSet{}},
		{name: "raw message string", input: json.RawMessage(`"Go"`), expect: SkillSet{"Go"}},
		{name: "int", input: 7, expect: SkillSet{"7"}},
		{name: "float", input: 2.5, expect: SkillSet{"2.5"}},
		{name: "bool", input: false, expect: SkillSet{"false"}},
		{name: "json number", input: json.Number("12"), expect: SkillSet{"12"}},
		{name: "map", input: map[string]any{"skills": []string{"Go"}}, expect: SkillSet{}},
		{name: "struct", input: struct{ Name string }{Name: "Go"}, expect: SkillSet{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := Normalize(tt.input)
			if got == nil {
				t.Fatalf("expected non-nil skill set")
			}
			if !slices.Equal(got, tt.expect) {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
		})
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	t.Parallel()

	inputs := []any{
		nil, "", "Python", `["React","CSS"]`, `{"a":1}`, `"quoted"`, 3, true,
		[]any{"Go", 1, nil}, map[string]any{"x": 1}, []string{"", "Go"}, json.RawMessage(`[1]`),
	}

	for _, input := range inputs {
		once := Normalize(input)
		twice := Normalize(once)
		if !slices.Equal(once, twice) {
			t.Fatalf("normalize is not idempotent for %#v: %q != %q", input, once, twice)
		}
	}
}

func TestNormalizeDoesNotAliasInput(t *testing.T) {
	input := []string{"Go"}
	out := Normalize(input)
	out[0] = "Rust"

	if input[0] != "Go" {
		t.Fatalf("expected input to stay untouched, got %q", input[0])
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input  any
		expect Kind
	}{
		{input: nil, expect: KindAbsent},
		{input: "", expect: KindAbsent},
		{input: []string{"Go"}, expect: KindList},
		{input: `["Go"]`, expect: KindText},
		{input: 1, expect: KindScalar},
		{input: map[string]any{}, expect: KindStructured},
	}

	for _, tt := range tests {
		if got := Classify(tt.input).Kind; got != tt.expect {
			t.Fatalf("classify %#v: expected %s, got %s", tt.input, tt.expect, got)
		}
	}
}

func TestSkillSetHelpers(t *testing.T) {
	set := SkillSet{"React", "Node.js"}

	if got := set.Join(", ", "none"); got != "React, Node.js" {
		t.Fatalf("unexpected join: %q", got)
	}
	if got := (SkillSet{}).Join(", ", "none"); got != "none" {
		t.Fatalf("expected fallback, got %q", got)
	}
	if !set.Contains(" react ") {
		t.Fatalf("expected case-insensitive contains")
	}
	if got := Lower(set); !slices.Equal(got, SkillSet{"react", "node.js"}) {
		t.Fatalf("unexpected lower: %q", got)
	}
	if set[0] != "React" {
		t.Fatalf("lower must not mutate the input")
	}
}

func TestAddRemove(t *testing.T) {
	set := SkillSet{"Go"}

	set, err := Add(set, "  Docker ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(set, SkillSet{"Go", "Docker"}) {
		t.Fatalf("unexpected set: %q", set)
	}

	if _, err := Add(set, "docker"); !errors.Is(err, ErrDuplicateSkill) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	if _, err := Add(set, "  "); !errors.Is(err, ErrEmptySkill) {
		t.Fatalf("expected empty error, got %v", err)
	}

	set = Remove(set, "GO")
	if !slices.Equal(set, SkillSet{"Docker"}) {
		t.Fatalf("unexpected set after remove: %q", set)
	}
}
