// Package skills turns loosely typed skill data into a canonical SkillSet.
package skills

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

var (
	ErrEmptySkill     = errors.New("skill must not be empty")
	ErrDuplicateSkill = errors.New("skill is already added")
)

// SkillSet is an ordered list of free-text skill labels.
// Labels keep their stored casing; comparisons are case-insensitive.
type SkillSet []string

// Kind names the shape a raw skill value arrived in.
type Kind int

const (
	KindAbsent Kind = iota
	KindList
	KindText
	KindScalar
	KindStructured
)

func (k Kind) String() string {
	switch k {
	case KindAbsent:
		return "absent"
	case KindList:
		return "list"
	case KindText:
		return "text"
	case KindScalar:
		return "scalar"
	case KindStructured:
		return "structured"
	default:
		return "unknown"
	}
}

// Source is a raw skill value tagged with its shape.
type Source struct {
	Kind Kind
	Raw  any
}

// Classify inspects raw and reports which normalization rule applies to it.
func Classify(raw any) Source {
	switch v := raw.(type) {
	case nil:
		return Source{Kind: KindAbsent}
	case string:
		if strings.TrimSpace(v) == "" {
			return Source{Kind: KindAbsent}
		}
		return Source{Kind: KindText, Raw: v}
	case []byte:
		if len(bytes.TrimSpace(v)) == 0 {
			return Source{Kind: KindAbsent}
		}
		return Source{Kind: KindText, Raw: string(v)}
	case json.RawMessage:
		if len(bytes.TrimSpace(v)) == 0 {
			return Source{Kind: KindAbsent}
		}
		return Source{Kind: KindText, Raw: string(v)}
	case json.Number:
		return Source{Kind: KindScalar, Raw: v}
	}

	rv := reflect.ValueOf(raw)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return Source{Kind: KindAbsent}
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Len() == 0 {
			return Source{Kind: KindAbsent}
		}
		return Source{Kind: KindList, Raw: rv.Interface()}
	case reflect.String:
		if strings.TrimSpace(rv.String()) == "" {
			return Source{Kind: KindAbsent}
		}
		return Source{Kind: KindText, Raw: rv.String()}
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return Source{Kind: KindScalar, Raw: rv.Interface()}
	default:
		return Source{Kind: KindStructured, Raw: rv.Interface()}
	}
}

// Normalize converts any raw skill value into a SkillSet. It never fails:
// lists pass through (non-string elements are stringified, nil elements dropped),
// text holding a JSON array is decoded, any other text or scalar becomes a
// single-element set, and everything else yields an empty set.
func Normalize(raw any) SkillSet {
	if rm, ok := raw.(json.RawMessage); ok {
		return fromRawJSON(rm)
	}

	src := Classify(raw)
	switch src.Kind {
	case KindList:
		return fromList(src.Raw)
	case KindText:
		return fromText(src.Raw.(string))
	case KindScalar:
		return SkillSet{formatScalar(src.Raw)}
	default:
		return SkillSet{}
	}
}

func fromRawJSON(rm json.RawMessage) SkillSet {
	if len(bytes.TrimSpace(rm)) == 0 {
		return SkillSet{}
	}

	decoded, err := decodeJSON(string(rm))
	if err != nil {
		return fromText(string(rm))
	}

	return Normalize(decoded)
}

func fromText(text string) SkillSet {
	decoded, err := decodeJSON(text)
	if err != nil {
		return SkillSet{text}
	}

	items, ok := decoded.([]any)
	if !ok {
		return SkillSet{text}
	}

	return fromList(items)
}

func fromList(raw any) SkillSet {
	switch items := raw.(type) {
	case SkillSet:
		return append(SkillSet{}, items...)
	case []string:
		return append(SkillSet{}, items...)
	case []any:
		out := make(SkillSet, 0, len(items))
		for _, item := range items {
			if s, ok := stringify(item); ok {
				out = append(out, s)
			}
		}
		return out
	}

	rv := reflect.ValueOf(raw)
	out := make(SkillSet, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		if s, ok := stringify(rv.Index(i).Interface()); ok {
			out = append(out, s)
		}
	}
	return out
}

func decodeJSON(text string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	var decoded any
	if err := dec.Decode(&decoded); err != nil {
		return nil, err
	}

	// Trailing garbage after the first value means the text is not JSON.
	if dec.More() {
		return nil, fmt.Errorf("unexpected data after json value")
	}

	return decoded, nil
}

func stringify(v any) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", false
	case string:
		return val, true
	case json.Number:
		return val.String(), true
	case fmt.Stringer:
		return val.String(), true
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return "", false
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.String:
		return rv.String(), true
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return formatScalar(rv.Interface()), true
	}

	encoded, err := json.Marshal(rv.Interface())
	if err != nil {
		return fmt.Sprintf("%v", v), true
	}
	return string(encoded), true
}

func formatScalar(v any) string {
	if n, ok := v.(json.Number); ok {
		return n.String()
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(rv.Uint(), 10)
	case reflect.Float32:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 32)
	case reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Lower returns a lower-cased copy of the set.
func Lower(set SkillSet) SkillSet {
	out := make(SkillSet, len(set))
	for i, s := range set {
		out[i] = strings.ToLower(s)
	}
	return out
}

// Join joins the skills with sep or returns fallback for an empty set.
func (s SkillSet) Join(sep, fallback string) string {
	if len(s) == 0 {
		return fallback
	}
	return strings.Join(s, sep)
}

// Contains reports whether skill is in the set, ignoring case and surrounding whitespace.
func (s SkillSet) Contains(skill string) bool {
	skill = strings.TrimSpace(skill)
	for _, existing := range s {
		if strings.EqualFold(strings.TrimSpace(existing), skill) {
			return true
		}
	}
	return false
}

// Add appends a trimmed skill to a copy of set.
func Add(set SkillSet, skill string) (SkillSet, error) {
	skill = strings.TrimSpace(skill)
	if skill == "" {
		return set, ErrEmptySkill
	}
	if set.Contains(skill) {
		return set, fmt.Errorf("%q: %w", skill, ErrDuplicateSkill)
	}

	out := make(SkillSet, 0, len(set)+1)
	out = append(out, set...)
	return append(out, skill), nil
}

// Remove returns a copy of set without skill (case-insensitive).
func Remove(set SkillSet, skill string) SkillSet {
	skill = strings.TrimSpace(skill)
	out := make(SkillSet, 0, len(set))
	for _, existing := range set {
		if strings.EqualFold(strings.TrimSpace(existing), skill) {
			continue
		}
		out = append(out, existing)
	}
	return out
}
