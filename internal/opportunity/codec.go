package opportunity

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// MarshalSkills encodes a raw skill value for a JSON column. Absent skills become
// an empty array; text holding a JSON array is stored as that array, any other
// text as a JSON string, so reading it back normalizes to the same SkillSet.
func MarshalSkills(raw any) ([]byte, error) {
	switch v := raw.(type) {
	case nil:
		return []byte("[]"), nil
	case json.RawMessage:
		if trimmed := bytes.TrimSpace(v); len(trimmed) > 0 && json.Valid(trimmed) {
			return append([]byte(nil), trimmed...), nil
		}
		return json.Marshal(string(v))
	case string:
		if isJSONArray([]byte(v)) {
			return bytes.TrimSpace([]byte(v)), nil
		}
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("marshal skills: %w", err)
	}
	return data, nil
}

// UnmarshalSkills returns the stored column as a raw value, left for the
// normalizer to interpret.
func UnmarshalSkills(data []byte) any {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	return json.RawMessage(append([]byte(nil), data...))
}

func isJSONArray(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && trimmed[0] == '[' && json.Valid(trimmed)
}
