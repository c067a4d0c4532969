package opportunity

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

type ExcludedOpportunities struct {
	Items []*ExcludedOpportunity
}

type ExcludedOpportunity struct {
	ID         string
	Title      string
	Platform   string
	Actor      string `json:",omitempty"`
	Reason     string `json:",omitempty"`
	ExcludedAt time.Time
}

// LoadExcluded reads an exclude file. A missing or empty file yields an empty list.
func LoadExcluded(path string) (*ExcludedOpportunities, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return &ExcludedOpportunities{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, err
	}

	if stat.Size() == 0 {
		return &ExcludedOpportunities{}, nil
	}

	var excluded ExcludedOpportunities
	if err := json.NewDecoder(file).Decode(&excluded); err != nil {
		return nil, fmt.Errorf("decode exclude file %s: %w", path, err)
	}
	return &excluded, nil
}

func (e *ExcludedOpportunities) Append(other *ExcludedOpportunities) {
	if other == nil {
		return
	}
	e.Items = append(e.Items, other.Items...)
}

func (e *ExcludedOpportunities) IDs() []string {
	ids := make([]string, 0, len(e.Items))
	for _, item := range e.Items {
		ids = append(ids, item.ID)
	}
	return ids
}

func (e *ExcludedOpportunities) ToFile(path string) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	return enc.Encode(e)
}
