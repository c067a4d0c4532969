package opportunity

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

type Opportunities struct {
	Items []*Opportunity
}

func NewOpportunities(items []*Opportunity) *Opportunities {
	return &Opportunities{Items: items}
}

func (o *Opportunities) Len() int {
	return len(o.Items)
}

func (o *Opportunities) IDs() []string {
	ids := make([]string, 0, len(o.Items))
	for _, item := range o.Items {
		ids = append(ids, item.ID)
	}
	return ids
}

func (o *Opportunities) FindByID(id string) *Opportunity {
	for _, item := range o.Items {
		if item.ID == id {
			return item
		}
	}
	return nil
}

// Exclude removes every opportunity whose field equals one of targets and
// returns the removed ids. Order of the remaining items is preserved.
func (o *Opportunities) Exclude(field string, targets []string) []string {
	if len(targets) == 0 {
		return nil
	}

	set := make(map[string]struct{}, len(targets))
	for _, target := range targets {
		set[target] = struct{}{}
	}

	return o.ExcludeFunc(func(item *Opportunity) bool {
		_, ok := set[item.GetStringField(field)]
		return ok
	})
}

// ExcludeFunc removes every opportunity for which drop returns true.
func (o *Opportunities) ExcludeFunc(drop func(*Opportunity) bool) []string {
	var excluded []string
	kept := o.Items[:0]
	for _, item := range o.Items {
		if drop(item) {
			excluded = append(excluded, item.ID)
			continue
		}
		kept = append(kept, item)
	}
	// Clear the tail so dropped items can be collected.
	for i := len(kept); i < len(o.Items); i++ {
		o.Items[i] = nil
	}
	o.Items = kept
	return excluded
}

// ReportByCategory groups a printable summary of every opportunity by category.
func (o *Opportunities) ReportByCategory() map[string][]map[string]string {
	report := make(map[string][]map[string]string)
	for _, item := range o.Items {
		key := item.Category
		if key == "" {
			key = "uncategorized"
		}

		entry := map[string]string{
			"title":    item.Title,
			"platform": item.Platform,
			"company":  item.Company,
			"deadline": item.Deadline,
			"url":      item.ApplicationURL,
			"skills":   item.SkillSet().Join(", ", ""),
		}
		if item.MatchScore != nil {
			entry["match_score"] = strconv.Itoa(*item.MatchScore)
		}
		if item.AI != nil {
			if item.AI.Error != "" {
				entry["ai_error"] = item.AI.Error
			} else {
				entry["ai_fit"] = strconv.FormatBool(item.AI.Fit)
				entry["ai_score"] = strconv.FormatFloat(item.AI.Score, 'f', -1, 64)
				entry["ai_reason"] = item.AI.Reason
			}
		}

		report[key] = append(report[key], entry)
	}
	return report
}

func (o *Opportunities) DumpToTmpFile() (string, error) {
	file, err := os.CreateTemp("", "opportunities_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(o); err != nil {
		return "", fmt.Errorf("encode opportunities: %w", err)
	}
	return file.Name(), nil
}

// ToExcluded records every opportunity as excluded by actor.
func (o *Opportunities) ToExcluded(actor, reason string, now time.Time) *ExcludedOpportunities {
	excluded := &ExcludedOpportunities{}
	for _, item := range o.Items {
		excluded.Items = append(excluded.Items, &ExcludedOpportunity{
			ID:         item.ID,
			Title:      item.Title,
			Platform:   item.Platform,
			Actor:      actor,
			Reason:     reason,
			ExcludedAt: now.UTC(),
		})
	}
	return excluded
}
