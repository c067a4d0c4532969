package filtering

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/opportunity-matcher/internal/opportunity"
)

type categoriesFilter struct {
	categories []string
	platforms  []string
	disabled   bool
	reason     string
}

// NewCategories creates a filter that removes opportunities by categories and
// platforms listed in the config.
func NewCategories() Filter {
	return &categoriesFilter{}
}

func (f *categoriesFilter) Name() string { return "categories" }

func (f *categoriesFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *categoriesFilter) IsEnabled() bool { return !f.disabled }

func (f *categoriesFilter) Validate(cfg *Config) error {
	f.categories, f.platforms = nil, nil
	if cfg != nil {
		f.categories = append(f.categories, cfg.ExcludedCategories...)
		f.platforms = append(f.platforms, cfg.ExcludedPlatforms...)
	}
	return nil
}

func (f *categoriesFilter) Apply(_ context.Context, deps Deps, o *opportunity.Opportunities) (*opportunity.Opportunities, Step, error) {
	initial := o.Len()
	if len(f.categories) == 0 && len(f.platforms) == 0 {
		return o, result(initial, o), nil
	}

	excluded := o.Exclude(opportunity.CategoryField, f.categories)
	excluded = append(excluded, o.Exclude(opportunity.PlatformField, f.platforms)...)
	if len(excluded) > 0 {
		deps.logger().Info("excluding opportunities by categories and platforms",
			zap.Strings("excluded_categories", f.categories),
			zap.Strings("excluded_platforms", f.platforms),
			zap.Strings("excluded_opportunities", excluded),
			zap.Int("opportunities_left", o.Len()),
		)
	}

	return o, result(initial, o), nil
}

func (f *categoriesFilter) Status() Status {
	details := map[string]string{}
	if len(f.categories) > 0 {
		details["categories"] = strings.Join(f.categories, ",")
	}
	if len(f.platforms) > 0 {
		details["platforms"] = strings.Join(f.platforms, ",")
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}
