package filtering

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/opportunity-matcher/internal/opportunity"
)

type excludeFileFilter struct {
	path     string
	disabled bool
	reason   string
}

// NewExcludeFile creates a filter that removes opportunities listed in the exclude file.
func NewExcludeFile() Filter {
	return &excludeFileFilter{}
}

func (f *excludeFileFilter) Name() string { return "exclude_file" }

func (f *excludeFileFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *excludeFileFilter) IsEnabled() bool { return !f.disabled }

func (f *excludeFileFilter) Validate(cfg *Config) error {
	f.path = ""
	if cfg != nil {
		f.path = strings.TrimSpace(cfg.ExcludeFile)
	}
	return nil
}

func (f *excludeFileFilter) Apply(_ context.Context, deps Deps, o *opportunity.Opportunities) (*opportunity.Opportunities, Step, error) {
	initial := o.Len()
	if f.path == "" {
		return o, result(initial, o), nil
	}

	excluded, err := opportunity.LoadExcluded(f.path)
	if err != nil {
		return o, Step{}, fmt.Errorf("getting excluded opportunities from file: %w", err)
	}

	removed := o.Exclude(opportunity.IDField, excluded.IDs())
	if len(removed) > 0 {
		deps.logger().Info("excluding opportunities based on exclude file",
			zap.String("path", f.path),
			zap.Strings("excluded_opportunities", removed),
			zap.Int("opportunities_left", o.Len()),
		)
	}

	return o, result(initial, o), nil
}

func (f *excludeFileFilter) Status() Status {
	details := map[string]string{}
	if f.path != "" {
		details["path"] = f.path
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}
