package filtering

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/spigell/opportunity-matcher/internal/opportunity"
)

const forceFlagSetMsg = "force flag is set"

type appliedHistoryFilter struct {
	ignore   bool
	disabled bool
	reason   string
}

// NewAppliedHistory creates a filter that removes opportunities the user already has
// an application for, whatever its status.
func NewAppliedHistory(ignore bool) Filter {
	return &appliedHistoryFilter{ignore: ignore}
}

func (f *appliedHistoryFilter) Name() string { return "applied_history" }

func (f *appliedHistoryFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *appliedHistoryFilter) IsEnabled() bool { return !f.disabled }

func (f *appliedHistoryFilter) Validate(*Config) error { return nil }

func (f *appliedHistoryFilter) Apply(_ context.Context, deps Deps, o *opportunity.Opportunities) (*opportunity.Opportunities, Step, error) {
	initial := o.Len()
	if f.ignore {
		deps.logger().Info("ignoring already applied opportunities", zap.String("reason", forceFlagSetMsg))
		return o, result(initial, o), nil
	}

	applied := make([]string, 0, len(deps.Applications))
	for _, app := range deps.Applications {
		if app == nil {
			continue
		}
		applied = append(applied, app.OpportunityID)
	}

	excluded := o.Exclude(opportunity.IDField, applied)
	if len(excluded) > 0 {
		deps.logger().Info("excluding opportunities based on my applications",
			zap.Strings("excluded_opportunities", excluded),
			zap.Int("opportunities_left", o.Len()),
		)
	}

	return o, result(initial, o), nil
}

func (f *appliedHistoryFilter) Status() Status {
	details := map[string]string{
		"exclude_applied": strconv.FormatBool(!f.ignore),
	}
	reason := ""
	if f.ignore {
		reason = "skip requested via flag"
	}
	if f.disabled {
		reason = f.reason
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: reason, Details: details}
}
