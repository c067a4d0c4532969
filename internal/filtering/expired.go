package filtering

import (
	"context"

	"go.uber.org/zap"

	"github.com/spigell/opportunity-matcher/internal/opportunity"
)

type expiredFilter struct {
	disabled bool
	reason   string
}

// NewExpired creates a filter that removes opportunities whose deadline has passed.
func NewExpired() Filter {
	return &expiredFilter{}
}

func (f *expiredFilter) Name() string { return "expired" }

func (f *expiredFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *expiredFilter) IsEnabled() bool { return !f.disabled }

func (f *expiredFilter) Validate(*Config) error { return nil }

func (f *expiredFilter) Apply(_ context.Context, deps Deps, o *opportunity.Opportunities) (*opportunity.Opportunities, Step, error) {
	initial := o.Len()
	now := deps.now()

	excluded := o.ExcludeFunc(func(item *opportunity.Opportunity) bool {
		return item.Expired(now)
	})
	if len(excluded) > 0 {
		deps.logger().Info("excluding expired opportunities",
			zap.Strings("excluded_opportunities", excluded),
			zap.Int("opportunities_left", o.Len()),
		)
	}

	return o, result(initial, o), nil
}

func (f *expiredFilter) Status() Status {
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason}
}
