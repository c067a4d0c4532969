package autoapply

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/spigell/opportunity-matcher/internal/opportunity"
)

var testNow = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

type fakeStore struct {
	mu           sync.Mutex
	profiles     map[string]*opportunity.Profile
	opps         []*opportunity.Opportunity
	applications []*opportunity.Application
	failFor      map[string]bool
	listErr      error
	listCalls    int
}

func (f *fakeStore) GetProfile(_ context.Context, id string) (*opportunity.Profile, error) {
	return f.profiles[id], nil
}

func (f *fakeStore) ListOpportunities(context.Context) ([]*opportunity.Opportunity, error) {
	f.mu.Lock()
	f.listCalls++
	f.mu.Unlock()

	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]*opportunity.Opportunity, 0, len(f.opps))
	for _, opp := range f.opps {
		clone := *opp
		out = append(out, &clone)
	}
	return out, nil
}

func (f *fakeStore) GetOpportunity(_ context.Context, id string) (*opportunity.Opportunity, error) {
	for _, opp := range f.opps {
		if opp.ID == id {
			clone := *opp
			return &clone, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) ListApplications(_ context.Context, userID string) ([]*opportunity.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*opportunity.Application
	for _, app := range f.applications {
		if app.UserID == userID {
			out = append(out, app)
		}
	}
	return out, nil
}

func (f *fakeStore) CreateApplication(_ context.Context, app *opportunity.Application) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failFor[app.OpportunityID] {
		return errors.New("duplicate key value violates unique constraint")
	}
	f.applications = append(f.applications, app)
	return nil
}

func newFixture() *fakeStore {
	return &fakeStore{
		profiles: map[string]*opportunity.Profile{
			"u1": {ID: "u1", Name: "Ada", Skills: `["Python","Docker","SQL"]`, ResumeURL: "https://files/cv.pdf"},
			"u2": {ID: "u2", Name: "Bob", Skills: []string{"Python"}},
		},
		opps: []*opportunity.Opportunity{
			{ID: "o1", Title: "Data Intern", Platform: "LinkedIn", Deadline: "2026-07-01", RequiredSkills: []string{"Python", "Docker"}},
			{ID: "o2", Title: "Platform Intern", Platform: "Indeed", Deadline: "2026-07-01", RequiredSkills: []string{"Python", "SQL", "Kubernetes"}},
			{ID: "o3", Title: "Java Intern", Platform: "Indeed", Deadline: "2026-07-01", RequiredSkills: []string{"Java", "Spring"}},
			{ID: "o4", Title: "Old Hackathon", Platform: "Devpost", Deadline: "2026-05-01", RequiredSkills: "Python"},
			{ID: "o5", Title: "Applied Before", Platform: "Devpost", Deadline: "2026-07-01", RequiredSkills: "Python"},
			{ID: "o6", Title: "Broken Insert", Platform: "Devpost", Deadline: "", RequiredSkills: []string{"Python", "Docker"}},
		},
		applications: []*opportunity.Application{
			{ID: "a0", UserID: "u1", OpportunityID: "o5", Status: opportunity.StatusPending},
		},
		failFor: map[string]bool{"o6": true},
	}
}

func newTestService(t *testing.T, store *fakeStore) *Service {
	t.Helper()
	return NewService(store, WithLogger(zaptest.NewLogger(t)), WithClock(func() time.Time { return testNow }))
}

func TestRunAppliesEligibleOpportunities(t *testing.T) {
	store := newFixture()
	svc := newTestService(t, store)

	report, err := svc.Run(context.Background(), "u1")
	require.NoError(t, err)

	require.Len(t, report.Applied, 2)
	assert.Equal(t, "o1", report.Applied[0].OpportunityID)
	assert.Equal(t, 100, report.Applied[0].MatchScore)
	assert.Equal(t, "o2", report.Applied[1].OpportunityID)
	assert.Equal(t, 83, report.Applied[1].MatchScore)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 6, report.Considered)
	assert.Equal(t, "Successfully auto-applied to 2 opportunities!", report.Message())

	for _, app := range report.Applied {
		assert.Equal(t, opportunity.StatusApplied, app.Status)
		assert.True(t, app.AppliedAt.Equal(testNow))
		assert.True(t, strings.HasPrefix(app.CoverLetter, "Dear Hiring Manager,"))
		assert.True(t, strings.HasSuffix(app.CoverLetter, "Sincerely,\nAda"))
	}

	apps, err := store.ListApplications(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, apps, 3)
}

func TestRunTwiceDoesNotDuplicate(t *testing.T) {
	store := newFixture()
	delete(store.failFor, "o6")
	svc := newTestService(t, store)

	first, err := svc.Run(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, first.Applied, 3)

	second, err := svc.Run(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, second.Applied)
	assert.Equal(t, "Successfully auto-applied to 0 opportunities!", second.Message())
}

func TestRunHonoursMinScore(t *testing.T) {
	store := newFixture()
	svc := NewService(store,
		WithConfig(Config{MinScore: 90}),
		WithLogger(zaptest.NewLogger(t)),
		WithClock(func() time.Time { return testNow }),
	)

	assert.Equal(t, 90, svc.MinScore())
	report, err := svc.Run(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, report.Applied, 1)
	assert.Equal(t, "o1", report.Applied[0].OpportunityID)

	assert.Equal(t, DefaultMinScore, NewService(store).MinScore())
}

func TestRunErrors(t *testing.T) {
	tests := []struct {
		name   string
		userID string
		expect error
	}{
		{name: "missing profile", userID: "nobody", expect: ErrProfileNotFound},
		{name: "missing resume", userID: "u2", expect: ErrNoResume},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFixture()
			svc := newTestService(t, store)

			_, err := svc.Run(context.Background(), tt.userID)
			require.ErrorIs(t, err, tt.expect)
			assert.Len(t, store.applications, 1)
		})
	}

	assert.Equal(t, "No resume found. Please upload a resume first.", ErrNoResume.Error())
}

func TestRunPropagatesStoreErrors(t *testing.T) {
	store := newFixture()
	store.listErr = errors.New("connection refused")

	_, err := newTestService(t, store).Run(context.Background(), "u1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestDryRunDoesNotPersist(t *testing.T) {
	store := newFixture()
	svc := newTestService(t, store)

	report, err := svc.DryRun(context.Background(), "u1")
	require.NoError(t, err)

	assert.True(t, report.DryRun)
	require.Len(t, report.Applied, 3)
	assert.Equal(t, "Would auto-apply to 3 opportunities.", report.Message())
	assert.Len(t, store.applications, 1)
}

func TestPreviewReusesPlan(t *testing.T) {
	store := newFixture()
	svc := newTestService(t, store)

	plan, err := svc.Plan(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, 1, store.listCalls)

	report := svc.Preview(plan)
	assert.Equal(t, 1, store.listCalls)
	assert.True(t, report.DryRun)
	assert.Equal(t, plan.Considered, report.Considered)
	require.Len(t, report.Applied, plan.Candidates.Len())
	for i, app := range report.Applied {
		assert.Equal(t, plan.Candidates.Items[i].ID, app.OpportunityID)
		assert.Equal(t, *plan.Candidates.Items[i].MatchScore, app.MatchScore)
	}
	assert.Len(t, store.applications, 1)
}

func TestExecuteStopsWhenCancelled(t *testing.T) {
	store := newFixture()
	svc := newTestService(t, store)

	plan, err := svc.Plan(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, 3, plan.Candidates.Len())
	assert.NotEmpty(t, plan.Filters)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := svc.Execute(ctx, plan)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, report.Applied)
	assert.Len(t, store.applications, 1)
}

func TestApply(t *testing.T) {
	store := newFixture()
	svc := newTestService(t, store)
	ctx := context.Background()

	app, err := svc.Apply(ctx, "u2", "o3")
	require.NoError(t, err)
	assert.Equal(t, 0, app.MatchScore)
	assert.Equal(t, "u2", app.UserID)
	assert.Contains(t, app.CoverLetter, "Java Intern opportunity listed on Indeed")

	_, err = svc.Apply(ctx, "u2", "o3")
	require.ErrorIs(t, err, ErrAlreadyApplied)

	_, err = svc.Apply(ctx, "u2", "missing")
	require.ErrorIs(t, err, ErrOpportunityNotFound)

	_, err = svc.Apply(ctx, "nobody", "o1")
	require.ErrorIs(t, err, ErrProfileNotFound)
}
