package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/spigell/opportunity-matcher/internal/opportunity"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()

	repo, err := New(context.Background(), filepath.Join(t.TempDir(), "nested", "matcher.db"), zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestNewRequiresPath(t *testing.T) {
	_, err := New(context.Background(), "", nil)
	require.Error(t, err)
}

func TestProfileRoundTrip(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.Ping(ctx))

	missing, err := repo.GetProfile(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)

	p := &opportunity.Profile{Name: "Ada", Email: "ada@example.com", Skills: `["Go","SQL"]`, ResumeURL: "https://cv"}
	require.NoError(t, repo.UpsertProfile(ctx, p))
	require.NotEmpty(t, p.ID)

	got, err := repo.GetProfile(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "ada@example.com", got.Email)
	assert.True(t, got.HasResume())
	assert.Equal(t, []string{"Go", "SQL"}, []string(got.SkillSet()))

	p.Skills = "Python"
	require.NoError(t, repo.UpsertProfile(ctx, p))
	got, err = repo.GetProfile(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Python"}, []string(got.SkillSet()))
}

func TestOpportunitiesUpsertByTitleAndPlatform(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	first := &opportunity.Opportunity{Title: "Go Intern", Platform: "LinkedIn", Deadline: "2026-12-01", RequiredSkills: []string{"Go"}}
	other := &opportunity.Opportunity{Title: "Go Intern", Platform: "Indeed", Deadline: "2026-12-02"}
	require.NoError(t, repo.UpsertOpportunities(ctx, []*opportunity.Opportunity{first, nil, other}))
	assert.NotEqual(t, first.ID, other.ID)

	again := &opportunity.Opportunity{Title: "Go Intern", Platform: "LinkedIn", Deadline: "2027-01-01", RequiredSkills: `["Go","Docker"]`}
	require.NoError(t, repo.UpsertOpportunities(ctx, []*opportunity.Opportunity{again}))
	assert.Equal(t, first.ID, again.ID)

	opps, err := repo.ListOpportunities(ctx)
	require.NoError(t, err)
	require.Len(t, opps, 2)
	assert.Equal(t, first.ID, opps[0].ID)
	assert.Equal(t, "2027-01-01", opps[0].Deadline)
	assert.Equal(t, []string{"Go", "Docker"}, []string(opps[0].SkillSet()))
	assert.Empty(t, opps[1].SkillSet())

	got, err := repo.GetOpportunity(ctx, other.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Indeed", got.Platform)

	missing, err := repo.GetOpportunity(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestApplicationsAreUniquePerUser(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	opp := &opportunity.Opportunity{Title: "Hack", Platform: "Devpost"}
	require.NoError(t, repo.UpsertOpportunities(ctx, []*opportunity.Opportunity{opp}))

	older := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repo.CreateApplication(ctx, opportunity.NewApplication("u1", opp, 90, "Dear", older)))
	require.Error(t, repo.CreateApplication(ctx, opportunity.NewApplication("u1", opp, 90, "Dear", older)))

	second := &opportunity.Opportunity{Title: "Workshop", Platform: "Meetup"}
	require.NoError(t, repo.UpsertOpportunities(ctx, []*opportunity.Opportunity{second}))
	pending := &opportunity.Application{UserID: "u1", OpportunityID: second.ID, Status: opportunity.StatusPending}
	require.NoError(t, repo.CreateApplication(ctx, pending))
	require.NotEmpty(t, pending.ID)

	apps, err := repo.ListApplications(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, apps, 2)
	assert.Equal(t, opp.ID, apps[0].OpportunityID)
	assert.Equal(t, opportunity.StatusApplied, apps[0].Status)
	assert.True(t, apps[0].AppliedAt.Equal(older))
	assert.Equal(t, 90, apps[0].MatchScore)
	assert.Nil(t, apps[1].AppliedAt)

	none, err := repo.ListApplications(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, none)
}
