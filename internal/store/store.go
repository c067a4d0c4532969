// Package store defines the persistence collaborators and opens a backend by DSN.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/opportunity-matcher/internal/opportunity"
	"github.com/spigell/opportunity-matcher/internal/store/postgres"
	"github.com/spigell/opportunity-matcher/internal/store/sqlite"
)

var ErrUnsupportedDSN = errors.New("unsupported database dsn")

// Repository is the storage used by the API, the CLI and the auto-apply workflow.
// Lookups of missing records return nil, nil.
type Repository interface {
	// Profiles
	GetProfile(ctx context.Context, id string) (*opportunity.Profile, error)
	UpsertProfile(ctx context.Context, p *opportunity.Profile) error

	// Opportunities
	ListOpportunities(ctx context.Context) ([]*opportunity.Opportunity, error)
	GetOpportunity(ctx context.Context, id string) (*opportunity.Opportunity, error)
	// UpsertOpportunities inserts or updates by (title, platform) and fills in ids.
	UpsertOpportunities(ctx context.Context, opps []*opportunity.Opportunity) error

	// Applications
	ListApplications(ctx context.Context, userID string) ([]*opportunity.Application, error)
	CreateApplication(ctx context.Context, app *opportunity.Application) error

	// Health
	Ping(ctx context.Context) error
	Close() error
}

var (
	_ Repository = (*postgres.Repository)(nil)
	_ Repository = (*sqlite.Repository)(nil)
)

// Open connects to the backend named by dsn: postgres:// and postgresql://
// URLs use Postgres, sqlite:// URLs and bare paths use SQLite.
func Open(ctx context.Context, dsn string, logger *zap.Logger) (Repository, error) {
	dsn = strings.TrimSpace(dsn)
	if logger == nil {
		logger = zap.NewNop()
	}

	switch {
	case dsn == "":
		return nil, fmt.Errorf("%w: empty", ErrUnsupportedDSN)
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		repo, err := postgres.New(ctx, postgres.Config{DSN: dsn}, logger)
		if err != nil {
			return nil, err
		}
		return repo, nil
	case strings.HasPrefix(dsn, "sqlite://"):
		return openSQLite(ctx, strings.TrimPrefix(dsn, "sqlite://"), logger)
	case strings.Contains(dsn, "://"):
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDSN, schemeOf(dsn))
	default:
		return openSQLite(ctx, dsn, logger)
	}
}

func openSQLite(ctx context.Context, path string, logger *zap.Logger) (Repository, error) {
	repo, err := sqlite.New(ctx, path, logger)
	if err != nil {
		return nil, err
	}
	return repo, nil
}

func schemeOf(dsn string) string {
	if idx := strings.Index(dsn, "://"); idx > 0 {
		return dsn[:idx]
	}
	return dsn
}
