// Package postgres stores profiles, opportunities and applications in PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/spigell/opportunity-matcher/internal/opportunity"
)

// Repository implements the store backed by a pgx connection pool.
type Repository struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// Config holds PostgreSQL connection configuration.
type Config struct {
	DSN          string
	MaxOpenConns int32
	MaxIdleConns int32
	MaxLifetime  time.Duration
}

// New connects, pings and migrates the database.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Repository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	poolConfig.MaxConns = 25
	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = cfg.MaxOpenConns
	}
	poolConfig.MinConns = 5
	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = cfg.MaxIdleConns
	}
	poolConfig.MaxConnLifetime = 30 * time.Minute
	if cfg.MaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := RunMigrations(ctx, pool, logger); err != nil {
		pool.Close()
		return nil, err
	}

	return &Repository{pool: pool, logger: logger}, nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}

func (r *Repository) GetProfile(ctx context.Context, id string) (*opportunity.Profile, error) {
	var (
		p      opportunity.Profile
		skills []byte
	)
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, email, skills, education, experience, resume_url, resume_name
		FROM profiles WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.Email, &skills, &p.Education, &p.Experience, &p.ResumeURL, &p.ResumeName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	p.Skills = opportunity.UnmarshalSkills(skills)
	return &p, nil
}

func (r *Repository) UpsertProfile(ctx context.Context, p *opportunity.Profile) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}

	skills, err := opportunity.MarshalSkills(p.Skills)
	if err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO profiles (id, name, email, skills, education, experience, resume_url, resume_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			skills = EXCLUDED.skills,
			education = EXCLUDED.education,
			experience = EXCLUDED.experience,
			resume_url = EXCLUDED.resume_url,
			resume_name = EXCLUDED.resume_name,
			updated_at = NOW()
	`, p.ID, p.Name, p.Email, string(skills), p.Education, p.Experience, p.ResumeURL, p.ResumeName)
	if err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}
	return nil
}

const opportunityColumns = `id, title, platform, deadline, category, required_skills,
	company, location, description, application_url`

func (r *Repository) ListOpportunities(ctx context.Context) ([]*opportunity.Opportunity, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+opportunityColumns+` FROM opportunities ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list opportunities: %w", err)
	}
	defer rows.Close()

	var opps []*opportunity.Opportunity
	for rows.Next() {
		opp, err := scanOpportunity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan opportunity: %w", err)
		}
		opps = append(opps, opp)
	}

	return opps, rows.Err()
}

func (r *Repository) GetOpportunity(ctx context.Context, id string) (*opportunity.Opportunity, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+opportunityColumns+` FROM opportunities WHERE id = $1`, id)
	opp, err := scanOpportunity(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get opportunity: %w", err)
	}
	return opp, nil
}

func (r *Repository) UpsertOpportunities(ctx context.Context, opps []*opportunity.Opportunity) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, opp := range opps {
		if opp == nil {
			continue
		}
		if opp.ID == "" {
			opp.ID = uuid.NewString()
		}

		skills, err := opportunity.MarshalSkills(opp.RequiredSkills)
		if err != nil {
			return fmt.Errorf("failed to upsert opportunity %q: %w", opp.Title, err)
		}

		err = tx.QueryRow(ctx, `
			INSERT INTO opportunities (`+opportunityColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (title, platform) DO UPDATE SET
				deadline = EXCLUDED.deadline,
				category = EXCLUDED.category,
				required_skills = EXCLUDED.required_skills,
				company = EXCLUDED.company,
				location = EXCLUDED.location,
				description = EXCLUDED.description,
				application_url = EXCLUDED.application_url
			RETURNING id
		`, opp.ID, opp.Title, opp.Platform, opp.Deadline, opp.Category, string(skills),
			opp.Company, opp.Location, opp.Description, opp.ApplicationURL,
		).Scan(&opp.ID)
		if err != nil {
			return fmt.Errorf("failed to upsert opportunity %q: %w", opp.Title, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit opportunities: %w", err)
	}

	r.logger.Debug("opportunities upserted", zap.Int("count", len(opps)))
	return nil
}

func (r *Repository) ListApplications(ctx context.Context, userID string) ([]*opportunity.Application, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, opportunity_id, status, match_score, cover_letter, applied_at
		FROM applications WHERE user_id = $1
		ORDER BY applied_at DESC NULLS LAST, id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	defer rows.Close()

	var apps []*opportunity.Application
	for rows.Next() {
		var (
			app    opportunity.Application
			status string
		)
		if err := rows.Scan(&app.ID, &app.UserID, &app.OpportunityID, &status,
			&app.MatchScore, &app.CoverLetter, &app.AppliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan application: %w", err)
		}
		app.Status = opportunity.Status(status)
		apps = append(apps, &app)
	}

	return apps, rows.Err()
}

func (r *Repository) CreateApplication(ctx context.Context, app *opportunity.Application) error {
	if app.ID == "" {
		app.ID = uuid.NewString()
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO applications (id, user_id, opportunity_id, status, match_score, cover_letter, applied_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, app.ID, app.UserID, app.OpportunityID, string(app.Status), app.MatchScore, app.CoverLetter, app.AppliedAt)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}
	return nil
}

func scanOpportunity(row pgx.Row) (*opportunity.Opportunity, error) {
	var (
		opp    opportunity.Opportunity
		skills []byte
	)
	if err := row.Scan(&opp.ID, &opp.Title, &opp.Platform, &opp.Deadline, &opp.Category, &skills,
		&opp.Company, &opp.Location, &opp.Description, &opp.ApplicationURL); err != nil {
		return nil, err
	}
	opp.RequiredSkills = opportunity.UnmarshalSkills(skills)
	return &opp, nil
}
