// Package sqlite stores profiles, opportunities and applications in a local
// SQLite file for single-user CLI runs.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	_ "modernc.org/sqlite"

	"github.com/spigell/opportunity-matcher/internal/opportunity"
)

const schema = `
CREATE TABLE IF NOT EXISTS profiles (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL DEFAULT '',
	email       TEXT NOT NULL DEFAULT '',
	skills      TEXT NOT NULL DEFAULT '[]',
	education   TEXT NOT NULL DEFAULT '',
	experience  TEXT NOT NULL DEFAULT '',
	resume_url  TEXT NOT NULL DEFAULT '',
	resume_name TEXT NOT NULL DEFAULT '',
	updated_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS opportunities (
	id              TEXT PRIMARY KEY,
	title           TEXT NOT NULL,
	platform        TEXT NOT NULL,
	deadline        TEXT NOT NULL DEFAULT '',
	category        TEXT NOT NULL DEFAULT '',
	required_skills TEXT NOT NULL DEFAULT '[]',
	company         TEXT NOT NULL DEFAULT '',
	location        TEXT NOT NULL DEFAULT '',
	description     TEXT NOT NULL DEFAULT '',
	application_url TEXT NOT NULL DEFAULT '',
	created_at      TEXT NOT NULL,
	UNIQUE (title, platform)
);

CREATE TABLE IF NOT EXISTS applications (
	id             TEXT PRIMARY KEY,
	user_id        TEXT NOT NULL,
	opportunity_id TEXT NOT NULL,
	status         TEXT NOT NULL DEFAULT 'pending',
	match_score    INTEGER NOT NULL DEFAULT 0,
	cover_letter   TEXT NOT NULL DEFAULT '',
	applied_at     TEXT,
	UNIQUE (user_id, opportunity_id)
);

CREATE INDEX IF NOT EXISTS idx_applications_user_id ON applications (user_id);
`

// Repository implements the store on top of database/sql and modernc.org/sqlite.
type Repository struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

// New opens (or creates) the database file at path and ensures the schema.
func New(ctx context.Context, path string, logger *zap.Logger) (*Repository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if path == "" {
		return nil, fmt.Errorf("sqlite: path is required")
	}

	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("sqlite: mkdir %s: %w", dir, err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open db: %w", err)
	}
	// SQLite: single writer
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: init schema: %w", err)
	}

	logger.Debug("sqlite store ready", zap.String("path", path))
	return &Repository{db: db, logger: logger, now: time.Now}, nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) GetProfile(ctx context.Context, id string) (*opportunity.Profile, error) {
	var (
		p      opportunity.Profile
		skills string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, email, skills, education, experience, resume_url, resume_name
		FROM profiles WHERE id = ?
	`, id).Scan(&p.ID, &p.Name, &p.Email, &skills, &p.Education, &p.Experience, &p.ResumeURL, &p.ResumeName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("sqlite: get profile: %w", err)
	}

	p.Skills = opportunity.UnmarshalSkills([]byte(skills))
	return &p, nil
}

func (r *Repository) UpsertProfile(ctx context.Context, p *opportunity.Profile) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}

	skills, err := opportunity.MarshalSkills(p.Skills)
	if err != nil {
		return fmt.Errorf("sqlite: upsert profile: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO profiles (id, name, email, skills, education, experience, resume_url, resume_name, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			skills = excluded.skills,
			education = excluded.education,
			experience = excluded.experience,
			resume_url = excluded.resume_url,
			resume_name = excluded.resume_name,
			updated_at = excluded.updated_at
	`, p.ID, p.Name, p.Email, string(skills), p.Education, p.Experience, p.ResumeURL, p.ResumeName, r.timestamp())
	if err != nil {
		return fmt.Errorf("sqlite: upsert profile: %w", err)
	}
	return nil
}

const opportunityColumns = `id, title, platform, deadline, category, required_skills,
	company, location, description, application_url`

func (r *Repository) ListOpportunities(ctx context.Context) ([]*opportunity.Opportunity, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+opportunityColumns+` FROM opportunities ORDER BY created_at, rowid`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list opportunities: %w", err)
	}
	defer rows.Close()

	var opps []*opportunity.Opportunity
	for rows.Next() {
		opp, err := scanOpportunity(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan opportunity: %w", err)
		}
		opps = append(opps, opp)
	}

	return opps, rows.Err()
}

func (r *Repository) GetOpportunity(ctx context.Context, id string) (*opportunity.Opportunity, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+opportunityColumns+` FROM opportunities WHERE id = ?`, id)
	opp, err := scanOpportunity(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("sqlite: get opportunity: %w", err)
	}
	return opp, nil
}

func (r *Repository) UpsertOpportunities(ctx context.Context, opps []*opportunity.Opportunity) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	created := r.timestamp()
	for _, opp := range opps {
		if opp == nil {
			continue
		}
		if opp.ID == "" {
			opp.ID = uuid.NewString()
		}

		skills, err := opportunity.MarshalSkills(opp.RequiredSkills)
		if err != nil {
			return fmt.Errorf("sqlite: upsert opportunity %q: %w", opp.Title, err)
		}

		err = tx.QueryRowContext(ctx, `
			INSERT INTO opportunities (`+opportunityColumns+`, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (title, platform) DO UPDATE SET
				deadline = excluded.deadline,
				category = excluded.category,
				required_skills = excluded.required_skills,
				company = excluded.company,
				location = excluded.location,
				description = excluded.description,
				application_url = excluded.application_url
			RETURNING id
		`, opp.ID, opp.Title, opp.Platform, opp.Deadline, opp.Category, string(skills),
			opp.Company, opp.Location, opp.Description, opp.ApplicationURL, created,
		).Scan(&opp.ID)
		if err != nil {
			return fmt.Errorf("sqlite: upsert opportunity %q: %w", opp.Title, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit opportunities: %w", err)
	}

	r.logger.Debug("opportunities upserted", zap.Int("count", len(opps)))
	return nil
}

func (r *Repository) ListApplications(ctx context.Context, userID string) ([]*opportunity.Application, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, opportunity_id, status, match_score, cover_letter, applied_at
		FROM applications WHERE user_id = ?
		ORDER BY applied_at IS NULL, applied_at DESC, id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list applications: %w", err)
	}
	defer rows.Close()

	var apps []*opportunity.Application
	for rows.Next() {
		var (
			app       opportunity.Application
			status    string
			appliedAt sql.NullString
		)
		if err := rows.Scan(&app.ID, &app.UserID, &app.OpportunityID, &status,
			&app.MatchScore, &app.CoverLetter, &appliedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scan application: %w", err)
		}
		app.Status = opportunity.Status(status)
		if appliedAt.Valid && appliedAt.String != "" {
			t, err := time.Parse(time.RFC3339Nano, appliedAt.String)
			if err != nil {
				return nil, fmt.Errorf("sqlite: parse applied_at %q: %w", appliedAt.String, err)
			}
			app.AppliedAt = &t
		}
		apps = append(apps, &app)
	}

	return apps, rows.Err()
}

func (r *Repository) CreateApplication(ctx context.Context, app *opportunity.Application) error {
	if app.ID == "" {
		app.ID = uuid.NewString()
	}

	var appliedAt sql.NullString
	if app.AppliedAt != nil {
		appliedAt = sql.NullString{String: app.AppliedAt.UTC().Format(time.RFC3339Nano), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO applications (id, user_id, opportunity_id, status, match_score, cover_letter, applied_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, app.ID, app.UserID, app.OpportunityID, string(app.Status), app.MatchScore, app.CoverLetter, appliedAt)
	if err != nil {
		return fmt.Errorf("sqlite: create application: %w", err)
	}
	return nil
}

func (r *Repository) timestamp() string {
	return r.now().UTC().Format(time.RFC3339Nano)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOpportunity(row scanner) (*opportunity.Opportunity, error) {
	var (
		opp    opportunity.Opportunity
		skills string
	)
	if err := row.Scan(&opp.ID, &opp.Title, &opp.Platform, &opp.Deadline, &opp.Category, &skills,
		&opp.Company, &opp.Location, &opp.Description, &opp.ApplicationURL); err != nil {
		return nil, err
	}
	opp.RequiredSkills = opportunity.UnmarshalSkills([]byte(skills))
	return &opp, nil
}
