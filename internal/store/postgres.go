package store

import (
	"context"
	_ "embed"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schemaSQL is embedded so the service can self-bootstrap its database schema.
//
//go:embed schema.sql
var schemaSQL string

// Submission is one archived application. Rows land here only when email
// delivery failed or was never configured, so a human can review them later.
type Submission struct {
	ID              string
	Name            string
	Email           string
	LinkedInURL     string
	GitHubURL       string
	Accomplishments string
	ClientIP        string
	Reason          string
	SubmittedAt     time.Time
}

// Archive reasons.
const (
	ReasonSendFailed    = "send_failed"
	ReasonNotConfigured = "notifier_not_configured"
)

// PostgresArchive is the durable fallback for applications that missed
// email delivery.
type PostgresArchive struct {
	pool *pgxpool.Pool
}

// NewPostgresArchive creates a connection pool and fails fast if DB is unreachable.
func NewPostgresArchive(dbURL string) (*PostgresArchive, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresArchive{pool: pool}, nil
}

// EnsureSchema applies schema.sql. Safe to run multiple times.
func (p *PostgresArchive) EnsureSchema() error {
	_, err := p.pool.Exec(context.Background(), schemaSQL)
	return err
}

// Ping is used by the readiness endpoint to validate DB connectivity.
func (p *PostgresArchive) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close shuts down the connection pool.
func (p *PostgresArchive) Close() {
	p.pool.Close()
}

// InsertSubmission persists one archived application.
//
// Failures here must never reach the applicant: the caller logs them and
// returns success anyway, the same policy as a failed email send.
func (p *PostgresArchive) InsertSubmission(ctx context.Context, s Submission) error {
	if s.ID == "" || s.Email == "" {
		return errors.New("id/email required")
	}

	_, err := p.pool.Exec(ctx, `
		INSERT INTO submissions(id, name, email, linkedin_url, github_url, accomplishments, client_ip, reason, submitted_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, s.ID, s.Name, s.Email, s.LinkedInURL, s.GitHubURL, s.Accomplishments, s.ClientIP, s.Reason, s.SubmittedAt)

	return err
}
