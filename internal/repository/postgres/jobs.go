package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/RMahshie/ramanspec/internal/repository"
	"github.com/RMahshie/ramanspec/pkg/models"
)

// PostgresJobRepository implements JobRepository for PostgreSQL
type PostgresJobRepository struct {
	db *sql.DB
}

// NewPostgresJobRepository creates a new PostgreSQL job repository
func NewPostgresJobRepository(db *sql.DB) repository.JobRepository {
	return &PostgresJobRepository{db: db}
}

const jobColumns = `id, session_id, mode, status, progress, log_key, params, missing_policy, write_blended,
		error_message, created_at, updated_at, completed_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// Create inserts a new job record
func (r *PostgresJobRepository) Create(ctx context.Context, job *models.Job) error {
	params, err := json.Marshal(job.Params)
	if err != nil {
		return fmt.Errorf("failed to marshal params: %w", err)
	}

	query := `
		INSERT INTO jobs (id, session_id, mode, status, progress, log_key, params, missing_policy, write_blended, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err = r.db.ExecContext(ctx, query,
		job.ID,
		job.SessionID,
		job.Mode,
		job.Status,
		job.Progress,
		job.LogKey,
		string(params),
		job.MissingPolicy,
		job.WriteBlended,
		job.CreatedAt,
		job.UpdatedAt)

	return err
}

// GetByID retrieves a job by ID
func (r *PostgresJobRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1`

	job, err := scanJob(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("job %s: %w", id, repository.ErrNotFound)
	}
	return job, err
}

// GetBySessionID retrieves jobs by session ID, newest first
func (r *PostgresJobRepository) GetBySessionID(ctx context.Context, sessionID string) ([]*models.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE session_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*models.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}

	return jobs, rows.Err()
}

func scanJob(row rowScanner) (*models.Job, error) {
	var job models.Job
	var logKey, errorMsg sql.NullString
	var params []byte
	var completedAt sql.NullTime

	err := row.Scan(
		&job.ID,
		&job.SessionID,
		&job.Mode,
		&job.Status,
		&job.Progress,
		&logKey,
		&params,
		&job.MissingPolicy,
		&job.WriteBlended,
		&errorMsg,
		&job.CreatedAt,
		&job.UpdatedAt,
		&completedAt)

	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(params, &job.Params); err != nil {
		return nil, fmt.Errorf("failed to unmarshal params: %w", err)
	}
	if logKey.Valid {
		job.LogKey = &logKey.String
	}
	if errorMsg.Valid {
		job.ErrorMsg = &errorMsg.String
	}
	if completedAt.Valid {
		job.CompletedAt = &completedAt.Time
	}

	return &job, nil
}

// Claim marks a pending or failed job as processing in a single statement
func (r *PostgresJobRepository) Claim(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE jobs
		SET status = 'processing', progress = 0, error_message = NULL, updated_at = NOW()
		WHERE id = $1 AND status IN ('pending', 'failed')`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// UpdateStatus updates the status and progress of a job
func (r *PostgresJobRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string, progress int) error {
	query := `
		UPDATE jobs
		SET status = $1, progress = $2, updated_at = NOW(),
		    completed_at = CASE WHEN $1 = 'completed' THEN NOW() ELSE completed_at END,
		    error_message = CASE WHEN $1 = 'completed' THEN NULL ELSE error_message END
		WHERE id = $3`

	_, err := r.db.ExecContext(ctx, query, status, progress, id)
	return err
}

// UpdateError marks a job failed with a message
func (r *PostgresJobRepository) UpdateError(ctx context.Context, id uuid.UUID, errorMsg string) error {
	query := `
		UPDATE jobs
		SET status = 'failed', error_message = $1, updated_at = NOW()
		WHERE id = $2`

	_, err := r.db.ExecContext(ctx, query, errorMsg, id)
	return err
}

// StoreResults stores job results
func (r *PostgresJobRepository) StoreResults(ctx context.Context, results *models.JobResults) error {
	incident, err := json.Marshal(results.IncidentLight)
	if err != nil {
		return fmt.Errorf("failed to marshal incident light: %w", err)
	}

	spectra, err := json.Marshal(results.Spectra)
	if err != nil {
		return fmt.Errorf("failed to marshal spectra: %w", err)
	}

	artifacts, err := json.Marshal(results.ArtifactKeys)
	if err != nil {
		return fmt.Errorf("failed to marshal artifact keys: %w", err)
	}

	warnings, err := json.Marshal(results.Warnings)
	if err != nil {
		return fmt.Errorf("failed to marshal warnings: %w", err)
	}

	query := `
		INSERT INTO job_results (id, job_id, line_count, incident_light, spectra, artifact_keys, warnings, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (job_id) DO UPDATE
		SET id = EXCLUDED.id, line_count = EXCLUDED.line_count, incident_light = EXCLUDED.incident_light,
		    spectra = EXCLUDED.spectra, artifact_keys = EXCLUDED.artifact_keys,
		    warnings = EXCLUDED.warnings, created_at = EXCLUDED.created_at`

	_, err = r.db.ExecContext(ctx, query,
		results.ID,
		results.JobID,
		results.LineCount,
		string(incident),
		string(spectra),
		string(artifacts),
		string(warnings),
		results.CreatedAt)

	return err
}

// GetResults retrieves job results
func (r *PostgresJobRepository) GetResults(ctx context.Context, jobID uuid.UUID) (*models.JobResults, error) {
	query := `
		SELECT id, job_id, line_count, incident_light, spectra, artifact_keys, warnings, created_at
		FROM job_results
		WHERE job_id = $1`

	var results models.JobResults
	var incident, spectra, artifacts, warnings []byte

	err := r.db.QueryRowContext(ctx, query, jobID).Scan(
		&results.ID,
		&results.JobID,
		&results.LineCount,
		&incident,
		&spectra,
		&artifacts,
		&warnings,
		&results.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("results for job %s: %w", jobID, repository.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	for _, col := range []struct {
		name string
		raw  []byte
		dst  any
	}{
		{"incident light", incident, &results.IncidentLight},
		{"spectra", spectra, &results.Spectra},
		{"artifact keys", artifacts, &results.ArtifactKeys},
		{"warnings", warnings, &results.Warnings},
	} {
		if len(col.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(col.raw, col.dst); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s: %w", col.name, err)
		}
	}

	return &results, nil
}
