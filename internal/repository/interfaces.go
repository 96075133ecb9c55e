package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/RMahshie/ramanspec/pkg/models"
)

// ErrNotFound is returned when a job or its results do not exist
var ErrNotFound = errors.New("not found")

// JobRepository defines the interface for spectrum job data operations
type JobRepository interface {
	Create(ctx context.Context, job *models.Job) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error)
	GetBySessionID(ctx context.Context, sessionID string) ([]*models.Job, error)
	// Claim moves a pending or failed job to processing. It reports false
	// when the job is in any other state.
	Claim(ctx context.Context, id uuid.UUID) (bool, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, progress int) error
	UpdateError(ctx context.Context, id uuid.UUID, errorMsg string) error
	StoreResults(ctx context.Context, results *models.JobResults) error
	GetResults(ctx context.Context, jobID uuid.UUID) (*models.JobResults, error)
}
