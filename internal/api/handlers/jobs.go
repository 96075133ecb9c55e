package handlers

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/RMahshie/ramanspec/internal/extract"
	"github.com/RMahshie/ramanspec/internal/processing"
	"github.com/RMahshie/ramanspec/internal/repository"
	"github.com/RMahshie/ramanspec/internal/storage"
	"github.com/RMahshie/ramanspec/internal/synth"
	"github.com/RMahshie/ramanspec/pkg/models"
)

const (
	logContentType  = "text/plain"
	uploadURLExpiry = 15 * time.Minute
)

// JobHandler handles spectrum job HTTP requests
type JobHandler struct {
	repo          repository.JobRepository
	store         storage.ObjectStore
	processingSvc processing.ProcessingService
}

// NewJobHandler creates a new job handler
func NewJobHandler(repo repository.JobRepository, store storage.ObjectStore, processingSvc processing.ProcessingService) *JobHandler {
	return &JobHandler{
		repo:          repo,
		store:         store,
		processingSvc: processingSvc,
	}
}

// CreateJob creates a new job and returns an upload URL for its log
func (h *JobHandler) CreateJob(ctx context.Context, req *models.CreateJobRequest) (*models.CreateJobResponse, error) {
	log.Info().Int64("fileSize", req.Body.FileSize).Str("mode", req.Body.Mode).Msg("Creating new job")

	if err := synth.FromModel(req.Body.BroadeningParams).Validate(); err != nil {
		return nil, huma.Error422UnprocessableEntity(err.Error(), err)
	}
	if _, err := extract.ParsePolicy(req.Body.MissingPolicy); err != nil {
		return nil, huma.Error422UnprocessableEntity(err.Error(), err)
	}

	name := path.Base(filepath.ToSlash(req.Body.FileName))
	if name == "." || name == "/" || name == ".." {
		return nil, huma.Error400BadRequest("Invalid file name", nil)
	}

	jobID := uuid.New()
	logKey := fmt.Sprintf("logs/%s/%s", jobID, name)

	uploadURL, err := h.store.GenerateUploadURL(ctx, logKey, logContentType)
	if err != nil {
		if strings.Contains(err.Error(), "invalid content type") {
			return nil, huma.Error400BadRequest("Log format not supported", err)
		}
		return nil, huma.Error400BadRequest("Failed to prepare upload. Please try again.", err)
	}

	policy := req.Body.MissingPolicy
	if policy == "" {
		policy = extract.ZeroFill.String()
	}

	now := time.Now()
	job := &models.Job{
		ID:            jobID.String(),
		SessionID:     req.Body.SessionID,
		Mode:          req.Body.Mode,
		Status:        models.StatusPending,
		Progress:      0,
		LogKey:        &logKey,
		Params:        req.Body.BroadeningParams,
		MissingPolicy: policy,
		WriteBlended:  req.Body.WriteBlended,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := h.repo.Create(ctx, job); err != nil {
		return nil, huma.Error500InternalServerError("Failed to create job", err)
	}
	log.Info().Str("jobID", job.ID).Str("logKey", logKey).Msg("Job created, returning upload URL")

	return &models.CreateJobResponse{
		Body: models.CreateJobResponseBody{
			ID:        job.ID,
			UploadURL: uploadURL,
			ExpiresIn: int(uploadURLExpiry.Seconds()),
		},
	}, nil
}

// GetJobStatus returns the current status of a job
func (h *JobHandler) GetJobStatus(ctx context.Context, req *models.JobIDRequest) (*models.GetJobStatusResponse, error) {
	jobID, err := uuid.Parse(req.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("Invalid job ID", err)
	}

	job, err := h.getJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return h.statusResponse(ctx, job), nil
}

// ProcessJob runs a job to completion and returns its final status
func (h *JobHandler) ProcessJob(ctx context.Context, req *models.JobIDRequest) (*models.GetJobStatusResponse, error) {
	jobID, err := uuid.Parse(req.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("Invalid job ID", err)
	}

	job, err := h.getJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	claimed, err := h.repo.Claim(ctx, jobID)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to claim job", err)
	}
	if !claimed {
		return nil, huma.Error409Conflict("Job is already processing or completed")
	}

	log.Info().Str("jobID", job.ID).Msg("Processing job")
	if err := h.processingSvc.ProcessJob(ctx, jobID); err != nil {
		if uerr := h.repo.UpdateError(ctx, jobID, fmt.Sprintf("Processing failed: %v", err)); uerr != nil {
			log.Error().Err(uerr).Str("jobID", job.ID).Msg("Failed to record job error")
		}
		return nil, huma.Error500InternalServerError("Processing failed", err)
	}

	job, err = h.getJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return h.statusResponse(ctx, job), nil
}

// GetJobResults returns the results of a completed job
func (h *JobHandler) GetJobResults(ctx context.Context, req *models.JobIDRequest) (*models.GetJobResultsResponse, error) {
	jobID, err := uuid.Parse(req.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("Invalid job ID", err)
	}

	job, err := h.getJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != models.StatusCompleted {
		return nil, huma.Error409Conflict("Job not yet completed",
			fmt.Errorf("job status is %s", job.Status))
	}

	results, err := h.repo.GetResults(ctx, jobID)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to get results", err)
	}

	artifacts := make([]models.Artifact, 0, len(results.ArtifactKeys))
	for _, key := range results.ArtifactKeys {
		a := models.Artifact{Key: key}
		if url, err := h.store.GenerateDownloadURL(ctx, key); err == nil {
			a.URL = url
		} else {
			log.Warn().Err(err).Str("key", key).Msg("Failed to sign artifact URL")
		}
		artifacts = append(artifacts, a)
	}

	return &models.GetJobResultsResponse{
		Body: models.GetJobResultsResponseBody{
			ID:            results.ID,
			JobID:         results.JobID,
			LineCount:     results.LineCount,
			IncidentLight: results.IncidentLight,
			Spectra:       results.Spectra,
			Artifacts:     artifacts,
			Warnings:      results.Warnings,
			CreatedAt:     results.CreatedAt,
		},
	}, nil
}

func (h *JobHandler) getJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	job, err := h.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, huma.Error404NotFound("Job not found", err)
	}
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to load job", err)
	}
	return job, nil
}

func (h *JobHandler) statusResponse(ctx context.Context, job *models.Job) *models.GetJobStatusResponse {
	var resultsID *string
	if job.Status == models.StatusCompleted {
		results, err := h.repo.GetResults(ctx, uuid.MustParse(job.ID))
		if err == nil && results != nil {
			resultsID = &results.ID
		}
	}

	return &models.GetJobStatusResponse{
		Body: models.GetJobStatusResponseBody{
			ID:        job.ID,
			Status:    job.Status,
			Progress:  job.Progress,
			Message:   statusMessage(job.Status, job.Progress),
			Error:     job.ErrorMsg,
			ResultsID: resultsID,
		},
	}
}

// statusMessage creates a human-readable status message
func statusMessage(status string, progress int) string {
	switch status {
	case models.StatusPending:
		return "Waiting for log upload..."
	case models.StatusProcessing:
		switch {
		case progress < 30:
			return "Loading log..."
		case progress < 60:
			return "Extracting lines and broadening..."
		default:
			return "Storing results..."
		}
	case models.StatusCompleted:
		return "Spectra ready"
	case models.StatusFailed:
		return "Job failed"
	default:
		return "Unknown status"
	}
}
