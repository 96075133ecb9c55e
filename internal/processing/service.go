package processing

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/RMahshie/ramanspec/internal/extract"
	"github.com/RMahshie/ramanspec/internal/output"
	"github.com/RMahshie/ramanspec/internal/pipeline"
	"github.com/RMahshie/ramanspec/internal/repository"
	"github.com/RMahshie/ramanspec/internal/storage"
	"github.com/RMahshie/ramanspec/internal/synth"
	"github.com/RMahshie/ramanspec/pkg/models"
)

type ProcessingService interface {
	ProcessJob(ctx context.Context, jobID uuid.UUID) error
}

// Options are the server-wide settings jobs do not carry themselves
type Options struct {
	DropLeading int
	Plotter     output.Plotter
}

type processingService struct {
	store      storage.ObjectStore
	repository repository.JobRepository
	opts       Options
}

func NewProcessingService(store storage.ObjectStore, repo repository.JobRepository, opts Options) ProcessingService {
	return &processingService{
		store:      store,
		repository: repo,
		opts:       opts,
	}
}

// ProcessJob runs a job to completion. Failures caused by the job itself
// (missing log, bad parameters, unreadable listing) mark the job failed and
// return nil; repository errors are returned.
func (s *processingService) ProcessJob(ctx context.Context, jobID uuid.UUID) error {
	// Step 1: Update to processing status
	if err := s.repository.UpdateStatus(ctx, jobID, models.StatusProcessing, 10); err != nil {
		return err
	}

	job, err := s.repository.GetByID(ctx, jobID)
	if err != nil {
		return err
	}
	if job.LogKey == nil || *job.LogKey == "" {
		return s.fail(ctx, jobID, "Job has no log")
	}
	key := *job.LogKey

	// Step 2: Download the log
	data, err := s.store.DownloadFile(ctx, key)
	if err != nil {
		log.Error().Err(err).Str("jobID", job.ID).Str("key", key).Msg("Log download failed")
		return s.fail(ctx, jobID, "Failed to download log")
	}

	policy, err := extract.ParsePolicy(job.MissingPolicy)
	if err != nil {
		return s.fail(ctx, jobID, err.Error())
	}
	// progressErr keeps repository failures apart from job failures
	var progressErr error
	cfg := pipeline.Config{
		Params:       synth.FromModel(job.Params),
		Policy:       policy,
		DropLeading:  s.opts.DropLeading,
		WriteBlended: job.WriteBlended,
		OnSynthesize: func(ctx context.Context) error {
			progressErr = s.repository.UpdateStatus(ctx, jobID, models.StatusProcessing, 60)
			return progressErr
		},
	}

	// Step 3: Extract and synthesize, artifacts go next to the log
	if err := s.repository.UpdateStatus(ctx, jobID, models.StatusProcessing, 30); err != nil {
		return err
	}
	runner := pipeline.NewRunner(output.NewObjectWriter(s.store, path.Dir(key)), s.opts.Plotter)
	stem := output.Stem(key)

	results := &models.JobResults{
		ID:        uuid.New().String(),
		JobID:     job.ID,
		CreatedAt: time.Now(),
	}
	switch job.Mode {
	case models.ModeNonResonant:
		out, err := runner.RunNonResonant(ctx, stem, string(data), cfg)
		if progressErr != nil {
			return progressErr
		}
		if err != nil {
			return s.fail(ctx, jobID, fmt.Sprintf("Spectrum synthesis failed: %v", err))
		}
		results.LineCount = out.Lines.Len()
		results.Spectra = []models.SpectrumSet{out.Spectra}
		results.ArtifactKeys = out.Artifacts
		results.Warnings = out.Warnings
	case models.ModeResonance:
		out, err := runner.RunResonant(ctx, stem, string(data), cfg)
		if progressErr != nil {
			return progressErr
		}
		if err != nil {
			return s.fail(ctx, jobID, fmt.Sprintf("Spectrum synthesis failed: %v", err))
		}
		results.LineCount = out.Table.Len()
		results.IncidentLight = out.Table.IncidentLight
		results.Spectra = out.Spectra
		results.ArtifactKeys = out.Artifacts
		results.Warnings = out.Warnings
	default:
		return s.fail(ctx, jobID, fmt.Sprintf("Unknown mode %q", job.Mode))
	}

	// Step 4: Store results
	if err := s.repository.UpdateStatus(ctx, jobID, models.StatusProcessing, 90); err != nil {
		return err
	}
	if err := s.repository.StoreResults(ctx, results); err != nil {
		return err
	}

	// Step 5: Mark complete
	if err := s.repository.UpdateStatus(ctx, jobID, models.StatusCompleted, 100); err != nil {
		return err
	}

	log.Info().
		Str("jobID", job.ID).
		Str("mode", job.Mode).
		Int("lines", results.LineCount).
		Int("artifacts", len(results.ArtifactKeys)).
		Int("warnings", len(results.Warnings)).
		Msg("Job completed")
	return nil
}

func (s *processingService) fail(ctx context.Context, jobID uuid.UUID, msg string) error {
	log.Warn().Str("jobID", jobID.String()).Str("reason", msg).Msg("Job failed")
	return s.repository.UpdateError(ctx, jobID, msg)
}
