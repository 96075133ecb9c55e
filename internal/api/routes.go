package api

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/RMahshie/ramanspec/internal/api/handlers"
	"github.com/RMahshie/ramanspec/internal/processing"
	"github.com/RMahshie/ramanspec/internal/repository"
	"github.com/RMahshie/ramanspec/internal/storage"
)

// RegisterRoutes sets up all API routes
func RegisterRoutes(api huma.API, store storage.ObjectStore, jobRepo repository.JobRepository, processingSvc processing.ProcessingService) {
	jobHandler := handlers.NewJobHandler(jobRepo, store, processingSvc)
	spectraHandler := handlers.NewSpectraHandler()

	huma.Register(api, huma.Operation{
		OperationID: "synthesizeSpectrum",
		Method:      http.MethodPost,
		Path:        "/api/spectra/synthesize",
		Summary:     "Synthesize spectra",
		Description: "Broadens the posted discrete lines into Lorentzian, Gaussian and blended spectra",
		Tags:        []string{"Spectra"},
	}, spectraHandler.Synthesize)

	huma.Register(api, huma.Operation{
		OperationID: "createJob",
		Method:      http.MethodPost,
		Path:        "/api/jobs",
		Summary:     "Create a new job",
		Description: "Creates a job record and returns an upload URL for the Gaussian log",
		Tags:        []string{"Jobs"},
	}, jobHandler.CreateJob)

	huma.Register(api, huma.Operation{
		OperationID: "processJob",
		Method:      http.MethodPost,
		Path:        "/api/jobs/{id}/process",
		Summary:     "Process job",
		Description: "Extracts the uploaded log, writes the CSV tables and returns the final status",
		Tags:        []string{"Jobs"},
	}, jobHandler.ProcessJob)

	huma.Register(api, huma.Operation{
		OperationID: "getJobStatus",
		Method:      http.MethodGet,
		Path:        "/api/jobs/{id}/status",
		Summary:     "Get job status",
		Description: "Returns the current status and progress of a job",
		Tags:        []string{"Jobs"},
	}, jobHandler.GetJobStatus)

	huma.Register(api, huma.Operation{
		OperationID: "getJobResults",
		Method:      http.MethodGet,
		Path:        "/api/jobs/{id}/results",
		Summary:     "Get job results",
		Description: "Returns the spectra, warnings and download URLs of a completed job",
		Tags:        []string{"Jobs"},
	}, jobHandler.GetJobResults)
}
