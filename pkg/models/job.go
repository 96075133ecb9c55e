package models

import (
	"time"
)

// Job modes
const (
	ModeNonResonant = "nonresonant" // Energy/Sigma listing
	ModeResonance   = "resonance"   // RamAct listing, one column per incident light
)

// Job statuses
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Body struct {
		Status  string    `json:"status" example:"healthy" doc:"Service health status"`
		Version string    `json:"version" example:"1.0.0" doc:"API version"`
		Time    time.Time `json:"time" doc:"Current server time"`
	}
}

// BroadeningParams are the lineshape settings of a synthesis
type BroadeningParams struct {
	Grid               FrequencyGrid `json:"grid"`
	LorentzianWidth    float64       `json:"lorentzian_width" exclusiveMinimum:"0" doc:"Lorentzian half-width in cm^-1"`
	GaussianWidth      float64       `json:"gaussian_width" exclusiveMinimum:"0" doc:"Gaussian standard deviation in cm^-1"`
	LorentzianFraction float64       `json:"lorentzian_fraction" minimum:"0" maximum:"1" doc:"Lorentzian share of the blended spectrum"`
}

// MaxSynthesizeLines bounds the number of lines posted for synthesis
const MaxSynthesizeLines = 10000

// SynthesizeRequest represents a request to broaden an explicit set of lines
type SynthesizeRequest struct {
	Body struct {
		BroadeningParams
		Lines []DiscreteLine `json:"lines" maxItems:"10000" doc:"Discrete lines to broaden"`
	}
}

// SynthesizeResponse represents the broadened spectra
type SynthesizeResponse struct {
	Body SpectrumSet
}

// CreateJobRequest represents a request to create a new spectrum job
type CreateJobRequest struct {
	Body struct {
		SessionID       string `json:"session_id" minLength:"10" maxLength:"50" required:"true" doc:"Client session identifier"`
		FileName        string `json:"file_name" minLength:"1" maxLength:"200" required:"true" doc:"Log file name, used for artifact names"`
		FileSize        int64  `json:"file_size" minimum:"1" maximum:"209715200" required:"true" doc:"Log file size in bytes"`
		Mode            string `json:"mode" enum:"nonresonant,resonance" required:"true" doc:"Which listing to extract"`
		MissingPolicy   string `json:"missing_policy,omitempty" enum:"zero-fill,fail-fast,interpolate" doc:"Handling of missing Raman activities"`
		WriteBlended    bool   `json:"write_blended,omitempty" doc:"Also write the blended spectrum"`
		BroadeningParams
	}
}

// CreateJobResponseBody is the body of the create job response
type CreateJobResponseBody struct {
	ID        string `json:"id" doc:"Job unique identifier"`
	UploadURL string `json:"upload_url" doc:"Pre-signed URL for the log upload"`
	ExpiresIn int    `json:"expires_in" doc:"URL expiration time in seconds"`
}

// CreateJobResponse represents the response from creating a job
type CreateJobResponse struct {
	Body CreateJobResponseBody
}

// JobIDRequest addresses a single job
type JobIDRequest struct {
	ID string `path:"id" doc:"Job ID"`
}

// GetJobStatusResponseBody is the body of the status response
type GetJobStatusResponseBody struct {
	ID        string  `json:"id" doc:"Job ID"`
	Status    string  `json:"status" enum:"pending,processing,completed,failed" doc:"Job status"`
	Progress  int     `json:"progress" minimum:"0" maximum:"100" doc:"Job progress percentage"`
	Message   string  `json:"message,omitempty" doc:"Human-readable status message"`
	Error     *string `json:"error,omitempty" doc:"Failure reason"`
	ResultsID *string `json:"results_id,omitempty" doc:"Results ID when the job completes"`
}

// GetJobStatusResponse represents the current status of a job
type GetJobStatusResponse struct {
	Body GetJobStatusResponseBody
}

// Artifact is a stored output table
type Artifact struct {
	Key string `json:"key" doc:"Object key"`
	URL string `json:"url,omitempty" doc:"Pre-signed download URL"`
}

// GetJobResultsResponseBody is the body of the results response
type GetJobResultsResponseBody struct {
	ID            string        `json:"id" doc:"Results ID"`
	JobID         string        `json:"job_id" doc:"Job ID"`
	LineCount     int           `json:"line_count" doc:"Number of discrete lines extracted"`
	IncidentLight []float64     `json:"incident_light,omitempty" doc:"Incident light frequencies in cm^-1"`
	Spectra       []SpectrumSet `json:"spectra" doc:"Broadened spectra, one set per intensity column"`
	Artifacts     []Artifact    `json:"artifacts" doc:"Written CSV tables"`
	Warnings      []Warning     `json:"warnings,omitempty" doc:"Extraction and synthesis diagnostics"`
	CreatedAt     time.Time     `json:"created_at" doc:"Results creation timestamp"`
}

// GetJobResultsResponse represents the complete job results
type GetJobResultsResponse struct {
	Body GetJobResultsResponseBody
}

// Job represents the core job entity (for internal use)
type Job struct {
	ID            string           `json:"id"`
	SessionID     string           `json:"session_id"`
	Mode          string           `json:"mode"`
	Status        string           `json:"status"`
	Progress      int              `json:"progress"`
	LogKey        *string          `json:"log_key,omitempty"`
	Params        BroadeningParams `json:"params"`
	MissingPolicy string           `json:"missing_policy"`
	WriteBlended  bool             `json:"write_blended"`
	ErrorMsg      *string          `json:"error_message,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
	CompletedAt   *time.Time       `json:"completed_at,omitempty"`
}

// JobResults represents the stored job results
type JobResults struct {
	ID            string        `json:"id"`
	JobID         string        `json:"job_id"`
	LineCount     int           `json:"line_count"`
	IncidentLight []float64     `json:"incident_light,omitempty"`
	Spectra       []SpectrumSet `json:"spectra"`
	ArtifactKeys  []string      `json:"artifact_keys"`
	Warnings      []Warning     `json:"warnings,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}
