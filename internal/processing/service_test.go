package processing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/minio"
	pgContainer "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/RMahshie/ramanspec/internal/repository/postgres"
	"github.com/RMahshie/ramanspec/internal/storage"
	"github.com/RMahshie/ramanspec/pkg/models"
)

const resonanceLog = ` Incident light (cm**-1):      0.00   20000.00
 Harmonic frequencies (cm**-1), IR intensities (KM/Mole), Raman scattering
                      1                      2                      3
 Frequencies --   400.0000               800.0000              1200.0000
 RamAct Fr= 1--     1.0000                 2.0000                 3.0000
 RamAct Fr= 2--     4.0000                 5.0000                 6.0000
`

const transitionsLog = ` Information on Transitions
   Energy =     0.0000 cm-1
   Sigma =  1.0000E+00
   Energy =   750.0000 cm-1
   Sigma =  2.0000E+00
 Final Spectrum
`

// MockJobRepository implements repository.JobRepository for testing
type MockJobRepository struct {
	mock.Mock
}

func (m *MockJobRepository) Create(ctx context.Context, job *models.Job) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *MockJobRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	args := m.Called(ctx, id)
	job, _ := args.Get(0).(*models.Job)
	return job, args.Error(1)
}

func (m *MockJobRepository) GetBySessionID(ctx context.Context, sessionID string) ([]*models.Job, error) {
	args := m.Called(ctx, sessionID)
	return args.Get(0).([]*models.Job), args.Error(1)
}

func (m *MockJobRepository) Claim(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockJobRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string, progress int) error {
	args := m.Called(ctx, id, status, progress)
	return args.Error(0)
}

func (m *MockJobRepository) UpdateError(ctx context.Context, id uuid.UUID, errorMsg string) error {
	args := m.Called(ctx, id, errorMsg)
	return args.Error(0)
}

func (m *MockJobRepository) StoreResults(ctx context.Context, results *models.JobResults) error {
	args := m.Called(ctx, results)
	return args.Error(0)
}

func (m *MockJobRepository) GetResults(ctx context.Context, jobID uuid.UUID) (*models.JobResults, error) {
	args := m.Called(ctx, jobID)
	results, _ := args.Get(0).(*models.JobResults)
	return results, args.Error(1)
}

// MockObjectStore implements storage.ObjectStore for testing
type MockObjectStore struct {
	mock.Mock
}

func (m *MockObjectStore) GenerateUploadURL(ctx context.Context, key string, contentType string) (string, error) {
	args := m.Called(ctx, key, contentType)
	return args.String(0), args.Error(1)
}

func (m *MockObjectStore) GenerateDownloadURL(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockObjectStore) DownloadFile(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

func (m *MockObjectStore) UploadFile(ctx context.Context, key string, contentType string, data []byte) error {
	args := m.Called(ctx, key, contentType, data)
	return args.Error(0)
}

func (m *MockObjectStore) DeleteFile(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func testJob(mode, policy string) *models.Job {
	key := "logs/abc/dye.log"
	return &models.Job{
		ID:     uuid.New().String(),
		Mode:   mode,
		Status: models.StatusPending,
		LogKey: &key,
		Params: models.BroadeningParams{
			Grid:               models.FrequencyGrid{Min: 0, Max: 2000, Steps: 2001},
			LorentzianWidth:    10,
			GaussianWidth:      10,
			LorentzianFraction: 0.5,
		},
		MissingPolicy: policy,
	}
}

func TestProcessJob_Resonance(t *testing.T) {
	job := testJob(models.ModeResonance, "zero-fill")
	id := uuid.MustParse(job.ID)

	repo := &MockJobRepository{}
	store := &MockObjectStore{}
	for _, p := range []int{10, 30, 60, 90} {
		repo.On("UpdateStatus", mock.Anything, id, models.StatusProcessing, p).Return(nil).Once()
	}
	repo.On("GetByID", mock.Anything, id).Return(job, nil)
	store.On("DownloadFile", mock.Anything, "logs/abc/dye.log").Return([]byte(resonanceLog), nil)
	for _, key := range []string{
		"logs/abc/dye_nrrcross.csv",
		"logs/abc/dye_nrrspec_lorentzian10.csv",
		"logs/abc/dye_nrrspec_gaussian10.csv",
	} {
		store.On("UploadFile", mock.Anything, key, "text/csv", mock.Anything).Return(nil).Once()
	}
	repo.On("StoreResults", mock.Anything, mock.MatchedBy(func(r *models.JobResults) bool {
		return r.JobID == job.ID &&
			r.LineCount == 3 &&
			assert.ObjectsAreEqual([]float64{0, 20000}, r.IncidentLight) &&
			len(r.Spectra) == 2 &&
			len(r.ArtifactKeys) == 3
	})).Return(nil)
	repo.On("UpdateStatus", mock.Anything, id, models.StatusCompleted, 100).Return(nil)

	svc := NewProcessingService(store, repo, Options{DropLeading: 1})
	require.NoError(t, svc.ProcessJob(context.Background(), id))

	repo.AssertExpectations(t)
	store.AssertExpectations(t)
}

func TestProcessJob_NonResonant(t *testing.T) {
	job := testJob(models.ModeNonResonant, "")
	id := uuid.MustParse(job.ID)

	repo := &MockJobRepository{}
	store := &MockObjectStore{}
	repo.On("UpdateStatus", mock.Anything, id, models.StatusProcessing, mock.Anything).Return(nil)
	repo.On("GetByID", mock.Anything, id).Return(job, nil)
	store.On("DownloadFile", mock.Anything, mock.Anything).Return([]byte(transitionsLog), nil)
	store.On("UploadFile", mock.Anything, mock.MatchedBy(func(key string) bool {
		return strings.HasPrefix(key, "logs/abc/dye_rr")
	}), "text/csv", mock.Anything).Return(nil).Times(3)
	repo.On("StoreResults", mock.Anything, mock.MatchedBy(func(r *models.JobResults) bool {
		// the leading transition is dropped
		return r.LineCount == 1 && len(r.Spectra) == 1 && r.IncidentLight == nil
	})).Return(nil)
	repo.On("UpdateStatus", mock.Anything, id, models.StatusCompleted, 100).Return(nil)

	svc := NewProcessingService(store, repo, Options{DropLeading: 1})
	require.NoError(t, svc.ProcessJob(context.Background(), id))

	repo.AssertExpectations(t)
	store.AssertExpectations(t)
}

func TestProcessJob_Failures(t *testing.T) {
	tests := []struct {
		name    string
		job     func() *models.Job
		setup   func(*MockObjectStore)
		wantMsg string
	}{
		{
			name: "download fails",
			job:  func() *models.Job { return testJob(models.ModeResonance, "") },
			setup: func(store *MockObjectStore) {
				store.On("DownloadFile", mock.Anything, mock.Anything).Return(nil, errors.New("no such key"))
			},
			wantMsg: "Failed to download log",
		},
		{
			name: "no log key",
			job: func() *models.Job {
				j := testJob(models.ModeResonance, "")
				j.LogKey = nil
				return j
			},
			setup:   func(*MockObjectStore) {},
			wantMsg: "Job has no log",
		},
		{
			name: "invalid broadening",
			job: func() *models.Job {
				j := testJob(models.ModeResonance, "")
				j.Params.GaussianWidth = 0
				return j
			},
			setup: func(store *MockObjectStore) {
				store.On("DownloadFile", mock.Anything, mock.Anything).Return([]byte(resonanceLog), nil)
			},
			wantMsg: "invalid broadening parameter",
		},
		{
			name: "fail-fast on missing activity",
			job:  func() *models.Job { return testJob(models.ModeResonance, "fail-fast") },
			setup: func(store *MockObjectStore) {
				text := strings.Replace(resonanceLog, " RamAct Fr= 2--     4.0000                 5.0000                 6.0000\n", "", 1)
				store.On("DownloadFile", mock.Anything, mock.Anything).Return([]byte(text), nil)
				store.On("UploadFile", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
			},
			wantMsg: "missing raman activity",
		},
		{
			name: "unknown policy",
			job:  func() *models.Job { return testJob(models.ModeResonance, "guess") },
			setup: func(store *MockObjectStore) {
				store.On("DownloadFile", mock.Anything, mock.Anything).Return([]byte(resonanceLog), nil)
			},
			wantMsg: "unknown missing-data policy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := tt.job()
			id := uuid.MustParse(job.ID)

			repo := &MockJobRepository{}
			store := &MockObjectStore{}
			repo.On("UpdateStatus", mock.Anything, id, models.StatusProcessing, mock.Anything).Return(nil)
			repo.On("GetByID", mock.Anything, id).Return(job, nil)
			repo.On("UpdateError", mock.Anything, id, mock.MatchedBy(func(msg string) bool {
				return strings.Contains(msg, tt.wantMsg)
			})).Return(nil).Once()
			tt.setup(store)

			svc := NewProcessingService(store, repo, Options{})
			assert.NoError(t, svc.ProcessJob(context.Background(), id))

			repo.AssertExpectations(t)
			repo.AssertNotCalled(t, "StoreResults", mock.Anything, mock.Anything)
			store.AssertExpectations(t)
		})
	}
}

func TestProcessJob_SynthesizingProgressPrecedesSpectra(t *testing.T) {
	job := testJob(models.ModeResonance, "zero-fill")
	id := uuid.MustParse(job.ID)

	var events []string
	repo := &MockJobRepository{}
	store := &MockObjectStore{}
	repo.On("UpdateStatus", mock.Anything, id, models.StatusProcessing, mock.Anything).Return(nil).
		Run(func(args mock.Arguments) { events = append(events, fmt.Sprintf("progress %d", args.Int(3))) })
	repo.On("GetByID", mock.Anything, id).Return(job, nil)
	store.On("DownloadFile", mock.Anything, mock.Anything).Return([]byte(resonanceLog), nil)
	store.On("UploadFile", mock.Anything, mock.Anything, "text/csv", mock.Anything).Return(nil).
		Run(func(args mock.Arguments) { events = append(events, path.Base(args.String(1))) })
	repo.On("StoreResults", mock.Anything, mock.Anything).Return(nil)
	repo.On("UpdateStatus", mock.Anything, id, models.StatusCompleted, 100).Return(nil)

	svc := NewProcessingService(store, repo, Options{})
	require.NoError(t, svc.ProcessJob(context.Background(), id))

	assert.Equal(t, []string{
		"progress 10",
		"progress 30",
		"dye_nrrcross.csv",
		"progress 60",
		"dye_nrrspec_lorentzian10.csv",
		"dye_nrrspec_gaussian10.csv",
		"progress 90",
	}, events)
}

func TestProcessJob_ProgressErrorIsReturned(t *testing.T) {
	job := testJob(models.ModeResonance, "zero-fill")
	id := uuid.MustParse(job.ID)

	repo := &MockJobRepository{}
	store := &MockObjectStore{}
	repo.On("UpdateStatus", mock.Anything, id, models.StatusProcessing, 10).Return(nil)
	repo.On("UpdateStatus", mock.Anything, id, models.StatusProcessing, 30).Return(nil)
	repo.On("UpdateStatus", mock.Anything, id, models.StatusProcessing, 60).Return(errors.New("connection refused"))
	repo.On("GetByID", mock.Anything, id).Return(job, nil)
	store.On("DownloadFile", mock.Anything, mock.Anything).Return([]byte(resonanceLog), nil)
	store.On("UploadFile", mock.Anything, mock.Anything, "text/csv", mock.Anything).Return(nil)

	svc := NewProcessingService(store, repo, Options{})
	assert.Error(t, svc.ProcessJob(context.Background(), id))
	repo.AssertNotCalled(t, "UpdateError", mock.Anything, mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "StoreResults", mock.Anything, mock.Anything)
}

func TestProcessJob_RepositoryError(t *testing.T) {
	id := uuid.New()
	repo := &MockJobRepository{}
	repo.On("UpdateStatus", mock.Anything, id, models.StatusProcessing, 10).Return(errors.New("connection refused"))

	svc := NewProcessingService(&MockObjectStore{}, repo, Options{})
	assert.Error(t, svc.ProcessJob(context.Background(), id))
}

// TestProcessJob_Integration runs a resonance job against PostgreSQL and MinIO
func TestProcessJob_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()

	pg, err := pgContainer.Run(ctx,
		"postgres:15-alpine",
		pgContainer.WithDatabase("ramanspec_test"),
		pgContainer.WithUsername("testuser"),
		pgContainer.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	defer func() { require.NoError(t, pg.Terminate(ctx)) }()

	dbURL, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	mc, err := minio.Run(ctx,
		"minio/minio:RELEASE.2024-10-29T16-01-48Z",
		minio.WithUsername("minioadmin"),
		minio.WithPassword("minioadmin"),
	)
	require.NoError(t, err)
	defer func() { require.NoError(t, mc.Terminate(ctx)) }()

	minioURL, err := mc.ConnectionString(ctx)
	require.NoError(t, err)

	db, err := sql.Open("postgres", dbURL)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, postgres.Migrate(ctx, db))

	storeCfg := storage.S3Config{
		Backend:   storage.BackendMinio,
		Bucket:    "ramanspec-test-" + uuid.New().String()[:8],
		Endpoint:  minioURL,
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
	}
	require.NoError(t, storage.EnsureBucket(ctx, storeCfg))
	store, err := storage.New(storeCfg)
	require.NoError(t, err)

	repo := postgres.NewPostgresJobRepository(db)
	job := testJob(models.ModeResonance, "zero-fill")
	job.SessionID = "session-integration"
	job.CreatedAt = time.Now()
	job.UpdatedAt = job.CreatedAt
	require.NoError(t, repo.Create(ctx, job))
	require.NoError(t, store.UploadFile(ctx, *job.LogKey, "text/plain", []byte(resonanceLog)))

	id := uuid.MustParse(job.ID)
	svc := NewProcessingService(store, repo, Options{DropLeading: 1})
	require.NoError(t, svc.ProcessJob(ctx, id))

	final, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, final.Status)
	assert.Equal(t, 100, final.Progress)
	assert.NotNil(t, final.CompletedAt)

	results, err := repo.GetResults(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 3, results.LineCount)
	assert.Equal(t, []float64{0, 20000}, results.IncidentLight)
	require.Len(t, results.ArtifactKeys, 3)

	cross, err := store.DownloadFile(ctx, "logs/abc/dye_nrrcross.csv")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(cross), "Raman Shift (cm^-1),RamAct (0.0 cm^-1),RamAct (20000.0 cm^-1)\n"))
}
