package storage

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// ObjectStore handles file storage operations
type ObjectStore interface {
	GenerateUploadURL(ctx context.Context, key string, contentType string) (string, error)
	GenerateDownloadURL(ctx context.Context, key string) (string, error)
	DownloadFile(ctx context.Context, key string) ([]byte, error)
	UploadFile(ctx context.Context, key string, contentType string, data []byte) error
	DeleteFile(ctx context.Context, key string) error
}

// Backends
const (
	BackendS3    = "s3"
	BackendMinio = "minio"
)

// S3Config holds configuration for object storage
type S3Config struct {
	Backend   string
	Bucket    string
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

const (
	uploadURLExpiry   = 15 * time.Minute
	downloadURLExpiry = 24 * time.Hour
)

// New creates the object store selected by cfg.Backend
func New(cfg S3Config) (ObjectStore, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", BackendS3:
		return NewS3Service(cfg)
	case BackendMinio:
		return NewMinioService(cfg)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// validateContentType validates that the content type is supported for log uploads
func validateContentType(contentType string) error {
	validTypes := map[string]bool{
		"text/plain":               true,
		"text/x-log":               true,
		"application/octet-stream": true,
	}

	if !validTypes[contentType] {
		return fmt.Errorf("invalid content type: %s. Supported types: text/plain, text/x-log, application/octet-stream", contentType)
	}

	return nil
}
