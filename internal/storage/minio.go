package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type minioService struct {
	client    *minio.Client
	bucket    string
	region    string
	urlExpiry time.Duration
}

// NewMinioService creates an object store backed by the MinIO client
func NewMinioService(cfg S3Config) (ObjectStore, error) {
	svc, err := newMinioService(cfg)
	if err != nil {
		return nil, err
	}
	return svc, nil
}

func newMinioService(cfg S3Config) (*minioService, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("S3_BUCKET is required")
	}
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("S3_ENDPOINT is required for the minio backend")
	}

	endpoint := cfg.Endpoint
	secure := cfg.UseSSL
	switch {
	case strings.HasPrefix(endpoint, "https://"):
		endpoint = strings.TrimPrefix(endpoint, "https://")
		secure = true
	case strings.HasPrefix(endpoint, "http://"):
		endpoint = strings.TrimPrefix(endpoint, "http://")
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &minioService{
		client:    client,
		bucket:    cfg.Bucket,
		region:    cfg.Region,
		urlExpiry: uploadURLExpiry,
	}, nil
}

// EnsureBucket creates the bucket when it does not exist yet
func EnsureBucket(ctx context.Context, cfg S3Config) error {
	svc, err := newMinioService(cfg)
	if err != nil {
		return err
	}
	exists, err := svc.client.BucketExists(ctx, svc.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err := svc.client.MakeBucket(ctx, svc.bucket, minio.MakeBucketOptions{Region: svc.region}); err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// GenerateUploadURL generates a pre-signed URL for uploading files
func (s *minioService) GenerateUploadURL(ctx context.Context, key string, contentType string) (string, error) {
	if err := validateContentType(contentType); err != nil {
		return "", err
	}

	u, err := s.client.PresignedPutObject(ctx, s.bucket, key, s.urlExpiry)
	if err != nil {
		return "", fmt.Errorf("failed to generate upload URL: %w", err)
	}
	return u.String(), nil
}

// GenerateDownloadURL generates a pre-signed URL for downloading files
func (s *minioService) GenerateDownloadURL(ctx context.Context, key string) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, downloadURLExpiry, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate download URL: %w", err)
	}
	return u.String(), nil
}

// DownloadFile downloads a file from MinIO
func (s *minioService) DownloadFile(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	return data, nil
}

// UploadFile stores data under key
func (s *minioService) UploadFile(ctx context.Context, key string, contentType string, data []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("failed to upload file: %w", err)
	}
	return nil
}

// DeleteFile deletes a file from MinIO
func (s *minioService) DeleteFile(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}
