/*
Package storage exports a user's posts to S3-compatible object storage.

The export is a single JSON document uploaded under exports/<user id>/ and
shared through a time-limited presigned download link.
*/
package storage

import (
	"context"
	"io"
	"time"
)

// ServiceConfig holds the configuration required to connect to the storage service.
type ServiceConfig struct {
	S3BucketName      string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3Region          string
}

// Enabled reports whether a bucket is configured.
func (c ServiceConfig) Enabled() bool {
	return c.S3BucketName != ""
}

// StorageService defines the object operations the exporter needs.
type StorageService interface {
	// Upload stores body under key.
	Upload(ctx context.Context, key, contentType string, body io.Reader) error

	// PresignDownload generates a pre-signed URL for downloading a file.
	PresignDownload(ctx context.Context, key string, duration time.Duration) (string, error)

	// Delete removes the file specified by the given key.
	Delete(ctx context.Context, key string) error
}

// NewStorageService returns the S3-compatible implementation for cfg.
func NewStorageService(cfg ServiceConfig) (StorageService, error) {
	return newS3Client(cfg)
}
