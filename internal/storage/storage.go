// Package storage keeps raw IQ captures and encoded spectra in an
// S3-compatible object store.
package storage

import (
	"context"
	"fmt"
	"time"
)

// Content types accepted by the store.
const (
	ContentTypeIQ       = "application/octet-stream" // interleaved little-endian float32 I/Q
	ContentTypeSpectrum = "application/json"         // codec envelope
)

const (
	BackendS3    = "s3"
	BackendMinIO = "minio"

	uploadURLExpiry   = 15 * time.Minute
	downloadURLExpiry = 24 * time.Hour
)

// ObjectStore handles object storage operations
type ObjectStore interface {
	GenerateUploadURL(ctx context.Context, key string, contentType string) (string, error)
	GenerateDownloadURL(ctx context.Context, key string) (string, error)
	UploadFile(ctx context.Context, key string, data []byte, contentType string) error
	DownloadFile(ctx context.Context, key string) ([]byte, error)
	DeleteFile(ctx context.Context, key string) error
}

// Config holds configuration for either backend
type Config struct {
	Backend   string
	Bucket    string
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// New returns the ObjectStore selected by cfg.Backend. An empty backend
// means S3.
func New(ctx context.Context, cfg Config) (ObjectStore, error) {
	switch cfg.Backend {
	case "", BackendS3:
		return NewS3Store(cfg)
	case BackendMinIO:
		return NewMinIOStore(ctx, cfg)
	}
	return nil, fmt.Errorf("unknown storage backend %q (want %q or %q)", cfg.Backend, BackendS3, BackendMinIO)
}

// IQKey is the object key of a capture's raw samples.
func IQKey(captureID string) string {
	return fmt.Sprintf("captures/%s/iq.cf32", captureID)
}

// SpectrumKey is the object key of a capture's encoded spectrum.
func SpectrumKey(captureID string) string {
	return fmt.Sprintf("captures/%s/spectrum.json", captureID)
}

// IngestKey is the object key of a spectrum posted through the signed
// ingest endpoint.
func IngestKey(spectrumID string) string {
	return fmt.Sprintf("spectra/%s.json", spectrumID)
}

func validateContentType(contentType string) error {
	switch contentType {
	case ContentTypeIQ, ContentTypeSpectrum:
		return nil
	}
	return fmt.Errorf("invalid content type: %s. Supported types: %s, %s", contentType, ContentTypeIQ, ContentTypeSpectrum)
}
