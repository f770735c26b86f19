package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

var (
	ErrStorage  = errors.New("storage error")
	ErrNotFound = errors.New("blob not found")
)

type FileInfo struct {
	Name         string
	Path         string
	Size         int64
	ModifiedTime time.Time
}

// BlobStore holds the authoritative copy of every uploaded blob
type BlobStore interface {
	// Put writes data under a path derived from id and returns that path
	Put(ctx context.Context, id string, data []byte) (string, error)

	// Exists reports whether a blob is present at path
	Exists(ctx context.Context, path string) (bool, error)

	// Get reads a whole blob, ErrNotFound if it is absent
	Get(ctx context.Context, path string) ([]byte, error)

	// ListFiles enumerates everything under the storage root
	ListFiles(ctx context.Context) ([]FileInfo, error)

	// Delete removes a blob
	Delete(ctx context.Context, path string) error
}

// RemoteProvider copies blobs to an object store
type RemoteProvider interface {
	// Name identifies the backend in logs and metrics
	Name() string

	// Bucket is the destination namespace
	Bucket() string

	// Upload stores size bytes read from file under key
	Upload(ctx context.Context, key string, file io.ReadSeeker, size int64) error

	// Close cleans up any resources
	Close() error
}

// RemoteConfig holds configuration for remote backup providers
type RemoteConfig struct {
	// Provider type ("s3", "gcs" or "none")
	Provider string `json:"provider" validate:"oneof=s3 gcs none"`

	// S3 config
	Bucket          string `json:"bucket,omitempty" validate:"omitempty,bucketname"`
	Region          string `json:"region,omitempty"`
	AccessKeyID     string `json:"-"`
	SecretAccessKey string `json:"-"`
	Endpoint        string `json:"endpoint,omitempty" validate:"omitempty,endpoint"`

	// GCS config
	ProjectID       string `json:"project_id,omitempty"`
	GCSBucket       string `json:"gcs_bucket,omitempty" validate:"omitempty,bucketname"`
	CredentialsJSON string `json:"-"` // base64 encoded service account JSON
	EmulatorHost    string `json:"emulator_host,omitempty"`
}

// Ready reports whether the remote backend has everything it needs to be tried.
// The reason is empty when ready.
func (c RemoteConfig) Ready() (bool, string) {
	switch c.Provider {
	case "", "none":
		return false, "backup provider disabled"
	case "s3":
		if c.Bucket == "" {
			return false, "no S3 bucket configured"
		}
		if c.AccessKeyID == "" || c.SecretAccessKey == "" {
			return false, "no AWS credentials"
		}
		return true, ""
	case "gcs":
		if c.GCSBucket == "" {
			return false, "no GCS bucket configured"
		}
		if c.CredentialsJSON == "" && c.EmulatorHost == "" {
			return false, "no GCS credentials"
		}
		return true, ""
	default:
		return false, fmt.Sprintf("unsupported backup provider: %s", c.Provider)
	}
}

// NewRemoteProvider creates a remote provider based on configuration.
// Callers check Ready first; an unready configuration is an error here.
func NewRemoteProvider(ctx context.Context, cfg RemoteConfig) (RemoteProvider, error) {
	if ok, reason := cfg.Ready(); !ok {
		return nil, fmt.Errorf("remote provider not ready: %s", reason)
	}

	switch cfg.Provider {
	case "s3":
		return NewS3Storage(ctx, cfg)
	case "gcs":
		return NewGCSStorage(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported backup provider: %s", cfg.Provider)
	}
}
