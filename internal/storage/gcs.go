package storage

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
)

type GCSStorageProvider struct {
	client     *storage.Client
	bucket     *storage.BucketHandle
	bucketName string
}

// NewGCSStorage only builds the client; no request reaches GCS until Upload.
func NewGCSStorage(ctx context.Context, cfg RemoteConfig) (*GCSStorageProvider, error) {
	var client *storage.Client
	var err error

	if cfg.EmulatorHost != "" {
		log.Debug().
			Str("emulator_host", cfg.EmulatorHost).
			Msg("using GCS emulator")
		client, err = storage.NewClient(
			ctx,
			option.WithEndpoint(fmt.Sprintf("http://%s/storage/v1/", cfg.EmulatorHost)),
			option.WithoutAuthentication(),
		)
	} else {
		decodedCreds, decodeErr := base64.StdEncoding.DecodeString(cfg.CredentialsJSON)
		if decodeErr != nil {
			return nil, fmt.Errorf("invalid base64 credentials: %w", decodeErr)
		}
		client, err = storage.NewClient(ctx, option.WithCredentialsJSON(decodedCreds))
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	return &GCSStorageProvider{
		client:     client,
		bucket:     client.Bucket(cfg.GCSBucket),
		bucketName: cfg.GCSBucket,
	}, nil
}

func (g *GCSStorageProvider) Name() string {
	return "gcs"
}

func (g *GCSStorageProvider) Bucket() string {
	return g.bucketName
}

// Upload streams file to key. A failed copy cancels the write so that GCS
// never finalizes a truncated object under the key.
func (g *GCSStorageProvider) Upload(ctx context.Context, key string, file io.ReadSeeker, size int64) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	writer := g.bucket.Object(key).NewWriter(ctx)
	writer.ContentType = "text/csv"
	writer.StorageClass = "STANDARD"

	if _, err := io.Copy(writer, file); err != nil {
		cancel()
		if closeErr := writer.Close(); closeErr != nil {
			log.Debug().Err(closeErr).Str("key", key).Msg("GCS write aborted")
		}
		return fmt.Errorf("failed to copy file to GCS: %w", err)
	}

	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close writer: %w", err)
	}

	log.Debug().
		Str("bucket", g.bucketName).
		Str("key", key).
		Int64("size", size).
		Msg("object written to GCS")

	return nil
}

func (g *GCSStorageProvider) Close() error {
	return g.client.Close()
}
