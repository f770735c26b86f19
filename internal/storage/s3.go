package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog/log"
)

type S3StorageProvider struct {
	client     *s3.Client
	bucketName string
}

// NewS3Storage builds a client from static credentials. Loading the config does
// not touch the network.
func NewS3Storage(ctx context.Context, cfg RemoteConfig) (*S3StorageProvider, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		// S3-compatible stores (MinIO, localstack) need path-style addressing
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	if cfg.Endpoint != "" {
		log.Debug().
			Str("endpoint", cfg.Endpoint).
			Msg("using custom S3 endpoint")
	}

	return &S3StorageProvider{
		client:     client,
		bucketName: cfg.Bucket,
	}, nil
}

func (s *S3StorageProvider) Name() string {
	return "s3"
}

func (s *S3StorageProvider) Bucket() string {
	return s.bucketName
}

func (s *S3StorageProvider) Upload(ctx context.Context, key string, file io.ReadSeeker, size int64) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucketName),
		Key:           aws.String(key),
		Body:          file,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String("text/csv"),
		StorageClass:  types.StorageClassStandard,
	})
	if err != nil {
		return fmt.Errorf("failed to put object to S3: %w", err)
	}

	log.Debug().
		Str("bucket", s.bucketName).
		Str("key", key).
		Int64("size", size).
		Msg("object written to S3")

	return nil
}

func (s *S3StorageProvider) Close() error {
	return nil
}
