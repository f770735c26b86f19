package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"csvcatalog/internal/storage"
	"csvcatalog/internal/validation"
)

// Config holds server configuration
type Config struct {
	Port          int    `validate:"min=1,max=65535"`                                   // Port to listen on
	Env           string `validate:"oneof=development production test"`                 // Environment
	LogLevel      string `validate:"omitempty,oneof=trace debug info warn error fatal"` // Overrides the level implied by Env
	StorageDir    string `validate:"required"`                                          // Root of the local blob store
	UploadMaxSize int64  `validate:"gt=0"`                                              // Maximum upload size in bytes
	Backup        BackupConfig
	Reconcile     ReconcileConfig
	Cache         CacheConfig
}

type BackupConfig struct {
	Remote  storage.RemoteConfig
	Timeout time.Duration `validate:"gt=0"` // Bound on a single upload attempt
}

type ReconcileConfig struct {
	Interval      time.Duration `validate:"gte=0"` // 0 runs only the startup pass
	GracePeriod   time.Duration `validate:"gte=0"`
	DeleteOrphans bool
}

type CacheConfig struct {
	Size int           `validate:"gt=0"`
	TTL  time.Duration `validate:"gt=0"`
}

func (c *Config) Log() {
	log.Info().
		Int("port", c.Port).
		Str("env", c.Env).
		Str("storage_dir", c.StorageDir).
		Int64("upload_max_size", c.UploadMaxSize).
		Str("backup_provider", c.Backup.Remote.Provider).
		Dur("backup_timeout", c.Backup.Timeout).
		Dur("reconcile_interval", c.Reconcile.Interval).
		Dur("orphan_grace_period", c.Reconcile.GracePeriod).
		Bool("orphan_sweep_delete", c.Reconcile.DeleteOrphans).
		Int("record_cache_size", c.Cache.Size).
		Msg("server configuration")
}

// NewConfig creates a server configuration from environment variables
func NewConfig() (*Config, error) {
	port, err := strconv.Atoi(getEnv("PORT", "8000"))
	if err != nil {
		log.Error().Err(err).Msg("invalid PORT environment variable")
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	uploadMaxSize, err := parseUploadMaxSize(getEnv("UPLOAD_MAX_SIZE", "25MB"))
	if err != nil {
		log.Error().Err(err).Msg("invalid UPLOAD_MAX_SIZE configuration")
		return nil, err
	}

	backupTimeout, err := parseDuration("BACKUP_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}
	reconcileInterval, err := parseDuration("RECONCILE_INTERVAL", "1h")
	if err != nil {
		return nil, err
	}
	gracePeriod, err := parseDuration("ORPHAN_GRACE_PERIOD", "10m")
	if err != nil {
		return nil, err
	}
	cacheTTL, err := parseDuration("RECORD_CACHE_TTL", "10m")
	if err != nil {
		return nil, err
	}

	deleteOrphans, err := strconv.ParseBool(getEnv("ORPHAN_SWEEP_DELETE", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid ORPHAN_SWEEP_DELETE: %w", err)
	}

	cacheSize, err := strconv.Atoi(getEnv("RECORD_CACHE_SIZE", "1024"))
	if err != nil {
		return nil, fmt.Errorf("invalid RECORD_CACHE_SIZE: %w", err)
	}

	cfg := &Config{
		Port:          port,
		Env:           getEnv("APP_ENV", "production"),
		LogLevel:      strings.ToLower(os.Getenv("LOG_LEVEL")),
		StorageDir:    getEnv("LOCAL_STORAGE", "./data"),
		UploadMaxSize: uploadMaxSize,
		Backup: BackupConfig{
			Remote: storage.RemoteConfig{
				Provider:        getEnv("BACKUP_PROVIDER", "s3"),
				Bucket:          getEnv("S3_BUCKET", "soh-files-bucket"),
				Region:          getEnv("AWS_REGION", "us-east-1"),
				AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
				SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
				Endpoint:        os.Getenv("S3_ENDPOINT"),
				ProjectID:       os.Getenv("GCS_PROJECT_ID"),
				GCSBucket:       os.Getenv("GCS_BUCKET_NAME"),
				CredentialsJSON: os.Getenv("GOOGLE_CLOUD_CREDENTIALS"),
				EmulatorHost:    os.Getenv("STORAGE_EMULATOR_HOST"),
			},
			Timeout: backupTimeout,
		},
		Reconcile: ReconcileConfig{
			Interval:      reconcileInterval,
			GracePeriod:   gracePeriod,
			DeleteOrphans: deleteOrphans,
		},
		Cache: CacheConfig{
			Size: cacheSize,
			TTL:  cacheTTL,
		},
	}

	if err := validation.Validate(cfg); err != nil {
		log.Error().Err(err).Msg("invalid configuration")
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func parseDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(getEnv(key, fallback))
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("invalid duration")
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

// parseUploadMaxSize parses the UPLOAD_MAX_SIZE environment variable
// Value is expected to be postfixed with "MB" for megabytes or "GB" for gigabytes, e.g. "100MB"
// If no postfix is provided, the value is assumed to be in megabytes
func parseUploadMaxSize(size string) (int64, error) {
	multiplier := int64(1024 * 1024)
	switch {
	case strings.HasSuffix(size, "GB"):
		multiplier = 1024 * 1024 * 1024
		size = strings.TrimSuffix(size, "GB")
	case strings.HasSuffix(size, "MB"):
		size = strings.TrimSuffix(size, "MB")
	}

	value, err := strconv.ParseInt(size, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid UPLOAD_MAX_SIZE: %w", err)
	}
	if value <= 0 {
		return 0, fmt.Errorf("invalid UPLOAD_MAX_SIZE: must be positive, got %d", value)
	}
	return value * multiplier, nil
}
