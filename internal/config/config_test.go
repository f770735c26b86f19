package config

import (
	"reflect"
	"testing"
	"time"

	"csvcatalog/internal/storage"
)

var configKeys = []string{
	"PORT", "APP_ENV", "LOG_LEVEL", "LOCAL_STORAGE", "UPLOAD_MAX_SIZE",
	"BACKUP_PROVIDER", "S3_BUCKET", "AWS_REGION", "AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY", "S3_ENDPOINT",
	"GCS_PROJECT_ID", "GCS_BUCKET_NAME", "GOOGLE_CLOUD_CREDENTIALS", "STORAGE_EMULATOR_HOST",
	"BACKUP_TIMEOUT", "RECONCILE_INTERVAL", "ORPHAN_GRACE_PERIOD", "ORPHAN_SWEEP_DELETE",
	"RECORD_CACHE_SIZE", "RECORD_CACHE_TTL",
}

func defaultConfig() *Config {
	return &Config{
		Port:          8000,
		Env:           "production",
		StorageDir:    "./data",
		UploadMaxSize: 25 * 1024 * 1024,
		Backup: BackupConfig{
			Remote: storage.RemoteConfig{
				Provider: "s3",
				Bucket:   "soh-files-bucket",
				Region:   "us-east-1",
			},
			Timeout: 30 * time.Second,
		},
		Reconcile: ReconcileConfig{
			Interval:    time.Hour,
			GracePeriod: 10 * time.Minute,
		},
		Cache: CacheConfig{
			Size: 1024,
			TTL:  10 * time.Minute,
		},
	}
}

func TestNewConfig(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		want    func() *Config
		wantErr bool
	}{
		{
			name:    "Defaults",
			envVars: map[string]string{},
			want:    defaultConfig,
		},
		{
			name: "Valid configuration",
			envVars: map[string]string{
				"PORT":                  "8080",
				"APP_ENV":               "development",
				"LOG_LEVEL":             "WARN",
				"LOCAL_STORAGE":         "/var/lib/csv",
				"UPLOAD_MAX_SIZE":       "1GB",
				"S3_BUCKET":             "backups.example",
				"AWS_ACCESS_KEY_ID":     "AKIA",
				"AWS_SECRET_ACCESS_KEY": "secret",
				"S3_ENDPOINT":           "http://minio:9000",
				"BACKUP_TIMEOUT":        "5s",
				"RECONCILE_INTERVAL":    "0",
				"ORPHAN_SWEEP_DELETE":   "true",
				"RECORD_CACHE_SIZE":     "10",
			},
			want: func() *Config {
				cfg := defaultConfig()
				cfg.Port = 8080
				cfg.Env = "development"
				cfg.LogLevel = "warn"
				cfg.StorageDir = "/var/lib/csv"
				cfg.UploadMaxSize = 1024 * 1024 * 1024
				cfg.Backup.Remote.Bucket = "backups.example"
				cfg.Backup.Remote.AccessKeyID = "AKIA"
				cfg.Backup.Remote.SecretAccessKey = "secret"
				cfg.Backup.Remote.Endpoint = "http://minio:9000"
				cfg.Backup.Timeout = 5 * time.Second
				cfg.Reconcile.Interval = 0
				cfg.Reconcile.DeleteOrphans = true
				cfg.Cache.Size = 10
				return cfg
			},
		},
		{
			name: "GCS backup",
			envVars: map[string]string{
				"BACKUP_PROVIDER":       "gcs",
				"GCS_PROJECT_ID":        "proj",
				"GCS_BUCKET_NAME":       "csv-backups",
				"STORAGE_EMULATOR_HOST": "localhost:4443",
			},
			want: func() *Config {
				cfg := defaultConfig()
				cfg.Backup.Remote.Provider = "gcs"
				cfg.Backup.Remote.ProjectID = "proj"
				cfg.Backup.Remote.GCSBucket = "csv-backups"
				cfg.Backup.Remote.EmulatorHost = "localhost:4443"
				return cfg
			},
		},
		{name: "Invalid PORT", envVars: map[string]string{"PORT": "http"}, wantErr: true},
		{name: "Negative PORT", envVars: map[string]string{"PORT": "-8080"}, wantErr: true},
		{name: "Unknown APP_ENV", envVars: map[string]string{"APP_ENV": "staging"}, wantErr: true},
		{name: "Unknown LOG_LEVEL", envVars: map[string]string{"LOG_LEVEL": "loud"}, wantErr: true},
		{name: "Invalid UPLOAD_MAX_SIZE", envVars: map[string]string{"UPLOAD_MAX_SIZE": "invalid"}, wantErr: true},
		{name: "Zero BACKUP_TIMEOUT", envVars: map[string]string{"BACKUP_TIMEOUT": "0s"}, wantErr: true},
		{name: "Negative RECONCILE_INTERVAL", envVars: map[string]string{"RECONCILE_INTERVAL": "-1m"}, wantErr: true},
		{name: "Invalid ORPHAN_SWEEP_DELETE", envVars: map[string]string{"ORPHAN_SWEEP_DELETE": "sometimes"}, wantErr: true},
		{name: "Unknown BACKUP_PROVIDER", envVars: map[string]string{"BACKUP_PROVIDER": "ftp"}, wantErr: true},
		{name: "Invalid S3_BUCKET", envVars: map[string]string{"S3_BUCKET": "Not_A_Bucket"}, wantErr: true},
		{name: "Invalid S3_ENDPOINT", envVars: map[string]string{"S3_ENDPOINT": "minio:9000"}, wantErr: true},
		{name: "Zero RECORD_CACHE_SIZE", envVars: map[string]string{"RECORD_CACHE_SIZE": "0"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, k := range configKeys {
				t.Setenv(k, "")
			}
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			got, err := NewConfig()
			if (err != nil) != tt.wantErr {
				t.Errorf("NewConfig() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				return
			}
			if want := tt.want(); !reflect.DeepEqual(got, want) {
				t.Errorf("NewConfig() got = %+v, want %+v", got, want)
			}
		})
	}
}

func Test_parseUploadMaxSize(t *testing.T) {
	tests := []struct {
		name    string
		size    string
		want    int64
		wantErr bool
	}{
		{
			name: "Valid MB size",
			size: "25MB",
			want: 25 * 1024 * 1024,
		},
		{
			name: "Valid GB size",
			size: "1GB",
			want: 1 * 1024 * 1024 * 1024,
		},
		{
			name: "No suffix size",
			size: "25",
			want: 25 * 1024 * 1024,
		},
		{
			name:    "Invalid size",
			size:    "invalid",
			wantErr: true,
		},
		{
			name:    "Zero size",
			size:    "0MB",
			wantErr: true,
		},
		{
			name:    "Lowercase suffix",
			size:    "25mb",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseUploadMaxSize(tt.size)
			if (err != nil) != tt.wantErr {
				t.Errorf("parseUploadMaxSize() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("parseUploadMaxSize() got = %v, want %v", got, tt.want)
			}
		})
	}
}
