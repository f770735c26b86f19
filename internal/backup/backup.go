// Package backup mirrors stored blobs to a remote object store on a best-effort
// basis. Nothing here returns an error to its caller: every problem is logged
// and reported as an Outcome.
package backup

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"

	"csvcatalog/internal/storage"
)

const DefaultTimeout = 30 * time.Second

var backupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "csvcatalog_backup_total",
	Help: "Remote backup attempts by outcome",
}, []string{"outcome"})

type Outcome int

const (
	Skipped Outcome = iota
	Succeeded
	Failed
)

func (o Outcome) String() string {
	return [...]string{
		"skipped",
		"succeeded",
		"failed",
	}[o]
}

// OK reports whether the blob reached the remote store
func (o Outcome) OK() bool {
	return o == Succeeded
}

// Key names a blob in the remote store. The date partition comes from the
// ingest timestamp so a prefix listing is a chronological index on its own.
func Key(id string, ingestedAt time.Time) string {
	return fmt.Sprintf("uploads/%s/%s.csv", ingestedAt.UTC().Format("2006/01/02"), id)
}

type Uploader struct {
	provider storage.RemoteProvider // nil when backups are off
	reason   string                 // why backups are off
	timeout  time.Duration
}

// New returns an uploader that pushes to provider, one attempt per call
func New(provider storage.RemoteProvider, timeout time.Duration) *Uploader {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Uploader{
		provider: provider,
		timeout:  timeout,
	}
}

// Disabled returns an uploader that skips every call without network I/O
func Disabled(reason string) *Uploader {
	return &Uploader{reason: reason}
}

// NewFromConfig builds the configured backend. A missing bucket or missing
// credentials yield a disabled uploader, as does a client that cannot be built.
func NewFromConfig(ctx context.Context, cfg storage.RemoteConfig, timeout time.Duration) *Uploader {
	if ok, reason := cfg.Ready(); !ok {
		log.Info().
			Str("provider", cfg.Provider).
			Str("reason", reason).
			Msg("remote backup disabled")
		return Disabled(reason)
	}

	provider, err := storage.NewRemoteProvider(ctx, cfg)
	if err != nil {
		log.Warn().
			Err(err).
			Str("provider", cfg.Provider).
			Msg("failed to create remote backup client, backups disabled")
		return Disabled(fmt.Sprintf("client init failed: %v", err))
	}

	log.Info().
		Str("provider", provider.Name()).
		Str("bucket", provider.Bucket()).
		Dur("timeout", timeout).
		Msg("remote backup enabled")
	return New(provider, timeout)
}

// Enabled reports whether Backup will attempt an upload
func (u *Uploader) Enabled() bool {
	return u.provider != nil
}

// Backup copies the blob at localPath to key. The attempt is bounded by the
// uploader's timeout and is not cancelled when ctx is.
func (u *Uploader) Backup(ctx context.Context, localPath, key string) (outcome Outcome) {
	defer func() {
		if p := recover(); p != nil {
			log.Error().
				Str("category", "failed").
				Str("key", key).
				Interface("panic", p).
				Msg("backup upload panicked")
			outcome = Failed
		}
		backupsTotal.WithLabelValues(outcome.String()).Inc()
	}()

	if u.provider == nil {
		log.Info().
			Str("category", "skipped").
			Str("reason", u.reason).
			Str("key", key).
			Msg("skipping backup upload")
		return Skipped
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), u.timeout)
	defer cancel()

	file, err := os.Open(localPath)
	if err != nil {
		u.logFailure(err, localPath, key)
		return Failed
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		u.logFailure(err, localPath, key)
		return Failed
	}

	if err := u.provider.Upload(ctx, key, file, info.Size()); err != nil {
		u.logFailure(err, localPath, key)
		return Failed
	}

	log.Info().
		Str("category", "succeeded").
		Str("provider", u.provider.Name()).
		Str("bucket", u.provider.Bucket()).
		Str("key", key).
		Msg("blob backed up")
	return Succeeded
}

func (u *Uploader) logFailure(err error, localPath, key string) {
	log.Error().
		Err(err).
		Str("category", "failed").
		Str("provider", u.provider.Name()).
		Str("bucket", u.provider.Bucket()).
		Str("path", localPath).
		Str("key", key).
		Msg("backup upload failed")
}

// Close releases the provider's resources
func (u *Uploader) Close() error {
	if u.provider == nil {
		return nil
	}
	return u.provider.Close()
}
