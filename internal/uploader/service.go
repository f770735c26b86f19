package uploader

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/blake2b"

	"csvcatalog/internal/backup"
	"csvcatalog/internal/common/models"
	"csvcatalog/internal/csvparse"
	"csvcatalog/internal/storage"
	"csvcatalog/internal/validation"
)

var (
	ingestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "csvcatalog_ingest_total",
		Help: "Ingest attempts by result and the last stage reached",
	}, []string{"result", "stage"})
	ingestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "csvcatalog_ingest_duration_seconds",
		Help:    "Time from receipt to completion of successful ingests",
		Buckets: prometheus.DefBuckets,
	})
	ingestBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "csvcatalog_ingest_bytes_total",
		Help: "Bytes of CSV content accepted into the catalog",
	})
)

type Service interface {
	Ingest(ctx context.Context, data []byte, displayName string) (*IngestResult, error)
	ListCatalog(ctx context.Context) ([]*models.FileRecord, error)
	ListCatalogPage(ctx context.Context, page, limit int) ([]*models.FileRecord, int, error)
	GetRecord(ctx context.Context, id string) (*models.FileRecord, error)
	ReadBlob(ctx context.Context, rec *models.FileRecord) ([]byte, error)
	Preview(ctx context.Context, id string) (*models.FilePreview, error)
	Reconcile(ctx context.Context, opts ReconcileOptions) (*models.ReconcileReport, error)
}

// Backupper is the remote copy step. It reports an outcome and never fails
// the ingest.
type Backupper interface {
	Backup(ctx context.Context, localPath, key string) backup.Outcome
}

// IngestResult is what a completed ingest hands back to the caller
type IngestResult struct {
	Record *models.FileRecord
	Rows   [][]string
	Backup backup.Outcome
}

type service struct {
	repo   Repository
	blobs  storage.BlobStore
	backup Backupper
	clock  *clock
}

func NewService(repo Repository, blobs storage.BlobStore, backupper Backupper) Service {
	return newService(repo, blobs, backupper, time.Now)
}

func newService(repo Repository, blobs storage.BlobStore, backupper Backupper, now func() time.Time) *service {
	return &service{
		repo:   repo,
		blobs:  blobs,
		backup: backupper,
		clock:  &clock{now: now},
	}
}

// Ingest runs one upload through parse, blob write, catalog insert and backup.
// Any failure before the record is cataloged aborts the ingest with an
// *IngestError naming the last completed stage.
func (s *service) Ingest(ctx context.Context, data []byte, displayName string) (*IngestResult, error) {
	start := time.Now()
	stage := StageReceived

	fail := func(err error) (*IngestResult, error) {
		ingestTotal.WithLabelValues("failed", stage.String()).Inc()
		return nil, &IngestError{Stage: stage, Err: err}
	}
	advance := func(id string, next Stage) {
		stage = next
		log.Debug().Str("id", id).Stringer("stage", stage).Msg("ingest advanced")
	}

	if err := validation.ValidateDisplayName(displayName); err != nil {
		return fail(fmt.Errorf("%w: %v", ErrInvalidName, err))
	}

	doc, err := csvparse.Parse(data)
	if err != nil {
		return fail(err)
	}
	id := NewID()
	advance(id, StageParsed)

	path, err := s.blobs.Put(ctx, id, data)
	if err != nil {
		return fail(err)
	}
	advance(id, StageBlobWritten)

	sum := blake2b.Sum256(data)
	rec := &models.FileRecord{
		ID:           id,
		StoragePath:  path,
		OriginalName: displayName,
		RowCount:     doc.RowCount(),
		Headers:      doc.Headers,
		SizeBytes:    int64(len(data)),
		Checksum:     hex.EncodeToString(sum[:]),
		UploadedAt:   s.clock.Now(),
	}

	// The blob is durable now; a client going away must not strand it
	if err := s.repo.Insert(context.WithoutCancel(ctx), rec); err != nil {
		log.Error().
			Err(err).
			Str("id", id).
			Str("orphan_blob", path).
			Msg("catalog insert failed, blob left on disk")
		return fail(err)
	}
	advance(id, StageCataloged)

	outcome := s.backup.Backup(ctx, path, backup.Key(rec.ID, rec.UploadedAt))
	if outcome.OK() {
		advance(id, StageBackedUp)
	}
	advance(id, StageComplete)

	ingestTotal.WithLabelValues("complete", stage.String()).Inc()
	ingestDuration.Observe(time.Since(start).Seconds())
	ingestBytesTotal.Add(float64(rec.SizeBytes))

	log.Info().
		Str("id", rec.ID).
		Str("name", rec.OriginalName).
		Int("rows", rec.RowCount).
		Int64("size", rec.SizeBytes).
		Str("backup", outcome.String()).
		Dur("took", time.Since(start)).
		Msg("file ingested")

	return &IngestResult{
		Record: rec,
		Rows:   doc.Rows,
		Backup: outcome,
	}, nil
}

// ListCatalog returns every record, newest first
func (s *service) ListCatalog(ctx context.Context) ([]*models.FileRecord, error) {
	records, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing catalog: %w", err)
	}
	return records, nil
}

// ListCatalogPage returns one page of the catalog and the total record count.
// Pages start at 1.
func (s *service) ListCatalogPage(ctx context.Context, page, limit int) ([]*models.FileRecord, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}

	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("counting catalog: %w", err)
	}

	records, err := s.repo.ListPage(ctx, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, fmt.Errorf("listing catalog page: %w", err)
	}

	return records, total, nil
}

// GetRecord looks up one record. Identifiers that NewID could not have
// produced are reported as not found without touching the catalog.
func (s *service) GetRecord(ctx context.Context, id string) (*models.FileRecord, error) {
	if !ValidID(id) {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}

	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("retrieving record: %w", err)
	}
	return rec, nil
}

// ReadBlob returns the current bytes of rec's blob, ErrGoneOnDisk if it has
// been removed out from under the catalog.
func (s *service) ReadBlob(ctx context.Context, rec *models.FileRecord) ([]byte, error) {
	data, err := s.blobs.Get(ctx, rec.StoragePath)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			log.Warn().
				Str("id", rec.ID).
				Str("path", rec.StoragePath).
				Msg("cataloged blob missing on disk")
			return nil, fmt.Errorf("%w: %s", ErrGoneOnDisk, rec.ID)
		}
		return nil, fmt.Errorf("reading blob %s: %w", rec.ID, err)
	}
	return data, nil
}

// Preview re-parses the current blob of a record for display
func (s *service) Preview(ctx context.Context, id string) (*models.FilePreview, error) {
	rec, err := s.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}

	data, err := s.ReadBlob(ctx, rec)
	if err != nil {
		return nil, err
	}

	doc, err := csvparse.Parse(data)
	if err != nil {
		log.Error().
			Err(err).
			Str("id", rec.ID).
			Msg("stored blob failed to parse")
		return nil, fmt.Errorf("%w: %s: %w", ErrUnreadable, rec.ID, err)
	}

	return &models.FilePreview{
		Record:  rec,
		Headers: doc.Headers,
		Rows:    doc.Rows,
	}, nil
}

// clock hands out strictly increasing UTC timestamps so that two ingests never
// share an uploaded_at value.
type clock struct {
	mu   sync.Mutex
	now  func() time.Time
	last time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.now().Round(0).UTC()
	if !t.After(c.last) {
		t = c.last.Add(time.Nanosecond)
	}
	c.last = t
	return t
}
