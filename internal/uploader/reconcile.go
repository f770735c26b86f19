package uploader

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"

	"csvcatalog/internal/common/models"
	"csvcatalog/internal/storage"
)

var (
	reconcileRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "csvcatalog_reconcile_runs_total",
		Help: "Reconciliation passes by result",
	}, []string{"result"})
	orphanBlobsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "csvcatalog_orphan_blobs",
		Help: "Blobs on disk with no catalog record, as of the last pass",
	})
	goneRecordsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "csvcatalog_gone_records",
		Help: "Catalog records whose blob is missing, as of the last pass",
	})
	driftedBlobsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "csvcatalog_drifted_blobs",
		Help: "Blobs whose size no longer matches the catalog, as of the last pass",
	})
)

// ReconcileOptions controls what a reconciliation pass may change
type ReconcileOptions struct {
	// Orphans younger than this are left alone; their catalog insert may
	// still be in flight.
	GracePeriod time.Duration

	// DeleteOrphans removes orphan blobs older than GracePeriod. Catalog
	// records are never modified.
	DeleteOrphans bool
}

// Reconcile compares the blob directory with the catalog and reports blobs
// with no record, records with no blob, and blobs whose size has drifted.
func (s *service) Reconcile(ctx context.Context, opts ReconcileOptions) (*models.ReconcileReport, error) {
	report := &models.ReconcileReport{
		StartedAt:    s.clock.now().UTC(),
		OrphanBlobs:  []string{},
		GoneRecords:  []string{},
		DriftedBlobs: []string{},
		DeletedBlobs: []string{},
	}

	// Records are loaded before files so a blob written between the two reads
	// is seen as an orphan (and protected by the grace period), never as gone.
	records, err := s.repo.List(ctx)
	if err != nil {
		reconcileRunsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("loading catalog: %w", err)
	}
	report.RecordsLoaded = len(records)

	files, err := s.blobs.ListFiles(ctx)
	if err != nil {
		reconcileRunsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("listing blobs: %w", err)
	}
	report.BlobsScanned = len(files)

	byID := make(map[string]*models.FileRecord, len(records))
	for _, rec := range records {
		byID[rec.ID] = rec
	}

	seen := make(map[string]bool, len(files))
	for _, file := range files {
		id, ok := storage.IDFromName(file.Name)
		if !ok {
			// leftover temp files are orphans too, reported by file name
			id = file.Name
		}

		if rec, cataloged := byID[id]; cataloged {
			seen[id] = true
			if file.Size != rec.SizeBytes {
				report.DriftedBlobs = append(report.DriftedBlobs, id)
				log.Warn().
					Str("id", id).
					Int64("cataloged_size", rec.SizeBytes).
					Int64("disk_size", file.Size).
					Msg("blob size differs from catalog")
			}
			continue
		}

		if report.StartedAt.Sub(file.ModifiedTime) < opts.GracePeriod {
			continue
		}
		report.OrphanBlobs = append(report.OrphanBlobs, id)

		if opts.DeleteOrphans {
			if err := s.blobs.Delete(ctx, file.Path); err != nil {
				log.Error().
					Err(err).
					Str("path", file.Path).
					Msg("failed to delete orphan blob")
				continue
			}
			report.DeletedBlobs = append(report.DeletedBlobs, id)
		}
	}

	for _, rec := range records {
		if seen[rec.ID] {
			continue
		}
		// The record may point outside the current root if it was moved
		exists, err := s.blobs.Exists(ctx, rec.StoragePath)
		if err != nil {
			log.Error().
				Err(err).
				Str("id", rec.ID).
				Msg("failed to check blob")
			continue
		}
		if !exists {
			report.GoneRecords = append(report.GoneRecords, rec.ID)
		}
	}

	orphanBlobsGauge.Set(float64(len(report.OrphanBlobs)))
	goneRecordsGauge.Set(float64(len(report.GoneRecords)))
	driftedBlobsGauge.Set(float64(len(report.DriftedBlobs)))
	reconcileRunsTotal.WithLabelValues("ok").Inc()

	event := log.Info()
	if len(report.OrphanBlobs)+len(report.GoneRecords)+len(report.DriftedBlobs) > 0 {
		event = log.Warn()
	}
	event.
		Int("blobs", report.BlobsScanned).
		Int("records", report.RecordsLoaded).
		Strs("orphan_blobs", report.OrphanBlobs).
		Strs("gone_records", report.GoneRecords).
		Strs("drifted_blobs", report.DriftedBlobs).
		Int("deleted", len(report.DeletedBlobs)).
		Msg("reconciliation finished")

	return report, nil
}
