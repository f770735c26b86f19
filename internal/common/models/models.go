package models

import (
	"time"
)

// Catalog

// FileRecord is the catalog entry for one uploaded CSV blob. Records are
// written once at ingest and never updated.
type FileRecord struct {
	ID           string    `json:"id"`            // Unique identifier, also names the blob on disk
	StoragePath  string    `json:"-"`             // Location of the blob under the storage root
	OriginalName string    `json:"original_name"` // Display name supplied by the uploader, stored verbatim
	RowCount     int       `json:"rows"`          // Data rows, header excluded
	Headers      []string  `json:"headers"`       // Column names from the first row, may be empty
	SizeBytes    int64     `json:"size_bytes"`    // Length of the blob
	Checksum     string    `json:"checksum"`      // Hex BLAKE2b-256 of the blob at ingest time
	UploadedAt   time.Time `json:"uploaded_at"`   // Server-assigned ingest time (UTC)
}

// FilePreview pairs a record with rows re-parsed from the current blob
type FilePreview struct {
	Record  *FileRecord `json:"record"`
	Headers []string    `json:"headers"`
	Rows    [][]string  `json:"rows"`
}

// API

type FileListResponse struct {
	Files []*FileRecord `json:"files"`
	Total int           `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

type UploadResponse struct {
	Record   *FileRecord `json:"record"`
	Backup   string      `json:"backup"` // succeeded, skipped or failed
	FileURL  string      `json:"file_url"`
	Download string      `json:"download_url"`
}

// ReconcileReport summarizes one pass comparing the blob directory with the catalog
type ReconcileReport struct {
	StartedAt     time.Time `json:"started_at"`
	BlobsScanned  int       `json:"blobs_scanned"`
	RecordsLoaded int       `json:"records_loaded"`
	OrphanBlobs   []string  `json:"orphan_blobs"`  // on disk, no catalog entry
	GoneRecords   []string  `json:"gone_records"`  // catalog entry, no blob
	DriftedBlobs  []string  `json:"drifted_blobs"` // size differs from the catalog
	DeletedBlobs  []string  `json:"deleted_blobs"` // orphans removed by this pass
}

// Dashboard

// CatalogStats aggregates the whole catalog for the stats endpoint
type CatalogStats struct {
	TotalFiles  int64        `json:"total_files" db:"total_files"`
	TotalRows   int64        `json:"total_rows" db:"total_rows"`
	TotalBytes  int64        `json:"total_bytes" db:"total_bytes"`
	RecentFiles []RecentFile `json:"recent_files"`
}

type RecentFile struct {
	ID           string `json:"id" db:"id"`
	OriginalName string `json:"original_name" db:"original_name"`
	RowCount     int    `json:"rows" db:"row_count"`
	SizeBytes    int64  `json:"size_bytes" db:"size_bytes"`
	UploadedAt   string `json:"uploaded_at" db:"uploaded_at"`
}

// APIResponse represents the structure of a standard API response.
// Data is omitted when empty.
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}
