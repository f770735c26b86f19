package dashboard

import (
	"context"
	"fmt"

	"csvcatalog/internal/common/models"
	"csvcatalog/internal/database"
)

type Repository interface {
	GetCatalogStats(ctx context.Context) (*models.CatalogStats, error)
	GetRecentFiles(ctx context.Context, limit int) ([]models.RecentFile, error)
}

type repository struct {
	db *database.DB
}

func NewRepository(db *database.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetCatalogStats(ctx context.Context) (*models.CatalogStats, error) {
	stats := &models.CatalogStats{}

	// SUM over BIGINT is NUMERIC on PostgreSQL, hence the casts
	query := `
        SELECT
            COUNT(*) AS total_files,
            CAST(COALESCE(SUM(row_count), 0) AS BIGINT) AS total_rows,
            CAST(COALESCE(SUM(size_bytes), 0) AS BIGINT) AS total_bytes
        FROM processed_files`

	if err := r.db.GetContext(ctx, stats, query); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchingStats, err)
	}
	return stats, nil
}

func (r *repository) GetRecentFiles(ctx context.Context, limit int) ([]models.RecentFile, error) {
	query := r.db.Rebind(`
        SELECT id, original_name, row_count, size_bytes, uploaded_at
        FROM processed_files
        ORDER BY uploaded_at DESC, id DESC
        LIMIT ?`)

	files := []models.RecentFile{}
	if err := r.db.SelectContext(ctx, &files, query, limit); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchingStats, err)
	}
	return files, nil
}
