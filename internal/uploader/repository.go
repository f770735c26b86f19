package uploader

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"csvcatalog/internal/common/models"
	"csvcatalog/internal/database"
)

// Repository is the metadata catalog. Records are insert-only.
type Repository interface {
	Insert(ctx context.Context, rec *models.FileRecord) error
	GetByID(ctx context.Context, id string) (*models.FileRecord, error)
	List(ctx context.Context) ([]*models.FileRecord, error)
	ListPage(ctx context.Context, limit, offset int) ([]*models.FileRecord, error)
	Count(ctx context.Context) (int, error)
}

const recordColumns = `id, storage_path, original_name, row_count, headers, size_bytes, checksum, uploaded_at`

// newest first; id breaks ties so the order is total
const recordOrder = `ORDER BY uploaded_at DESC, id DESC`

type recordRow struct {
	ID           string     `db:"id"`
	StoragePath  string     `db:"storage_path"`
	OriginalName string     `db:"original_name"`
	RowCount     int        `db:"row_count"`
	Headers      HeaderList `db:"headers"`
	SizeBytes    int64      `db:"size_bytes"`
	Checksum     string     `db:"checksum"`
	UploadedAt   Timestamp  `db:"uploaded_at"`
}

func toRow(rec *models.FileRecord) *recordRow {
	return &recordRow{
		ID:           rec.ID,
		StoragePath:  rec.StoragePath,
		OriginalName: rec.OriginalName,
		RowCount:     rec.RowCount,
		Headers:      HeaderList(rec.Headers),
		SizeBytes:    rec.SizeBytes,
		Checksum:     rec.Checksum,
		UploadedAt:   Timestamp(rec.UploadedAt),
	}
}

func (r *recordRow) record() *models.FileRecord {
	headers := []string(r.Headers)
	if headers == nil {
		headers = []string{}
	}
	return &models.FileRecord{
		ID:           r.ID,
		StoragePath:  r.StoragePath,
		OriginalName: r.OriginalName,
		RowCount:     r.RowCount,
		Headers:      headers,
		SizeBytes:    r.SizeBytes,
		Checksum:     r.Checksum,
		UploadedAt:   r.UploadedAt.Time(),
	}
}

type sqlRepository struct {
	db *database.DB
}

// NewRepository returns a catalog backed by db. Queries are written with '?'
// placeholders and rebound for the connected engine.
func NewRepository(db *database.DB) Repository {
	return &sqlRepository{db: db}
}

func (r *sqlRepository) Insert(ctx context.Context, rec *models.FileRecord) error {
	row := toRow(rec)

	err := r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		var existing int
		err := tx.GetContext(ctx, &existing, tx.Rebind(`SELECT COUNT(*) FROM processed_files WHERE id = ?`), row.ID)
		if err != nil {
			return err
		}
		if existing > 0 {
			return ErrDuplicateID
		}

		_, err = tx.NamedExecContext(ctx, `INSERT INTO processed_files (`+recordColumns+`)
			VALUES (:id, :storage_path, :original_name, :row_count, :headers, :size_bytes, :checksum, :uploaded_at)`, row)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateID) || isUniqueViolation(err) {
			return fmt.Errorf("%w: %w: %s", ErrCatalog, ErrDuplicateID, rec.ID)
		}
		return fmt.Errorf("%w: inserting %s: %v", ErrCatalog, rec.ID, err)
	}

	return nil
}

func (r *sqlRepository) GetByID(ctx context.Context, id string) (*models.FileRecord, error) {
	var row recordRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(`SELECT `+recordColumns+` FROM processed_files WHERE id = ?`), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: %v", ErrCatalog, err)
	}
	return row.record(), nil
}

func (r *sqlRepository) List(ctx context.Context) ([]*models.FileRecord, error) {
	var rows []*recordRow
	err := r.db.SelectContext(ctx, &rows, `SELECT `+recordColumns+` FROM processed_files `+recordOrder)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalog, err)
	}
	return toRecords(rows), nil
}

func (r *sqlRepository) ListPage(ctx context.Context, limit, offset int) ([]*models.FileRecord, error) {
	var rows []*recordRow
	query := r.db.Rebind(`SELECT ` + recordColumns + ` FROM processed_files ` + recordOrder + ` LIMIT ? OFFSET ?`)
	if err := r.db.SelectContext(ctx, &rows, query, limit, offset); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalog, err)
	}
	return toRecords(rows), nil
}

func (r *sqlRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM processed_files`); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrCatalog, err)
	}
	return count, nil
}

func toRecords(rows []*recordRow) []*models.FileRecord {
	records := make([]*models.FileRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.record())
	}
	return records
}

// isUniqueViolation recognizes a primary key clash raised by the engine itself,
// which can only happen if two inserts race past the existence check.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
			return true
		case sqlite3.SQLITE_CONSTRAINT:
			return strings.Contains(liteErr.Error(), "UNIQUE")
		}
	}

	return false
}
