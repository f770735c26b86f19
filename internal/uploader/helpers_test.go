package uploader

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"csvcatalog/internal/backup"
	"csvcatalog/internal/database"
	"csvcatalog/internal/database/dbtest"
	"csvcatalog/internal/database/migrate"
	"csvcatalog/internal/storage"
)

// engines lists the catalog backends every repository test runs against.
// PostgreSQL is skipped when no container runtime is available.
func engines() map[string]func(*testing.T) database.Config {
	return map[string]func(*testing.T) database.Config{
		database.DriverSQLite:   dbtest.SQLiteConfig,
		database.DriverPostgres: dbtest.PostgresConfig,
	}
}

func newTestRepository(t *testing.T, cfg database.Config) Repository {
	t.Helper()
	db := dbtest.Open(t, cfg)
	require.NoError(t, migrate.RunMigrations(db))
	return NewRepository(db)
}

type fakeBackup struct {
	mu      sync.Mutex
	outcome backup.Outcome
	keys    []string
}

func (f *fakeBackup) Backup(ctx context.Context, localPath, key string) backup.Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, key)
	return f.outcome
}

type testEnv struct {
	svc    *service
	repo   Repository
	blobs  *storage.LocalStorageProvider
	backup *fakeBackup
}

// newTestEnv wires a service over a temp SQLite catalog and a temp blob root.
// The clock is frozen so ordering relies on the monotonic adjustment.
func newTestEnv(t *testing.T) *testEnv {
	frozen := time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC)
	return newTestEnvAt(t, func() time.Time { return frozen })
}

func newTestEnvAt(t *testing.T, now func() time.Time) *testEnv {
	t.Helper()

	repo := newTestRepository(t, dbtest.SQLiteConfig(t))
	blobs, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	bk := &fakeBackup{outcome: backup.Skipped}

	return &testEnv{
		svc:    newService(repo, blobs, bk, now),
		repo:   repo,
		blobs:  blobs,
		backup: bk,
	}
}
