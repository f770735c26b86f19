package uploader

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcile(t *testing.T) {
	env := newTestEnvAt(t, time.Now)
	ctx := context.Background()

	healthy, err := env.svc.Ingest(ctx, []byte("a\n1\n"), "healthy.csv")
	require.NoError(t, err)
	gone, err := env.svc.Ingest(ctx, []byte("a\n1\n"), "gone.csv")
	require.NoError(t, err)
	drifted, err := env.svc.Ingest(ctx, []byte("a\n1\n"), "drifted.csv")
	require.NoError(t, err)

	require.NoError(t, os.Remove(gone.Record.StoragePath))
	require.NoError(t, os.WriteFile(drifted.Record.StoragePath, []byte("a\n1\n2\n"), 0o644))

	orphanID := NewID()
	_, err = env.blobs.Put(ctx, orphanID, []byte("x\n"))
	require.NoError(t, err)
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(env.blobs.Path(orphanID), old, old))

	freshID := NewID()
	_, err = env.blobs.Put(ctx, freshID, []byte("y\n"))
	require.NoError(t, err)

	report, err := env.svc.Reconcile(ctx, ReconcileOptions{GracePeriod: 10 * time.Minute})
	require.NoError(t, err)

	assert.Equal(t, 3, report.RecordsLoaded)
	assert.Equal(t, 4, report.BlobsScanned)
	assert.Equal(t, []string{orphanID}, report.OrphanBlobs)
	assert.Equal(t, []string{gone.Record.ID}, report.GoneRecords)
	assert.Equal(t, []string{drifted.Record.ID}, report.DriftedBlobs)
	assert.Empty(t, report.DeletedBlobs)
	assert.NotContains(t, report.OrphanBlobs, healthy.Record.ID)

	// report-only: everything is still in place
	exists, err := env.blobs.Exists(ctx, env.blobs.Path(orphanID))
	require.NoError(t, err)
	assert.True(t, exists)

	count, err := env.repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestReconcile_DeleteOrphans(t *testing.T) {
	env := newTestEnvAt(t, time.Now)
	ctx := context.Background()

	kept, err := env.svc.Ingest(ctx, []byte("a\n1\n"), "kept.csv")
	require.NoError(t, err)

	orphanID := NewID()
	_, err = env.blobs.Put(ctx, orphanID, []byte("x\n"))
	require.NoError(t, err)

	// a temp file left by an interrupted write
	tmp := filepath.Join(env.blobs.Root(), NewID()+".csv.tmp")
	require.NoError(t, os.WriteFile(tmp, []byte("partial"), 0o644))

	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(env.blobs.Path(orphanID), old, old))
	require.NoError(t, os.Chtimes(tmp, old, old))

	report, err := env.svc.Reconcile(ctx, ReconcileOptions{
		GracePeriod:   time.Minute,
		DeleteOrphans: true,
	})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{orphanID, filepath.Base(tmp)}, report.OrphanBlobs)
	assert.ElementsMatch(t, report.OrphanBlobs, report.DeletedBlobs)

	_, err = os.Stat(env.blobs.Path(orphanID))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(tmp)
	assert.True(t, os.IsNotExist(err))

	// cataloged blobs are never touched
	_, err = env.svc.ReadBlob(ctx, kept.Record)
	assert.NoError(t, err)
}

func TestReconcile_EmptyStore(t *testing.T) {
	env := newTestEnvAt(t, time.Now)

	report, err := env.svc.Reconcile(context.Background(), ReconcileOptions{})
	require.NoError(t, err)
	assert.Zero(t, report.BlobsScanned)
	assert.Zero(t, report.RecordsLoaded)
	assert.Empty(t, report.OrphanBlobs)
	assert.Empty(t, report.GoneRecords)
}
