package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

const (
	blobExt = ".csv"
	tmpExt  = ".tmp"
)

type LocalStorageProvider struct {
	baseDir string
}

func NewLocalStorage(baseDir string) (*LocalStorageProvider, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: failed to create storage directory: %w", ErrStorage, err)
	}

	return &LocalStorageProvider{
		baseDir: baseDir,
	}, nil
}

// Root returns the storage directory
func (l *LocalStorageProvider) Root() string {
	return l.baseDir
}

// Path returns where the blob for id lives
func (l *LocalStorageProvider) Path(id string) string {
	return filepath.Join(l.baseDir, id+blobExt)
}

// Put writes data to a temp file, syncs it and renames it into place, so a
// blob at its final path is always complete.
func (l *LocalStorageProvider) Put(ctx context.Context, id string, data []byte) (string, error) {
	if id == "" || filepath.Base(id) != id || strings.ContainsAny(id, `/\`) {
		return "", fmt.Errorf("%w: invalid blob id %q", ErrStorage, id)
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrStorage, err)
	}

	fullPath := l.Path(id)
	tmpPath := fullPath + tmpExt

	dst, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("%w: failed to create file: %w", ErrStorage, err)
	}

	if _, err := dst.Write(data); err != nil {
		dst.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("%w: failed to write file: %w", ErrStorage, err)
	}

	if err := dst.Sync(); err != nil {
		dst.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("%w: failed to sync file: %w", ErrStorage, err)
	}

	if err := dst.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("%w: failed to close file: %w", ErrStorage, err)
	}

	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("%w: failed to rename file: %w", ErrStorage, err)
	}

	log.Debug().
		Str("path", fullPath).
		Int("size", len(data)).
		Msg("blob written")

	return fullPath, nil
}

func (l *LocalStorageProvider) Exists(ctx context.Context, path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("%w: error checking file existence: %w", ErrStorage, err)
}

func (l *LocalStorageProvider) Get(ctx context.Context, path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("%w: failed to read file: %w", ErrStorage, err)
	}
	return data, nil
}

func (l *LocalStorageProvider) Delete(ctx context.Context, path string) error {
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return fmt.Errorf("%w: failed to delete file: %w", ErrStorage, err)
	}
	return nil
}

// ListFiles returns the regular files directly under the storage root,
// including temp files left behind by interrupted writes.
func (l *LocalStorageProvider) ListFiles(ctx context.Context) ([]FileInfo, error) {
	entries, err := os.ReadDir(l.baseDir)
	if err != nil {
		return nil, fmt.Errorf("%w: error reading storage directory: %w", ErrStorage, err)
	}

	files := make([]FileInfo, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// Removed between ReadDir and Info
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("%w: failed to get file info: %w", ErrStorage, err)
		}
		files = append(files, FileInfo{
			Name:         entry.Name(),
			Path:         filepath.Join(l.baseDir, entry.Name()),
			Size:         info.Size(),
			ModifiedTime: info.ModTime(),
		})
	}

	return files, nil
}

// IDFromName extracts the blob id from a file name produced by Put.
// Temp files and foreign files report ok=false.
func IDFromName(name string) (string, bool) {
	if !strings.HasSuffix(name, blobExt) {
		return "", false
	}
	id := strings.TrimSuffix(name, blobExt)
	return id, id != ""
}
