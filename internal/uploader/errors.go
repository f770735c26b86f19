package uploader

import (
	"errors"
	"fmt"
)

var (
	ErrCatalog      = errors.New("catalog error")
	ErrDuplicateID  = errors.New("duplicate record id")
	ErrNotFound     = errors.New("record not found")
	ErrGoneOnDisk   = errors.New("record exists but its blob is missing")
	ErrUnreadable   = errors.New("stored blob can no longer be parsed")
	ErrInvalidName  = errors.New("invalid display name")
	ErrNoFile       = errors.New("no file provided")
	ErrFileTooLarge = errors.New("file exceeds maximum allowed size")
)

// IngestError reports the last stage an ingest completed before it failed
type IngestError struct {
	Stage Stage
	Err   error
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("ingest failed after %s: %v", e.Stage, e.Err)
}

func (e *IngestError) Unwrap() error {
	return e.Err
}
