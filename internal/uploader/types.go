package uploader

import (
	"database/sql/driver"
	"fmt"
	"time"

	"csvcatalog/internal/csvparse"
)

// Stage is a step of the ingest pipeline. An ingest only advances once the
// effect of the previous stage is durable.
type Stage int

const (
	StageReceived Stage = iota
	StageParsed
	StageBlobWritten
	StageCataloged
	StageBackedUp
	StageComplete
)

func (s Stage) String() string {
	return [...]string{
		"received",
		"parsed",
		"blob_written",
		"cataloged",
		"backed_up",
		"complete",
	}[s]
}

// timestampLayout is fixed width so lexical order of the stored text matches
// chronological order on every engine.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

// Timestamp stores a time as UTC ISO-8601 text
type Timestamp time.Time

// Value implements the driver.Valuer interface for database/sql
func (ts Timestamp) Value() (driver.Value, error) {
	return time.Time(ts).UTC().Format(timestampLayout), nil
}

// Scan implements the sql.Scanner interface for database/sql
func (ts *Timestamp) Scan(value interface{}) error {
	str, err := scanText(value, "Timestamp")
	if err != nil {
		return err
	}

	t, err := time.Parse(timestampLayout, str)
	if err != nil {
		// Rows written by other tools may use any RFC 3339 precision
		t, err = time.Parse(time.RFC3339Nano, str)
		if err != nil {
			return fmt.Errorf("invalid Timestamp: %q", str)
		}
	}

	*ts = Timestamp(t.UTC())
	return nil
}

// HeaderList stores column names as a single CSV record
type HeaderList []string

// Value implements the driver.Valuer interface for database/sql
func (h HeaderList) Value() (driver.Value, error) {
	return csvparse.EncodeHeaders(h), nil
}

// Scan implements the sql.Scanner interface for database/sql
func (h *HeaderList) Scan(value interface{}) error {
	if value == nil {
		*h = HeaderList{}
		return nil
	}

	str, err := scanText(value, "HeaderList")
	if err != nil {
		return err
	}

	headers, err := csvparse.DecodeHeaders(str)
	if err != nil {
		return fmt.Errorf("invalid HeaderList: %w", err)
	}

	*h = headers
	return nil
}

func scanText(value interface{}, name string) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case nil:
		return "", fmt.Errorf("%s cannot be nil", name)
	default:
		return "", fmt.Errorf("failed to scan %s: %v not string or []byte", name, value)
	}
}

// Time returns the stored instant in UTC
func (ts Timestamp) Time() time.Time {
	return time.Time(ts).UTC()
}
