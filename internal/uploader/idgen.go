package uploader

import (
	"github.com/google/uuid"
)

// NewID returns a fresh record identifier. IDs are random (version 4) UUIDs in
// canonical lowercase form, so they are safe as file names and need no
// coordination between concurrent ingests.
func NewID() string {
	return uuid.New().String()
}

// ValidID reports whether s has the exact shape NewID produces
func ValidID(s string) bool {
	u, err := uuid.Parse(s)
	if err != nil {
		return false
	}
	return u.String() == s
}
