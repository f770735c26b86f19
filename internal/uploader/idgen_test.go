package uploader

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewID(t *testing.T) {
	id := NewID()
	assert.Len(t, id, 36)
	assert.True(t, ValidID(id))
	assert.Equal(t, strings.ToLower(id), id)
}

func TestNewID_ConcurrentUnique(t *testing.T) {
	const (
		workers = 16
		perWork = 500
	)

	var (
		mu   sync.Mutex
		seen = make(map[string]struct{}, workers*perWork)
		wg   sync.WaitGroup
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids := make([]string, 0, perWork)
			for j := 0; j < perWork; j++ {
				ids = append(ids, NewID())
			}
			mu.Lock()
			defer mu.Unlock()
			for _, id := range ids {
				seen[id] = struct{}{}
			}
		}()
	}
	wg.Wait()

	require.Len(t, seen, workers*perWork)
}

func TestValidID(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want bool
	}{
		{name: "canonical", id: "0b6f2a0e-6a8e-4a4b-9c53-2f7f3c1d9e10", want: true},
		{name: "uppercase", id: "0B6F2A0E-6A8E-4A4B-9C53-2F7F3C1D9E10", want: false},
		{name: "braced", id: "{0b6f2a0e-6a8e-4a4b-9c53-2f7f3c1d9e10}", want: false},
		{name: "urn", id: "urn:uuid:0b6f2a0e-6a8e-4a4b-9c53-2f7f3c1d9e10", want: false},
		{name: "path traversal", id: "../etc/passwd", want: false},
		{name: "empty", id: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidID(tt.id))
		})
	}
}
