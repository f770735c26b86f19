package pages

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"csvcatalog/internal/common/models"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, c.Render(context.Background(), &buf))
	return buf.String()
}

func testRecord(name string) *models.FileRecord {
	return &models.FileRecord{
		ID:           "4c1f0a7e-5d8b-4f7e-9a55-2f8c3b7d9e10",
		OriginalName: name,
		RowCount:     1234,
		Headers:      []string{"a", "b"},
		SizeBytes:    2048,
		UploadedAt:   time.Now().Add(-time.Hour),
	}
}

func TestFilePage_EscapesCallerText(t *testing.T) {
	rec := testRecord(`<b>x</b>.csv`)
	html := render(t, FilePage(FileProps{
		Record:  rec,
		Headers: []string{`<th onclick="x">`},
		Rows:    [][]string{{`<script>alert(1)</script>`, "a&b"}},
	}))

	assert.NotContains(t, html, "<b>x</b>")
	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, "&lt;b&gt;x&lt;/b&gt;.csv")
	assert.Contains(t, html, "&lt;th onclick=&#34;x&#34;&gt;")
	assert.Contains(t, html, "&lt;script&gt;alert(1)&lt;/script&gt;")
	assert.Contains(t, html, "a&amp;b")
	assert.Contains(t, html, "1,234 rows")
	assert.Contains(t, html, "2.0 kB")
	assert.Contains(t, html, `href="/download/`+rec.ID+`"`)
}

func TestFilePage_BackupNotice(t *testing.T) {
	tests := []struct {
		backup string
		want   string
	}{
		{backup: "succeeded", want: "Saved and backed up."},
		{backup: "skipped", want: "Remote backup is not configured."},
		{backup: "failed", want: "The remote backup failed"},
	}

	for _, tt := range tests {
		t.Run(tt.backup, func(t *testing.T) {
			html := render(t, FilePage(FileProps{Record: testRecord("a.csv"), Backup: tt.backup}))
			assert.Contains(t, html, tt.want)
		})
	}

	html := render(t, FilePage(FileProps{Record: testRecord("a.csv")}))
	assert.NotContains(t, html, `class="notice`)
}

func TestIndexPage(t *testing.T) {
	t.Run("empty catalog", func(t *testing.T) {
		html := render(t, IndexPage(IndexProps{Page: 1, TotalPages: 1}))
		assert.Contains(t, html, "No files uploaded yet")
		assert.Contains(t, html, `action="/upload"`)
		assert.NotContains(t, html, `class="pager"`)
	})

	t.Run("middle page links both ways", func(t *testing.T) {
		html := render(t, IndexPage(IndexProps{
			Files:      []*models.FileRecord{testRecord(`"quoted".csv`)},
			Total:      3001,
			Page:       2,
			TotalPages: 3,
		}))
		assert.Contains(t, html, "(3,001)")
		assert.Contains(t, html, "&#34;quoted&#34;.csv")
		assert.Contains(t, html, `href="/?page=1"`)
		assert.Contains(t, html, `href="/?page=3"`)
		assert.Contains(t, html, "page 2 of 3")
		assert.Contains(t, html, "1 hour ago")
	})
}

func TestErrorPage(t *testing.T) {
	html := render(t, ErrorPage(http.StatusGone, "File <missing> on disk"))
	assert.Contains(t, html, "<title>410 Gone</title>")
	assert.Contains(t, html, "File &lt;missing&gt; on disk")

	assert.Contains(t, render(t, Error404()), "404 Not Found")
}

type failingWriter struct{ n int }

func (f *failingWriter) Write(p []byte) (int, error) {
	if f.n == 0 {
		return 0, errors.New("client went away")
	}
	f.n--
	return len(p), nil
}

func TestRender_StopsOnWriteError(t *testing.T) {
	w := &failingWriter{}
	err := ErrorPage(http.StatusNotFound, "x").Render(context.Background(), w)
	assert.EqualError(t, err, "client went away")
}

func TestFileURL_EscapesID(t *testing.T) {
	assert.Equal(t, templ.SafeURL("/file/a%20b%2Fc"), fileURL("a b/c"))
	assert.Equal(t, templ.SafeURL("/download/a%20b%2Fc"), downloadURL("a b/c"))
	assert.Equal(t, templ.SafeURL("/?page=4"), pageURL(4))
}

func TestFilePage_TableMarkup(t *testing.T) {
	html := render(t, FilePage(FileProps{
		Record:  testRecord("a.csv"),
		Headers: []string{"name", "age"},
		Rows:    [][]string{{"Ada", "36"}, {"Linus", ""}},
	}))

	assert.Contains(t, html, "<thead><tr><th>name</th><th>age</th></tr></thead>")
	assert.Contains(t, html, "<tbody><tr><td>Ada</td><td>36</td></tr><tr><td>Linus</td><td></td></tr></tbody>")
	assert.True(t, strings.HasPrefix(html, "<!doctype html><html lang=\"en\">"))
}
