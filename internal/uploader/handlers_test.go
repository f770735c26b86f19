package uploader

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"csvcatalog/internal/common/models"
)

func newTestRouter(t *testing.T, maxUpload int64) (*testEnv, http.Handler) {
	t.Helper()
	env := newTestEnv(t)
	h := NewHandler(env.svc, maxUpload)

	r := chi.NewRouter()
	r.Get("/", h.HandleIndex)
	r.Post("/upload", h.HandleUpload)
	r.Get("/file/{fileID}", h.HandleViewFile)
	r.Get("/download/{fileID}", h.HandleDownload)
	r.Get("/files", h.HandleListFiles)
	r.Get("/api/files/{fileID}", h.HandleGetFile)
	r.Post("/api/upload", h.HandleAPIUpload)
	return env, r
}

func multipartBody(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func upload(t *testing.T, router http.Handler, path, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, "file", filename, content)
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func get(router http.Handler, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func apiUpload(t *testing.T, router http.Handler, filename string, content []byte) *models.FileRecord {
	t.Helper()
	resp := upload(t, router, "/api/upload", filename, content)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	var body struct {
		Success bool                  `json:"success"`
		Data    models.UploadResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.True(t, body.Success)
	return body.Data.Record
}

func TestHandleUpload_RendersPreview(t *testing.T) {
	_, router := newTestRouter(t, 1<<20)

	resp := upload(t, router, "/upload", "people.csv", []byte("name,age\nAda,36\n"))

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Header().Get("Content-Type"), "text/html")
	html := resp.Body.String()
	assert.Contains(t, html, "<h1>people.csv</h1>")
	assert.Contains(t, html, "<th>name</th><th>age</th>")
	assert.Contains(t, html, "<td>Ada</td><td>36</td>")
	assert.Contains(t, html, "Remote backup is not configured")
}

func TestHandleUpload_EscapesUserText(t *testing.T) {
	_, router := newTestRouter(t, 1<<20)

	name := `<img src=x onerror="alert(1)">.csv`
	resp := upload(t, router, "/upload", name, []byte("<b>h</b>\n<i>v</i>\n"))
	require.Equal(t, http.StatusOK, resp.Code)

	html := resp.Body.String()
	assert.NotContains(t, html, "<img")
	assert.NotContains(t, html, "<b>h</b>")
	assert.Contains(t, html, "&lt;img src=x onerror=&#34;alert(1)&#34;&gt;.csv")
	assert.Contains(t, html, "&lt;i&gt;v&lt;/i&gt;")

	index := get(router, "/")
	assert.Equal(t, http.StatusOK, index.Code)
	assert.NotContains(t, index.Body.String(), "<img")
	assert.Contains(t, index.Body.String(), "&lt;img")
}

func TestHandleUpload_Errors(t *testing.T) {
	tests := []struct {
		name       string
		filename   string
		content    []byte
		wantStatus int
	}{
		{name: "invalid utf-8", filename: "x.csv", content: []byte{0xff, 0xfe}, wantStatus: http.StatusBadRequest},
		{name: "malformed csv", filename: "x.csv", content: []byte("a\n\"open\n"), wantStatus: http.StatusBadRequest},
		{name: "too large", filename: "x.csv", content: bytes.Repeat([]byte("a,b\n"), 1024), wantStatus: http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, router := newTestRouter(t, 1024)

			resp := upload(t, router, "/upload", tt.filename, tt.content)
			assert.Equal(t, tt.wantStatus, resp.Code)

			records, err := env.svc.ListCatalog(context.Background())
			require.NoError(t, err)
			assert.Empty(t, records)
		})
	}
}

func TestHandleUpload_MissingFile(t *testing.T) {
	_, router := newTestRouter(t, 1<<20)

	body, contentType := multipartBody(t, "other", "x.csv", []byte("a\n"))
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	var apiResp models.APIResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &apiResp))
	assert.False(t, apiResp.Success)
	assert.Equal(t, "No file provided", apiResp.Message)
}

func TestHandleAPIUpload(t *testing.T) {
	_, router := newTestRouter(t, 1<<20)

	rec := apiUpload(t, router, "data.csv", []byte("a,b\n1,2\n3,4\n"))
	assert.True(t, ValidID(rec.ID))
	assert.Equal(t, 2, rec.RowCount)
	assert.Equal(t, []string{"a", "b"}, rec.Headers)
	assert.Empty(t, rec.StoragePath, "storage path must not leak over the API")
}

func TestHandleViewFile(t *testing.T) {
	env, router := newTestRouter(t, 1<<20)
	rec := apiUpload(t, router, "data.csv", []byte("a,b\n1,2\n"))

	resp := get(router, "/file/"+rec.ID)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "<td>1</td><td>2</td>")

	assert.Equal(t, http.StatusNotFound, get(router, "/file/"+NewID()).Code)
	assert.Equal(t, http.StatusNotFound, get(router, "/file/not-an-id").Code)

	require.NoError(t, os.Remove(env.blobs.Path(rec.ID)))
	assert.Equal(t, http.StatusGone, get(router, "/file/"+rec.ID).Code)
}

func TestHandleDownload(t *testing.T) {
	env, router := newTestRouter(t, 1<<20)
	content := []byte("a,b\r\n1,2\r\n")
	rec := apiUpload(t, router, `résumé "final".csv`, content)

	resp := get(router, "/download/"+rec.ID)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, content, resp.Body.Bytes())
	assert.Equal(t, "text/csv; charset=utf-8", resp.Header().Get("Content-Type"))

	disposition, params, err := mime.ParseMediaType(resp.Header().Get("Content-Disposition"))
	require.NoError(t, err)
	assert.Equal(t, "attachment", disposition)
	assert.Equal(t, `résumé "final".csv`, params["filename"])

	assert.Equal(t, http.StatusNotFound, get(router, "/download/"+NewID()).Code)

	require.NoError(t, os.Remove(env.blobs.Path(rec.ID)))
	assert.Equal(t, http.StatusGone, get(router, "/download/"+rec.ID).Code)
}

func TestHandleListFiles(t *testing.T) {
	_, router := newTestRouter(t, 1<<20)

	empty := get(router, "/files")
	assert.Equal(t, http.StatusOK, empty.Code)
	assert.JSONEq(t, `[]`, empty.Body.String())

	first := apiUpload(t, router, "first.csv", []byte("a\n1\n"))
	second := apiUpload(t, router, "second.csv", []byte("a\n1\n2\n"))

	resp := get(router, "/files")
	require.Equal(t, http.StatusOK, resp.Code)

	var files []models.FileRecord
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &files))
	require.Len(t, files, 2)
	assert.Equal(t, second.ID, files[0].ID)
	assert.Equal(t, first.ID, files[1].ID)
	assert.Equal(t, 2, files[0].RowCount)
	assert.False(t, strings.Contains(resp.Body.String(), "storage_path"))
}

func TestHandleGetFile(t *testing.T) {
	_, router := newTestRouter(t, 1<<20)
	rec := apiUpload(t, router, "data.csv", []byte("a,b\n1,2\n"))

	resp := get(router, "/api/files/"+rec.ID)
	require.Equal(t, http.StatusOK, resp.Code)

	var body struct {
		Success bool               `json:"success"`
		Data    models.FilePreview `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, rec.ID, body.Data.Record.ID)
	assert.Equal(t, [][]string{{"1", "2"}}, body.Data.Rows)

	assert.Equal(t, http.StatusNotFound, get(router, "/api/files/"+NewID()).Code)
}

func TestHandleIndex_Pagination(t *testing.T) {
	_, router := newTestRouter(t, 1<<20)
	for i := 0; i < 3; i++ {
		apiUpload(t, router, "f.csv", []byte("a\n1\n"))
	}

	resp := get(router, "/?page=2&limit=2")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "page 2 of 2")
	assert.Contains(t, resp.Body.String(), "newer")
	assert.Equal(t, 1, strings.Count(resp.Body.String(), `href="/file/`))
}

func TestRender_FailedComponentReturns500(t *testing.T) {
	h := &Handler{}
	broken := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, _ = io.WriteString(w, "<p>partial")
		return errors.New("template blew up")
	})

	rec := httptest.NewRecorder()
	h.render(rec, httptest.NewRequest(http.MethodGet, "/", nil), http.StatusOK, broken)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "partial")
}

func TestRender_SetsStatusAndContentType(t *testing.T) {
	h := &Handler{}
	rec := httptest.NewRecorder()
	h.renderError(rec, httptest.NewRequest(http.MethodGet, "/file/x", nil), http.StatusGone, "File is gone")

	assert.Equal(t, http.StatusGone, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "<title>410 Gone</title>")
}
