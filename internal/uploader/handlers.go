package uploader

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"csvcatalog/cmd/web/pages"
	"csvcatalog/internal/common/models"
	"csvcatalog/internal/csvparse"
)

const (
	defaultPageSize = 25
	maxPageSize     = 100

	// multipart parts beyond this are spooled to temp files
	maxFormMemory = 32 << 20
)

type Handler struct {
	service       Service
	maxUploadSize int64
}

func NewHandler(service Service, maxUploadSize int64) *Handler {
	return &Handler{
		service:       service,
		maxUploadSize: maxUploadSize,
	}
}

// HandleIndex renders the upload form and one page of the catalog
func (h *Handler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	page, limit := pagination(r)

	files, total, err := h.service.ListCatalogPage(r.Context(), page, limit)
	if err != nil {
		log.Error().Err(err).Msg("error listing catalog")
		h.renderError(w, r, http.StatusInternalServerError, "Error fetching files")
		return
	}

	props := pages.IndexProps{
		Files:      files,
		Total:      total,
		Page:       page,
		TotalPages: (total + limit - 1) / limit, // Ceiling division
	}
	h.render(w, r, http.StatusOK, pages.IndexPage(props))
}

// HandleUpload ingests a form upload and renders the parsed preview
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	data, name, err := h.readUpload(w, r)
	if err != nil {
		status, msg := ingestStatus(err)
		h.renderError(w, r, status, msg)
		return
	}

	result, err := h.service.Ingest(r.Context(), data, name)
	if err != nil {
		status, msg := ingestStatus(err)
		logIngestError(err, name, status)
		h.renderError(w, r, status, msg)
		return
	}

	h.render(w, r, http.StatusOK, pages.FilePage(pages.FileProps{
		Record:  result.Record,
		Headers: result.Record.Headers,
		Rows:    result.Rows,
		Backup:  result.Backup.String(),
	}))
}

// HandleViewFile renders the current on-disk content of one file
func (h *Handler) HandleViewFile(w http.ResponseWriter, r *http.Request) {
	preview, err := h.service.Preview(r.Context(), chi.URLParam(r, "fileID"))
	if err != nil {
		status, msg := readStatus(err)
		h.renderError(w, r, status, msg)
		return
	}

	h.render(w, r, http.StatusOK, pages.FilePage(pages.FileProps{
		Record:  preview.Record,
		Headers: preview.Headers,
		Rows:    preview.Rows,
	}))
}

// HandleDownload sends the stored bytes under the original file name
func (h *Handler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	rec, err := h.service.GetRecord(r.Context(), chi.URLParam(r, "fileID"))
	if err != nil {
		status, msg := readStatus(err)
		http.Error(w, msg, status)
		return
	}

	data, err := h.service.ReadBlob(r.Context(), rec)
	if err != nil {
		status, msg := readStatus(err)
		http.Error(w, msg, status)
		return
	}

	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": rec.OriginalName})
	if disposition == "" {
		disposition = "attachment"
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", disposition)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		log.Warn().Err(err).Str("id", rec.ID).Msg("error writing download")
	}
}

// HandleListFiles returns the whole catalog as JSON, newest first
func (h *Handler) HandleListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := h.service.ListCatalog(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("error listing catalog")
		sendJSON(w, http.StatusInternalServerError, models.APIResponse{Message: "Error fetching files"})
		return
	}
	sendJSON(w, http.StatusOK, files)
}

// HandleGetFile returns one record and its current rows as JSON
func (h *Handler) HandleGetFile(w http.ResponseWriter, r *http.Request) {
	preview, err := h.service.Preview(r.Context(), chi.URLParam(r, "fileID"))
	if err != nil {
		status, msg := readStatus(err)
		sendJSON(w, status, models.APIResponse{Message: msg})
		return
	}
	sendJSON(w, http.StatusOK, models.APIResponse{
		Success: true,
		Message: "File retrieved",
		Data:    preview,
	})
}

// HandleAPIUpload ingests a multipart upload and answers with JSON
func (h *Handler) HandleAPIUpload(w http.ResponseWriter, r *http.Request) {
	log.Debug().Str("remote", r.RemoteAddr).Msg("API upload request")

	data, name, err := h.readUpload(w, r)
	if err != nil {
		status, msg := ingestStatus(err)
		sendJSON(w, status, models.APIResponse{Message: msg})
		return
	}

	result, err := h.service.Ingest(r.Context(), data, name)
	if err != nil {
		status, msg := ingestStatus(err)
		logIngestError(err, name, status)
		sendJSON(w, status, models.APIResponse{Message: msg})
		return
	}

	sendJSON(w, http.StatusCreated, models.APIResponse{
		Success: true,
		Message: "File uploaded",
		Data: models.UploadResponse{
			Record:   result.Record,
			Backup:   result.Backup.String(),
			FileURL:  "/file/" + result.Record.ID,
			Download: "/download/" + result.Record.ID,
		},
	})
}

// readUpload pulls the "file" part out of a multipart body capped at the
// configured upload size.
func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	if r.ContentLength > h.maxUploadSize {
		return nil, "", ErrFileTooLarge
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)

	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, "", ErrFileTooLarge
		}
		return nil, "", ErrNoFile
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, "", ErrNoFile
	}
	defer func(file multipart.File) {
		if err := file.Close(); err != nil {
			log.Warn().Err(err).Msg("error closing upload")
		}
	}(file)

	if header.Size > h.maxUploadSize {
		return nil, "", ErrFileTooLarge
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", err
	}
	return data, header.Filename, nil
}

// ingestStatus maps an upload failure to a status code and a message that is
// safe to show the client.
func ingestStatus(err error) (int, string) {
	switch {
	case errors.Is(err, ErrNoFile):
		return http.StatusBadRequest, "No file provided"
	case errors.Is(err, ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, "File exceeds maximum allowed size"
	case errors.Is(err, ErrInvalidName):
		return http.StatusBadRequest, "Invalid file name"
	case errors.Is(err, csvparse.ErrDecode):
		return http.StatusBadRequest, "File is not valid UTF-8 text"
	case errors.Is(err, csvparse.ErrMalformedInput):
		var ingestErr *IngestError
		if errors.As(err, &ingestErr) {
			return http.StatusBadRequest, ingestErr.Err.Error()
		}
		return http.StatusBadRequest, "Malformed CSV content"
	default:
		return http.StatusInternalServerError, "Upload failed"
	}
}

func readStatus(err error) (int, string) {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, "File not found"
	case errors.Is(err, ErrGoneOnDisk):
		return http.StatusGone, "File on disk missing"
	default:
		log.Error().Err(err).Msg("error reading file")
		return http.StatusInternalServerError, "Error reading file"
	}
}

func logIngestError(err error, name string, status int) {
	event := log.Warn()
	if status >= http.StatusInternalServerError {
		event = log.Error()
	}
	event.Err(err).Str("name", name).Int("status", status).Msg("upload rejected")
}

func pagination(r *http.Request) (int, int) {
	page := 1
	limit := defaultPageSize

	if pageStr := r.URL.Query().Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			page = p
		}
	}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= maxPageSize {
			limit = l
		}
	}

	return page, limit
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	templ.Handler(c, templ.WithStatus(status), templ.WithErrorHandler(renderFailed)).ServeHTTP(w, r)
}

// renderFailed is used when a page cannot be rendered. Nothing has reached the
// client yet because templ.Handler buffers the output.
func renderFailed(r *http.Request, err error) http.Handler {
	log.Error().Err(err).Str("path", r.URL.Path).Msg("error rendering page")
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	})
}

func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	h.render(w, r, status, pages.ErrorPage(status, msg))
}

// sendJSON handles JSON response formatting consistently
func sendJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("error encoding response")
	}
}
