// Package pages holds the HTML views. Every piece of caller supplied text goes
// through templ's escaper before it reaches the response.
package pages

//go:generate templ generate

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/a-h/templ"

	"csvcatalog/internal/common/models"
)

type IndexProps struct {
	Files      []*models.FileRecord
	Total      int
	Page       int
	TotalPages int
}

type FileProps struct {
	Record  *models.FileRecord
	Headers []string
	Rows    [][]string

	// Backup is set right after an upload: succeeded, skipped or failed
	Backup string
}

func fileURL(id string) templ.SafeURL {
	return templ.URL("/file/" + url.PathEscape(id))
}

func downloadURL(id string) templ.SafeURL {
	return templ.URL("/download/" + url.PathEscape(id))
}

func pageURL(page int) templ.SafeURL {
	return templ.URL("/?page=" + strconv.Itoa(page))
}

func statusTitle(status int) string {
	return strconv.Itoa(status) + " " + http.StatusText(status)
}
