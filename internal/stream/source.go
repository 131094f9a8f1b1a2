package stream

import (
	"net/http"

	"mediadl/internal/models"
)

// ForFormat returns the Source matching how the format is delivered.
func ForFormat(client *http.Client, f models.Format) Source {
	if IsHLS(f) {
		return &HLSSource{Client: client, URL: f.URL}
	}
	return &HTTPSource{Client: client, URL: f.URL, Size: f.ContentLength}
}
