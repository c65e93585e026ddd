package handlers

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"vectorize/internal/styles"
)

//go:embed web/index.html
var webFS embed.FS

var indexTemplate = template.Must(template.ParseFS(webFS, "web/index.html"))

type indexData struct {
	Title   string
	Default string
	MaxMB   int64
	Styles  []styles.Preset
}

func (a *App) Index(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	err := indexTemplate.Execute(&buf, indexData{
		Title:   a.Catalog.Title(),
		Default: a.Catalog.Default().ID,
		MaxMB:   a.MaxUploadBytes / (1024 * 1024),
		Styles:  a.Catalog.All(),
	})
	if err != nil {
		a.Logger.Error().Err(err).Msg("render index")
		a.error(w, http.StatusInternalServerError, "internal", "failed to render page")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
