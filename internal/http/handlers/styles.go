package handlers

import (
	"net/http"

	"vectorize/internal/styles"
)

type stylesResponse struct {
	Title   string          `json:"title"`
	Default string          `json:"default"`
	Styles  []styles.Preset `json:"styles"`
}

func (a *App) ListStyles(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, stylesResponse{
		Title:   a.Catalog.Title(),
		Default: a.Catalog.Default().ID,
		Styles:  a.Catalog.All(),
	})
}
