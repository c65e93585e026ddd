package handlers

import (
	"net/http"
)

type healthResponse struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
	Styles   int    `json:"styles"`
}

// Health needs no upstream call; a missing API key shows up on generate.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, healthResponse{
		Status:   "ok",
		Sessions: a.Sessions.ActiveSessions(),
		Styles:   len(a.Catalog.All()),
	})
}
