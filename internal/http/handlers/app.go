package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"vectorize/internal/infra"
	"vectorize/internal/session"
	"vectorize/internal/styles"
)

const sessionCookie = "vectorize_session"

type App struct {
	Sessions       *session.Service
	Catalog        *styles.Catalog
	MaxUploadBytes int64
	SecureCookies  bool
	Logger         *infra.Logger

	now func() time.Time
}

func NewApp(sessions *session.Service, catalog *styles.Catalog, maxUploadBytes int64, logger *infra.Logger) *App {
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &App{
		Sessions:       sessions,
		Catalog:        catalog,
		MaxUploadBytes: maxUploadBytes,
		Logger:         logger,
		now:            time.Now,
	}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, map[string]string{"error": errCode, "message": message})
}

// sessionID resolves the caller's session from the cookie, starting a new one
// when the cookie is missing or the session expired. On failure the response
// is already written and ok is false.
func (a *App) sessionID(w http.ResponseWriter, r *http.Request) (id string, ok bool) {
	var current string
	if c, err := r.Cookie(sessionCookie); err == nil {
		current = c.Value
	}
	id, created, err := a.Sessions.Open(current)
	if err != nil {
		if !a.sessionError(w, err) {
			a.error(w, http.StatusInternalServerError, "internal", "failed to open session")
		}
		return "", false
	}
	if created {
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookie,
			Value:    id,
			Path:     "/",
			HttpOnly: true,
			Secure:   a.SecureCookies,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return id, true
}

// sessionError maps session errors to responses. It reports false for errors
// it does not know.
func (a *App) sessionError(w http.ResponseWriter, err error) bool {
	switch {
	case errors.Is(err, session.ErrNotFound):
		a.error(w, http.StatusNotFound, "session_not_found", "Session expired. Please reload the page.")
	case errors.Is(err, session.ErrNoImage):
		a.error(w, http.StatusBadRequest, "no_image", "Please upload an image first.")
	case errors.Is(err, session.ErrNoResult):
		a.error(w, http.StatusNotFound, "no_result", "No generated image available.")
	case errors.Is(err, session.ErrInFlight):
		a.error(w, http.StatusConflict, "in_flight", "A generation is already in progress.")
	case errors.Is(err, session.ErrSuperseded):
		a.error(w, http.StatusConflict, "superseded", "The image or style changed while generating; the result was discarded.")
	case errors.Is(err, session.ErrCapacity):
		w.Header().Set("Retry-After", "60")
		a.error(w, http.StatusServiceUnavailable, "busy", "The service is busy. Please try again shortly.")
	case errors.Is(err, session.ErrUnknownStyle):
		a.error(w, http.StatusBadRequest, "unknown_style", "Unknown style.")
	default:
		return false
	}
	return true
}
