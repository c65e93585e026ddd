package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	"vectorize/internal/session"
	"vectorize/internal/upload"
)

const (
	previewPath = "/v1/session/image/preview"
	resultPath  = "/v1/session/result"

	// multipart framing and JSON envelope on top of the file itself
	uploadOverhead = 1 << 20
)

type sessionResponse struct {
	session.Snapshot
	PreviewURL  string `json:"preview_url,omitempty"`
	DownloadURL string `json:"download_url,omitempty"`
}

type uploadJSONRequest struct {
	Name string `json:"name"`
	Data string `json:"data"`
}

type selectStyleRequest struct {
	StyleID string `json:"style_id"`
}

func newSessionResponse(snap session.Snapshot) sessionResponse {
	resp := sessionResponse{Snapshot: snap}
	if snap.Image != nil {
		resp.PreviewURL = previewPath
	}
	if snap.Outcome.Status == session.StatusSucceeded {
		resp.DownloadURL = resultPath
	}
	return resp
}

func (a *App) GetSession(w http.ResponseWriter, r *http.Request) {
	id, ok := a.sessionID(w, r)
	if !ok {
		return
	}
	snap, err := a.Sessions.Snapshot(id)
	if err != nil {
		if !a.sessionError(w, err) {
			a.error(w, http.StatusInternalServerError, "internal", "failed to load session")
		}
		return
	}
	a.json(w, http.StatusOK, newSessionResponse(snap))
}

// UploadImage accepts the image either as multipart field "image" (file
// picker and drag and drop) or as JSON {"name", "data"} with a data URL.
func (a *App) UploadImage(w http.ResponseWriter, r *http.Request) {
	id, ok := a.sessionID(w, r)
	if !ok {
		return
	}

	var (
		file upload.File
		err  error
	)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data":
		file, err = a.readMultipart(w, r)
	case "application/json":
		file, err = a.readDataURL(w, r)
	default:
		a.error(w, http.StatusUnsupportedMediaType, "unsupported_content_type", "Send multipart/form-data or application/json.")
		return
	}
	if err != nil {
		a.uploadError(w, err)
		return
	}

	snap, err := a.Sessions.Upload(r.Context(), id, file)
	if err != nil {
		a.uploadError(w, err)
		return
	}
	a.json(w, http.StatusOK, newSessionResponse(snap))
}

func (a *App) readMultipart(w http.ResponseWriter, r *http.Request) (upload.File, error) {
	r.Body = http.MaxBytesReader(w, r.Body, a.MaxUploadBytes+uploadOverhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return upload.File{}, err
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	f, header, err := r.FormFile("image")
	if err != nil {
		return upload.File{}, errMissingImageField
	}
	defer f.Close()

	if header.Size > a.MaxUploadBytes {
		return upload.File{}, upload.TooLargeError(a.MaxUploadBytes)
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return upload.File{}, err
	}
	return upload.File{
		Name:     header.Filename,
		MIMEType: header.Header.Get("Content-Type"),
		Size:     header.Size,
		Data:     data,
	}, nil
}

func (a *App) readDataURL(w http.ResponseWriter, r *http.Request) (upload.File, error) {
	// base64 inflates the payload by 4/3
	r.Body = http.MaxBytesReader(w, r.Body, a.MaxUploadBytes/3*4+uploadOverhead)

	var req uploadJSONRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return upload.File{}, err
	}
	mimeType, data, err := upload.DecodeDataURL(req.Data)
	if err != nil {
		return upload.File{}, err
	}
	return upload.File{Name: req.Name, MIMEType: mimeType, Size: int64(len(data)), Data: data}, nil
}

var errMissingImageField = errors.New("missing image field")

func (a *App) uploadError(w http.ResponseWriter, err error) {
	var (
		verr   *upload.ValidationError
		maxErr *http.MaxBytesError
	)
	switch {
	case errors.As(err, &maxErr):
		a.error(w, http.StatusRequestEntityTooLarge, "file_too_large", upload.TooLargeError(a.MaxUploadBytes).Message)
	case errors.As(err, &verr) && verr.Kind == upload.KindTooLarge:
		a.error(w, http.StatusRequestEntityTooLarge, "file_too_large", verr.Message)
	case errors.As(err, &verr):
		a.error(w, http.StatusUnsupportedMediaType, "unsupported_type", verr.Message)
	case errors.Is(err, errMissingImageField):
		a.error(w, http.StatusBadRequest, "bad_request", "multipart field \"image\" is required")
	case errors.Is(err, upload.ErrMalformedDataURL):
		a.error(w, http.StatusBadRequest, "bad_request", "data must be a base64 data URL")
	case a.sessionError(w, err):
	default:
		a.error(w, http.StatusBadRequest, "bad_request", "invalid upload payload")
	}
}

func (a *App) ClearImage(w http.ResponseWriter, r *http.Request) {
	id, ok := a.sessionID(w, r)
	if !ok {
		return
	}
	snap, err := a.Sessions.Clear(id)
	if err != nil {
		if !a.sessionError(w, err) {
			a.error(w, http.StatusInternalServerError, "internal", "failed to clear image")
		}
		return
	}
	a.json(w, http.StatusOK, newSessionResponse(snap))
}

func (a *App) PreviewImage(w http.ResponseWriter, r *http.Request) {
	id, ok := a.sessionID(w, r)
	if !ok {
		return
	}
	img, err := a.Sessions.Preview(id)
	if err != nil {
		if errors.Is(err, session.ErrNoImage) {
			a.error(w, http.StatusNotFound, "no_image", "No image uploaded.")
			return
		}
		if !a.sessionError(w, err) {
			a.error(w, http.StatusInternalServerError, "internal", "failed to load image")
		}
		return
	}
	w.Header().Set("Content-Type", img.MIMEType)
	w.Header().Set("Content-Length", strconv.Itoa(len(img.Data)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img.Data)
}

func (a *App) SelectStyle(w http.ResponseWriter, r *http.Request) {
	id, ok := a.sessionID(w, r)
	if !ok {
		return
	}

	var req selectStyleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.StyleID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "style_id required")
		return
	}
	snap, err := a.Sessions.SelectStyle(id, req.StyleID)
	if err != nil {
		if !a.sessionError(w, err) {
			a.error(w, http.StatusInternalServerError, "internal", "failed to select style")
		}
		return
	}
	a.json(w, http.StatusOK, newSessionResponse(snap))
}

// Generate blocks until the model answers. A failed generation is still a 200
// carrying the failed outcome.
func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	id, ok := a.sessionID(w, r)
	if !ok {
		return
	}
	outcome, err := a.Sessions.Generate(r.Context(), id)
	if err != nil {
		if !a.sessionError(w, err) {
			a.Logger.Error().Err(err).Str("session_id", id).Msg("generate failed")
			a.error(w, http.StatusInternalServerError, "internal", "An unexpected error occurred.")
		}
		return
	}
	a.json(w, http.StatusOK, outcome)
}

func (a *App) DownloadResult(w http.ResponseWriter, r *http.Request) {
	id, ok := a.sessionID(w, r)
	if !ok {
		return
	}
	data, err := a.Sessions.Result(id)
	if err != nil {
		if !a.sessionError(w, err) {
			a.Logger.Error().Err(err).Str("session_id", id).Msg("decode result failed")
			a.error(w, http.StatusInternalServerError, "internal", "failed to load result")
		}
		return
	}
	filename := session.DownloadFilename(a.now())
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
