package session

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"vectorize/internal/infra"
	"vectorize/internal/providers/genai"
	"vectorize/internal/styles"
	"vectorize/internal/upload"
)

// Generator turns an encoded image and a style instruction into a PNG data
// URI. *genai.Client satisfies it.
type Generator interface {
	Generate(ctx context.Context, payload upload.Payload, instruction string) (string, error)
}

// Recorder receives pipeline events for metrics. A nil Recorder is allowed.
type Recorder interface {
	ObserveUpload(result string)
	ObserveGeneration(kind string, elapsed time.Duration)
	ObserveSuperseded()
}

type Options struct {
	Store     *Store
	Catalog   *styles.Catalog
	Generator Generator
	MaxBytes  int64
	Metrics   Recorder
	Logger    *infra.Logger
}

// Service implements the session operations used by the HTTP handlers.
type Service struct {
	store    *Store
	catalog  *styles.Catalog
	gen      Generator
	maxBytes int64
	metrics  Recorder
	logger   *infra.Logger
	now      func() time.Time
}

func NewService(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = infra.NopLogger()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = nopRecorder{}
	}
	return &Service{
		store:    opts.Store,
		catalog:  opts.Catalog,
		gen:      opts.Generator,
		maxBytes: opts.MaxBytes,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// Open returns the id of an existing session, or of a new one when id is
// empty or unknown.
func (s *Service) Open(id string) (string, bool, error) {
	st, created, err := s.store.GetOrCreate(id)
	if err != nil {
		s.logger.Warn().Err(err).Msg("session store full")
		return "", false, err
	}
	return st.ID(), created, nil
}

// ActiveSessions reports how many sessions the store holds.
func (s *Service) ActiveSessions() int {
	return s.store.Len()
}

func (s *Service) lookup(id string) (*State, error) {
	st, ok := s.store.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return st, nil
}

// Snapshot returns a copy of the session state.
func (s *Service) Snapshot(id string) (Snapshot, error) {
	st, err := s.lookup(id)
	if err != nil {
		return Snapshot{}, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.snapshot(), nil
}

// Upload validates file and, when accepted, replaces the session image. A
// rejected file leaves the session untouched.
func (s *Service) Upload(ctx context.Context, id string, file upload.File) (Snapshot, error) {
	st, err := s.lookup(id)
	if err != nil {
		return Snapshot{}, err
	}

	img, err := upload.Validate(file, s.maxBytes)
	if err != nil {
		var verr *upload.ValidationError
		if errors.As(err, &verr) {
			s.metrics.ObserveUpload(string(verr.Kind))
		}
		s.logger.Info().Str("session_id", id).Err(err).Msg("upload rejected")
		return Snapshot{}, err
	}
	payload := upload.Encode(img)
	width, height := img.Dimensions()

	st.mu.Lock()
	defer st.mu.Unlock()

	st.image = img
	st.width, st.height = width, height
	st.payload = payload
	st.invalidate()
	s.metrics.ObserveUpload("accepted")

	s.logger.Debug().
		Str("session_id", id).
		Str("mime_type", img.MIMEType).
		Int64("size", img.Size).
		Msg("image uploaded")
	return st.snapshot(), nil
}

// Clear drops the image and any outcome and invalidates an in-flight attempt.
func (s *Service) Clear(id string) (Snapshot, error) {
	st, err := s.lookup(id)
	if err != nil {
		return Snapshot{}, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	st.image = nil
	st.width, st.height = 0, 0
	st.payload = upload.Payload{}
	st.invalidate()
	return st.snapshot(), nil
}

// SelectStyle switches the preset. Picking a different style resets the
// outcome and invalidates an in-flight attempt.
func (s *Service) SelectStyle(id, styleID string) (Snapshot, error) {
	st, err := s.lookup(id)
	if err != nil {
		return Snapshot{}, err
	}
	preset, err := s.catalog.Lookup(styleID)
	if err != nil {
		return Snapshot{}, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if st.style.ID != preset.ID {
		st.style = preset
		st.invalidate()
	}
	return st.snapshot(), nil
}

// Generate runs one attempt for the session. A generation failure is not an
// error: it comes back as a failed Outcome. Errors are reserved for missing
// preconditions and for attempts invalidated while the call was running.
func (s *Service) Generate(ctx context.Context, id string) (Outcome, error) {
	st, err := s.lookup(id)
	if err != nil {
		return Outcome{}, err
	}

	st.mu.Lock()
	if st.image == nil || st.payload.Empty() {
		st.mu.Unlock()
		return Outcome{}, ErrNoImage
	}
	if st.inFlight {
		st.mu.Unlock()
		return Outcome{}, ErrInFlight
	}
	st.attempt++
	attempt := st.attempt
	st.inFlight = true
	payload := st.payload
	style := st.style
	st.outcome = Outcome{Status: StatusRequesting, Attempt: attempt, Style: style.ID}
	st.mu.Unlock()

	logger := s.logger.With().
		Str("session_id", id).
		Uint64("attempt", attempt).
		Str("style", style.ID).
		Logger()
	logger.Info().Msg("generation started")

	start := s.now()
	uri, genErr := s.gen.Generate(context.WithoutCancel(ctx), payload, style.Prompt)
	elapsed := s.now().Sub(start)

	kind := "success"
	if genErr != nil {
		kind = string(genai.KindOf(genErr))
	}
	s.metrics.ObserveGeneration(kind, elapsed)

	st.mu.Lock()
	defer st.mu.Unlock()

	if st.attempt != attempt {
		s.metrics.ObserveSuperseded()
		logger.Info().Str("kind", kind).Msg("generation result dropped, attempt superseded")
		return Outcome{}, ErrSuperseded
	}

	st.inFlight = false
	outcome := Outcome{Attempt: attempt, Style: style.ID, CompletedAt: s.now().UTC()}
	if genErr != nil {
		outcome.Status = StatusFailed
		outcome.Error = genai.DisplayMessage(genErr)
		outcome.ErrorKind = kind
		logger.Warn().Err(genErr).Str("kind", kind).Dur("elapsed", elapsed).Msg("generation failed")
	} else {
		outcome.Status = StatusSucceeded
		outcome.ImageURL = uri
		logger.Info().Dur("elapsed", elapsed).Msg("generation succeeded")
	}
	st.outcome = outcome
	return outcome, nil
}

// Preview returns the uploaded image.
func (s *Service) Preview(id string) (*upload.Image, error) {
	st, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.image == nil {
		return nil, ErrNoImage
	}
	return st.image, nil
}

// Result returns the PNG bytes of the current successful outcome.
func (s *Service) Result(id string) ([]byte, error) {
	st, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	st.mu.Lock()
	outcome := st.outcome
	st.mu.Unlock()

	if outcome.Status != StatusSucceeded {
		return nil, ErrNoResult
	}
	return DecodeImageURL(outcome.ImageURL)
}

// DecodeImageURL extracts the bytes from a base64 image data URI.
func DecodeImageURL(uri string) ([]byte, error) {
	encoded := upload.StripDataURIPrefix(uri)
	if encoded == uri && strings.HasPrefix(uri, "data:") {
		return nil, errors.New("unsupported data uri")
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode generated image: %w", err)
	}
	return data, nil
}

// DownloadFilename names a downloaded result after the moment of download.
func DownloadFilename(now time.Time) string {
	return fmt.Sprintf("vector-art-%d.png", now.UnixMilli())
}

type nopRecorder struct{}

func (nopRecorder) ObserveUpload(string)                    {}
func (nopRecorder) ObserveGeneration(string, time.Duration) {}
func (nopRecorder) ObserveSuperseded()                      {}
