// Package session holds the per-browser state of the vectorize flow: the
// uploaded image, the selected style and the outcome of the latest attempt.
package session

import (
	"errors"
	"sync"
	"time"

	"vectorize/internal/styles"
	"vectorize/internal/upload"
)

var (
	ErrNotFound     = errors.New("session: not found")
	ErrNoImage      = errors.New("session: no image uploaded")
	ErrNoResult     = errors.New("session: no generated image")
	ErrInFlight     = errors.New("session: generation already in progress")
	ErrSuperseded   = errors.New("session: attempt superseded")
	ErrCapacity     = errors.New("session: too many active sessions")
	ErrUnknownStyle = styles.ErrUnknownStyle
)

// Status is the lifecycle of one generation attempt:
// idle -> requesting -> succeeded | failed.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusRequesting Status = "requesting"
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
)

// Outcome is the result of the current attempt. ImageURL is set only when
// succeeded, Error only when failed.
type Outcome struct {
	Status      Status    `json:"status"`
	ImageURL    string    `json:"image_url,omitempty"`
	Error       string    `json:"error,omitempty"`
	ErrorKind   string    `json:"error_kind,omitempty"`
	Attempt     uint64    `json:"attempt"`
	Style       string    `json:"style,omitempty"`
	CompletedAt time.Time `json:"completed_at,omitzero"`
}

// ImageInfo describes the uploaded image without its bytes.
type ImageInfo struct {
	Name     string `json:"name"`
	MIMEType string `json:"mime_type"`
	Size     int64  `json:"size"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
}

// Snapshot is a read-only copy of a session.
type Snapshot struct {
	ID       string     `json:"id"`
	Image    *ImageInfo `json:"image,omitempty"`
	Style    string     `json:"style"`
	InFlight bool       `json:"in_flight"`
	Outcome  Outcome    `json:"outcome"`
}

// State is one session. All fields are guarded by mu; the generation call
// itself runs without holding it.
type State struct {
	mu sync.Mutex

	id       string
	image    *upload.Image
	width    int
	height   int
	payload  upload.Payload
	style    styles.Preset
	outcome  Outcome
	attempt  uint64
	inFlight bool
	lastSeen time.Time
}

func newState(id string, style styles.Preset, now time.Time) *State {
	return &State{
		id:       id,
		style:    style,
		outcome:  Outcome{Status: StatusIdle},
		lastSeen: now,
	}
}

// ID returns the session identifier.
func (s *State) ID() string { return s.id }

// invalidate bumps the attempt counter so a pending result is dropped when it
// lands, and releases the in-flight guard. Callers hold mu.
func (s *State) invalidate() {
	s.attempt++
	s.inFlight = false
	s.outcome = Outcome{Status: StatusIdle, Attempt: s.attempt, Style: s.style.ID}
}

func (s *State) snapshot() Snapshot {
	snap := Snapshot{
		ID:       s.id,
		Style:    s.style.ID,
		InFlight: s.inFlight,
		Outcome:  s.outcome,
	}
	if s.image != nil {
		snap.Image = &ImageInfo{
			Name:     s.image.Name,
			MIMEType: s.image.MIMEType,
			Size:     s.image.Size,
			Width:    s.width,
			Height:   s.height,
		}
	}
	return snap
}
