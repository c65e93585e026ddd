// Package upload validates user supplied images and prepares them for the
// generation request.
package upload

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"strings"

	_ "golang.org/x/image/webp"
)

// Kind classifies a validation failure.
type Kind string

const (
	KindTooLarge        Kind = "too_large"
	KindUnsupportedType Kind = "unsupported_type"
)

var (
	ErrTooLarge        = errors.New("upload: file too large")
	ErrUnsupportedType = errors.New("upload: unsupported file type")
)

// ValidationError is returned by Validate. Message is safe to show to users.
type ValidationError struct {
	Kind    Kind
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Is lets errors.Is match a ValidationError against ErrTooLarge and
// ErrUnsupportedType.
func (e *ValidationError) Is(target error) bool {
	switch target {
	case ErrTooLarge:
		return e.Kind == KindTooLarge
	case ErrUnsupportedType:
		return e.Kind == KindUnsupportedType
	}
	return false
}

// File is a file-like descriptor as handed over by a picker, a drop zone, a
// data URL or the filesystem. Size is the declared size; when zero the length
// of Data is used.
type File struct {
	Name     string
	MIMEType string
	Size     int64
	Data     []byte
}

// Image is an accepted upload.
type Image struct {
	Name     string
	MIMEType string
	Size     int64
	Data     []byte
}

// TooLargeError is the rejection for a file above maxBytes.
func TooLargeError(maxBytes int64) *ValidationError {
	return &ValidationError{
		Kind:    KindTooLarge,
		Message: fmt.Sprintf("File too large. Max size is %dMB", maxBytes/(1024*1024)),
	}
}

// Validate checks the size limit first and the media type second. The size is
// the larger of the declared size and the bytes actually present. Nothing is
// encoded for a rejected file.
func Validate(file File, maxBytes int64) (*Image, error) {
	size := max(file.Size, int64(len(file.Data)))
	if size > maxBytes {
		return nil, TooLargeError(maxBytes)
	}

	mimeType := normalizeMIME(file.MIMEType)
	if mimeType == "" && len(file.Data) > 0 {
		mimeType = normalizeMIME(http.DetectContentType(file.Data))
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, &ValidationError{
			Kind:    KindUnsupportedType,
			Message: "Please upload an image file.",
		}
	}

	return &Image{
		Name:     file.Name,
		MIMEType: mimeType,
		Size:     size,
		Data:     file.Data,
	}, nil
}

// Dimensions decodes the image header. Formats without a registered decoder
// report zero sizes.
func (img *Image) Dimensions() (width, height int) {
	if img == nil || len(img.Data) == 0 {
		return 0, 0
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(img.Data))
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}

func normalizeMIME(value string) string {
	value, _, _ = strings.Cut(value, ";")
	return strings.ToLower(strings.TrimSpace(value))
}
