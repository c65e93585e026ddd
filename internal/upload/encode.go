package upload

import (
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var dataURIPrefix = regexp.MustCompile(`^data:image/\w+;base64,`)

// ErrMalformedDataURL is returned by DecodeDataURL for input that is not a
// base64 data URL.
var ErrMalformedDataURL = errors.New("upload: malformed data url")

// Payload is the encoded form of an Image sent to the model.
type Payload struct {
	Base64Data string
	MIMEType   string
}

// Empty reports whether the payload carries no image.
func (p Payload) Empty() bool {
	return p.Base64Data == "" || p.MIMEType == ""
}

// Encode returns the standard base64 encoding of the image bytes, never
// prefixed with a data URI header.
func Encode(img *Image) Payload {
	if img == nil {
		return Payload{}
	}
	return Payload{
		Base64Data: StripDataURIPrefix(base64.StdEncoding.EncodeToString(img.Data)),
		MIMEType:   img.MIMEType,
	}
}

// StripDataURIPrefix removes a leading "data:image/<type>;base64," header.
func StripDataURIPrefix(s string) string {
	return dataURIPrefix.ReplaceAllString(s, "")
}

// DecodeDataURL parses a "data:<mime>;base64,<payload>" string as produced by
// a browser FileReader.
func DecodeDataURL(s string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(s), "data:")
	if !ok {
		return "", nil, ErrMalformedDataURL
	}
	header, encoded, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, ErrMalformedDataURL
	}
	mimeType, isBase64 := strings.CutSuffix(header, ";base64")
	if !isBase64 {
		return "", nil, ErrMalformedDataURL
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrMalformedDataURL, err)
	}
	return normalizeMIME(mimeType), data, nil
}
