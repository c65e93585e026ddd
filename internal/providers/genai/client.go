// Package genai performs the single image-to-image request against Gemini and
// normalizes the answer into a PNG data URI or a typed *Error.
package genai

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	gensdk "google.golang.org/genai"

	"vectorize/internal/infra"
	"vectorize/internal/upload"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel   = "gemini-2.5-flash-image"

	imageOnlyDirective = " Return ONLY the image."
)

// Options controls how the Gemini client is configured.
type Options struct {
	APIKey     string
	BaseURL    string
	Model      string
	Transport  string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

type transport interface {
	generateContent(ctx context.Context, model string, parts []*gensdk.Part) ([]*gensdk.Part, error)
}

// Client is safe for concurrent use.
type Client struct {
	model     string
	transport transport
	logger    *infra.Logger
}

// NewClient constructs a client. No network call and no credential check
// happens here; a missing key surfaces as a transport failure on Generate.
func NewClient(opts Options) (*Client, error) {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = DefaultModel
	}

	logger := opts.Logger
	if logger == nil {
		logger = infra.NopLogger()
	}

	apiKey := strings.TrimSpace(opts.APIKey)

	var t transport
	switch strings.ToLower(opts.Transport) {
	case "", infra.TransportSDK:
		t = newSDKTransport(apiKey, baseURL, httpClient)
	case infra.TransportREST:
		t = newRESTTransport(apiKey, baseURL, httpClient)
	default:
		return nil, fmt.Errorf("genai: unknown transport %q", opts.Transport)
	}

	return &Client{model: model, transport: t, logger: logger}, nil
}

// Model returns the configured Gemini model identifier.
func (c *Client) Model() string {
	return c.model
}

// Generate sends one request made of the instruction text and the inline
// image, and returns a data:image/png;base64 URI. Every failure is an *Error.
func (c *Client) Generate(ctx context.Context, payload upload.Payload, instruction string) (string, error) {
	if payload.Empty() {
		return "", invalidInput("An image is required.")
	}
	if strings.TrimSpace(instruction) == "" {
		return "", invalidInput("A style instruction is required.")
	}
	data, err := base64.StdEncoding.DecodeString(upload.StripDataURIPrefix(payload.Base64Data))
	if err != nil {
		return "", &Error{Kind: KindInvalidInput, Message: "The uploaded image could not be read.", Err: err}
	}

	parts := []*gensdk.Part{
		gensdk.NewPartFromText(instruction + imageOnlyDirective),
		{InlineData: &gensdk.Blob{MIMEType: payload.MIMEType, Data: data}},
	}

	start := time.Now()
	respParts, err := c.transport.generateContent(ctx, c.model, parts)
	if err != nil {
		c.logger.Warn().
			Err(err).
			Str("model", c.model).
			Dur("elapsed", time.Since(start)).
			Msg("genai: generate content failed")
		return "", transportError(err)
	}

	uri, err := parseParts(respParts)
	c.logger.Debug().
		Str("model", c.model).
		Int("parts", len(respParts)).
		Str("kind", string(KindOf(err))).
		Dur("elapsed", time.Since(start)).
		Msg("genai: generate content finished")
	return uri, err
}
