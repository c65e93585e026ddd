package genai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	gensdk "google.golang.org/genai"
)

var errMissingAPIKey = errors.New("Gemini API key is not configured")

// sdkTransport creates the SDK client on first use so a process without a key
// still starts.
type sdkTransport struct {
	apiKey     string
	baseURL    string
	apiVersion string
	httpClient *http.Client

	mu     sync.RWMutex
	client *gensdk.Client
}

func newSDKTransport(apiKey, baseURL string, httpClient *http.Client) *sdkTransport {
	root, version := splitAPIVersion(baseURL)
	return &sdkTransport{apiKey: apiKey, baseURL: root, apiVersion: version, httpClient: httpClient}
}

func (t *sdkTransport) getClient(ctx context.Context) (*gensdk.Client, error) {
	t.mu.RLock()
	if t.client != nil {
		defer t.mu.RUnlock()
		return t.client, nil
	}
	t.mu.RUnlock()

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.client != nil {
		return t.client, nil
	}
	if t.apiKey == "" {
		return nil, errMissingAPIKey
	}

	client, err := gensdk.NewClient(ctx, &gensdk.ClientConfig{
		APIKey:     t.apiKey,
		Backend:    gensdk.BackendGeminiAPI,
		HTTPClient: t.httpClient,
		HTTPOptions: gensdk.HTTPOptions{
			BaseURL:    t.baseURL,
			APIVersion: t.apiVersion,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	t.client = client
	return t.client, nil
}

func (t *sdkTransport) generateContent(ctx context.Context, model string, parts []*gensdk.Part) ([]*gensdk.Part, error) {
	client, err := t.getClient(ctx)
	if err != nil {
		return nil, err
	}

	contents := []*gensdk.Content{
		gensdk.NewContentFromParts(parts, gensdk.RoleUser),
	}
	resp, err := client.Models.GenerateContent(ctx, model, contents, &gensdk.GenerateContentConfig{})
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}
	return firstCandidateParts(resp), nil
}

// splitAPIVersion turns ".../v1beta" into (".../", "v1beta") since the SDK
// keeps the version apart from the host.
func splitAPIVersion(baseURL string) (string, string) {
	baseURL = strings.TrimRight(baseURL, "/")
	idx := strings.LastIndex(baseURL, "/")
	if idx < 0 {
		return baseURL + "/", ""
	}
	last := baseURL[idx+1:]
	if strings.HasPrefix(last, "v1") {
		return baseURL[:idx+1], last
	}
	return baseURL + "/", ""
}
