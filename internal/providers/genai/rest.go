package genai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	gensdk "google.golang.org/genai"
)

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts,omitempty"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

type geminiGenerateContentRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
}

type geminiGenerateContentResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
	} `json:"error"`
}

// restTransport speaks the generateContent JSON API directly.
type restTransport struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func newRESTTransport(apiKey, baseURL string, httpClient *http.Client) *restTransport {
	return &restTransport{apiKey: apiKey, baseURL: baseURL, httpClient: httpClient}
}

func (t *restTransport) generateContent(ctx context.Context, model string, parts []*gensdk.Part) ([]*gensdk.Part, error) {
	if t.apiKey == "" {
		return nil, errMissingAPIKey
	}

	payload := geminiGenerateContentRequest{
		Contents: []geminiContent{{Role: "user", Parts: toWireParts(parts)}},
	}

	var response geminiGenerateContentResponse
	path := fmt.Sprintf("/models/%s:generateContent", url.PathEscape(model))
	if err := t.invokeGemini(ctx, path, payload, &response); err != nil {
		return nil, err
	}
	if len(response.Candidates) == 0 {
		return nil, nil
	}
	return fromWireParts(response.Candidates[0].Content.Parts)
}

func (t *restTransport) invokeGemini(ctx context.Context, path string, payload any, out any) error {
	endpoint := strings.TrimRight(t.baseURL, "/") + path
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", t.apiKey)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("invoke gemini: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		var apiErr geminiErrorResponse
		if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("gemini status %d: %s", resp.StatusCode, apiErr.Error.Message)
		}
		if text := strings.TrimSpace(string(data)); text != "" {
			return fmt.Errorf("gemini status %d: %s", resp.StatusCode, text)
		}
		return fmt.Errorf("gemini status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode gemini response: %w", err)
	}
	return nil
}

func toWireParts(parts []*gensdk.Part) []geminiPart {
	out := make([]geminiPart, 0, len(parts))
	for _, p := range parts {
		if p == nil {
			continue
		}
		wp := geminiPart{Text: p.Text}
		if p.InlineData != nil {
			wp.InlineData = &geminiInlineData{
				MimeType: p.InlineData.MIMEType,
				Data:     base64.StdEncoding.EncodeToString(p.InlineData.Data),
			}
		}
		out = append(out, wp)
	}
	return out
}

func fromWireParts(parts []geminiPart) ([]*gensdk.Part, error) {
	out := make([]*gensdk.Part, 0, len(parts))
	for _, p := range parts {
		part := &gensdk.Part{Text: p.Text}
		if p.InlineData != nil && p.InlineData.Data != "" {
			data, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
			if err != nil {
				return nil, fmt.Errorf("decode inline data: %w", err)
			}
			part.InlineData = &gensdk.Blob{MIMEType: p.InlineData.MimeType, Data: data}
		}
		out = append(out, part)
	}
	return out, nil
}
