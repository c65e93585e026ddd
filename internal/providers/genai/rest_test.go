package genai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func newRESTClient(t *testing.T, apiKey string, rt roundTripFunc) *Client {
	t.Helper()
	c, err := NewClient(Options{
		APIKey:     apiKey,
		Transport:  "rest",
		HTTPClient: &http.Client{Transport: rt},
	})
	require.NoError(t, err)
	return c
}

func TestRESTTransportRequestAndSuccess(t *testing.T) {
	var captured geminiGenerateContentRequest
	c := newRESTClient(t, "secret", func(r *http.Request) (*http.Response, error) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1beta/models/gemini-2.5-flash-image:generateContent", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("x-goog-api-key"))
		assert.Empty(t, r.URL.Query().Get("key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		out := base64.StdEncoding.EncodeToString([]byte("generated"))
		return jsonResponse(http.StatusOK, `{"candidates":[{"content":{"role":"model","parts":[{"text":"Sure"},{"inlineData":{"mimeType":"image/jpeg","data":"`+out+`"}}]}}]}`), nil
	})

	uri, err := c.Generate(context.Background(), testPayload, flatInstruction)
	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,"+base64.StdEncoding.EncodeToString([]byte("generated")), uri)

	require.Len(t, captured.Contents, 1)
	assert.Equal(t, "user", captured.Contents[0].Role)
	require.Len(t, captured.Contents[0].Parts, 2)
	assert.Equal(t, flatInstruction+" Return ONLY the image.", captured.Contents[0].Parts[0].Text)
	require.NotNil(t, captured.Contents[0].Parts[1].InlineData)
	assert.Equal(t, testPayload.Base64Data, captured.Contents[0].Parts[1].InlineData.Data)
	assert.Equal(t, "image/jpeg", captured.Contents[0].Parts[1].InlineData.MimeType)
}

func TestRESTTransportFailures(t *testing.T) {
	tests := []struct {
		name     string
		resp     *http.Response
		err      error
		wantKind Kind
		wantMsg  string
	}{
		{
			name:     "error body",
			resp:     jsonResponse(http.StatusBadRequest, `{"error":{"code":400,"message":"API key not valid"}}`),
			wantKind: KindTransport,
			wantMsg:  "gemini status 400: API key not valid",
		},
		{
			name:     "plain error body",
			resp:     jsonResponse(http.StatusServiceUnavailable, "overloaded\n"),
			wantKind: KindTransport,
			wantMsg:  "gemini status 503: overloaded",
		},
		{
			name:     "empty error body",
			resp:     jsonResponse(http.StatusInternalServerError, ""),
			wantKind: KindTransport,
			wantMsg:  "gemini status 500",
		},
		{name: "network", err: errors.New("connection reset"), wantKind: KindTransport},
		{name: "malformed json", resp: jsonResponse(http.StatusOK, `{"candidates":`), wantKind: KindTransport},
		{
			name:     "bad inline base64",
			resp:     jsonResponse(http.StatusOK, `{"candidates":[{"content":{"parts":[{"inlineData":{"mimeType":"image/png","data":"***"}}]}}]}`),
			wantKind: KindTransport,
		},
		{
			name:     "no candidates",
			resp:     jsonResponse(http.StatusOK, `{"candidates":[]}`),
			wantKind: KindEmptyResponse,
			wantMsg:  "No content generated.",
		},
		{
			name:     "text only",
			resp:     jsonResponse(http.StatusOK, `{"candidates":[{"content":{"parts":[{"text":"I cannot process this request"}]}}]}`),
			wantKind: KindTextualRefusal,
			wantMsg:  "Model returned text instead of image: I cannot process this request",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := newRESTClient(t, "secret", func(r *http.Request) (*http.Response, error) {
				return tc.resp, tc.err
			})
			_, err := c.Generate(context.Background(), testPayload, flatInstruction)
			require.Error(t, err)
			assert.Equal(t, tc.wantKind, KindOf(err))
			if tc.wantMsg != "" {
				assert.Equal(t, tc.wantMsg, err.Error())
			}
		})
	}
}

func TestRESTTransportMissingKey(t *testing.T) {
	c := newRESTClient(t, "", func(r *http.Request) (*http.Response, error) {
		t.Fatal("no request expected without an API key")
		return nil, nil
	})

	_, err := c.Generate(context.Background(), testPayload, flatInstruction)
	require.Error(t, err)
	assert.Equal(t, KindTransport, KindOf(err))
	assert.True(t, errors.Is(err, errMissingAPIKey))
}
