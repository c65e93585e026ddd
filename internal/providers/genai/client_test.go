package genai

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gensdk "google.golang.org/genai"
	"pgregory.net/rapid"

	"vectorize/internal/upload"
)

type fakeTransport struct {
	calls int
	model string
	parts []*gensdk.Part
	reply []*gensdk.Part
	err   error
}

func (f *fakeTransport) generateContent(ctx context.Context, model string, parts []*gensdk.Part) ([]*gensdk.Part, error) {
	f.calls++
	f.model = model
	f.parts = parts
	return f.reply, f.err
}

func newTestClient(t *testing.T, ft *fakeTransport) *Client {
	t.Helper()
	c, err := NewClient(Options{APIKey: "test-key"})
	require.NoError(t, err)
	c.transport = ft
	return c
}

var testPayload = upload.Payload{Base64Data: base64.StdEncoding.EncodeToString([]byte("jpeg-bytes")), MIMEType: "image/jpeg"}

const flatInstruction = "Redraw this image as a high-quality flat vector illustration. Use clean geometric shapes, solid colors, and no gradients. Minimalist and modern design."

func imagePart(data string) *gensdk.Part {
	return &gensdk.Part{InlineData: &gensdk.Blob{MIMEType: "image/jpeg", Data: []byte(data)}}
}

func TestGenerateBuildsSingleRequest(t *testing.T) {
	ft := &fakeTransport{reply: []*gensdk.Part{imagePart("png-bytes")}}
	c := newTestClient(t, ft)

	uri, err := c.Generate(context.Background(), testPayload, flatInstruction)
	require.NoError(t, err)

	assert.Equal(t, 1, ft.calls)
	assert.Equal(t, DefaultModel, ft.model)
	require.Len(t, ft.parts, 2)
	assert.Equal(t, flatInstruction+" Return ONLY the image.", ft.parts[0].Text)
	require.NotNil(t, ft.parts[1].InlineData)
	assert.Equal(t, "image/jpeg", ft.parts[1].InlineData.MIMEType)
	assert.Equal(t, []byte("jpeg-bytes"), ft.parts[1].InlineData.Data)

	assert.Equal(t, "data:image/png;base64,"+base64.StdEncoding.EncodeToString([]byte("png-bytes")), uri)
}

func TestGenerateOutcomes(t *testing.T) {
	tests := []struct {
		name     string
		reply    []*gensdk.Part
		wantKind Kind
		wantMsg  string
	}{
		{name: "no parts", reply: nil, wantKind: KindEmptyResponse, wantMsg: "No content generated."},
		{
			name:     "text refusal",
			reply:    []*gensdk.Part{{Text: "I cannot process this request"}},
			wantKind: KindTextualRefusal,
			wantMsg:  "Model returned text instead of image: I cannot process this request",
		},
		{
			name:     "first text wins among text parts",
			reply:    []*gensdk.Part{{Text: ""}, {Text: "first"}, {Text: "second"}},
			wantKind: KindTextualRefusal,
			wantMsg:  "Model returned text instead of image: first",
		},
		{
			name:     "empty inline data and no text",
			reply:    []*gensdk.Part{{InlineData: &gensdk.Blob{MIMEType: "image/png"}}, {}},
			wantKind: KindNoImageData,
			wantMsg:  "No image data found in response.",
		},
		{name: "text before image", reply: []*gensdk.Part{{Text: "Here you go"}, imagePart("img")}},
		{name: "two images picks first", reply: []*gensdk.Part{imagePart("one"), imagePart("two")}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, &fakeTransport{reply: tc.reply})
			uri, err := c.Generate(context.Background(), testPayload, flatInstruction)
			if tc.wantKind == "" {
				require.NoError(t, err)
				assert.True(t, strings.HasPrefix(uri, "data:image/png;base64,"))
				if tc.name == "two images picks first" {
					assert.Equal(t, "data:image/png;base64,"+base64.StdEncoding.EncodeToString([]byte("one")), uri)
				}
				return
			}
			require.Error(t, err)
			assert.Empty(t, uri)
			assert.Equal(t, tc.wantKind, KindOf(err))
			assert.Equal(t, tc.wantMsg, err.Error())
		})
	}
}

func TestGenerateTransportFailure(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	c := newTestClient(t, &fakeTransport{err: cause})

	_, err := c.Generate(context.Background(), testPayload, flatInstruction)
	require.Error(t, err)
	assert.Equal(t, KindTransport, KindOf(err))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "dial tcp: connection refused", DisplayMessage(err))
}

func TestGenerateRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name        string
		payload     upload.Payload
		instruction string
	}{
		{name: "empty data", payload: upload.Payload{MIMEType: "image/png"}, instruction: flatInstruction},
		{name: "empty mime", payload: upload.Payload{Base64Data: "aGVsbG8="}, instruction: flatInstruction},
		{name: "empty instruction", payload: testPayload, instruction: "  "},
		{name: "bad base64", payload: upload.Payload{Base64Data: "***", MIMEType: "image/png"}, instruction: flatInstruction},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ft := &fakeTransport{}
			c := newTestClient(t, ft)
			_, err := c.Generate(context.Background(), tc.payload, tc.instruction)
			assert.Equal(t, KindInvalidInput, KindOf(err))
			assert.Zero(t, ft.calls)
		})
	}
}

func TestGenerateAcceptsPrefixedPayload(t *testing.T) {
	ft := &fakeTransport{reply: []*gensdk.Part{imagePart("x")}}
	c := newTestClient(t, ft)

	payload := upload.Payload{Base64Data: "data:image/png;base64," + testPayload.Base64Data, MIMEType: "image/png"}
	_, err := c.Generate(context.Background(), payload, flatInstruction)
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg-bytes"), ft.parts[1].InlineData.Data)
}

func TestParsePartsImageAnywhereWins(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		texts := rapid.SliceOf(rapid.StringMatching(`[a-z ]{0,12}`)).Draw(t, "texts")
		pos := rapid.IntRange(0, len(texts)).Draw(t, "pos")
		img := rapid.SliceOfN(rapid.Byte(), 1, 64).Draw(t, "img")

		parts := make([]*gensdk.Part, 0, len(texts)+1)
		for _, s := range texts {
			parts = append(parts, &gensdk.Part{Text: s})
		}
		parts = append(parts[:pos], append([]*gensdk.Part{{InlineData: &gensdk.Blob{MIMEType: "image/webp", Data: img}}}, parts[pos:]...)...)

		uri, err := parseParts(parts)
		if err != nil {
			t.Fatalf("parseParts: %v", err)
		}
		if uri != "data:image/png;base64,"+base64.StdEncoding.EncodeToString(img) {
			t.Fatalf("unexpected uri %q", uri)
		}
	})
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(nil))
	assert.Equal(t, KindTransport, KindOf(errors.New("boom")))
	assert.Equal(t, KindNoImageData, KindOf(&Error{Kind: KindNoImageData}))
	assert.Equal(t, "An unexpected error occurred.", (&Error{Kind: KindTransport}).Error())
}

func TestNewClientUnknownTransport(t *testing.T) {
	_, err := NewClient(Options{Transport: "grpc"})
	assert.Error(t, err)
}
