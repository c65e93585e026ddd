package genai

import (
	"encoding/base64"

	gensdk "google.golang.org/genai"
)

const pngDataURIPrefix = "data:image/png;base64,"

// parseParts turns the first candidate's parts into a PNG data URI.
// Inline data beats text wherever it appears; the first non-empty text part
// is only reported when no part carries image bytes.
func parseParts(parts []*gensdk.Part) (string, error) {
	if len(parts) == 0 {
		return "", &Error{Kind: KindEmptyResponse, Message: msgEmptyResponse}
	}

	for _, part := range parts {
		if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
			return pngDataURIPrefix + base64.StdEncoding.EncodeToString(part.InlineData.Data), nil
		}
	}

	for _, part := range parts {
		if part != nil && part.Text != "" {
			return "", &Error{Kind: KindTextualRefusal, Message: msgTextPrefix + part.Text}
		}
	}

	return "", &Error{Kind: KindNoImageData, Message: msgNoImageData}
}

func firstCandidateParts(resp *gensdk.GenerateContentResponse) []*gensdk.Part {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil
	}
	cand := resp.Candidates[0]
	if cand == nil || cand.Content == nil {
		return nil
	}
	return cand.Content.Parts
}
