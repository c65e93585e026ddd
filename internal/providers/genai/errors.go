package genai

import "errors"

// Kind classifies a generation failure.
type Kind string

const (
	KindInvalidInput   Kind = "invalid_input"
	KindEmptyResponse  Kind = "empty_response"
	KindNoImageData    Kind = "no_image_data"
	KindTextualRefusal Kind = "textual_refusal"
	KindTransport      Kind = "transport"
)

const (
	msgEmptyResponse = "No content generated."
	msgNoImageData   = "No image data found in response."
	msgTextPrefix    = "Model returned text instead of image: "
	msgUnexpected    = "An unexpected error occurred."
)

// Error is the only error type returned by Client.Generate. Message is the
// display string; Err is the underlying cause for transport failures.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return msgUnexpected
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf reports the failure kind of err. Errors that did not come from this
// package are treated as transport failures.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr.Kind
	}
	return KindTransport
}

// DisplayMessage returns the string shown to users for err.
func DisplayMessage(err error) string {
	if err == nil {
		return ""
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return msgUnexpected
}

func transportError(err error) *Error {
	return &Error{Kind: KindTransport, Message: DisplayMessage(err), Err: err}
}

func invalidInput(msg string) *Error {
	return &Error{Kind: KindInvalidInput, Message: msg}
}
